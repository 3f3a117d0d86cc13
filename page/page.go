/*
 * Copyright 2025 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package page defines the page-number space the allocators work in.
//
// Allocators never do byte arithmetic internally. A page is identified by its
// index (Number) and a block of pages by its power-of-two exponent (Order).
// Byte addresses only appear at the boundary, converted with a page size.
package page

import (
	"fmt"
	"math/bits"
)

// Number is the index of a page.
type Number uint64

// Order is the power-of-two exponent of a block size in pages:
// a block of order k spans exactly 1<<k pages.
type Order int

// MaxOrder is the largest order a block may have.
const MaxOrder Order = 63

// Pages returns the number of pages covered by a block of order o.
func (o Order) Pages() uint64 {
	return 1 << uint(o)
}

// Valid reports whether o is a usable block order.
func (o Order) Valid() bool {
	return o >= 0 && o <= MaxOrder
}

// OrderOf returns the smallest order k with 1<<k >= n.
// OrderOf(0) and OrderOf(1) are both 0.
func OrderOf(n uint64) Order {
	if n <= 1 {
		return 0
	}
	return Order(bits.Len64(n - 1))
}

// Aligned reports whether pn is a multiple of the block size of order o.
func (pn Number) Aligned(o Order) bool {
	return uint64(pn)&(o.Pages()-1) == 0
}

// Add returns the page n pages after pn.
func (pn Number) Add(n uint64) Number {
	return pn + Number(n)
}

// Range is the half-open page span [Start, End).
//
// A block that ends at the top of the page-number space has End == 0.
// Use Last when the span may reach that far.
type Range struct {
	Start Number
	End   Number
}

// Len returns the number of pages in r.
func (r Range) Len() uint64 {
	if r.End <= r.Start {
		return 0
	}
	return uint64(r.End - r.Start)
}

// Contains reports whether pn lies within r.
func (r Range) Contains(pn Number) bool {
	return pn >= r.Start && pn < r.End
}

// Last returns the final page of a non-empty r. It stays correct when
// End has wrapped to 0.
func (r Range) Last() Number {
	return r.End - 1
}

func (r Range) String() string {
	return fmt.Sprintf("[%d, %d)", r.Start, r.End)
}

// BlockRange returns the span of the block of order o starting at base.
// End wraps to 0 for a block that reaches the top of the page-number space.
func BlockRange(base Number, o Order) Range {
	return Range{Start: base, End: base.Add(o.Pages())}
}

// Carve splits r into maximal naturally aligned power-of-two blocks, from low
// to high address, and calls fn with the base and order of each.
// Carving stops early when fn returns false.
func Carve(r Range, fn func(base Number, o Order) bool) {
	start, end := r.Start, r.End
	for start < end {
		o := Order(bits.Len64(uint64(end-start)) - 1)
		if start != 0 {
			if tz := Order(bits.TrailingZeros64(uint64(start))); tz < o {
				o = tz
			}
		}
		if !fn(start, o) {
			return
		}
		start = start.Add(o.Pages())
	}
}
