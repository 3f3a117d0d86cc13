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

// Package buddy implements a binary buddy allocator over page numbers.
//
// An Allocator owns one naturally aligned power-of-two span of pages and
// serves requests for power-of-two page counts from it. Free areas are split
// on demand, lower half first, and freed areas are coalesced with their buddy
// immediately.
//
// An Allocator is not safe for concurrent use. Wrap it with Locked, or keep
// one Allocator per goroutine.
package buddy

import (
	"fmt"

	"github.com/cloudwego/pagealloc/page"
)

// Allocator is a buddy allocator for the pages [base, base + 1<<order).
type Allocator struct {
	root Area
	opt  Option

	// freePages is the sum of the sizes of all free leaves.
	freePages uint64
}

// New creates an allocator managing 1<<order pages starting at base.
// base must be a multiple of 1<<order.
func New(base page.Number, order page.Order, opt *Option) (*Allocator, error) {
	if !order.Valid() {
		return nil, fmt.Errorf("%w: order %d out of [0, %d]", ErrInvalidConstruction, order, page.MaxOrder)
	}
	if !base.Aligned(order) {
		return nil, fmt.Errorf("%w: base page %d is not aligned to order %d", ErrInvalidConstruction, base, order)
	}
	o := normalizeOption(opt)
	if !page.ValidSize(o.PageSize) {
		return nil, fmt.Errorf("%w: page size must be a power of two, got %d", ErrInvalidConstruction, o.PageSize)
	}
	return &Allocator{
		root:      newArea(base, order),
		opt:       o,
		freePages: order.Pages(),
	}, nil
}

// MustNew is like New but panics on error.
func MustNew(base page.Number, order page.Order, opt *Option) *Allocator {
	a, err := New(base, order, opt)
	if err != nil {
		panic(err)
	}
	return a
}

// Base returns the first page managed by the allocator.
func (b *Allocator) Base() page.Number { return b.root.base }

// Order returns the order of the whole managed span.
func (b *Allocator) Order() page.Order { return b.root.order }

// NumPages returns the number of pages managed by the allocator.
func (b *Allocator) NumPages() uint64 { return b.root.NumPages() }

// PageSize returns the page size used for address conversions.
func (b *Allocator) PageSize() int { return b.opt.PageSize }

// Contains reports whether pn is managed by the allocator.
func (b *Allocator) Contains(pn page.Number) bool { return b.root.contains(pn) }

// FreePageCount returns the number of free pages.
// They are not necessarily contiguous.
func (b *Allocator) FreePageCount() uint64 { return b.freePages }

// LargestFreeOrder returns the order of the largest free area, or -1 if
// every page is allocated. A request of order k can only succeed if
// k <= LargestFreeOrder().
func (b *Allocator) LargestFreeOrder() int { return int(b.root.maxFree) }

// AllocatePages allocates a block of at least numPages pages, rounded up to a
// power of two, and returns its first page.
func (b *Allocator) AllocatePages(numPages uint64) (page.Number, error) {
	o, err := b.orderFor(numPages)
	if err != nil {
		return 0, err
	}
	pn, ok := b.root.findAndAllocate(o)
	if !ok {
		return 0, fmt.Errorf("%w: no free area of order %d, largest free order is %d",
			ErrNoFreeMemory, o, b.root.maxFree)
	}
	b.freePages -= o.Pages()
	b.check()
	return pn, nil
}

// AllocateAt allocates the block of numPages pages, rounded up to a power of
// two, that starts exactly at pn. pn must be aligned to the rounded size and
// the whole block must be free.
func (b *Allocator) AllocateAt(pn page.Number, numPages uint64) (page.Number, error) {
	o, err := b.orderFor(numPages)
	if err != nil {
		return 0, err
	}
	if !b.root.contains(pn) {
		r := b.root.Range()
		return 0, fmt.Errorf("%w: page %d is outside pages [%d, %d]", ErrAddressUnavailable, pn, r.Start, r.Last())
	}
	if !pn.Aligned(o) {
		return 0, fmt.Errorf("%w: page %d is not aligned to order %d", ErrAddressUnavailable, pn, o)
	}
	if err := b.root.allocateAt(pn, o); err != nil {
		return 0, err
	}
	b.freePages -= o.Pages()
	b.check()
	return pn, nil
}

// FreePages frees the block starting at pn, which must have been returned by
// AllocatePages or AllocateAt and not freed since.
func (b *Allocator) FreePages(pn page.Number) error {
	if !b.root.contains(pn) {
		r := b.root.Range()
		return fmt.Errorf("%w: page %d is outside pages [%d, %d]", ErrInvalidFree, pn, r.Start, r.Last())
	}
	o, err := b.root.free(pn)
	if err != nil {
		return err
	}
	b.freePages += o.Pages()
	b.check()
	return nil
}

// Addr returns the byte address of the first byte of pn.
func (b *Allocator) Addr(pn page.Number) uintptr {
	return page.ToAddr(pn, b.opt.PageSize)
}

// AllocateAtAddr is AllocateAt for a page-aligned byte address.
func (b *Allocator) AllocateAtAddr(addr uintptr, numPages uint64) (uintptr, error) {
	pn, err := page.FromAddr(addr, b.opt.PageSize)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrAddressUnavailable, err)
	}
	if _, err = b.AllocateAt(pn, numPages); err != nil {
		return 0, err
	}
	return addr, nil
}

// FreeAddr is FreePages for a page-aligned byte address.
func (b *Allocator) FreeAddr(addr uintptr) error {
	pn, err := page.FromAddr(addr, b.opt.PageSize)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFree, err)
	}
	return b.FreePages(pn)
}

// Reset frees every allocation at once.
func (b *Allocator) Reset() {
	b.root = newArea(b.root.base, b.root.order)
	b.freePages = b.root.NumPages()
}

// Walk calls fn for every leaf area from low to high pages, until fn returns
// false.
func (b *Allocator) Walk(fn func(base page.Number, order page.Order, allocated bool) bool) {
	b.root.walk(func(leaf *Area) bool {
		return fn(leaf.base, leaf.order, leaf.state == stateAllocated)
	})
}

func (b *Allocator) orderFor(numPages uint64) (page.Order, error) {
	if numPages == 0 {
		return 0, fmt.Errorf("%w: zero pages requested", ErrOutOfRange)
	}
	if numPages > b.root.NumPages() {
		return 0, fmt.Errorf("%w: %d pages requested, %d managed", ErrOutOfRange, numPages, b.root.NumPages())
	}
	return page.OrderOf(numPages), nil
}

func (b *Allocator) check() {
	if !b.opt.Verify {
		return
	}
	if err := b.Verify(); err != nil {
		panic(err)
	}
}
