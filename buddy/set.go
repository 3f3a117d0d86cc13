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

package buddy

import (
	"fmt"
	"sort"

	"github.com/cloudwego/pagealloc/page"
)

// Set serves pages from several independent allocators, one per naturally
// aligned power-of-two block of the usable page ranges it was built from.
// Like Allocator, it is not safe for concurrent use.
type Set struct {
	// allocs is sorted by base page and never overlaps.
	allocs   []*Allocator
	maxOrder page.Order
}

// NewSet carves ranges into maximal aligned power-of-two blocks and creates
// an allocator for each. Ranges must not overlap; empty ranges are skipped.
func NewSet(ranges []page.Range, opt *Option) (*Set, error) {
	o := normalizeOption(opt)

	rs := make([]page.Range, 0, len(ranges))
	for _, r := range ranges {
		if r.Len() > 0 {
			rs = append(rs, r)
		}
	}
	sort.Slice(rs, func(i, j int) bool { return rs[i].Start < rs[j].Start })
	for i := 1; i < len(rs); i++ {
		if rs[i].Start < rs[i-1].End {
			return nil, fmt.Errorf("%w: ranges %s and %s overlap", ErrInvalidConstruction, rs[i-1], rs[i])
		}
	}

	s := &Set{maxOrder: noFree}
	var err error
	for _, r := range rs {
		page.Carve(r, func(base page.Number, order page.Order) bool {
			var a *Allocator
			if a, err = New(base, order, &o); err != nil {
				return false
			}
			o.logf("buddy: range %s: root at page %d, order %d", r, base, order)
			s.allocs = append(s.allocs, a)
			if order > s.maxOrder {
				s.maxOrder = order
			}
			return true
		})
		if err != nil {
			return nil, err
		}
	}
	if len(s.allocs) == 0 {
		return nil, fmt.Errorf("%w: no usable pages", ErrInvalidConstruction)
	}
	return s, nil
}

// Len returns the number of allocators in the set.
func (s *Set) Len() int { return len(s.allocs) }

// Roots returns the block covered by each allocator, in ascending order.
func (s *Set) Roots() []page.Range {
	ret := make([]page.Range, len(s.allocs))
	for i, a := range s.allocs {
		ret[i] = a.root.Range()
	}
	return ret
}

// AllocatePages allocates from the lowest allocator that has a free area
// large enough. See Allocator.AllocatePages.
func (s *Set) AllocatePages(numPages uint64) (page.Number, error) {
	if numPages == 0 || numPages > s.maxOrder.Pages() {
		return 0, fmt.Errorf("%w: %d pages requested, largest block is %d pages",
			ErrOutOfRange, numPages, s.maxOrder.Pages())
	}
	o := int(page.OrderOf(numPages))
	for _, a := range s.allocs {
		if a.LargestFreeOrder() >= o {
			return a.AllocatePages(numPages)
		}
	}
	return 0, fmt.Errorf("%w: no free area of order %d in %d allocators", ErrNoFreeMemory, o, len(s.allocs))
}

// AllocateAt routes to the allocator owning pn. See Allocator.AllocateAt.
func (s *Set) AllocateAt(pn page.Number, numPages uint64) (page.Number, error) {
	a := s.find(pn)
	if a == nil {
		return 0, fmt.Errorf("%w: page %d is not managed", ErrAddressUnavailable, pn)
	}
	return a.AllocateAt(pn, numPages)
}

// FreePages routes to the allocator owning pn. See Allocator.FreePages.
func (s *Set) FreePages(pn page.Number) error {
	a := s.find(pn)
	if a == nil {
		return fmt.Errorf("%w: page %d is not managed", ErrInvalidFree, pn)
	}
	return a.FreePages(pn)
}

// LargestFreeOrder returns the largest free order over all allocators,
// or -1 if every page is allocated.
func (s *Set) LargestFreeOrder() int {
	ret := int(noFree)
	for _, a := range s.allocs {
		if o := a.LargestFreeOrder(); o > ret {
			ret = o
		}
	}
	return ret
}

// FreePageCount returns the number of free pages over all allocators.
func (s *Set) FreePageCount() uint64 {
	var n uint64
	for _, a := range s.allocs {
		n += a.FreePageCount()
	}
	return n
}

func (s *Set) find(pn page.Number) *Allocator {
	i := sort.Search(len(s.allocs), func(i int) bool { return s.allocs[i].root.base > pn }) - 1
	if i < 0 || !s.allocs[i].Contains(pn) {
		return nil
	}
	return s.allocs[i]
}
