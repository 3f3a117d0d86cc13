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

	"github.com/cloudwego/pagealloc/page"
)

type state uint8

const (
	stateFree state = iota
	stateAllocated
	stateSplit
)

func (s state) String() string {
	switch s {
	case stateFree:
		return "free"
	case stateAllocated:
		return "allocated"
	case stateSplit:
		return "split"
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

// noFree is the cached max free order of a subtree without any free leaf.
const noFree page.Order = -1

// Area is one node of the buddy tree. It covers 1<<order pages starting at
// base, and is either a free leaf, an allocated leaf, or split into two
// half-size buddies.
type Area struct {
	base  page.Number
	order page.Order
	state state

	// maxFree is the largest order of any free leaf in this subtree,
	// or noFree. It is recomputed bottom-up after every mutation.
	maxFree page.Order

	// children is non-nil iff state == stateSplit.
	// Both buddies share one allocation and are dropped together on merge.
	children *[2]Area
}

func newArea(base page.Number, order page.Order) Area {
	return Area{base: base, order: order, state: stateFree, maxFree: order}
}

// StartPage returns the first page of the area.
func (a *Area) StartPage() page.Number { return a.base }

// NumPages returns the number of pages covered by the area.
func (a *Area) NumPages() uint64 { return a.order.Pages() }

// Order returns the order of the area.
func (a *Area) Order() page.Order { return a.order }

// Range returns the pages covered by the area. See page.BlockRange for
// the area reaching the top of the page-number space.
func (a *Area) Range() page.Range { return page.BlockRange(a.base, a.order) }

// IsLeaf reports whether the area has no children.
func (a *Area) IsLeaf() bool { return a.state != stateSplit }

// IsFree reports whether the area is a free leaf.
func (a *Area) IsFree() bool { return a.state == stateFree }

// IsAllocated reports whether the area is an allocated leaf.
func (a *Area) IsAllocated() bool { return a.state == stateAllocated }

// contains reports whether pn lies within the area.
// It avoids computing the end page, which overflows for the top block.
func (a *Area) contains(pn page.Number) bool {
	return pn >= a.base && uint64(pn-a.base) < a.NumPages()
}

// split turns a free leaf into two free buddies of order-1.
// The lower buddy keeps the base page, the upper one starts half way.
func (a *Area) split() error {
	if a.state != stateFree {
		return errSplitNotFree
	}
	if a.order == 0 {
		return errSplitSingle
	}
	half := a.order - 1
	a.children = &[2]Area{
		newArea(a.base, half),
		newArea(a.base.Add(half.Pages()), half),
	}
	a.state = stateSplit
	a.maxFree = half
	return nil
}

func (a *Area) mustSplit() {
	if err := a.split(); err != nil {
		panic(fmt.Sprintf("%v: page %d, order %d, %s", err, a.base, a.order, a.state))
	}
}

// merge collapses a split area back into a single free leaf when both of
// its buddies are free leaves. It reports whether it did.
func (a *Area) merge() bool {
	if a.state != stateSplit {
		return false
	}
	lo, hi := &a.children[0], &a.children[1]
	if lo.state != stateFree || hi.state != stateFree {
		return false
	}
	if lo.order != a.order-1 || hi.order != lo.order || lo.base != a.base || hi.base != lo.base.Add(lo.NumPages()) {
		panic(fmt.Sprintf("buddy: corrupted buddy pair under page %d, order %d", a.base, a.order))
	}
	a.children = nil
	a.state = stateFree
	a.maxFree = a.order
	return true
}

// update recomputes the cached max free order of a split area.
func (a *Area) update() {
	lo, hi := a.children[0].maxFree, a.children[1].maxFree
	if lo >= hi {
		a.maxFree = lo
	} else {
		a.maxFree = hi
	}
}

// child returns the buddy whose range contains pn.
func (a *Area) child(pn page.Number) *Area {
	if pn >= a.children[1].base {
		return &a.children[1]
	}
	return &a.children[0]
}

// fit returns the buddy to search for a free area of order o: the one with
// the tightest fit, the lower one on a tie. The caller guarantees that at
// least one of them fits.
func (a *Area) fit(o page.Order) *Area {
	lo, hi := &a.children[0], &a.children[1]
	if lo.maxFree < o {
		return hi
	}
	if hi.maxFree < o || lo.maxFree <= hi.maxFree {
		return lo
	}
	return hi
}

// tryAllocateExact allocates a free leaf of exactly order o.
func (a *Area) tryAllocateExact(o page.Order) (page.Number, bool) {
	if a.state != stateFree || a.order != o {
		return 0, false
	}
	a.state = stateAllocated
	a.maxFree = noFree
	return a.base, true
}

// findAndAllocate allocates the smallest fitting free area in the subtree,
// splitting it down to order o, and returns its base page.
// Nothing is mutated when it returns false.
func (a *Area) findAndAllocate(o page.Order) (page.Number, bool) {
	if a.maxFree < o {
		return 0, false
	}
	if a.state == stateFree {
		if a.order == o {
			return a.tryAllocateExact(o)
		}
		a.mustSplit()
	}
	pn, ok := a.fit(o).findAndAllocate(o)
	if !ok {
		panic(fmt.Sprintf("buddy: stale free order under page %d, order %d", a.base, a.order))
	}
	a.update()
	return pn, true
}

// allocateAt allocates exactly the area of order o based at pn.
// The caller guarantees pn lies within a and is aligned to o.
func (a *Area) allocateAt(pn page.Number, o page.Order) error {
	if a.order == o {
		if a.state == stateSplit {
			return fmt.Errorf("%w: area at page %d is partially allocated", ErrAddressUnavailable, pn)
		}
		if _, ok := a.tryAllocateExact(o); !ok {
			return fmt.Errorf("%w: area at page %d is allocated", ErrAddressUnavailable, pn)
		}
		return nil
	}
	switch a.state {
	case stateAllocated:
		return fmt.Errorf("%w: page %d lies inside the allocated area at page %d, order %d",
			ErrAddressUnavailable, pn, a.base, a.order)
	case stateFree:
		a.mustSplit()
	}
	if err := a.child(pn).allocateAt(pn, o); err != nil {
		return err
	}
	a.update()
	return nil
}

// free releases the allocated leaf based at pn, coalescing free buddies on
// the way back up. It returns the order of the released leaf.
func (a *Area) free(pn page.Number) (page.Order, error) {
	switch a.state {
	case stateAllocated:
		if pn != a.base {
			return 0, fmt.Errorf("%w: page %d lies inside the allocated area at page %d, order %d",
				ErrInvalidFree, pn, a.base, a.order)
		}
		a.state = stateFree
		a.maxFree = a.order
		return a.order, nil
	case stateFree:
		return 0, fmt.Errorf("%w: page %d is not allocated", ErrInvalidFree, pn)
	}
	o, err := a.child(pn).free(pn)
	if err != nil {
		return 0, err
	}
	if !a.merge() {
		a.update()
	}
	return o, nil
}

// walk calls fn for each leaf from low to high pages until fn returns false.
func (a *Area) walk(fn func(leaf *Area) bool) bool {
	if a.state == stateSplit {
		return a.children[0].walk(fn) && a.children[1].walk(fn)
	}
	return fn(a)
}
