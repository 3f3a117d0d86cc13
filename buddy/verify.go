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

// Verify checks every invariant of the tree:
//   - each area is aligned to its own order, within the root order
//   - buddies have order parent-1 and are contiguous, lower one first
//   - only split areas have children
//   - no split area has two free buddies (they would have been merged)
//   - cached free orders match the leaves
//   - leaves cover the managed span exactly and the free page count matches
func (b *Allocator) Verify() error {
	if err := b.root.verify(b.root.order); err != nil {
		return err
	}
	var total, free uint64
	b.root.walk(func(leaf *Area) bool {
		total += leaf.NumPages()
		if leaf.state == stateFree {
			free += leaf.NumPages()
		}
		return true
	})
	if total != b.root.NumPages() {
		return fmt.Errorf("buddy: leaves cover %d pages, want %d", total, b.root.NumPages())
	}
	if free != b.freePages {
		return fmt.Errorf("buddy: %d free pages in tree, counter says %d", free, b.freePages)
	}
	return nil
}

func (a *Area) verify(rootOrder page.Order) error {
	if a.order < 0 || a.order > rootOrder {
		return a.errorf("order out of [0, %d]", rootOrder)
	}
	if !a.base.Aligned(a.order) {
		return a.errorf("misaligned")
	}
	switch a.state {
	case stateFree:
		if a.children != nil {
			return a.errorf("leaf with children")
		}
		if a.maxFree != a.order {
			return a.errorf("free order cache %d", a.maxFree)
		}
		return nil
	case stateAllocated:
		if a.children != nil {
			return a.errorf("leaf with children")
		}
		if a.maxFree != noFree {
			return a.errorf("free order cache %d", a.maxFree)
		}
		return nil
	case stateSplit:
	default:
		return a.errorf("unknown state")
	}

	if a.children == nil {
		return a.errorf("split without children")
	}
	lo, hi := &a.children[0], &a.children[1]
	if lo.order != a.order-1 || hi.order != a.order-1 {
		return a.errorf("buddy orders %d and %d", lo.order, hi.order)
	}
	if lo.base != a.base || hi.base != lo.base.Add(lo.NumPages()) {
		return a.errorf("buddies at pages %d and %d", lo.base, hi.base)
	}
	if lo.state == stateFree && hi.state == stateFree {
		return a.errorf("free buddies not merged")
	}
	if err := lo.verify(rootOrder); err != nil {
		return err
	}
	if err := hi.verify(rootOrder); err != nil {
		return err
	}
	want := lo.maxFree
	if hi.maxFree > want {
		want = hi.maxFree
	}
	if a.maxFree != want {
		return a.errorf("free order cache %d, want %d", a.maxFree, want)
	}
	return nil
}

func (a *Area) errorf(format string, args ...interface{}) error {
	return fmt.Errorf("buddy: %s area at page %d, order %d: %s",
		a.state, a.base, a.order, fmt.Sprintf(format, args...))
}
