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
	"sync"

	"github.com/cloudwego/pagealloc/page"
)

// Locked is an Allocator guarded by a single mutex.
// Every operation holds the lock for its whole, bounded duration.
type Locked struct {
	mu sync.Mutex
	a  *Allocator
}

// NewLocked creates a Locked allocator. See New for the arguments.
func NewLocked(base page.Number, order page.Order, opt *Option) (*Locked, error) {
	a, err := New(base, order, opt)
	if err != nil {
		return nil, err
	}
	return &Locked{a: a}, nil
}

// AllocatePages is the locked version of Allocator.AllocatePages.
func (l *Locked) AllocatePages(numPages uint64) (page.Number, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.a.AllocatePages(numPages)
}

// AllocateAt is the locked version of Allocator.AllocateAt.
func (l *Locked) AllocateAt(pn page.Number, numPages uint64) (page.Number, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.a.AllocateAt(pn, numPages)
}

// FreePages is the locked version of Allocator.FreePages.
func (l *Locked) FreePages(pn page.Number) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.a.FreePages(pn)
}

// LargestFreeOrder is the locked version of Allocator.LargestFreeOrder.
func (l *Locked) LargestFreeOrder() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.a.LargestFreeOrder()
}

// FreePageCount is the locked version of Allocator.FreePageCount.
func (l *Locked) FreePageCount() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.a.FreePageCount()
}

// Do runs f with exclusive access to the underlying allocator, for compound
// operations that must not interleave with others.
// f must not retain the allocator.
func (l *Locked) Do(f func(a *Allocator)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	f(l.a)
}
