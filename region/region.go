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

// Package region backs a buddy page allocator with real memory, handing out
// page spans as byte slices.
package region

import (
	"errors"
	"fmt"
	"math/bits"
	"unsafe"

	"github.com/bytedance/gopkg/lang/dirtmake"

	"github.com/cloudwego/pagealloc/buddy"
	"github.com/cloudwego/pagealloc/page"
)

// ErrClosed is returned by operations on a closed Region.
var ErrClosed = errors.New("region: closed")

// Region is a block of 1<<order pages of memory managed by a buddy allocator.
// Like buddy.Allocator, it is not safe for concurrent use.
type Region struct {
	// mem is the memory we are managing.
	mem []byte

	// memStart is a cached pointer to the start of mem.
	// Used for fast offset calculations in Free().
	memStart unsafe.Pointer

	pageShift int
	pages     *buddy.Allocator

	// release returns mem to the system, nil for heap memory.
	release func([]byte) error
}

// New creates a heap backed region of 1<<order pages of pageSize bytes.
// The memory is not zeroed.
func New(order page.Order, pageSize int) (*Region, error) {
	size, err := regionSize(order, pageSize)
	if err != nil {
		return nil, err
	}
	return newRegion(dirtmake.Bytes(size, size), order, pageSize, nil)
}

func regionSize(order page.Order, pageSize int) (int, error) {
	if !page.ValidSize(pageSize) {
		return 0, fmt.Errorf("%w: page size must be a power of two, got %d", buddy.ErrInvalidConstruction, pageSize)
	}
	if !order.Valid() {
		return 0, fmt.Errorf("%w: invalid order %d", buddy.ErrInvalidConstruction, order)
	}
	shift := bits.TrailingZeros(uint(pageSize))
	if int(order)+shift >= bits.UintSize-1 {
		return 0, fmt.Errorf("%w: %d pages of %d bytes overflow the address space",
			buddy.ErrInvalidConstruction, order.Pages(), pageSize)
	}
	return pageSize << uint(order), nil
}

func newRegion(mem []byte, order page.Order, pageSize int, release func([]byte) error) (*Region, error) {
	pages, err := buddy.New(0, order, &buddy.Option{PageSize: pageSize})
	if err != nil {
		return nil, err
	}
	return &Region{
		mem:       mem,
		memStart:  unsafe.Pointer(&mem[0]),
		pageShift: bits.TrailingZeros(uint(pageSize)),
		pages:     pages,
		release:   release,
	}, nil
}

// PageSize returns the size of a page in bytes.
func (r *Region) PageSize() int { return 1 << uint(r.pageShift) }

// NumPages returns the number of pages in the region.
func (r *Region) NumPages() uint64 { return r.pages.NumPages() }

// FreePageCount returns the number of free pages.
func (r *Region) FreePageCount() uint64 { return r.pages.FreePageCount() }

// LargestFreeOrder returns the order of the largest free block, or -1.
func (r *Region) LargestFreeOrder() int { return r.pages.LargestFreeOrder() }

// Alloc allocates numPages pages, rounded up to a power of two.
// The returned slice has a length of numPages pages and a cap of the whole
// block. Its content is undefined.
func (r *Region) Alloc(numPages uint64) ([]byte, error) {
	if r.mem == nil {
		return nil, ErrClosed
	}
	pn, err := r.pages.AllocatePages(numPages)
	if err != nil {
		return nil, err
	}
	return r.slice(pn, numPages), nil
}

// AllocAt allocates the block of numPages pages starting at page pn of the
// region. See buddy.Allocator.AllocateAt.
func (r *Region) AllocAt(pn page.Number, numPages uint64) ([]byte, error) {
	if r.mem == nil {
		return nil, ErrClosed
	}
	if _, err := r.pages.AllocateAt(pn, numPages); err != nil {
		return nil, err
	}
	return r.slice(pn, numPages), nil
}

func (r *Region) slice(pn page.Number, numPages uint64) []byte {
	off := int(pn) << uint(r.pageShift)
	n := int(numPages) << uint(r.pageShift)
	blockSize := int(page.OrderOf(numPages).Pages()) << uint(r.pageShift)
	return r.mem[off : off+n : off+blockSize]
}

// Page returns the page number of b within the region.
// b must start on a page boundary inside the region.
func (r *Region) Page(b []byte) (page.Number, error) {
	if cap(b) == 0 {
		return 0, fmt.Errorf("%w: empty slice", buddy.ErrInvalidFree)
	}
	// Use slice header directly to avoid panic on zero-length slices.
	dataPtr := *(*uintptr)(unsafe.Pointer(&b))
	start := uintptr(r.memStart)
	if dataPtr < start || dataPtr-start >= uintptr(len(r.mem)) {
		return 0, fmt.Errorf("%w: slice not in region", buddy.ErrInvalidFree)
	}
	off := dataPtr - start
	if off&(uintptr(1)<<uint(r.pageShift)-1) != 0 {
		return 0, fmt.Errorf("%w: slice does not start on a page boundary", buddy.ErrInvalidFree)
	}
	return page.Number(off >> uint(r.pageShift)), nil
}

// Free returns a block to the region.
//
// IMPORTANT: b must be the original slice returned by Alloc or AllocAt.
// Reslicing its start (e.g., b[n:]) makes it unrecognizable.
// A nil or empty-cap slice was never returned by the region and is
// rejected with buddy.ErrInvalidFree.
func (r *Region) Free(b []byte) error {
	if r.mem == nil {
		return ErrClosed
	}
	pn, err := r.Page(b)
	if err != nil {
		return err
	}
	return r.pages.FreePages(pn)
}

// Close releases the memory of the region. Slices returned by Alloc must
// not be used afterwards.
func (r *Region) Close() error {
	if r.mem == nil {
		return ErrClosed
	}
	mem, release := r.mem, r.release
	r.mem, r.memStart, r.release = nil, nil, nil
	if release != nil {
		return release(mem)
	}
	return nil
}
