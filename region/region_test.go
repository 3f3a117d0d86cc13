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

package region

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudwego/pagealloc/buddy"
	"github.com/cloudwego/pagealloc/page"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		order    page.Order
		pageSize int
		wantErr  bool
	}{
		{"valid", 4, 4096, false},
		{"single_page", 0, 4096, false},
		{"small_pages", 6, 64, false},
		{"page_size_not_pow2", 4, 3000, true},
		{"negative_order", -1, 4096, true},
		{"overflow", 60, 4096, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := New(tt.order, tt.pageSize)
			if tt.wantErr {
				assert.ErrorIs(t, err, buddy.ErrInvalidConstruction)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.pageSize, r.PageSize())
			assert.Equal(t, tt.order.Pages(), r.NumPages())
			assert.Equal(t, tt.pageSize<<uint(tt.order), len(r.mem))
			assert.NoError(t, r.Close())
		})
	}
}

func TestAllocFree(t *testing.T) {
	for name, newFn := range map[string]func(page.Order, int) (*Region, error){
		"heap":   New,
		"mapped": NewMapped,
	} {
		t.Run(name, func(t *testing.T) {
			r, err := newFn(4, 4096)
			require.NoError(t, err)
			defer r.Close()

			b1, err := r.Alloc(3)
			require.NoError(t, err)
			assert.Equal(t, 3*4096, len(b1))
			assert.Equal(t, 4*4096, cap(b1))
			for i := range b1 {
				b1[i] = byte(i)
			}

			b2, err := r.Alloc(1)
			require.NoError(t, err)
			assert.Equal(t, 4096, len(b2))
			assert.False(t, overlap(b1[:cap(b1)], b2))

			pn, err := r.Page(b2)
			require.NoError(t, err)
			assert.Equal(t, page.Number(4), pn)

			assert.Equal(t, uint64(11), r.FreePageCount())
			require.NoError(t, r.Free(b1))
			require.NoError(t, r.Free(b2))
			assert.Equal(t, uint64(16), r.FreePageCount())
			assert.Equal(t, 4, r.LargestFreeOrder())

			whole, err := r.Alloc(16)
			require.NoError(t, err)
			assert.Equal(t, 16*4096, len(whole))
			assert.Equal(t, uint64(0), r.FreePageCount())
			require.NoError(t, r.Free(whole))
		})
	}
}

func TestAllocFailures(t *testing.T) {
	r, err := New(2, 4096)
	require.NoError(t, err)

	_, err = r.Alloc(5)
	assert.ErrorIs(t, err, buddy.ErrOutOfRange)

	_, err = r.Alloc(4)
	require.NoError(t, err)
	_, err = r.Alloc(1)
	assert.ErrorIs(t, err, buddy.ErrNoFreeMemory)
}

func TestAllocAt(t *testing.T) {
	r, err := New(3, 512)
	require.NoError(t, err)

	b, err := r.AllocAt(4, 4)
	require.NoError(t, err)
	assert.Equal(t, 4*512, len(b))
	assert.Equal(t, unsafe.Pointer(&r.mem[4*512]), unsafe.Pointer(&b[0]))

	_, err = r.AllocAt(6, 1)
	assert.ErrorIs(t, err, buddy.ErrAddressUnavailable)

	b2, err := r.Alloc(4)
	require.NoError(t, err)
	assert.Equal(t, unsafe.Pointer(&r.mem[0]), unsafe.Pointer(&b2[0]))
}

func TestFreeInvalid(t *testing.T) {
	r, err := New(4, 4096)
	require.NoError(t, err)

	b, err := r.Alloc(2)
	require.NoError(t, err)

	tests := []struct {
		name  string
		block []byte
	}{
		{"outside", make([]byte, 4096)},
		{"misaligned", b[100:]},
		{"mid_block", b[4096:]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, r.Free(tt.block), buddy.ErrInvalidFree)
		})
	}

	// nil/empty were never handed out
	assert.ErrorIs(t, r.Free(nil), buddy.ErrInvalidFree)
	assert.ErrorIs(t, r.Free([]byte{}), buddy.ErrInvalidFree)
	assert.ErrorIs(t, r.Free(make([]byte, 0)), buddy.ErrInvalidFree)
	assert.Equal(t, r.NumPages()-2, r.FreePageCount())

	// zero length but original start is still recognized
	assert.NoError(t, r.Free(b[:0]))
	assert.ErrorIs(t, r.Free(b), buddy.ErrInvalidFree) // double free

	_, err = r.Page(nil)
	assert.ErrorIs(t, err, buddy.ErrInvalidFree)
}

func TestClose(t *testing.T) {
	r, err := NewMapped(2, 4096)
	require.NoError(t, err)
	b, err := r.Alloc(1)
	require.NoError(t, err)

	require.NoError(t, r.Close())
	assert.ErrorIs(t, r.Close(), ErrClosed)
	_, err = r.Alloc(1)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = r.AllocAt(0, 1)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, r.Free(b), ErrClosed)
}

func overlap(a, b []byte) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	aStart := uintptr(unsafe.Pointer(&a[0]))
	aEnd := aStart + uintptr(len(a))
	bStart := uintptr(unsafe.Pointer(&b[0]))
	bEnd := bStart + uintptr(len(b))
	return !(aEnd <= bStart || bEnd <= aStart)
}

func BenchmarkAllocFree(b *testing.B) {
	r, _ := New(12, 4096)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		buf, err := r.Alloc(2)
		if err == nil {
			_ = r.Free(buf)
		}
	}
}
