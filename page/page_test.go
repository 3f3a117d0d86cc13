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

package page

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderOf(t *testing.T) {
	tests := []struct {
		n    uint64
		want Order
	}{
		{0, 0},
		{1, 0},
		{2, 1},
		{3, 2},
		{4, 2},
		{5, 3},
		{1024, 10},
		{1025, 11},
		{1 << 40, 40},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, OrderOf(tt.n), "n=%d", tt.n)
	}
}

func TestNumberAligned(t *testing.T) {
	assert.True(t, Number(0).Aligned(5))
	assert.True(t, Number(32).Aligned(5))
	assert.False(t, Number(16).Aligned(5))
	assert.True(t, Number(7).Aligned(0))
}

func TestRange(t *testing.T) {
	r := Range{Start: 4, End: 12}
	assert.Equal(t, uint64(8), r.Len())
	assert.True(t, r.Contains(4))
	assert.True(t, r.Contains(11))
	assert.False(t, r.Contains(12))
	assert.Equal(t, "[4, 12)", r.String())
	assert.Equal(t, uint64(0), Range{Start: 5, End: 3}.Len())
	assert.Equal(t, Range{Start: 8, End: 16}, BlockRange(8, 3))
	assert.Equal(t, Number(15), BlockRange(8, 3).Last())
}

func TestRangeTopOfSpace(t *testing.T) {
	r := BlockRange(1<<63, MaxOrder)
	assert.Equal(t, Number(0), r.End)
	assert.Equal(t, Number(1<<63), r.Start)
	assert.Equal(t, Number(1<<64-1), r.Last())
}

func TestCarve(t *testing.T) {
	type block struct {
		base Number
		o    Order
	}
	tests := []struct {
		name string
		r    Range
		want []block
	}{
		{"aligned_pow2", Range{0, 16}, []block{{0, 4}}},
		{"empty", Range{8, 8}, nil},
		{"tail", Range{0, 13}, []block{{0, 3}, {8, 2}, {12, 0}}},
		{"unaligned_start", Range{3, 16}, []block{{3, 0}, {4, 2}, {8, 3}}},
		{"both", Range{5, 21}, []block{{5, 0}, {6, 1}, {8, 3}, {16, 2}, {20, 0}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []block
			Carve(tt.r, func(base Number, o Order) bool {
				got = append(got, block{base, o})
				return true
			})
			assert.Equal(t, tt.want, got)

			var total uint64
			for _, b := range got {
				assert.True(t, b.base.Aligned(b.o))
				total += b.o.Pages()
			}
			assert.Equal(t, tt.r.Len(), total)
		})
	}

	n := 0
	Carve(Range{0, 13}, func(Number, Order) bool {
		n++
		return false
	})
	assert.Equal(t, 1, n)
}

func TestAddr(t *testing.T) {
	assert.Equal(t, uintptr(3*4096), ToAddr(3, 4096))

	pn, err := FromAddr(5*4096, 4096)
	require.NoError(t, err)
	assert.Equal(t, Number(5), pn)

	_, err = FromAddr(5*4096+1, 4096)
	assert.Error(t, err)
	_, err = FromAddr(4096, 3000)
	assert.Error(t, err)
}

func TestSize(t *testing.T) {
	sz := Size()
	assert.True(t, ValidSize(sz), "size=%d", sz)
	assert.False(t, ValidSize(0))
	assert.False(t, ValidSize(-4096))
	assert.False(t, ValidSize(3000))
}
