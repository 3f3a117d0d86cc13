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
	"encoding/binary"

	"github.com/bytedance/gopkg/lang/mcache"
	"github.com/bytedance/gopkg/util/xxhash3"
)

// leafRecordSize is the encoded size of a leaf: [8 bytes base][1 byte order][1 byte state]
const leafRecordSize = 10

// Fingerprint returns a hash of the leaf layout of the tree.
// Two allocators with the same leaves, in the same states, have the same
// fingerprint, so it can be compared before and after a series of operations
// that should leave the layout unchanged.
func (b *Allocator) Fingerprint() uint64 {
	n := 0
	b.root.walk(func(*Area) bool {
		n++
		return true
	})

	buf := mcache.Malloc(n * leafRecordSize)
	defer mcache.Free(buf)

	off := 0
	b.root.walk(func(leaf *Area) bool {
		binary.LittleEndian.PutUint64(buf[off:], uint64(leaf.base))
		buf[off+8] = byte(leaf.order)
		buf[off+9] = byte(leaf.state)
		off += leafRecordSize
		return true
	})
	return xxhash3.Hash(buf[:off])
}
