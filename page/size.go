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

import "fmt"

// DefaultSize is used when the platform page size cannot be queried.
const DefaultSize = 4096

// Size returns the platform page size in bytes.
func Size() int {
	return platformSize()
}

// ValidSize reports whether size is usable as a page size.
func ValidSize(size int) bool {
	return size > 0 && size&(size-1) == 0
}

// ToAddr converts pn to the byte address of its first byte.
func ToAddr(pn Number, pageSize int) uintptr {
	return uintptr(pn) * uintptr(pageSize)
}

// FromAddr converts a page-aligned byte address to its page number.
func FromAddr(addr uintptr, pageSize int) (Number, error) {
	if !ValidSize(pageSize) {
		return 0, fmt.Errorf("page size must be a power of two, got %d", pageSize)
	}
	if addr&uintptr(pageSize-1) != 0 {
		return 0, fmt.Errorf("address %#x is not aligned to page size %d", addr, pageSize)
	}
	return Number(addr / uintptr(pageSize)), nil
}
