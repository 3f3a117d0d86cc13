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

//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package region

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/cloudwego/pagealloc/page"
)

// NewMapped creates a region backed by a private anonymous mapping, so its
// memory comes straight from the OS rather than the Go heap.
func NewMapped(order page.Order, pageSize int) (*Region, error) {
	size, err := regionSize(order, pageSize)
	if err != nil {
		return nil, err
	}
	mem, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("region: mmap %d bytes: %w", size, err)
	}
	r, err := newRegion(mem, order, pageSize, unix.Munmap)
	if err != nil {
		_ = unix.Munmap(mem)
		return nil, err
	}
	return r, nil
}
