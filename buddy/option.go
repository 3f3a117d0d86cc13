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
	"log"

	"github.com/cloudwego/pagealloc/page"
)

// Option configures an Allocator.
type Option struct {
	// PageSize is the size of a page in bytes. It is only used to convert
	// between byte addresses and page numbers at the API boundary.
	// Must be a power of two.
	PageSize int

	// Verify enables a full invariant check of the tree after every
	// mutating operation. It costs O(number of areas) per call.
	Verify bool

	// Logf receives diagnostic messages. Nil disables logging.
	Logf func(format string, args ...interface{})
}

// DefaultOption returns the default values of Option.
func DefaultOption() *Option {
	return &Option{
		PageSize: page.Size(),
		Logf:     log.Printf,
	}
}

func (o *Option) logf(format string, args ...interface{}) {
	if o.Logf != nil {
		o.Logf(format, args...)
	}
}

func normalizeOption(o *Option) Option {
	if o == nil {
		return *DefaultOption()
	}
	ret := *o
	if ret.PageSize == 0 {
		ret.PageSize = page.Size()
	}
	return ret
}
