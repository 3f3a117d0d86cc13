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

import "errors"

// Errors returned by the allocator. Returned errors may wrap these with more
// context; match them with errors.Is.
var (
	// ErrInvalidConstruction is returned when the root base page is not
	// aligned to the root order, or the root geometry is otherwise unusable.
	ErrInvalidConstruction = errors.New("buddy: invalid construction")

	// ErrOutOfRange is returned when a request can never fit, regardless of
	// fragmentation.
	ErrOutOfRange = errors.New("buddy: request out of range")

	// ErrNoFreeMemory is returned when no single free area of the needed
	// order exists.
	ErrNoFreeMemory = errors.New("buddy: no free memory")

	// ErrAddressUnavailable is returned when a fixed-address request targets
	// space that is allocated, split finer than requested, or misaligned.
	ErrAddressUnavailable = errors.New("buddy: address unavailable")

	// ErrInvalidFree is returned when the freed page is not the base of a
	// currently allocated area.
	ErrInvalidFree = errors.New("buddy: invalid free")
)

var (
	errSplitSingle  = errors.New("buddy: cannot split a single page")
	errSplitNotFree = errors.New("buddy: cannot split an area that is not free")
)
