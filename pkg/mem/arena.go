// Copyright 2026 The MelloOS Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package mem provides the kmalloc-shaped allocator the scheduler core
// consumes (spec §6: "the core only consumes a kmalloc(size) -> raw
// address primitive"). Real physical/virtual memory management is an
// explicit non-goal (spec §1); this is a bump allocator over a pinned
// byte arena that satisfies the one invariant the scheduler core actually
// depends on: an address, once handed out, is never relocated or reused
// for the lifetime of the arena (spec §9 "Heap-referenced TCBs with stable
// addresses").
package mem

import (
	"sync"
	"unsafe"
)

// Arena is a fixed-size, never-freed bump allocator. It stands in for the
// kernel heap allocator named but out-of-scope in spec §1/§6.
type Arena struct {
	mu     sync.Mutex
	buf    []byte
	offset int
}

// NewArena allocates a pinned backing store of the given size. The
// returned Arena's addresses remain valid for its entire lifetime.
func NewArena(size int) *Arena {
	return &Arena{buf: make([]byte, size)}
}

// Alloc reserves size bytes aligned to align (which must be a power of
// two) and returns their address, or ok=false if the arena is exhausted —
// the Go analogue of kmalloc returning null.
func (a *Arena) Alloc(size, align int) (addr uintptr, ok bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	base := uintptr(unsafe.Pointer(&a.buf[0]))
	cur := base + uintptr(a.offset)
	aligned := (cur + uintptr(align) - 1) &^ (uintptr(align) - 1)
	pad := int(aligned - cur)

	if a.offset+pad+size > len(a.buf) {
		return 0, false
	}
	a.offset += pad + size
	return aligned, true
}

// Cap returns the arena's total capacity in bytes.
func (a *Arena) Cap() int { return len(a.buf) }

// Used returns the number of bytes handed out so far.
func (a *Arena) Used() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.offset
}
