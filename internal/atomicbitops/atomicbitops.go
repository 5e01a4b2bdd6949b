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

// Package atomicbitops provides named atomic counter types, adapted from
// the gvisor.dev/gvisor/pkg/atomicbitops convention referenced by
// pkg/sentry/kernel/task_start.go (which imports it for lock-free counters
// shared between task goroutines and the rest of the kernel). The kernel's
// metrics (§4.8) and the scheduler's preempt-disable counter (§3) are
// exactly this shape: plain fields mutated from both task
// context and interrupt-equivalent context, where relaxed ordering
// suffices.
package atomicbitops

import "sync/atomic"

// Uint64 is a monotonically-usable 64-bit counter with relaxed-add
// semantics, matching core::sync::atomic::AtomicUsize::fetch_add(_,
// Ordering::Relaxed) in the original Rust kernel.
type Uint64 struct {
	v atomic.Uint64
}

// Add adds delta and returns the new value.
func (c *Uint64) Add(delta uint64) uint64 { return c.v.Add(delta) }

// Load returns the current value.
func (c *Uint64) Load() uint64 { return c.v.Load() }

// Store sets the value unconditionally.
func (c *Uint64) Store(val uint64) { c.v.Store(val) }

// Int64 is a signed 64-bit counter supporting decrement, used for the
// scheduler's preempt-disable depth (spec §4.4: "non-negative integer;
// saturates at zero on enable").
type Int64 struct {
	v atomic.Int64
}

// Add adds delta (which may be negative) and returns the new value.
func (c *Int64) Add(delta int64) int64 { return c.v.Add(delta) }

// Load returns the current value.
func (c *Int64) Load() int64 { return c.v.Load() }

// CompareAndSwap performs an atomic CAS.
func (c *Int64) CompareAndSwap(old, new int64) bool {
	return c.v.CompareAndSwap(old, new)
}
