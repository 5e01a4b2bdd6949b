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

// Package kernerr defines the sentinel error values surfaced by the
// scheduler core and its syscall gate. Callers compare against these with
// errors.Is rather than matching on formatted strings, the same way
// gvisor.dev/gvisor/pkg/errors/linuxerr exposes package-level sentinels for
// its syscall layer.
package kernerr

import "errors"

// Scheduler-core errors (spec §7).
var (
	// TooManyTasks is returned by Spawn when the TaskId space is exhausted.
	TooManyTasks = errors.New("kernel: too many tasks")

	// OutOfMemory is returned by Spawn when TCB or stack allocation fails.
	OutOfMemory = errors.New("kernel: out of memory")

	// QueueFull indicates ready-queue saturation during an enqueue that the
	// scheduler itself performs. Unlike the other sentinels here, it marks
	// an invariant violation: Fatal reports true for it, and the scheduler
	// panics on such a failed enqueue instead of returning an error.
	QueueFull = errors.New("kernel: ready queue full")

	// SleepTableFull is returned by SleepCurrent when no free slot remains.
	SleepTableFull = errors.New("kernel: sleep table full")

	// InvalidFrequency is returned when a requested timer frequency falls
	// outside [1 Hz, 1000 Hz] (spec §4.6).
	InvalidFrequency = errors.New("kernel: timer frequency out of range")
)

// Syscall-gate errors (spec §7), returned to user code as -1 and logged.
var (
	InvalidFd      = errors.New("kernel: invalid fd")
	InvalidBuffer  = errors.New("kernel: invalid buffer")
	InvalidSyscall = errors.New("kernel: invalid syscall")
)

// IPC errors (spec §7, §9) — defined for the dispatch table but not
// delivered; see pkg/ipc.
var (
	InvalidPort     = errors.New("kernel: invalid ipc port")
	PortNotFound    = errors.New("kernel: ipc port not registered")
	IPCQueueFull    = errors.New("kernel: ipc queue full")
	MessageTooLarge = errors.New("kernel: ipc message too large")
	NotImplemented  = errors.New("kernel: ipc not implemented")
)

// Fatal reports whether err represents a kernel invariant violation that
// must halt the kernel rather than be recovered by the caller (spec §4.4
// "Failure semantics").
func Fatal(err error) bool {
	return errors.Is(err, QueueFull)
}
