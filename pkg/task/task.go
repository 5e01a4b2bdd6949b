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

// Package task defines the Task Control Block (spec §3, §4.1), adapted
// from the sched::task module referenced by
// original_source/kernel/src/sched/{mod,priority}.rs (the TCB
// itself was filtered out of the retrieved original source, so its shape
// here is derived from how mod.rs and priority.rs use it) and from
// gVisor's kernel.Task (katexochen-gvisor/pkg/sentry/kernel/task_start.go),
// which is itself one goroutine per schedulable unit rather than a raw
// register/stack pair.
package task

import (
	"fmt"
	"sync"

	"github.com/MelloOS/MelloOS/pkg/cpu"
	"github.com/MelloOS/MelloOS/pkg/mem"
)

// MaxTasks is the compile-time bound on live tasks (spec §3: "Maximum
// live tasks: 64").
const MaxTasks = 64

// stackSize is the size of each task's dedicated kernel-mode stack
// bookkeeping region (spec §3 stack_base/stack_size). It is not actually
// executed on (see pkg/cpu's package doc); it exists so Spawn can fail
// with OutOfMemory the same way the original kmalloc-backed allocator can.
const stackSize = 16 * 1024

// Id is a small non-negative integer, unique for the process lifetime,
// assigned monotonically. Id 0 is reserved for the idle task (spec §3).
type Id int

// String implements fmt.Stringer for diagnostics.
func (id Id) String() string { return fmt.Sprintf("task<%d>", int(id)) }

// State is the task's tagged lifecycle state (spec §3 TaskState).
type State int

const (
	// Ready means the task is reachable from exactly one ready queue.
	Ready State = iota
	// Running means the task is the single currently-executing task.
	Running
	// Sleeping means the task is reachable from the sleep table only.
	Sleeping
	// Terminated means the task has exited and owns no scheduler slot.
	Terminated
)

func (s State) String() string {
	switch s {
	case Ready:
		return "ready"
	case Running:
		return "running"
	case Sleeping:
		return "sleeping"
	case Terminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Priority is an ordered enum serving as the index into the ready-queue
// bank (spec §3 TaskPriority).
type Priority int

const (
	Low Priority = iota
	Normal
	High
)

// NumPriorities is the number of distinct priority levels (Low, Normal,
// High), i.e. the width of the ready-queue bank and its bitmap.
const NumPriorities = 3

func (p Priority) String() string {
	switch p {
	case Low:
		return "low"
	case Normal:
		return "normal"
	case High:
		return "high"
	default:
		return "unknown"
	}
}

// Entry is a task's entry point. It must not return in normal operation;
// the bootstrap trampoline halts the task goroutine forever if it does
// (spec §4.1 invariant).
type Entry func()

// Task is the Task Control Block: exclusively owned by the scheduler,
// allocated once and never relocated (spec §3, §9 "Heap-referenced TCBs
// with stable addresses" — here realized as a pointer handed out once by
// Spawn and never copied by value thereafter).
type Task struct {
	ID       Id
	Name     string
	Priority Priority
	Entry    Entry

	// StackBase/StackSize mirror §4.1's TCB attributes; the bytes
	// they describe are bookkeeping only (see pkg/cpu doc) backed by a
	// pkg/mem.Arena allocation so Spawn can still fail with OutOfMemory.
	StackBase uintptr
	StackSize int

	// Context is the saved CPU context snapshot (spec §3 CpuContext).
	Context cpu.CpuContext

	mu    sync.Mutex
	state State

	// checkpoint is the Go realization of "a task suspended at a
	// checkpoint is exactly a goroutine blocked on a channel receive"
	// (see pkg/cpu package doc). The scheduler resumes a task by
	// sending on checkpoint and regains control when the task sends
	// back on sched (at its next checkpoint, a voluntary yield, or
	// sleep).
	checkpoint chan struct{}
	sched      chan struct{}

	started bool
}

// New allocates a dedicated stack from arena and prepares a Task whose
// first resume enters the bootstrap trampoline (spec §4.1). It does not
// start the task's goroutine; the first Resume does that, exactly once,
// via ensureStarted, the same way a freshly spawned TCB doesn't run until
// the scheduler first context-switches into it.
func New(arena *mem.Arena, id Id, name string, entry Entry, prio Priority) (*Task, bool) {
	base, ok := arena.Alloc(stackSize, 16)
	if !ok {
		return nil, false
	}
	t := &Task{
		ID:         id,
		Name:       name,
		Priority:   prio,
		Entry:      entry,
		StackBase:  base,
		StackSize:  stackSize,
		state:      Ready,
		checkpoint: make(chan struct{}),
		sched:      make(chan struct{}),
	}
	t.Context = cpu.NewContext(base + uintptr(stackSize))
	return t, true
}

// State returns the task's current lifecycle state.
func (t *Task) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// SetState updates the task's lifecycle state. It is the scheduler's
// responsibility to call this only while holding its own lock (spec §5).
func (t *Task) SetState(s State) {
	t.mu.Lock()
	t.state = s
	t.mu.Unlock()
}

// ensureStarted launches the task's goroutine the first time it is
// resumed, implementing the bootstrap trampoline (spec §4.1): the
// goroutine's body is the trampoline itself, parked on checkpoint until
// the scheduler hands it control, at which point it "enables interrupts"
// (a no-op placeholder in this hosted rewrite — there is no real
// interrupt-disable state outside the scheduler's own lock) and invokes
// Entry. If Entry returns, the trampoline halts the task forever instead
// of corrupting scheduler state, matching spec §4.1's invariant.
func (t *Task) ensureStarted() {
	t.mu.Lock()
	if t.started {
		t.mu.Unlock()
		return
	}
	t.started = true
	t.mu.Unlock()

	go func() {
		<-t.checkpoint // wait for the first context switch into this task
		t.Entry()
		// Entry must never return (spec §4.1 invariant). Halt forever
		// rather than letting the goroutine fall off the end and
		// corrupt scheduler bookkeeping.
		for {
			<-t.checkpoint
		}
	}()
}

// Resume hands control to the task and blocks until it next checkpoints
// back into the scheduler (voluntary yield, sleep, or the scheduler
// deciding to preempt it on the next Tick). This is the Go realization of
// context_switch's "return through the new stack's return address" half
// (spec §4.5).
func (t *Task) Resume() {
	t.ensureStarted()
	t.checkpoint <- struct{}{}
	<-t.sched
}

// Checkpoint is called by task code (normally via the demo entry points
// in pkg/kernel, or by Scheduler.Yield/SleepCurrent) to hand control back
// to the scheduler and block until resumed again. It is the task-side
// half of the same rendezvous Resume drives.
func (t *Task) Checkpoint() {
	t.sched <- struct{}{}
	<-t.checkpoint
}
