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

package sched

import (
	"sync"

	"github.com/MelloOS/MelloOS/internal/atomicbitops"
	"github.com/MelloOS/MelloOS/internal/kernerr"
	"github.com/MelloOS/MelloOS/internal/klog"
	"github.com/MelloOS/MelloOS/internal/metrics"
	"github.com/MelloOS/MelloOS/pkg/cpu"
	"github.com/MelloOS/MelloOS/pkg/mem"
	"github.com/MelloOS/MelloOS/pkg/task"
)

var log = klog.For("sched")

// idleEntry is installed as task 0's entry point if the caller of Init
// doesn't supply one. It is a Checkpoint loop, the Go realization of
// "halt the CPU in a loop" (spec §4.4): each iteration is a safe point at
// which the scheduler may switch away, the cooperative analogue of a
// `hlt` instruction waking on the next interrupt.
func idleEntry(self *task.Task) func() {
	return func() {
		for {
			self.Checkpoint()
		}
	}
}

// Scheduler is the process-wide scheduler state (spec §3 "Scheduler
// State"): the ready-queue bank, the sleep table, the currently running
// task, the next TaskId to assign, the tick counter, and the
// preempt-disable depth. All of it is protected by a single mutex (spec
// §5 "the scheduler state ... is protected by a single spinlock that must
// be held across all mutations"), adapted from the SCHED/TASK_TABLE
// globals in
// original_source/kernel/src/sched/mod.rs.
type Scheduler struct {
	arena *mem.Arena
	m     *metrics.Metrics

	mu              sync.Mutex
	bank            readyQueueBank
	sleeping        sleepTable
	tasks           [task.MaxTasks]*task.Task
	current         task.Id
	hasCurrent      bool
	nextTID         task.Id
	currentTick     uint64
	preemptDisabled atomicbitops.Int64
}

// New constructs a Scheduler backed by arena for TCB/stack allocation and
// m for observability counters. Call Init before spawning any tasks or
// enabling the timer (spec §4.4 init: "must be called before spawning any
// tasks ... before enabling interrupts").
func New(arena *mem.Arena, m *metrics.Metrics) *Scheduler {
	return &Scheduler{arena: arena, m: m}
}

// Init installs the idle task (TaskId 0), whose entry halts forever and
// is never added to a ready queue (spec §4.4). It is only safe to call
// once, before interrupts are enabled.
func (s *Scheduler) Init() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.bank = readyQueueBank{}
	s.sleeping = sleepTable{}
	s.tasks = [task.MaxTasks]*task.Task{}
	s.nextTID = 1 // reserve 0 for idle, spec §3
	s.currentTick = 0
	s.preemptDisabled.Add(-s.preemptDisabled.Load())

	idle, ok := task.New(s.arena, 0, "idle", nil, task.Low)
	if !ok {
		log.Panic("out of memory allocating idle task")
	}
	idle.Entry = idleEntry(idle)
	idle.SetState(task.Running)
	s.tasks[0] = idle
	s.current = 0
	s.hasCurrent = true

	log.Info("scheduler initialized")
}

// Spawn allocates a TCB, assigns the next TaskId, and enqueues it into
// prio's ready queue (spec §4.4 spawn).
func (s *Scheduler) Spawn(name string, entry task.Entry, prio task.Priority) (task.Id, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if int(s.nextTID) >= task.MaxTasks {
		return 0, kernerr.TooManyTasks
	}
	id := s.nextTID

	t, ok := task.New(s.arena, id, name, entry, prio)
	if !ok {
		return 0, kernerr.OutOfMemory
	}

	s.nextTID++
	s.tasks[id] = t

	if !s.bank.enqueue(id, prio) {
		// Ready-queue saturation here is a kernel invariant violation
		// (spec §4.4 "Failure semantics"): nextTID is bounded by
		// task.MaxTasks, which is also the queue capacity, so this
		// should be unreachable.
		if kernerr.Fatal(kernerr.QueueFull) {
			log.Panicf("enqueue failed for newly spawned task %d: ready queue full", id)
		}
	}

	log.Infof("spawned task %d (%s) at priority %s", id, name, prio)
	return id, nil
}

// taskLocked returns the TCB for id. Callers must hold s.mu.
func (s *Scheduler) taskLocked(id task.Id) *task.Task {
	if int(id) < 0 || int(id) >= task.MaxTasks {
		return nil
	}
	return s.tasks[id]
}

// scheduleLocked performs the round-robin-with-priority decision (spec
// §4.4 schedule): the outgoing current task, if still Running, is
// appended to the back of its own priority queue; select_next is then
// consulted, falling back to the idle task. Callers must hold s.mu and
// must release it before driving the actual task handoff (spec §5:
// "the scheduler must release the lock immediately before calling
// context_switch").
func (s *Scheduler) scheduleLocked() (old, next *task.Task) {
	if s.hasCurrent {
		old = s.taskLocked(s.current)
		// The idle task (id 0) is never itself a ready-queue member (spec
		// §4.4): it is the fallback selectNext returns to, not a
		// schedulable entity that takes its turn in a priority queue.
		if old != nil && old.ID != 0 && old.State() == task.Running {
			old.SetState(task.Ready)
			if !s.bank.enqueue(old.ID, old.Priority) {
				if kernerr.Fatal(kernerr.QueueFull) {
					log.Panicf("enqueue failed for task %d during schedule: ready queue full", old.ID)
				}
			}
		}
	}

	nextID, ok := s.bank.selectNext()
	if !ok {
		nextID = 0 // idle fallback
	}
	next = s.taskLocked(nextID)
	next.SetState(task.Running)
	s.current = nextID
	s.hasCurrent = true
	return old, next
}

// Schedule runs the round-robin-with-priority decision and performs the
// context switch (spec §4.4, §4.5). It is exported for callers that need
// an explicit reschedule outside of a tick, e.g. immediately after the
// first tasks are spawned; Yield also goes through it.
func (s *Scheduler) Schedule() {
	s.mu.Lock()
	old, next := s.scheduleLocked()
	s.mu.Unlock()

	if old == next {
		return
	}
	if old != nil {
		cpu.ContextSwitch(&old.Context, &next.Context)
	}
	s.m.CtxSwitches.Add(1)
}

// Yield is the cooperative voluntary yield (spec §4.4 yield_now): the
// current task is re-enqueued into its own priority and the next ready
// task is selected, exactly like a scheduling tick with no time having
// passed. It may only be called from task context (spec §5 Reentrancy),
// by self's own goroutine.
func (s *Scheduler) Yield(self *task.Task) {
	s.Schedule()
	self.Checkpoint()
}

// Tick is called exclusively from the timer ISR (spec §5 Reentrancy;
// §4.4 tick): it advances current_tick, wakes expired sleepers, and — if
// preemption is enabled — reschedules.
func (s *Scheduler) Tick() {
	s.mu.Lock()
	s.currentTick++
	woken := s.sleeping.wakeExpired(s.currentTick, &s.bank)
	s.m.TimerTicks.Add(1)
	if woken > 0 {
		s.m.WakeCount.Add(uint64(woken))
	}

	var old, next *task.Task
	didSchedule := false
	if s.preemptDisabled.Load() == 0 {
		old, next = s.scheduleLocked()
		didSchedule = true
	}
	s.mu.Unlock()

	if !didSchedule || old == next {
		return
	}
	if old != nil {
		cpu.ContextSwitch(&old.Context, &next.Context)
	}
	s.m.CtxSwitches.Add(1)
	s.m.Preemptions.Add(1)
}

// SleepCurrent marks self Sleeping, records it in the sleep table at
// ticks from now, and reschedules without re-enqueueing self onto any
// ready queue (spec §4.4 sleep_current). It returns kernerr.SleepTableFull
// if the table has no free slot, leaving self Running and still current
// (spec §7: "task remains Running").
func (s *Scheduler) SleepCurrent(self *task.Task, ticks uint64, prio task.Priority) error {
	s.mu.Lock()

	wake := s.currentTick + ticks
	if !s.sleeping.insert(self.ID, wake, prio) {
		s.mu.Unlock()
		return kernerr.SleepTableFull
	}
	self.SetState(task.Sleeping)

	nextID, ok := s.bank.selectNext()
	if !ok {
		nextID = 0
	}
	next := s.taskLocked(nextID)
	next.SetState(task.Running)
	s.current = nextID
	s.hasCurrent = true
	s.m.SleepCount.Add(1)
	s.mu.Unlock()

	if next != self {
		cpu.ContextSwitch(&self.Context, &next.Context)
		s.m.CtxSwitches.Add(1)
	}
	self.Checkpoint()
	return nil
}

// Terminate transitions id to Terminated, removes its slot from the Task
// Table, and — if it was the running task — reschedules immediately (the
// sys_exit open question, resolved in SPEC_FULL.md: exit does not reap
// silently, it frees the slot and falls through to schedule() so the next
// ready task, or idle, runs without waiting for a tick).
func (s *Scheduler) Terminate(id task.Id) {
	s.mu.Lock()
	t := s.taskLocked(id)
	if t != nil {
		t.SetState(task.Terminated)
		s.tasks[id] = nil
	}

	var next *task.Task
	if s.hasCurrent && s.current == id {
		_, next = s.scheduleLocked()
	}
	s.mu.Unlock()

	if t != nil && next != nil && next != t {
		cpu.ContextSwitch(&t.Context, &next.Context)
		s.m.CtxSwitches.Add(1)
	}
	log.Infof("task %d terminated", id)
}

// CurrentTaskInfo returns the running task's id and priority (spec §4.4
// get_current_task_info).
func (s *Scheduler) CurrentTaskInfo() (task.Id, task.Priority, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasCurrent {
		return 0, 0, false
	}
	t := s.taskLocked(s.current)
	if t == nil {
		return 0, 0, false
	}
	return t.ID, t.Priority, true
}

// CurrentTask returns the TCB for the currently running task, used by the
// driver loop in pkg/kernel to know who to Resume next.
func (s *Scheduler) CurrentTask() *task.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.taskLocked(s.current)
}

// Task looks up a TCB by id, e.g. for the syscall trap layer.
func (s *Scheduler) Task(id task.Id) *task.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.taskLocked(id)
}

// CurrentTick returns the scheduler's tick counter.
func (s *Scheduler) CurrentTick() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentTick
}

// PreemptDisable increments the preempt-disable depth (spec §4.4). It
// must be paired with PreemptEnable around any critical section that
// touches scheduler state from task context (spec §5, §9).
func (s *Scheduler) PreemptDisable() {
	s.preemptDisabled.Add(1)
}

// PreemptEnable decrements the preempt-disable depth, saturating at zero
// (spec §4.4, §8 law: "calling preempt_enable more times than
// preempt_disable must not make the counter negative").
func (s *Scheduler) PreemptEnable() {
	for {
		cur := s.preemptDisabled.Load()
		if cur <= 0 {
			return
		}
		if s.preemptDisabled.CompareAndSwap(cur, cur-1) {
			return
		}
	}
}

// PreemptDisableCount returns the current preempt-disable depth, exposed
// for tests and diagnostics.
func (s *Scheduler) PreemptDisableCount() int64 {
	return s.preemptDisabled.Load()
}

// ReadyLen returns the total number of ready tasks, exposed for tests.
func (s *Scheduler) ReadyLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bank.len()
}

// SleepLen returns the number of occupied sleep-table slots, exposed for
// tests.
func (s *Scheduler) SleepLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sleeping.len()
}
