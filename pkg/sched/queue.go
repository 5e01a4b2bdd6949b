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

// Package sched implements the scheduler core: the ready-queue bank
// (spec §4.2), the sleep table (spec §4.3), and the scheduler itself
// (spec §4.4), adapted from
// original_source/kernel/src/sched/priority.rs's TaskQueue,
// SleepingTask and PriorityScheduler.
package sched

import "github.com/MelloOS/MelloOS/pkg/task"

// queueCapacity bounds each priority's FIFO (spec §3: "circular buffers of
// capacity 64").
const queueCapacity = task.MaxTasks

// taskQueue is a bounded circular FIFO of task IDs, ported directly from
// priority.rs's TaskQueue.
type taskQueue struct {
	ids   [queueCapacity]task.Id
	head  int
	tail  int
	count int
}

func (q *taskQueue) pushBack(id task.Id) bool {
	if q.count >= queueCapacity {
		return false
	}
	q.ids[q.tail] = id
	q.tail = (q.tail + 1) % queueCapacity
	q.count++
	return true
}

func (q *taskQueue) popFront() (task.Id, bool) {
	if q.count == 0 {
		return 0, false
	}
	id := q.ids[q.head]
	q.head = (q.head + 1) % queueCapacity
	q.count--
	return id, true
}

func (q *taskQueue) len() int      { return q.count }
func (q *taskQueue) isEmpty() bool { return q.count == 0 }

// readyQueueBank is three bounded FIFO queues, one per priority, with a
// bitmap tracking which are non-empty (spec §3 Ready-Queue Bank, §4.2).
type readyQueueBank struct {
	queues    [task.NumPriorities]taskQueue
	nonEmpty  uint8 // bit p set iff queues[p] is non-empty
}

// enqueue appends id to the queue for prio. It fails only if that queue
// is already at capacity (spec §4.2).
func (b *readyQueueBank) enqueue(id task.Id, prio task.Priority) bool {
	idx := int(prio)
	if !b.queues[idx].pushBack(id) {
		return false
	}
	b.nonEmpty |= 1 << idx
	return true
}

// selectNext scans priorities High→Normal→Low and pops the front of the
// highest non-empty queue, clearing its bitmap bit if it becomes empty
// (spec §4.2 select_next).
func (b *readyQueueBank) selectNext() (task.Id, bool) {
	for p := task.NumPriorities - 1; p >= 0; p-- {
		if b.nonEmpty&(1<<uint(p)) == 0 {
			continue
		}
		id, ok := b.queues[p].popFront()
		if !ok {
			// Bitmap said non-empty but the queue disagreed: this is an
			// invariant violation (spec §8 invariant 1), but selectNext
			// itself must not panic the caller's decision loop — clear
			// the stale bit and keep scanning lower priorities.
			b.nonEmpty &^= 1 << uint(p)
			continue
		}
		if b.queues[p].isEmpty() {
			b.nonEmpty &^= 1 << uint(p)
		}
		return id, true
	}
	return 0, false
}

// isEmpty reports whether every priority queue is empty.
func (b *readyQueueBank) isEmpty() bool { return b.nonEmpty == 0 }

// len returns the total number of ready tasks across all priorities.
func (b *readyQueueBank) len() int {
	n := 0
	for i := range b.queues {
		n += b.queues[i].len()
	}
	return n
}

// bitmapConsistent reports whether the non-empty bitmap agrees with the
// actual occupancy of every queue (spec §8 invariant 1), exposed for
// tests.
func (b *readyQueueBank) bitmapConsistent() bool {
	for p := 0; p < task.NumPriorities; p++ {
		want := !b.queues[p].isEmpty()
		got := b.nonEmpty&(1<<uint(p)) != 0
		if want != got {
			return false
		}
	}
	return true
}
