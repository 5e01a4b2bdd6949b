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

import "github.com/MelloOS/MelloOS/pkg/task"

// sleepSlot is one fixed-capacity sleep-table record (spec §3 Sleep
// Table), ported from priority.rs's SleepingTask.
type sleepSlot struct {
	taskID   task.Id
	wakeTick uint64
	priority task.Priority
	valid    bool
}

// sleepTable is a fixed-size set of up to task.MaxTasks sleeping-task
// records. Order is not significant; lookups and wake scans are linear
// (spec §3, §4.3).
type sleepTable struct {
	slots [task.MaxTasks]sleepSlot
}

// insert records that id should wake at wakeTick, re-enqueued at
// priority. It fails if no slot is free (spec §4.3 sleep).
func (s *sleepTable) insert(id task.Id, wakeTick uint64, priority task.Priority) bool {
	for i := range s.slots {
		if !s.slots[i].valid {
			s.slots[i] = sleepSlot{taskID: id, wakeTick: wakeTick, priority: priority, valid: true}
			return true
		}
	}
	return false
}

// wakeExpired invalidates every slot whose wakeTick has elapsed and
// enqueues its task into the given ready-queue bank at the slot's stored
// priority (not a fresh read of the task, so a priority change racing
// with wakeup can't corrupt the queue — spec §4.3: "Re-enqueue must
// preserve the priority stored in the slot"). It returns the number of
// tasks woken.
func (s *sleepTable) wakeExpired(currentTick uint64, bank *readyQueueBank) int {
	woken := 0
	for i := range s.slots {
		slot := &s.slots[i]
		if !slot.valid || slot.wakeTick > currentTick {
			continue
		}
		slot.valid = false
		bank.enqueue(slot.taskID, slot.priority)
		woken++
	}
	return woken
}

// len returns the number of occupied sleep-table slots, exposed for
// tests.
func (s *sleepTable) len() int {
	n := 0
	for i := range s.slots {
		if s.slots[i].valid {
			n++
		}
	}
	return n
}
