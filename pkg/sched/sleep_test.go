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
	"testing"

	"github.com/MelloOS/MelloOS/pkg/task"
)

func TestSleepTableInsertAndWake(t *testing.T) {
	var st sleepTable
	if !st.insert(5, 10, task.High) {
		t.Fatal("insert failed unexpectedly")
	}
	if st.len() != 1 {
		t.Fatalf("len() = %d, want 1", st.len())
	}

	var bank readyQueueBank
	woken := st.wakeExpired(9, &bank)
	if woken != 0 {
		t.Fatalf("wakeExpired(9) woke %d tasks, want 0 (not yet due)", woken)
	}
	if st.len() != 1 {
		t.Fatal("slot should still be occupied before its wake tick")
	}

	woken = st.wakeExpired(10, &bank)
	if woken != 1 {
		t.Fatalf("wakeExpired(10) woke %d tasks, want 1", woken)
	}
	if st.len() != 0 {
		t.Fatal("slot should be freed after waking")
	}
	id, ok := bank.selectNext()
	if !ok || id != 5 {
		t.Fatalf("woken task not enqueued: selectNext() = (%d, %v)", id, ok)
	}
}

func TestSleepTableWakePreservesStoredPriority(t *testing.T) {
	var st sleepTable
	st.insert(7, 1, task.High)

	var bank readyQueueBank
	st.wakeExpired(1, &bank)

	id, ok := bank.selectNext()
	if !ok || id != 7 {
		t.Fatalf("selectNext() = (%d, %v), want (7, true)", id, ok)
	}
	// A second selectNext should find nothing: 7 must have been enqueued
	// only into the High queue (its stored priority), not Low or Normal.
	if _, ok := bank.selectNext(); ok {
		t.Fatal("woken task was enqueued into more than one priority queue")
	}
}

func TestSleepTableCapacity(t *testing.T) {
	var st sleepTable
	for i := 0; i < task.MaxTasks; i++ {
		if !st.insert(task.Id(i), uint64(i), task.Normal) {
			t.Fatalf("insert failed before reaching capacity at i=%d", i)
		}
	}
	if st.insert(999, 1, task.Normal) {
		t.Fatal("insert succeeded past capacity")
	}
}

func TestSleepTableWakeExpiredMultiple(t *testing.T) {
	var st sleepTable
	st.insert(1, 5, task.Low)
	st.insert(2, 5, task.Normal)
	st.insert(3, 20, task.High)

	var bank readyQueueBank
	woken := st.wakeExpired(5, &bank)
	if woken != 2 {
		t.Fatalf("wakeExpired(5) woke %d, want 2", woken)
	}
	if st.len() != 1 {
		t.Fatalf("len() = %d, want 1 (task 3 still sleeping)", st.len())
	}
}
