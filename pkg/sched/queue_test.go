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

func TestTaskQueueFIFO(t *testing.T) {
	var q taskQueue
	for i := task.Id(0); i < 3; i++ {
		if !q.pushBack(i) {
			t.Fatalf("pushBack(%d) failed unexpectedly", i)
		}
	}
	for i := task.Id(0); i < 3; i++ {
		got, ok := q.popFront()
		if !ok {
			t.Fatalf("popFront() failed unexpectedly at i=%d", i)
		}
		if got != i {
			t.Errorf("popFront() = %d, want %d", got, i)
		}
	}
	if !q.isEmpty() {
		t.Error("queue should be empty after draining")
	}
}

func TestTaskQueueCapacity(t *testing.T) {
	var q taskQueue
	for i := 0; i < queueCapacity; i++ {
		if !q.pushBack(task.Id(i)) {
			t.Fatalf("pushBack failed before reaching capacity at i=%d", i)
		}
	}
	if q.pushBack(task.Id(999)) {
		t.Fatal("pushBack succeeded past capacity")
	}
	if q.len() != queueCapacity {
		t.Errorf("len() = %d, want %d", q.len(), queueCapacity)
	}
}

func TestTaskQueueWraparound(t *testing.T) {
	var q taskQueue
	// Fill, drain half, refill: exercises the circular head/tail wrap.
	for i := 0; i < queueCapacity; i++ {
		q.pushBack(task.Id(i))
	}
	for i := 0; i < queueCapacity/2; i++ {
		q.popFront()
	}
	for i := 0; i < queueCapacity/2; i++ {
		if !q.pushBack(task.Id(100 + i)) {
			t.Fatalf("pushBack after drain failed at i=%d", i)
		}
	}
	if q.len() != queueCapacity {
		t.Errorf("len() = %d, want %d", q.len(), queueCapacity)
	}
}

func TestReadyQueueBankSelectsHighestPriorityFirst(t *testing.T) {
	var b readyQueueBank
	b.enqueue(1, task.Low)
	b.enqueue(2, task.High)
	b.enqueue(3, task.Normal)

	id, ok := b.selectNext()
	if !ok || id != 2 {
		t.Fatalf("selectNext() = (%d, %v), want (2, true)", id, ok)
	}
	id, ok = b.selectNext()
	if !ok || id != 3 {
		t.Fatalf("selectNext() = (%d, %v), want (3, true)", id, ok)
	}
	id, ok = b.selectNext()
	if !ok || id != 1 {
		t.Fatalf("selectNext() = (%d, %v), want (1, true)", id, ok)
	}
	if !b.isEmpty() {
		t.Error("bank should be empty after draining all priorities")
	}
}

func TestReadyQueueBankRoundRobinsWithinPriority(t *testing.T) {
	var b readyQueueBank
	b.enqueue(10, task.Normal)
	b.enqueue(11, task.Normal)
	b.enqueue(12, task.Normal)

	var order []task.Id
	for i := 0; i < 3; i++ {
		id, ok := b.selectNext()
		if !ok {
			t.Fatalf("selectNext() failed at i=%d", i)
		}
		order = append(order, id)
	}
	want := []task.Id{10, 11, 12}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %d, want %d", i, order[i], want[i])
		}
	}
}

func TestReadyQueueBankBitmapConsistency(t *testing.T) {
	var b readyQueueBank
	if !b.bitmapConsistent() {
		t.Fatal("empty bank should be bitmap-consistent")
	}
	b.enqueue(1, task.High)
	if !b.bitmapConsistent() {
		t.Fatal("bank should be bitmap-consistent after enqueue")
	}
	b.selectNext()
	if !b.bitmapConsistent() {
		t.Fatal("bank should be bitmap-consistent after draining a priority")
	}
}

func TestReadyQueueBankEmptySelectNext(t *testing.T) {
	var b readyQueueBank
	if _, ok := b.selectNext(); ok {
		t.Fatal("selectNext() on empty bank should report ok=false")
	}
}
