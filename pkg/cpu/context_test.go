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

package cpu

import (
	"testing"
	"unsafe"
)

// TestCpuContextLayout pins the field order spec §3 requires ("Layout
// must agree bit-for-bit with the context-switch routine's push/pop
// order"). A reordering here would silently break any architecture
// backend that assumes this offset table.
func TestCpuContextLayout(t *testing.T) {
	var c CpuContext
	offsets := []struct {
		name string
		got  uintptr
		want uintptr
	}{
		{"R15", unsafe.Offsetof(c.R15), 0},
		{"R14", unsafe.Offsetof(c.R14), 8},
		{"R13", unsafe.Offsetof(c.R13), 16},
		{"R12", unsafe.Offsetof(c.R12), 24},
		{"RBP", unsafe.Offsetof(c.RBP), 32},
		{"RBX", unsafe.Offsetof(c.RBX), 40},
		{"RSP", unsafe.Offsetof(c.RSP), 48},
	}
	for _, o := range offsets {
		if o.got != o.want {
			t.Errorf("CpuContext.%s offset = %d, want %d", o.name, o.got, o.want)
		}
	}
	if size := unsafe.Sizeof(c); size != 56 {
		t.Errorf("CpuContext size = %d, want 56", size)
	}
}

func TestNewContextSeedsStackPointer(t *testing.T) {
	c := NewContext(0x1000)
	if c.RSP != 0x1000 {
		t.Fatalf("RSP = %#x, want 0x1000", c.RSP)
	}
	if c.R15 != 0 || c.R14 != 0 || c.R13 != 0 || c.R12 != 0 || c.RBP != 0 || c.RBX != 0 {
		t.Fatalf("NewContext did not zero callee-saved registers: %+v", c)
	}
}

func TestContextSwitchRejectsAliasedPointers(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected ContextSwitch(x, x) to panic")
		}
	}()
	c := NewContext(0)
	ContextSwitch(&c, &c)
}
