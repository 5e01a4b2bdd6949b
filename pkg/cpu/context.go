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

// Package cpu holds the saved-register data contract for a task's CPU
// state (spec §3 CpuContext, §4.5 Context Switch), adapted from
// original_source/kernel/src/sched/context.rs.
//
// The original contract is architecture-specific: context_switch is a
// leaf routine that saves the callee-preserved x86-64 System V registers
// plus the stack pointer into *old, loads them from *new, and returns
// through the new stack's return address — for a freshly spawned task,
// into a bootstrap trampoline; for a resumed one, into the instruction
// after its own context_switch call.
//
// That contract assumes a dedicated, manually-managed kernel stack for
// each task, with the context-switch routine physically repointing the
// stack pointer at it. A hosted `go build` binary has no such stack:
// every goroutine's stack is owned, bounds-checked, and relocated by the
// Go runtime's own stack-growth machinery, so jumping execution into
// memory this package allocated itself (the way a bare-metal kernel's
// swtch does) is not something the runtime can be asked to do safely —
// see mazarin's runtime_stub.go for how much runtime surgery a genuinely
// bare-metal Go kernel needs to pull that off.
//
// This rewrite instead gives every task its own goroutine (see
// pkg/task.Task), whose blocked state on a channel receive already *is* a
// fully and safely saved continuation — the Go runtime performs exactly
// the save/restore this package's CpuContext models, just at the
// goroutine level instead of the raw-register level. pkg/sched drives the
// actual suspend/resume handoff over that channel; CpuContext and
// ContextSwitch below exist to keep the register-level data contract the
// spec describes observable and testable (§9: "verified in tests via a
// field-offset check"), independent of how control is actually handed off.
package cpu

// CpuContext is the callee-saved register set for the x86-64 System V
// ABI: the six callee-preserved general-purpose registers plus the stack
// pointer. Field order is the data contract a real context-switch routine
// would agree with bit-for-bit (spec §3); it is fixed and verified by
// TestCpuContextLayout.
type CpuContext struct {
	R15 uint64
	R14 uint64
	R13 uint64
	R12 uint64
	RBP uint64
	RBX uint64
	RSP uint64
}

// NewContext returns a zeroed context with the stack pointer seeded to
// stackTop, matching spec §4.1: "set the saved stack pointer to [the
// trampoline] position" and "zero the saved callee-preserved registers."
func NewContext(stackTop uintptr) CpuContext {
	return CpuContext{RSP: uint64(stackTop)}
}

// ContextSwitch is the Go realization of spec §4.5's context_switch leaf
// routine. See the package doc for why it cannot literally repoint the
// program counter the way the architecture-specific original does: in
// this rewrite the real suspend/resume transfer happens over the calling
// task's checkpoint channel (pkg/task.Task.checkpoint), driven by
// pkg/sched.Scheduler. ContextSwitch still enforces the one invariant the
// spec calls out explicitly and that every caller must honor regardless
// of mechanism: old and new must never alias (§4.5 Invariant: "callers
// must elide the switch when the scheduler picks the same task").
func ContextSwitch(old, new *CpuContext) {
	if old == new {
		panic("cpu: ContextSwitch called with old == new")
	}
}
