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

// Package ipc defines the error kinds and port registry of the IPC
// subsystem skeleton (spec §4 non-goal list: "no delivery semantics").
// Send and Recv validate their arguments the way a real mailbox
// implementation eventually would, then report NotImplemented — the
// subsystem's shape is in place for a later revision to fill in queueing
// and blocking semantics.
package ipc

import (
	"sync"

	"github.com/MelloOS/MelloOS/internal/kernerr"
	"github.com/MelloOS/MelloOS/internal/metrics"
)

// Port identifies an IPC mailbox.
type Port uint32

// MaxPorts bounds the port namespace.
const MaxPorts Port = 256

// MaxMessageSize bounds a single message's length.
const MaxMessageSize = 4096

// Subsystem is the skeleton IPC registry: which ports exist, and the
// counters syscalls increment on every attempted send/recv.
type Subsystem struct {
	m *metrics.Metrics

	mu         sync.Mutex
	registered map[Port]bool
}

// New constructs an IPC subsystem with no ports registered, reporting
// into m.
func New(m *metrics.Metrics) *Subsystem {
	return &Subsystem{m: m, registered: make(map[Port]bool)}
}

// RegisterPort marks port as a valid send/recv target. This does not
// exist in the syscall surface (spec §4.7 names only send/recv); it is
// the setup step a task that owns a mailbox would perform, analogous to
// the original's port table that the retrieved source did not include.
func (s *Subsystem) RegisterPort(port Port) error {
	if port >= MaxPorts {
		return kernerr.InvalidPort
	}
	s.mu.Lock()
	s.registered[port] = true
	s.mu.Unlock()
	return nil
}

// Send validates port and buf and reports NotImplemented; it never
// delivers to a receiver (spec §4 non-goal).
func (s *Subsystem) Send(port Port, buf []byte) error {
	s.m.IPCSends.Add(1)
	if err := s.validate(port, len(buf)); err != nil {
		return err
	}
	return kernerr.NotImplemented
}

// Recv validates port and maxLen and reports NotImplemented; it never
// returns a delivered message (spec §4 non-goal).
func (s *Subsystem) Recv(port Port, maxLen int) (int, error) {
	s.m.IPCRecvs.Add(1)
	if err := s.validate(port, maxLen); err != nil {
		return -1, err
	}
	return -1, kernerr.NotImplemented
}

func (s *Subsystem) validate(port Port, length int) error {
	if port >= MaxPorts {
		return kernerr.InvalidPort
	}
	s.mu.Lock()
	registered := s.registered[port]
	s.mu.Unlock()
	if !registered {
		return kernerr.PortNotFound
	}
	if length <= 0 {
		return kernerr.InvalidBuffer
	}
	if length > MaxMessageSize {
		return kernerr.MessageTooLarge
	}
	return nil
}
