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

package ipc

import (
	"errors"
	"testing"

	"github.com/MelloOS/MelloOS/internal/kernerr"
	"github.com/MelloOS/MelloOS/internal/metrics"
)

func TestSendValidation(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(s *Subsystem)
		port    Port
		buf     []byte
		wantErr error
	}{
		{"invalid port", nil, MaxPorts, []byte("x"), kernerr.InvalidPort},
		{"unregistered port", nil, 1, []byte("x"), kernerr.PortNotFound},
		{"empty buffer", func(s *Subsystem) { s.RegisterPort(1) }, 1, nil, kernerr.InvalidBuffer},
		{"message too large", func(s *Subsystem) { s.RegisterPort(1) }, 1, make([]byte, MaxMessageSize+1), kernerr.MessageTooLarge},
		{"valid but unimplemented", func(s *Subsystem) { s.RegisterPort(1) }, 1, []byte("hello"), kernerr.NotImplemented},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := New(&metrics.Metrics{})
			if tc.setup != nil {
				tc.setup(s)
			}
			err := s.Send(tc.port, tc.buf)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("Send() error = %v, want %v", err, tc.wantErr)
			}
		})
	}
	if s := New(&metrics.Metrics{}); s.m.IPCSends.Load() != 0 {
		t.Fatalf("fresh subsystem should have zero sends")
	}
}

func TestSendIncrementsMetricRegardlessOfOutcome(t *testing.T) {
	m := &metrics.Metrics{}
	s := New(m)
	s.Send(MaxPorts, nil)
	s.Send(MaxPorts, nil)
	if got := m.IPCSends.Load(); got != 2 {
		t.Fatalf("IPCSends = %d, want 2", got)
	}
}

func TestRecvValidation(t *testing.T) {
	m := &metrics.Metrics{}
	s := New(m)
	s.RegisterPort(3)

	if _, err := s.Recv(MaxPorts, 16); !errors.Is(err, kernerr.InvalidPort) {
		t.Errorf("Recv(invalid port) error = %v, want InvalidPort", err)
	}
	if _, err := s.Recv(4, 16); !errors.Is(err, kernerr.PortNotFound) {
		t.Errorf("Recv(unregistered) error = %v, want PortNotFound", err)
	}
	if _, err := s.Recv(3, 0); !errors.Is(err, kernerr.InvalidBuffer) {
		t.Errorf("Recv(maxLen=0) error = %v, want InvalidBuffer", err)
	}
	if _, err := s.Recv(3, 16); !errors.Is(err, kernerr.NotImplemented) {
		t.Errorf("Recv(valid) error = %v, want NotImplemented", err)
	}
	if got := m.IPCRecvs.Load(); got != 4 {
		t.Fatalf("IPCRecvs = %d, want 4", got)
	}
}

func TestRegisterPortRejectsOutOfRange(t *testing.T) {
	s := New(&metrics.Metrics{})
	if err := s.RegisterPort(MaxPorts); !errors.Is(err, kernerr.InvalidPort) {
		t.Fatalf("RegisterPort(MaxPorts) error = %v, want InvalidPort", err)
	}
}
