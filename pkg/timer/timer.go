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

// Package timer implements the periodic timer interrupt layer (spec
// §4.6): programming a periodic source at a configured frequency and, on
// each fire, acknowledging the interrupt, incrementing METRICS.timer_ticks,
// and calling the scheduler's tick(). There is no hardware APIC/PIT here;
// a goroutine paced by nanosleep plays the role of the timer ISR, the same
// trade gVisor's own platform layer makes when it runs under ptrace/KVM
// rather than bare metal.
package timer

import (
	"context"
	"time"

	"github.com/MelloOS/MelloOS/internal/kernerr"
	"github.com/MelloOS/MelloOS/internal/klog"
	"github.com/MelloOS/MelloOS/internal/metrics"
	"github.com/MelloOS/MelloOS/pkg/sched"
	"golang.org/x/time/rate"
)

var log = klog.For("timer")

// DefaultHz is the scheduler's default tick rate (spec §4.6).
const DefaultHz = 100

// MinHz and MaxHz bound the accepted programming range (spec §4.6:
// "frequency outside [1 Hz, 1000 Hz] is rejected").
const (
	MinHz = 1
	MaxHz = 1000
)

// driftLogEvery bounds how often a tick-drift warning may be logged, so a
// mis-programmed or starved timer source doesn't flood the log (spec
// §4.6 "Tick drift ... logged and clamped").
const driftLogEvery = 1 * time.Second

// driftThreshold is how far a fire can lag its scheduled deadline before
// it is considered drift worth logging.
const driftThreshold = 2 * time.Millisecond

// Timer is the periodic tick source driving Scheduler.Tick. It owns no
// scheduler state directly; it is purely the "ISR" half described in spec
// §4.6, calling into pkg/sched the way the timer ISR in mod.rs calls
// SCHED.lock().tick().
type Timer struct {
	s *sched.Scheduler
	m *metrics.Metrics

	hz      int
	sleep   sleepFunc
	limiter *rate.Limiter
}

// New constructs a Timer at DefaultHz, driving s's tick(). The
// timer_ticks counter is incremented by Scheduler.Tick in the metrics the
// scheduler was built with; the Timer itself does not update m.
func New(s *sched.Scheduler, m *metrics.Metrics) *Timer {
	return &Timer{
		s:       s,
		m:       m,
		hz:      DefaultHz,
		sleep:   platformSleep,
		limiter: rate.NewLimiter(rate.Every(driftLogEvery), 1),
	}
}

// SetFrequency programs the timer to hz, rejecting anything outside
// [MinHz, MaxHz] (spec §4.6).
func (t *Timer) SetFrequency(hz int) error {
	if hz < MinHz || hz > MaxHz {
		return kernerr.InvalidFrequency
	}
	t.hz = hz
	return nil
}

// Frequency returns the timer's currently programmed rate.
func (t *Timer) Frequency() int { return t.hz }

// Run drives the periodic tick source until ctx is canceled. Each
// iteration is the timer ISR body from spec §4.6: sleep until the next
// deadline (the "interrupt fires"), acknowledge it, and call
// Scheduler.Tick(), which bumps timer_ticks. It never re-enters itself concurrently — like the
// architecture's interrupt-disable-on-entry discipline, this goroutine is
// the only caller of Tick while it runs.
func (t *Timer) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(t.hz)
	log.Infof("timer started at %d Hz (interval %s)", t.hz, interval)

	deadline := time.Now().Add(interval)
	for {
		now := time.Now()
		if d := deadline.Sub(now); d > 0 {
			t.sleep(d)
		}

		select {
		case <-ctx.Done():
			log.Info("timer stopped")
			return ctx.Err()
		default:
		}

		fired := time.Now()
		if drift := fired.Sub(deadline); drift > driftThreshold {
			if t.limiter.Allow() {
				log.Warningf("tick drift %s exceeds threshold %s", drift, driftThreshold)
			}
		}

		t.s.Tick()
		deadline = deadline.Add(interval)
		if deadline.Before(fired) {
			// We fell behind by more than one interval; resync instead of
			// firing a burst of catch-up ticks (spec §4.6 "clamped").
			deadline = fired.Add(interval)
		}
	}
}
