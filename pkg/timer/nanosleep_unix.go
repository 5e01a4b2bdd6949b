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

//go:build !windows

package timer

import (
	"time"

	"golang.org/x/sys/unix"
)

// sleepFunc paces the timer loop between fires.
type sleepFunc func(d time.Duration)

// platformSleep uses unix.Nanosleep directly rather than time.Sleep,
// matching how the rest of this package talks about the tick source in
// terms of a raw wall-clock primitive instead of the Go runtime's
// cooperative timer wheel. EINTR is retried with whatever time remains,
// the same restart-on-signal discipline a real ISR's timer-arm call needs.
func platformSleep(d time.Duration) {
	ts := unix.NsecToTimespec(d.Nanoseconds())
	for {
		rem := unix.Timespec{}
		err := unix.Nanosleep(&ts, &rem)
		if err == nil {
			return
		}
		if err == unix.EINTR {
			ts = rem
			continue
		}
		return
	}
}
