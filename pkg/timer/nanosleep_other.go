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

//go:build windows

package timer

import "time"

// sleepFunc paces the timer loop between fires.
type sleepFunc func(d time.Duration)

// platformSleep falls back to the Go runtime's timer on platforms where
// golang.org/x/sys/unix's Nanosleep isn't available.
func platformSleep(d time.Duration) {
	time.Sleep(d)
}
