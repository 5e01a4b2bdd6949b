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

// Package klog is the kernel's logging sink. It wraps logrus with the
// Infof/Warningf/Debugf call shape gVisor's pkg/log exposes (see
// pkg/sentry/state/state.go's log.Infof/log.Warningf call sites), so the
// rest of the kernel logs the way its teacher does without depending on the
// gvisor module directly. It is the Go-side replacement for the original
// MelloOS serial_println! macro (original_source/kernel/src),
// safe to call from task goroutines and from the timer/trap goroutines.
package klog

import (
	"os"

	"github.com/sirupsen/logrus"
)

var base = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	return l
}

// SetLevel adjusts the verbosity of the kernel logger. It is exposed so
// cmd/melloctl can wire a -log-level flag to it.
func SetLevel(level logrus.Level) {
	base.SetLevel(level)
}

// For returns a subsystem-scoped logger, e.g. For("sched"), For("timer").
// Every kernel subsystem logs through its own subsystem field instead of a
// bare global logger, mirroring the "[SCHED]"/"[TEST]" prefixes used
// throughout the original serial_println! call sites.
func For(subsystem string) *logrus.Entry {
	return base.WithField("subsystem", subsystem)
}

// Infof logs at info level against the bare kernel logger, for call sites
// that don't belong to one particular subsystem (e.g. cmd/melloctl).
func Infof(format string, args ...any) {
	base.Infof(format, args...)
}

// Warningf logs at warn level against the bare kernel logger.
func Warningf(format string, args ...any) {
	base.Warnf(format, args...)
}
