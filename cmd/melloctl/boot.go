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

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/google/subcommands"

	"github.com/MelloOS/MelloOS/internal/klog"
	"github.com/MelloOS/MelloOS/pkg/kernel"
)

var log = klog.For("melloctl")

// bootCommand runs the scheduler with the demo task set (spec's
// SUPPLEMENTED FEATURES: Task A, Task B, and the syscall exerciser), the
// CLI analogue of main.rs's _start. It runs until interrupted.
type bootCommand struct {
	tickHz int
}

func (*bootCommand) Name() string     { return "boot" }
func (*bootCommand) Synopsis() string { return "run the scheduler with the demo task set" }
func (*bootCommand) Usage() string {
	return "boot [-tick-hz N]:\n  run Task A, Task B, and the syscall test task under the scheduler.\n"
}

func (c *bootCommand) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.tickHz, "tick-hz", 100, "timer tick frequency in Hz, 1-1000")
}

func (c *bootCommand) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg := kernel.Config{TickHz: c.tickHz}
	k, err := kernel.New(cfg)
	if err != nil {
		log.Warningf("boot: %v", err)
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	if err := k.SpawnDemoTasks(); err != nil {
		log.Warningf("boot: %v", err)
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	log.Infof("MelloOS starting at %d Hz", c.tickHz)
	if err := k.Run(ctx); err != nil {
		log.Warningf("boot: %v", err)
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
