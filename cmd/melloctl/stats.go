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
	"time"

	"github.com/google/subcommands"

	"github.com/MelloOS/MelloOS/pkg/kernel"
)

// statsCommand boots the scheduler, lets it run for a fixed window, and
// dumps internal/metrics once (spec §4.8 METRICS fields), the CLI
// equivalent of reading METRICS directly off the kernel's global.
type statsCommand struct {
	tickHz int
	runFor time.Duration
}

func (*statsCommand) Name() string     { return "stats" }
func (*statsCommand) Synopsis() string { return "boot briefly and print kernel metrics" }
func (*statsCommand) Usage() string {
	return "stats [-tick-hz N] [-run-for DURATION]:\n  run the demo task set for a bounded window and print METRICS.\n"
}

func (c *statsCommand) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.tickHz, "tick-hz", 100, "timer tick frequency in Hz, 1-1000")
	f.DurationVar(&c.runFor, "run-for", 2*time.Second, "how long to run before reporting")
}

func (c *statsCommand) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	k, err := kernel.New(kernel.Config{TickHz: c.tickHz})
	if err != nil {
		fmt.Println(err)
		return subcommands.ExitFailure
	}
	if err := k.SpawnDemoTasks(); err != nil {
		fmt.Println(err)
		return subcommands.ExitFailure
	}

	runCtx, cancel := context.WithTimeout(ctx, c.runFor)
	defer cancel()
	if err := k.Run(runCtx); err != nil {
		fmt.Println(err)
		return subcommands.ExitFailure
	}

	snap := k.Metrics.Snapshot()
	fmt.Printf("ctx_switches:   %d\n", snap.CtxSwitches)
	fmt.Printf("preemptions:    %d\n", snap.Preemptions)
	fmt.Printf("syscall_count:  %v\n", snap.SyscallCount)
	fmt.Printf("ipc_sends:      %d\n", snap.IPCSends)
	fmt.Printf("ipc_recvs:      %d\n", snap.IPCRecvs)
	fmt.Printf("ipc_queue_full: %d\n", snap.IPCQueueFull)
	fmt.Printf("sleep_count:    %d\n", snap.SleepCount)
	fmt.Printf("wake_count:     %d\n", snap.WakeCount)
	fmt.Printf("timer_ticks:    %d\n", snap.TimerTicks)
	return subcommands.ExitSuccess
}
