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

// Command melloctl boots the MelloOS scheduler core standalone, the way
// runsc is the command-line entry point for gVisor's sentry. It registers
// a small subcommand tree (boot, stats) rather than parsing a single flat
// flag set, matching that style.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"
	"github.com/sirupsen/logrus"

	"github.com/MelloOS/MelloOS/internal/klog"
)

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")
	subcommands.Register(&bootCommand{tickHz: 100}, "")
	subcommands.Register(&statsCommand{tickHz: 100, runFor: 0}, "")

	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	if lvl, err := logrus.ParseLevel(*logLevel); err == nil {
		klog.SetLevel(lvl)
	}

	os.Exit(int(subcommands.Execute(context.Background())))
}
