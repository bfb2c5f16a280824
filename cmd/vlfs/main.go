// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Command vlfs keeps large binary files out of git by tracking their
// content digests in a committed manifest.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bureau-foundation/vlfs/cmd/vlfs/cli"
	"github.com/bureau-foundation/vlfs/cmd/vlfs/commands"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := commands.Root(commands.DefaultEnvironment()).Execute(ctx, os.Args[1:])
	code, report := cli.ExitCode(err)
	if report {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
	return code
}
