// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"log/slog"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/vlfs/cmd/vlfs/cli"
	"github.com/bureau-foundation/vlfs/lib/version"
)

// Root builds the complete vlfs command tree against env.
func Root(env *Environment) *cli.Command {
	return &cli.Command{
		Name: "vlfs",
		Description: `vlfs: content-addressable storage for large binary files.

Large files stay out of git. Their digests are recorded in
.vlfs/index.json, which is committed, while the bytes live in a local
cache and on a shared remote (public R2 or private Google Drive).`,
		Subcommands: []*cli.Command{
			pullCommand(env),
			pushCommand(env),
			statusCommand(env),
			verifyCommand(env),
			lsCommand(env),
			removeCommand(env),
			cleanCommand(env),
			authCommand(env),
			versionCommand(env),
		},
	}
}

type versionParams struct {
	cli.JSONOutput
}

func versionCommand(env *Environment) *cli.Command {
	var params versionParams
	return &cli.Command{
		Name:    "version",
		Summary: "Print version information",
		Flags:   func() *pflag.FlagSet { return cli.FlagsFromParams("version", &params) },
		Run: func(_ context.Context, _ []string, _ *slog.Logger) error {
			build := version.Current()
			if done, err := params.EmitJSON(build); done {
				return err
			}
			env.printf("vlfs %s\n", build.Full())
			return nil
		},
	}
}
