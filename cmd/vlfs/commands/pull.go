// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"log/slog"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/vlfs/cmd/vlfs/cli"
	"github.com/bureau-foundation/vlfs/lib/engine"
)

type pullParams struct {
	cli.JSONOutput
	Force    bool `flag:"force,f" desc:"overwrite working-tree files that differ from the manifest"`
	DryRun   bool `flag:"dry-run,n" desc:"show what would be fetched without changing anything"`
	FailFast bool `flag:"fail-fast" desc:"stop at the first failed path"`
}

func pullCommand(env *Environment) *cli.Command {
	var params pullParams
	return &cli.Command{
		Name:    "pull",
		Summary: "Materialize tracked files from the cache or remote",
		Description: `Bring the working tree in line with the manifest.

Files already matching their record are left alone without any network
access. Missing files are restored from the local cache, or fetched,
verified and cached first. A file edited locally is reported as a
conflict and kept unless --force is given. The manifest is never
changed by a pull.`,
		Usage: "vlfs pull [paths|dirs|globs...] [flags]",
		Examples: []cli.Example{
			{Description: "Pull everything", Command: "vlfs pull"},
			{Description: "Pull one directory, overwriting local edits", Command: "vlfs pull art/ --force"},
		},
		Flags: func() *pflag.FlagSet { return cli.FlagsFromParams("pull", &params) },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			p, err := env.open(logger)
			if err != nil {
				return err
			}
			paths, err := p.keys(args)
			if err != nil {
				return err
			}
			report, err := p.engine.Pull(ctx, engine.PullOptions{
				Paths:    paths,
				Force:    params.Force,
				DryRun:   params.DryRun,
				FailFast: params.FailFast,
			})
			if err != nil {
				if report != nil {
					env.emitReport(&params.JSONOutput, "pulled", report)
				}
				return err
			}
			verb := "pulled"
			if params.DryRun {
				verb = "pull"
			}
			return env.emitReport(&params.JSONOutput, verb, report)
		},
	}
}
