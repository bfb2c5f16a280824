// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"log/slog"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/vlfs/cmd/vlfs/cli"
	"github.com/bureau-foundation/vlfs/lib/engine"
)

type removeParams struct {
	cli.JSONOutput
	DeleteFile bool `flag:"delete-file" desc:"also delete the working-tree file"`
	Force      bool `flag:"force,f" desc:"delete the working-tree file even if it was modified"`
	KeepRemote bool `flag:"keep-remote" desc:"leave unreferenced objects on the remote"`
	DryRun     bool `flag:"dry-run,n" desc:"show what would be removed without changing anything"`
}

func removeCommand(env *Environment) *cli.Command {
	var params removeParams
	return &cli.Command{
		Name:    "remove",
		Summary: "Stop tracking files",
		Description: `Drop records from the manifest. Objects no remaining record references
are evicted from the cache and, unless --keep-remote, deleted from
their remote. With --delete-file the working-tree file goes too; a
file modified since it was pushed is kept unless --force.`,
		Usage: "vlfs remove <paths|dirs|globs>... [flags]",
		Examples: []cli.Example{
			{Description: "Forget an installer but keep the remote copy", Command: "vlfs remove tools/old.exe --keep-remote"},
		},
		Flags: func() *pflag.FlagSet { return cli.FlagsFromParams("remove", &params) },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) == 0 {
				return cli.Validation("remove needs at least one path")
			}
			p, err := env.open(logger)
			if err != nil {
				return err
			}
			paths, err := p.keys(args)
			if err != nil {
				return err
			}
			report, err := p.engine.Remove(ctx, engine.RemoveOptions{
				Paths:      paths,
				DeleteFile: params.DeleteFile,
				Force:      params.Force,
				KeepRemote: params.KeepRemote,
				DryRun:     params.DryRun,
			})
			if errors.Is(err, engine.ErrNoMatch) {
				return &cli.ToolError{Category: cli.CategoryNotFound, Err: err}
			}
			if err != nil {
				return err
			}
			verb := "removed"
			if params.DryRun {
				verb = "remove"
			}
			return env.emitReport(&params.JSONOutput, verb, report)
		},
	}
}
