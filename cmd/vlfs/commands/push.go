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
	"github.com/bureau-foundation/vlfs/lib/manifest"
)

type pushParams struct {
	cli.JSONOutput
	All      bool     `flag:"all,a" desc:"push every tracked file and every new file matching the tracking patterns"`
	Globs    []string `flag:"glob,g" desc:"push files matching a glob pattern (repeatable)"`
	Private  bool     `flag:"private" desc:"store pushed files on the private remote"`
	Public   bool     `flag:"public" desc:"store pushed files on the public remote"`
	DryRun   bool     `flag:"dry-run,n" desc:"show what would be uploaded without changing anything"`
	FailFast bool     `flag:"fail-fast" desc:"stop at the first failed path"`
}

func pushCommand(env *Environment) *cli.Command {
	var params pushParams
	return &cli.Command{
		Name:    "push",
		Summary: "Store and upload files, recording them in the manifest",
		Description: `Hash, compress and upload files, then record them in .vlfs/index.json.

Unchanged files are skipped. A new file is public unless --private is
given; a tracked file keeps its recorded visibility unless --public or
--private is given. Objects already on the remote are not uploaded
again. The manifest is written once, after every path is done; an
interrupted push records nothing.`,
		Usage: "vlfs push [paths|dirs...] [--glob PATTERN] [--all] [flags]",
		Examples: []cli.Example{
			{Description: "Push one file", Command: "vlfs push tools/setup.exe"},
			{Description: "Push every Photoshop file privately", Command: "vlfs push --glob '**/*.psd' --private"},
			{Description: "Push everything that changed", Command: "vlfs push --all"},
		},
		Flags: func() *pflag.FlagSet { return cli.FlagsFromParams("push", &params) },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if params.Private && params.Public {
				return cli.Validation("--private and --public are mutually exclusive")
			}
			if len(args) == 0 && len(params.Globs) == 0 && !params.All {
				return cli.Validation("%v", engine.ErrNothingToPush)
			}
			var visibility manifest.Visibility
			switch {
			case params.Private:
				visibility = manifest.Private
			case params.Public:
				visibility = manifest.Public
			}

			p, err := env.open(logger)
			if err != nil {
				return err
			}
			paths, err := p.keys(append(args, params.Globs...))
			if err != nil {
				return err
			}
			report, err := p.engine.Push(ctx, engine.PushOptions{
				Paths:      paths,
				All:        params.All,
				Visibility: visibility,
				DryRun:     params.DryRun,
				FailFast:   params.FailFast,
			})
			if errors.Is(err, engine.ErrNothingToPush) {
				return cli.Validation("%v", err)
			}
			if err != nil {
				if report != nil {
					env.emitReport(&params.JSONOutput, "pushed", report)
				}
				return err
			}
			verb := "pushed"
			if params.DryRun {
				verb = "push"
			}
			return env.emitReport(&params.JSONOutput, verb, report)
		},
	}
}
