// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/vlfs/cmd/vlfs/cli"
)

type cleanParams struct {
	cli.JSONOutput
	DryRun bool `flag:"dry-run,n" desc:"list unreferenced objects without removing them"`
	Yes    bool `flag:"yes,y" desc:"remove without asking"`
}

func cleanCommand(env *Environment) *cli.Command {
	var params cleanParams
	return &cli.Command{
		Name:    "clean",
		Summary: "Remove cached objects no manifest record references",
		Description: `Evict every object in the local cache whose digest no record in
.vlfs/index.json references. Referenced objects are never removed.
Asks for confirmation on a terminal; elsewhere --yes is required.`,
		Flags: func() *pflag.FlagSet { return cli.FlagsFromParams("clean", &params) },
		Run: func(_ context.Context, _ []string, logger *slog.Logger) error {
			p, err := env.open(logger)
			if err != nil {
				return err
			}
			plan, err := p.engine.Clean(true)
			if err != nil {
				return err
			}
			if params.DryRun || plan.Count() == 0 {
				if done, err := params.EmitJSON(plan); done {
					return err
				}
				env.printf("%d unreferenced object(s), %s\n", plan.Count(), humanize.IBytes(uint64(plan.Bytes)))
				return nil
			}

			if !params.Yes {
				if env.Prompter == nil {
					return cli.Validation("refusing to clean without --yes")
				}
				confirmed, err := env.Prompter.Confirm("Remove " + humanize.Comma(int64(plan.Count())) +
					" unreferenced object(s), " + humanize.IBytes(uint64(plan.Bytes)) + "?")
				if errors.Is(err, cli.ErrNotInteractive) {
					return cli.Validation("refusing to clean without --yes when stdin is not a terminal")
				}
				if err != nil {
					return err
				}
				if !confirmed {
					env.printf("nothing removed\n")
					return nil
				}
			}

			cleanup, err := p.engine.Clean(false)
			if err != nil {
				return err
			}
			if done, err := params.EmitJSON(cleanup); done {
				return err
			}
			env.printf("removed %d object(s), freed %s\n", cleanup.Count(), humanize.IBytes(uint64(cleanup.Bytes)))
			return nil
		},
	}
}
