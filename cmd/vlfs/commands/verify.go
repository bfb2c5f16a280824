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

type verifyParams struct {
	cli.JSONOutput
	Workspace bool `flag:"workspace,w" desc:"also re-hash every tracked file in the working tree"`
}

func verifyCommand(env *Environment) *cli.Command {
	var params verifyParams
	return &cli.Command{
		Name:    "verify",
		Summary: "Check the cache, remote availability and optionally the working tree",
		Description: `Decompress and re-hash every cached object, confirm every digest in the
manifest is either cached intact or present on its remote, and with
--workspace re-hash tracked files. Problems are reported, never
repaired. Exits 1 when anything is flagged.`,
		Flags: func() *pflag.FlagSet { return cli.FlagsFromParams("verify", &params) },
		Run: func(ctx context.Context, _ []string, logger *slog.Logger) error {
			p, err := env.open(logger)
			if err != nil {
				return err
			}
			verification, err := p.engine.Verify(ctx, engine.VerifyOptions{Workspace: params.Workspace})
			if err != nil {
				return err
			}

			if done, err := params.EmitJSON(verification); !done {
				for _, finding := range verification.Findings {
					env.printf("%s\t%s\t%v\t%s\n", finding.Kind, finding.Digest.Short(), finding.Paths, finding.Detail)
				}
				env.printf("checked %d cached object(s), %d recorded digest(s)", verification.CheckedObjects, verification.CheckedRecords)
				if params.Workspace {
					env.printf(", %d file(s)", verification.CheckedFiles)
				}
				env.printf(": %d problem(s)\n", len(verification.Findings))
			} else if err != nil {
				return err
			}

			if !verification.OK() {
				return &cli.ExitError{Code: cli.ExitFailure}
			}
			return nil
		},
	}
}
