// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"log/slog"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/vlfs/cmd/vlfs/cli"
)

// statusListLimit is how many paths per category the text form shows.
const statusListLimit = 10

// Status labels.
const (
	labelClean     = "clean"
	labelModified  = "modified-locally"
	labelMissing   = "missing-locally"
	labelUntracked = "missing-in-manifest"
)

type statusParams struct {
	cli.JSONOutput
	Color string `flag:"color" desc:"colorize output: auto, always or never" default:"auto"`
}

func statusCommand(env *Environment) *cli.Command {
	var params statusParams
	return &cli.Command{
		Name:    "status",
		Summary: "Compare the working tree with the manifest",
		Description: `Report each tracked file as clean, modified-locally or missing-locally,
and list files matching the tracking patterns that are not in the
manifest. Nothing is changed.`,
		Flags: func() *pflag.FlagSet { return cli.FlagsFromParams("status", &params) },
		Run: func(ctx context.Context, _ []string, logger *slog.Logger) error {
			profile, err := env.colorProfile(params.Color, env.Stdout)
			if err != nil {
				return err
			}
			p, err := env.open(logger)
			if err != nil {
				return err
			}
			status, err := p.engine.Status(ctx)
			if err != nil {
				return err
			}
			if done, err := params.EmitJSON(status); done {
				return err
			}

			colors := newPalette(env.Stdout, profile)
			sections := []struct {
				label string
				style lipgloss.Style
				paths []string
			}{
				{labelModified, colors.modified, status.Modified},
				{labelMissing, colors.missing, status.Missing},
				{labelUntracked, colors.untracked, status.Untracked},
			}
			for _, section := range sections {
				if len(section.paths) == 0 {
					continue
				}
				env.printf("%s (%d):\n", colors.render(section.style, "%s", section.label), len(section.paths))
				for i, path := range section.paths {
					if i == statusListLimit {
						env.printf("  %s\n", colors.render(colors.dim, "... and %d more", len(section.paths)-statusListLimit))
						break
					}
					env.printf("  %s\n", path)
				}
			}
			if !status.Dirty() {
				env.printf("%s: %d tracked file(s) match the manifest\n", colors.render(colors.clean, labelClean), len(status.Clean))
				return nil
			}
			env.printf("%d %s, %d %s, %d %s, %d %s\n",
				len(status.Clean), labelClean,
				len(status.Modified), labelModified,
				len(status.Missing), labelMissing,
				len(status.Untracked), labelUntracked)
			return nil
		},
	}
}
