// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"log/slog"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/vlfs/cmd/vlfs/cli"
	"github.com/bureau-foundation/vlfs/lib/manifest"
)

// lsDigestWidth is the digest prefix shown by ls --long.
const lsDigestWidth = 8

type lsParams struct {
	cli.JSONOutput
	Long       bool   `flag:"long,l" desc:"show digest, size and visibility"`
	Visibility string `flag:"visibility" desc:"only list public or private files"`
}

type lsEntry struct {
	Path           string              `json:"path"`
	Digest         string              `json:"digest"`
	Size           int64               `json:"size"`
	CompressedSize int64               `json:"compressed_size"`
	Visibility     manifest.Visibility `json:"visibility"`
}

func lsCommand(env *Environment) *cli.Command {
	var params lsParams
	return &cli.Command{
		Name:    "ls",
		Summary: "List tracked files",
		Usage:   "vlfs ls [paths|dirs|globs...] [flags]",
		Flags:   func() *pflag.FlagSet { return cli.FlagsFromParams("ls", &params) },
		Run: func(_ context.Context, args []string, logger *slog.Logger) error {
			var visibility manifest.Visibility
			if params.Visibility != "" {
				parsed, err := manifest.ParseVisibility(params.Visibility)
				if err != nil {
					return cli.Validation("--visibility: %v", err)
				}
				visibility = parsed
			}
			p, err := env.open(logger)
			if err != nil {
				return err
			}
			paths, err := p.keys(args)
			if err != nil {
				return err
			}
			records, err := p.engine.Ls(paths, visibility)
			if err != nil {
				return err
			}

			entries := make([]lsEntry, 0, len(records))
			for _, record := range records {
				entries = append(entries, lsEntry{
					Path:           record.Path,
					Digest:         record.Digest.String(),
					Size:           record.Size,
					CompressedSize: record.CompressedSize,
					Visibility:     record.Visibility,
				})
			}
			if done, err := params.EmitJSON(entries); done {
				return err
			}
			if !params.Long {
				for _, entry := range entries {
					env.printf("%s\n", entry.Path)
				}
				return nil
			}
			tw := tabwriter.NewWriter(env.Stdout, 2, 0, 2, ' ', 0)
			for _, entry := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", entry.Digest[:lsDigestWidth], humanize.IBytes(uint64(entry.Size)), entry.Visibility, entry.Path)
			}
			return tw.Flush()
		},
	}
}
