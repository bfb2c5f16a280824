// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/bureau-foundation/vlfs/cmd/vlfs/cli"
	"github.com/bureau-foundation/vlfs/lib/engine"
	"github.com/bureau-foundation/vlfs/lib/fault"
)

// resultJSON is a PathResult with its error flattened for --json.
type resultJSON struct {
	engine.PathResult
	Error    string            `json:"error,omitempty"`
	Kind     fault.Kind        `json:"kind,omitempty"`
	Category cli.ErrorCategory `json:"category,omitempty"`
}

type summaryJSON struct {
	Succeeded   int `json:"succeeded"`
	Skipped     int `json:"skipped"`
	Planned     int `json:"planned"`
	Failed      int `json:"failed"`
	Canceled    int `json:"canceled"`
	Transferred int `json:"transferred"`
}

type reportJSON struct {
	Results []resultJSON `json:"results"`
	Summary summaryJSON  `json:"summary"`
}

func summarize(report *engine.Report) summaryJSON {
	return summaryJSON{
		Succeeded:   report.Count(engine.Succeeded),
		Skipped:     report.Count(engine.Skipped),
		Planned:     report.Count(engine.Planned),
		Failed:      report.Count(engine.Failed),
		Canceled:    report.Count(engine.Canceled),
		Transferred: report.Transferred(),
	}
}

// emitReport writes report as JSON or as a table of every path that
// was not skipped, then returns the command's result: an ExitError
// with code 1 when any path failed.
func (env *Environment) emitReport(output *cli.JSONOutput, verb string, report *engine.Report) error {
	results := report.Results()
	if output.OutputJSON {
		encoded := reportJSON{Results: make([]resultJSON, 0, len(results)), Summary: summarize(report)}
		for _, result := range results {
			entry := resultJSON{PathResult: result}
			if result.Err != nil {
				entry.Error = result.Err.Error()
				entry.Kind = fault.KindOf(result.Err)
				entry.Category = cli.Categorize(result.Err)
			}
			encoded.Results = append(encoded.Results, entry)
		}
		if _, err := output.EmitJSON(encoded); err != nil {
			return err
		}
	} else {
		tw := tabwriter.NewWriter(env.Stdout, 2, 0, 2, ' ', 0)
		for _, result := range results {
			switch result.Outcome {
			case engine.Succeeded:
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", verb, result.Path, humanize.IBytes(uint64(max(result.Bytes, 0))), result.Detail)
			case engine.Planned:
				fmt.Fprintf(tw, "would %s\t%s\t%s\t%s\n", verb, result.Path, humanize.IBytes(uint64(max(result.Bytes, 0))), result.Detail)
			case engine.Failed:
				fmt.Fprintf(tw, "failed\t%s\t%s\t%v\n", result.Path, cli.Categorize(result.Err), result.Err)
			case engine.Canceled:
				fmt.Fprintf(tw, "canceled\t%s\t\t\n", result.Path)
			}
		}
		tw.Flush()
		summary := summarize(report)
		env.printf("%d %s, %d up to date, %d failed", summary.Succeeded+summary.Planned, verb, summary.Skipped, summary.Failed)
		if summary.Transferred > 0 {
			env.printf(", %d transferred", summary.Transferred)
		}
		env.printf("\n")
	}

	if report.Count(engine.Failed) > 0 {
		return &cli.ExitError{Code: cli.ExitFailure}
	}
	return nil
}
