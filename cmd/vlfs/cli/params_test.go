// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"slices"
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

func TestBindFlags(t *testing.T) {
	type params struct {
		JSONOutput
		Visibility string   `flag:"visibility" desc:"filter" default:"public"`
		Force      bool     `flag:"force,f" desc:"overwrite"`
		Transfers  int      `flag:"transfers" desc:"parallelism" default:"8"`
		Paths      []string `flag:"path" desc:"paths"`
		Untagged   string
	}

	var p params
	flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
	if err := BindFlags(&p, flagSet); err != nil {
		t.Fatalf("BindFlags: %v", err)
	}
	if p.Visibility != "public" || p.Transfers != 8 {
		t.Errorf("defaults = %q, %d, want public, 8", p.Visibility, p.Transfers)
	}

	err := flagSet.Parse([]string{"--json", "-f", "--visibility", "private", "--transfers", "2", "--path", "a,b"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !p.OutputJSON {
		t.Error("OutputJSON = false, want true")
	}
	if !p.Force {
		t.Error("Force = false, want true")
	}
	if p.Visibility != "private" {
		t.Errorf("Visibility = %q, want private", p.Visibility)
	}
	if p.Transfers != 2 {
		t.Errorf("Transfers = %d, want 2", p.Transfers)
	}
	if !slices.Equal(p.Paths, []string{"a", "b"}) {
		t.Errorf("Paths = %v, want [a b]", p.Paths)
	}
	if flagSet.Lookup("untagged") != nil {
		t.Error("untagged field should not become a flag")
	}
}

func TestBindFlags_Errors(t *testing.T) {
	tests := []struct {
		name   string
		params any
		want   string
	}{
		{"not a pointer", struct{}{}, "pointer to a struct"},
		{"bad bool default", &struct {
			B bool `flag:"b" default:"maybe"`
		}{}, "default for --b"},
		{"bad int default", &struct {
			N int `flag:"n" default:"many"`
		}{}, "default for --n"},
		{"unsupported type", &struct {
			F float64 `flag:"f"`
		}{}, "unsupported type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := BindFlags(tt.params, pflag.NewFlagSet("test", pflag.ContinueOnError))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("BindFlags() error = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestFlagsFromParams_PanicsOnBadParams(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("FlagsFromParams should panic on a non-pointer")
		}
	}()
	FlagsFromParams("bad", struct{}{})
}
