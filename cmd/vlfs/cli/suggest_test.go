// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"testing"

	"github.com/spf13/pflag"
)

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"abc", "", 3},
		{"pull", "pull", 0},
		{"pull", "pul", 1},
		{"push", "psuh", 2},
		{"kitten", "sitting", 3},
		{"verify", "verfiy", 2},
	}
	for _, tt := range tests {
		if got := levenshtein(tt.a, tt.b); got != tt.want {
			t.Errorf("levenshtein(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestSuggestCommand(t *testing.T) {
	commands := []*Command{{Name: "pull"}, {Name: "push"}, {Name: "status"}, {Name: "verify"}}
	tests := []struct {
		input string
		want  string
	}{
		{"pul", "pull"},
		{"stat", "status"},
		{"verfy", "verify"},
		{"completely-different", ""},
	}
	for _, tt := range tests {
		if got := suggestCommand(tt.input, commands); got != tt.want {
			t.Errorf("suggestCommand(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestSuggestFlag(t *testing.T) {
	flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flagSet.Bool("keep-remote", false, "")
	flagSet.BoolP("force", "f", false, "")

	tests := []struct {
		args []string
		want string
	}{
		{[]string{"--keep-remot"}, "--keep-remote"},
		{[]string{"-f", "--forse"}, "--force"},
		{[]string{"--force=true", "--nothing-like-it"}, ""},
		{[]string{"path/only"}, ""},
	}
	for _, tt := range tests {
		if got := suggestFlag(tt.args, flagSet); got != tt.want {
			t.Errorf("suggestFlag(%v) = %q, want %q", tt.args, got, tt.want)
		}
	}
}
