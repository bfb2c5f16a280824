// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"strings"

	"github.com/bureau-foundation/vlfs/lib/workspace"
)

// selector matches manifest keys against command-line path arguments:
// exact keys, directory prefixes, and glob patterns. An empty selector
// matches everything.
type selector struct {
	exact    map[string]bool
	prefixes []string
	globs    *workspace.Matcher
	all      bool
}

func newSelector(arguments []string) (*selector, error) {
	s := &selector{exact: make(map[string]bool)}
	var patterns []string
	for _, argument := range arguments {
		argument = strings.TrimSuffix(strings.TrimPrefix(argument, "./"), "/")
		switch {
		case argument == "" || argument == ".":
			s.all = true
		case workspace.HasGlobMeta(argument):
			patterns = append(patterns, argument)
		default:
			s.exact[argument] = true
			s.prefixes = append(s.prefixes, argument+"/")
		}
	}
	if len(arguments) == 0 {
		s.all = true
	}
	if len(patterns) > 0 {
		matcher, err := workspace.NewMatcher(patterns)
		if err != nil {
			return nil, err
		}
		s.globs = matcher
	}
	return s, nil
}

func (s *selector) match(relative string) bool {
	if s.all || s.exact[relative] {
		return true
	}
	for _, prefix := range s.prefixes {
		if strings.HasPrefix(relative, prefix) {
			return true
		}
	}
	return s.globs != nil && s.globs.Match(relative)
}
