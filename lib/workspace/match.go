// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package workspace

import (
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/gobwas/glob"
)

// DefaultPatterns are tracked when the configuration names none.
var DefaultPatterns = []string{"*.psd", "*.zip", "*.exe", "*.dll", "*.lib", "*.iso", "*.mp4"}

// Matcher tests manifest keys against tracking patterns.
//
// A pattern without a slash matches the file name in any directory
// ("*.psd"). A pattern with a slash matches the whole key, where "*"
// stays inside one directory and "**/" spans zero or more directories
// ("art/**/*.psd" matches both art/a.psd and art/x/y/a.psd).
type Matcher struct {
	patterns []string
	basename []glob.Glob
	fullPath []glob.Glob
}

// NewMatcher compiles patterns.
func NewMatcher(patterns []string) (*Matcher, error) {
	matcher := &Matcher{patterns: patterns}
	for _, pattern := range patterns {
		pattern = strings.TrimPrefix(pattern, "./")
		if pattern == "" {
			continue
		}
		if !strings.Contains(pattern, "/") {
			compiled, err := glob.Compile(pattern, '/')
			if err != nil {
				return nil, fmt.Errorf("tracking pattern %q: %w", pattern, err)
			}
			matcher.basename = append(matcher.basename, compiled)
			continue
		}
		for _, variant := range expandDoubleStar(pattern) {
			compiled, err := glob.Compile(variant, '/')
			if err != nil {
				return nil, fmt.Errorf("tracking pattern %q: %w", pattern, err)
			}
			matcher.fullPath = append(matcher.fullPath, compiled)
		}
	}
	return matcher, nil
}

// expandDoubleStar returns pattern once for every way of dropping some
// of its "**/" segments. The glob library requires "**/" to span at
// least one directory; a dropped segment spans zero.
func expandDoubleStar(pattern string) []string {
	pieces := strings.Split(pattern, "**/")
	variants := []string{pieces[0]}
	for _, piece := range pieces[1:] {
		next := make([]string, 0, 2*len(variants))
		for _, prefix := range variants {
			next = append(next, prefix+"**/"+piece, prefix+piece)
		}
		variants = next
	}
	slices.Sort(variants)
	return slices.Compact(variants)
}

// Patterns returns the source patterns.
func (m *Matcher) Patterns() []string { return m.patterns }

// Match reports whether relative matches any pattern.
func (m *Matcher) Match(relative string) bool {
	name := path.Base(relative)
	for _, compiled := range m.basename {
		if compiled.Match(name) {
			return true
		}
	}
	for _, compiled := range m.fullPath {
		if compiled.Match(relative) {
			return true
		}
	}
	return false
}

// Empty reports whether the matcher has no patterns.
func (m *Matcher) Empty() bool {
	return len(m.basename) == 0 && len(m.fullPath) == 0
}

// HasGlobMeta reports whether s contains glob syntax, as opposed to
// naming a file or directory literally.
func HasGlobMeta(s string) bool {
	return strings.ContainsAny(s, "*?[{")
}
