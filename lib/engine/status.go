// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/bureau-foundation/vlfs/lib/manifest"
	"github.com/bureau-foundation/vlfs/lib/workspace"
)

// Status is the read-only comparison of the working tree against the
// manifest. Each list is sorted.
type Status struct {
	// Clean paths match their record.
	Clean []string `json:"clean"`

	// Modified paths differ from their record.
	Modified []string `json:"modified"`

	// Missing paths are recorded but absent from the working tree.
	Missing []string `json:"missing"`

	// Untracked paths match a tracking pattern but have no record.
	Untracked []string `json:"untracked"`
}

// Dirty reports whether anything is out of sync.
func (s *Status) Dirty() bool {
	return len(s.Modified)+len(s.Missing)+len(s.Untracked) > 0
}

// Status compares every tracked path with the working tree and lists
// files matching the tracking patterns that have no record. It changes
// nothing except the stat cache.
func (e *Engine) Status(ctx context.Context) (*Status, error) {
	status := &Status{}
	var mu sync.Mutex
	appendTo := func(list *[]string, relative string) {
		mu.Lock()
		*list = append(*list, relative)
		mu.Unlock()
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(e.transfers())
	for _, record := range e.manifest.Records() {
		if groupCtx.Err() != nil {
			break
		}
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			info, err := e.layout.Stat(record.Path)
			if err != nil {
				return err
			}
			if info == nil {
				appendTo(&status.Missing, record.Path)
				return nil
			}
			working, err := e.hash(record.Path, info)
			if err != nil {
				return err
			}
			if working == record.Digest {
				appendTo(&status.Clean, record.Path)
			} else {
				appendTo(&status.Modified, record.Path)
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	e.saveStatCache()

	untracked, err := e.untracked()
	if err != nil {
		return nil, err
	}
	status.Untracked = untracked

	for _, list := range [][]string{status.Clean, status.Modified, status.Missing} {
		sort.Strings(list)
	}
	return status, nil
}

// untracked lists working-tree files matching the tracking patterns
// that have no manifest record.
func (e *Engine) untracked() ([]string, error) {
	tracking, err := workspace.NewMatcher(e.config.Tracking.Patterns)
	if err != nil {
		return nil, err
	}
	if tracking.Empty() {
		return nil, nil
	}
	var untracked []string
	err = e.layout.Walk("", func(relative string, _ fs.FileInfo) error {
		if _, tracked := e.manifest.Get(relative); !tracked && tracking.Match(relative) {
			untracked = append(untracked, relative)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning working tree: %w", err)
	}
	sort.Strings(untracked)
	return untracked, nil
}

// Ls returns the manifest records matching paths (keys, directories or
// globs; empty for all) and, when visibility is set, that visibility.
func (e *Engine) Ls(paths []string, visibility manifest.Visibility) ([]manifest.TrackedFile, error) {
	sel, err := newSelector(paths)
	if err != nil {
		return nil, err
	}
	var records []manifest.TrackedFile
	for _, record := range e.manifest.Records() {
		if !sel.match(record.Path) {
			continue
		}
		if visibility != "" && record.Visibility != visibility {
			continue
		}
		records = append(records, record)
	}
	return records, nil
}
