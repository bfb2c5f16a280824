// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/bureau-foundation/vlfs/lib/digest"
	"github.com/bureau-foundation/vlfs/lib/fault"
	"github.com/bureau-foundation/vlfs/lib/manifest"
)

// ErrNoMatch is returned by Remove when no record matches its paths.
var ErrNoMatch = errors.New("no tracked files match")

// RemoveOptions selects and tunes a remove.
type RemoveOptions struct {
	// Paths are manifest keys, directories or glob patterns. Required.
	Paths []string

	// DeleteFile also deletes the working-tree file. A file that
	// differs from its record is kept, and its record too, unless
	// Force is set.
	DeleteFile bool
	Force      bool

	// KeepRemote leaves remote objects in place. Otherwise objects no
	// longer referenced by any record are deleted from their remote.
	KeepRemote bool

	DryRun bool
}

// Remove drops records from the manifest. Objects no remaining record
// references are evicted from the cache and, unless KeepRemote, deleted
// from their remote. The manifest is saved before any remote deletion.
func (e *Engine) Remove(ctx context.Context, options RemoveOptions) (*Report, error) {
	if len(options.Paths) == 0 {
		return nil, fmt.Errorf("%w: no paths given", ErrNoMatch)
	}
	sel, err := newSelector(options.Paths)
	if err != nil {
		return nil, err
	}
	var matched []manifest.TrackedFile
	for _, record := range e.manifest.Records() {
		if sel.match(record.Path) {
			matched = append(matched, record)
		}
	}
	if len(matched) == 0 {
		return nil, fmt.Errorf("%w %v", ErrNoMatch, options.Paths)
	}

	report := &Report{}
	var removed []manifest.TrackedFile
	for _, record := range matched {
		result := PathResult{Path: record.Path, Action: "remove", Digest: record.Digest}
		if options.DeleteFile {
			if err := e.layout.CheckWritable(record.Path); err != nil {
				result.Outcome = Failed
				result.Err = fault.WithPath(err, fault.LocalFileConflict, record.Path)
				report.Add(result)
				continue
			}
			if err := e.checkDeletable(record, options.Force); err != nil {
				result.Outcome = Failed
				result.Err = err
				report.Add(result)
				continue
			}
		}
		if options.DryRun {
			result.Outcome = Planned
			report.Add(result)
			removed = append(removed, record)
			continue
		}
		if options.DeleteFile {
			if err := os.Remove(e.layout.Abs(record.Path)); err != nil && !errors.Is(err, os.ErrNotExist) {
				result.Outcome = Failed
				result.Err = fault.WithPath(err, fault.LocalFileConflict, record.Path)
				report.Add(result)
				continue
			}
			result.Detail = "file deleted"
		}
		if e.stat != nil {
			e.stat.Forget(record.Path)
		}
		result.Outcome = Succeeded
		report.Add(result)
		removed = append(removed, record)
	}

	if options.DryRun {
		orphans := e.orphaned(removed)
		e.logger.Info("remove dry run", "records", len(removed), "orphaned_objects", len(orphans))
		return report, nil
	}
	if len(removed) > 0 {
		err := e.manifest.Update(e.layout.ManifestPath, func(latest *manifest.Manifest) error {
			for _, record := range removed {
				latest.Remove(record.Path)
			}
			return nil
		})
		if err != nil {
			return report, err
		}
	}
	e.saveStatCache()

	// Orphans are judged against the merged manifest, which may hold
	// records another process added since this one loaded.
	orphans := e.orphaned(removed)

	for _, orphan := range orphans {
		if err := e.cache.Evict(orphan.Digest); err != nil {
			e.logger.Warn("evicting removed object", "digest", orphan.Digest.Short(), "error", err)
		}
		if options.KeepRemote {
			continue
		}
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if err := e.requireRemote(orphan.Digest); err != nil {
			report.Add(PathResult{Path: orphan.Path, Action: "delete-remote", Outcome: Failed, Digest: orphan.Digest, Err: err})
			continue
		}
		if err := e.remote.Delete(ctx, orphan.Visibility, orphan.Digest); err != nil {
			report.Add(PathResult{Path: orphan.Path, Action: "delete-remote", Outcome: Failed, Digest: orphan.Digest,
				Err: fault.WithPath(err, fault.TransferFailed, orphan.Path)})
			continue
		}
		e.logger.Debug("deleted remote object", "digest", orphan.Digest.Short(), "visibility", orphan.Visibility)
	}
	return report, nil
}

// checkDeletable refuses to delete a working-tree file whose content
// differs from its record, unless force.
func (e *Engine) checkDeletable(record manifest.TrackedFile, force bool) error {
	if force {
		return nil
	}
	info, err := e.layout.Stat(record.Path)
	if err != nil || info == nil {
		return err
	}
	working, err := e.hash(record.Path, info)
	if err != nil {
		return err
	}
	if working != record.Digest {
		return &fault.Error{Kind: fault.LocalFileConflict, Path: record.Path, Digest: record.Digest.String(),
			Err: errors.New("file was modified since it was pushed; use --force to delete it anyway")}
	}
	return nil
}

// orphaned returns one record per removed digest that no remaining
// record references. Removed paths are excluded explicitly since a
// dry run leaves them in the manifest.
func (e *Engine) orphaned(removed []manifest.TrackedFile) []manifest.TrackedFile {
	removedPaths := make(map[string]bool, len(removed))
	for _, record := range removed {
		removedPaths[record.Path] = true
	}
	live := make(map[digest.Digest]bool)
	for _, record := range e.manifest.Records() {
		if !removedPaths[record.Path] {
			live[record.Digest] = true
		}
	}
	seen := make(map[digest.Digest]bool)
	var orphans []manifest.TrackedFile
	for _, record := range removed {
		if live[record.Digest] || seen[record.Digest] {
			continue
		}
		seen[record.Digest] = true
		orphans = append(orphans, record)
	}
	return orphans
}
