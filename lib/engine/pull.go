// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"

	"github.com/bureau-foundation/vlfs/lib/digest"
	"github.com/bureau-foundation/vlfs/lib/fault"
	"github.com/bureau-foundation/vlfs/lib/manifest"
	"github.com/bureau-foundation/vlfs/lib/objectcache"
)

// PullOptions selects and tunes a pull.
type PullOptions struct {
	// Paths limits the pull to matching manifest keys: exact keys,
	// directories, or glob patterns. Empty pulls everything.
	Paths []string

	// Force overwrites working-tree files that differ from their
	// record instead of reporting a LocalFileConflict.
	Force bool

	// DryRun reports the plan without fetching or writing.
	DryRun bool

	// FailFast stops at the first failed path.
	FailFast bool
}

// Pull materializes manifest records into the working tree. It never
// modifies the manifest.
func (e *Engine) Pull(ctx context.Context, options PullOptions) (*Report, error) {
	sel, err := newSelector(options.Paths)
	if err != nil {
		return nil, err
	}
	var records []manifest.TrackedFile
	for _, record := range e.manifest.Records() {
		if sel.match(record.Path) {
			records = append(records, record)
		}
	}
	e.logger.Debug("pull", "records", len(records), "force", options.Force, "dry_run", options.DryRun)

	failFast := options.FailFast || e.config.Defaults.FailFast
	report, err := forEach(ctx, e.transfers(), failFast, records, func(ctx context.Context, record manifest.TrackedFile) PathResult {
		return e.pullOne(ctx, record, options)
	})
	e.saveStatCache()
	if report != nil {
		e.logger.Info("pull finished",
			"materialized", report.Count(Succeeded),
			"skipped", report.Count(Skipped),
			"failed", report.Count(Failed),
			"transferred", report.Transferred())
	}
	return report, err
}

func (e *Engine) pullOne(ctx context.Context, record manifest.TrackedFile, options PullOptions) PathResult {
	if err := ctx.Err(); err != nil {
		return PathResult{Path: record.Path, Outcome: Canceled, Digest: record.Digest, Err: err}
	}
	if err := e.layout.CheckWritable(record.Path); err != nil {
		return failure(record.Path, Fetch, record.Digest, fault.LocalFileConflict, err)
	}
	observation, _, err := e.observe(record.Path)
	if err != nil {
		return failure(record.Path, Fetch, record.Digest, fault.LocalIO, err)
	}
	action := Classify(observation)

	if action == Clean {
		// A cached object that no longer verifies is evicted and
		// repaired like a missing one.
		if checkErr := e.cache.Check(record.Digest); checkErr != nil {
			e.logger.Warn("cached object failed verification", "path", record.Path, "error", checkErr)
			if err := e.cache.Evict(record.Digest); err != nil {
				return failure(record.Path, RepairCache, record.Digest, fault.LocalIO, err)
			}
			action = RepairCache
		}
	}

	result := PathResult{Path: record.Path, Action: action.String(), Digest: record.Digest, Bytes: record.Size}
	switch {
	case action == Clean:
		result.Outcome = Skipped
		result.Detail = "up to date"
		return result
	case action == Modified && !options.Force:
		return failure(record.Path, action, record.Digest, fault.LocalFileConflict,
			&fault.Error{Kind: fault.LocalFileConflict, Path: record.Path, Digest: record.Digest.String(),
				Err: errors.New("working-tree file differs from the manifest; push it or pull with --force")})
	case options.DryRun:
		result.Outcome = Planned
		if !observation.Cached {
			result.Detail = "fetch from remote"
		}
		return result
	}

	if action == RepairCache {
		transferred, err := e.repairCache(ctx, record)
		if err != nil {
			return failure(record.Path, action, record.Digest, fault.LocalIO, err)
		}
		result.Outcome = Succeeded
		result.Transferred = transferred
		result.Detail = "cache repaired"
		return result
	}

	transferred, err := e.ensureCached(ctx, record)
	if err != nil {
		return failure(record.Path, action, record.Digest, fault.LocalIO, err)
	}
	written, err := e.materialize(ctx, record)
	if err != nil {
		return failure(record.Path, action, record.Digest, fault.LocalIO, err)
	}
	result.Outcome = Succeeded
	result.Bytes = written
	result.Transferred = transferred
	e.logger.Debug("materialized", "path", record.Path, "digest", record.Digest.Short(), "size", humanize.IBytes(uint64(written)))
	return result
}

// ensureCached makes the cache hold record's object, fetching it from
// the remote when absent. Reports whether a transfer happened.
func (e *Engine) ensureCached(ctx context.Context, record manifest.TrackedFile) (bool, error) {
	if e.cache.Contains(record.Digest) {
		return false, nil
	}
	if err := e.fetch(ctx, record); err != nil {
		return false, err
	}
	return true, nil
}

func (e *Engine) fetch(ctx context.Context, record manifest.TrackedFile) error {
	if err := e.requireRemote(record.Digest); err != nil {
		return err
	}
	compressed, err := e.remote.Fetch(ctx, record.Visibility, record.Digest)
	if err != nil {
		return err
	}
	if _, err := e.cache.PutCompressed(record.Digest, compressed); err != nil {
		return fmt.Errorf("caching %s: %w", record.Digest.Short(), err)
	}
	return nil
}

// materialize writes record's content into the working tree from the
// cache. A cached object found corrupt is evicted, fetched again once,
// and retried.
func (e *Engine) materialize(ctx context.Context, record manifest.TrackedFile) (int64, error) {
	destination := e.layout.Abs(record.Path)
	written, err := e.cache.Materialize(record.Digest, destination)
	if err == nil {
		e.recordStat(record.Path, record.Digest)
		return written, nil
	}
	if !errors.Is(err, fault.CorruptObject) && !errors.Is(err, objectcache.ErrMiss) {
		return 0, err
	}
	e.logger.Warn("re-fetching object", "path", record.Path, "digest", record.Digest.Short(), "error", err)
	if fetchErr := e.fetch(ctx, record); fetchErr != nil {
		return 0, fmt.Errorf("%w (re-fetch failed: %w)", err, fetchErr)
	}
	written, err = e.cache.Materialize(record.Digest, destination)
	if err == nil {
		e.recordStat(record.Path, record.Digest)
	}
	return written, err
}

// repairCache restores record's object in the cache. The remote is
// tried first; the working-tree file, already verified to hash to the
// record's digest, is the fallback. Reports whether a transfer
// happened.
func (e *Engine) repairCache(ctx context.Context, record manifest.TrackedFile) (bool, error) {
	remoteErr := e.fetch(ctx, record)
	if remoteErr == nil {
		return true, nil
	}
	if isCancellation(remoteErr) {
		return false, remoteErr
	}
	e.logger.Debug("repairing cache from working tree", "path", record.Path, "remote_error", remoteErr)

	content, err := os.ReadFile(e.layout.Abs(record.Path))
	if err != nil {
		return false, fmt.Errorf("%w (reading working tree: %w)", remoteErr, err)
	}
	if digest.Of(e.Algorithm(), content) != record.Digest {
		return false, fmt.Errorf("%w (working tree changed during repair)", remoteErr)
	}
	if _, err := e.cache.Put(record.Digest, content, e.config.Compression()); err != nil {
		return false, err
	}
	return false, nil
}

// recordStat remembers the digest of a file just written from a
// verified object.
func (e *Engine) recordStat(relative string, d digest.Digest) {
	if e.stat == nil {
		return
	}
	info, err := e.layout.Stat(relative)
	if err != nil || info == nil {
		return
	}
	e.stat.Record(relative, info, d)
}
