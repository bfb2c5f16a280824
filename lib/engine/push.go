// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/dustin/go-humanize"

	"github.com/bureau-foundation/vlfs/lib/digest"
	"github.com/bureau-foundation/vlfs/lib/fault"
	"github.com/bureau-foundation/vlfs/lib/manifest"
	"github.com/bureau-foundation/vlfs/lib/workspace"
)

// ErrNothingToPush is returned by Push when neither paths nor All were
// given.
var ErrNothingToPush = errors.New("no paths given; name files, directories or glob patterns, or use --all")

// PushOptions selects and tunes a push.
type PushOptions struct {
	// Paths are manifest keys, directories (pushed recursively) or glob
	// patterns matched against every file in the tree.
	Paths []string

	// All pushes every tracked file plus every new file matching the
	// tracking patterns.
	All bool

	// Visibility applies to every pushed path. Empty keeps a tracked
	// file's recorded visibility and makes new files public.
	Visibility manifest.Visibility

	DryRun   bool
	FailFast bool
}

// Push stores changed and new files in the cache, uploads them, and
// records them in the manifest. The manifest is saved once after every
// path is done; a cancelled push saves nothing.
func (e *Engine) Push(ctx context.Context, options PushOptions) (*Report, error) {
	if len(options.Paths) == 0 && !options.All {
		return nil, ErrNothingToPush
	}
	candidates, missing, err := e.candidates(options)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("push", "candidates", len(candidates), "dry_run", options.DryRun)

	var (
		mu      sync.Mutex
		updates []manifest.TrackedFile
	)
	failFast := options.FailFast || e.config.Defaults.FailFast
	report, err := forEach(ctx, e.transfers(), failFast, candidates, func(ctx context.Context, relative string) PathResult {
		result, update := e.pushOne(ctx, relative, options)
		if update != nil {
			mu.Lock()
			updates = append(updates, *update)
			mu.Unlock()
		}
		return result
	})
	for _, relative := range missing {
		report.Add(PathResult{Path: relative, Action: "push", Outcome: Failed,
			Err: fault.WithPath(fmt.Errorf("%s: %w", relative, fs.ErrNotExist), fault.LocalIO, relative)})
	}
	e.saveStatCache()
	if err != nil {
		e.logger.Warn("push interrupted; manifest not saved", "completed_uploads", len(updates))
		return report, err
	}

	if len(updates) > 0 && !options.DryRun {
		if err := e.commit(updates); err != nil {
			return report, err
		}
	}
	e.logger.Info("push finished",
		"recorded", len(updates),
		"skipped", report.Count(Skipped),
		"failed", report.Count(Failed),
		"uploaded", report.Transferred())
	return report, nil
}

// commit applies record updates to the latest saved manifest.
func (e *Engine) commit(updates []manifest.TrackedFile) error {
	err := e.manifest.Update(e.layout.ManifestPath, func(latest *manifest.Manifest) error {
		for _, update := range updates {
			if err := latest.Upsert(update); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	changed, err := e.layout.EnsureGitignore(workspace.GitignoreEntries...)
	if err != nil {
		e.logger.Warn("updating .gitignore", "error", err)
	} else if changed {
		e.logger.Info("added vlfs entries to .gitignore")
	}
	return nil
}

// candidates expands push arguments into manifest keys. Explicit paths
// that do not exist are returned separately.
func (e *Engine) candidates(options PushOptions) (candidates, missing []string, err error) {
	seen := make(map[string]bool)
	add := func(relative string) {
		if !seen[relative] {
			seen[relative] = true
			candidates = append(candidates, relative)
		}
	}

	if options.All {
		for _, record := range e.manifest.Records() {
			add(record.Path)
		}
		tracking, err := workspace.NewMatcher(e.config.Tracking.Patterns)
		if err != nil {
			return nil, nil, err
		}
		err = e.layout.Walk("", func(relative string, _ fs.FileInfo) error {
			if tracking.Match(relative) {
				add(relative)
			}
			return nil
		})
		if err != nil {
			return nil, nil, fmt.Errorf("scanning working tree: %w", err)
		}
	}

	for _, argument := range options.Paths {
		relative := filepath.ToSlash(filepath.Clean(filepath.FromSlash(argument)))
		if workspace.HasGlobMeta(relative) {
			matcher, err := workspace.NewMatcher([]string{relative})
			if err != nil {
				return nil, nil, err
			}
			matched := false
			err = e.layout.Walk("", func(relative string, _ fs.FileInfo) error {
				if matcher.Match(relative) {
					add(relative)
					matched = true
				}
				return nil
			})
			if err != nil {
				return nil, nil, fmt.Errorf("scanning working tree: %w", err)
			}
			if !matched {
				e.logger.Warn("pattern matched no files", "pattern", argument)
			}
			continue
		}

		info, err := os.Stat(e.layout.Abs(relative))
		switch {
		case errors.Is(err, fs.ErrNotExist):
			if _, tracked := e.manifest.Get(relative); tracked {
				add(relative)
			} else {
				missing = append(missing, relative)
			}
		case err != nil:
			return nil, nil, err
		case info.IsDir():
			err = e.layout.Walk(e.layout.Abs(relative), func(relative string, _ fs.FileInfo) error {
				add(relative)
				return nil
			})
			if err != nil {
				return nil, nil, fmt.Errorf("scanning %s: %w", relative, err)
			}
		default:
			add(relative)
		}
	}
	sort.Strings(candidates)
	return candidates, missing, nil
}

func (e *Engine) pushOne(ctx context.Context, relative string, options PushOptions) (PathResult, *manifest.TrackedFile) {
	if err := ctx.Err(); err != nil {
		return PathResult{Path: relative, Outcome: Canceled, Err: err}, nil
	}
	if err := manifest.ValidatePath(relative); err != nil {
		return PathResult{Path: relative, Action: "push", Outcome: Failed, Err: fault.WithPath(err, fault.ManifestInvalid, relative)}, nil
	}

	observation, info, err := e.observe(relative)
	if err != nil {
		return failure(relative, Modified, digest.Digest{}, fault.LocalIO, err), nil
	}
	action := Classify(observation)
	record, tracked := e.manifest.Get(relative)

	visibility := options.Visibility
	if visibility == "" {
		visibility = manifest.Public
		if tracked {
			visibility = record.Visibility
		}
	}

	result := PathResult{Path: relative, Action: action.String(), Digest: observation.Working}
	switch {
	case !observation.Present:
		result.Outcome = Skipped
		result.Detail = "missing locally"
		return result, nil
	case tracked && observation.Working == record.Digest && visibility == record.Visibility:
		result.Outcome = Skipped
		result.Detail = "unchanged"
		result.Bytes = record.Size
		return result, nil
	case options.DryRun:
		result.Outcome = Planned
		result.Bytes = info.Size()
		return result, nil
	}

	content, err := os.ReadFile(e.layout.Abs(relative))
	if err != nil {
		return failure(relative, action, observation.Working, fault.LocalIO, err), nil
	}
	object := digest.Of(e.Algorithm(), content)
	if object != observation.Working && e.stat != nil {
		// The stat cache vouched for stale content.
		e.stat.Forget(relative)
	}
	result.Digest = object
	result.Bytes = int64(len(content))

	compressedSize, err := e.cache.Put(object, content, e.config.Compression())
	if err != nil {
		return failure(relative, action, object, fault.LocalIO, err), nil
	}

	if err := e.requireRemote(object); err != nil {
		return failure(relative, action, object, fault.MissingCredentials, err), nil
	}
	uploaded, err := e.remote.Upload(ctx, visibility, object, e.cache.Path(object))
	if err != nil {
		return failure(relative, action, object, fault.TransferFailed, err), nil
	}

	result.Outcome = Succeeded
	result.Transferred = uploaded
	if !uploaded {
		result.Detail = "already on remote"
	}
	e.logger.Debug("pushed", "path", relative, "digest", object.Short(), "visibility", visibility,
		"size", humanize.IBytes(uint64(len(content))), "stored", humanize.IBytes(uint64(compressedSize)))

	return result, &manifest.TrackedFile{
		Path:           relative,
		Digest:         object,
		Size:           int64(len(content)),
		CompressedSize: compressedSize,
		Visibility:     visibility,
	}
}
