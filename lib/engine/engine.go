// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/bureau-foundation/vlfs/lib/config"
	"github.com/bureau-foundation/vlfs/lib/digest"
	"github.com/bureau-foundation/vlfs/lib/fault"
	"github.com/bureau-foundation/vlfs/lib/manifest"
	"github.com/bureau-foundation/vlfs/lib/objectcache"
	"github.com/bureau-foundation/vlfs/lib/statcache"
	"github.com/bureau-foundation/vlfs/lib/workspace"
)

// Remote moves objects to and from remote storage. Implemented by
// transfer.Dispatcher.
type Remote interface {
	Fetch(ctx context.Context, visibility manifest.Visibility, object digest.Digest) ([]byte, error)
	Upload(ctx context.Context, visibility manifest.Visibility, object digest.Digest, objectPath string) (bool, error)
	Exists(ctx context.Context, visibility manifest.Visibility, object digest.Digest) (bool, error)
	Delete(ctx context.Context, visibility manifest.Visibility, object digest.Digest) error
}

// Options configures an [Engine].
type Options struct {
	Layout   workspace.Layout
	Config   *config.Config
	Manifest *manifest.Manifest
	Cache    *objectcache.Cache

	// Remote is nil when no remote could be configured; operations
	// needing it then fail with MissingCredentials.
	Remote Remote

	// StatCache, when set, is consulted before hashing working-tree
	// files and saved at the end of each operation.
	StatCache *statcache.Cache

	// Logger receives per-path debug records and run summaries. Nil
	// discards.
	Logger *slog.Logger
}

// Engine runs reconciliation for one invocation.
type Engine struct {
	layout   workspace.Layout
	config   *config.Config
	manifest *manifest.Manifest
	cache    *objectcache.Cache
	remote   Remote
	stat     *statcache.Cache
	logger   *slog.Logger
}

// New returns an engine. Layout, Config, Manifest and Cache are
// required.
func New(options Options) (*Engine, error) {
	switch {
	case options.Config == nil:
		return nil, errors.New("engine: config is required")
	case options.Manifest == nil:
		return nil, errors.New("engine: manifest is required")
	case options.Cache == nil:
		return nil, errors.New("engine: object cache is required")
	case options.Layout.Root == "":
		return nil, errors.New("engine: layout root is required")
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{
		layout:   options.Layout,
		config:   options.Config,
		manifest: options.Manifest,
		cache:    options.Cache,
		remote:   options.Remote,
		stat:     options.StatCache,
		logger:   logger,
	}, nil
}

// Manifest returns the engine's manifest, including any records
// updated by a completed push or remove.
func (e *Engine) Manifest() *manifest.Manifest { return e.manifest }

// Algorithm is the digest algorithm of the manifest.
func (e *Engine) Algorithm() digest.Algorithm { return e.manifest.Algorithm() }

// errNoRemote is returned by remote operations when no remote is
// configured at all.
var errNoRemote = errors.New("no remote storage configured")

func (e *Engine) requireRemote(object digest.Digest) error {
	if e.remote != nil {
		return nil
	}
	return &fault.Error{Kind: fault.MissingCredentials, Digest: object.String(), Err: errNoRemote}
}

// hash returns the working-tree digest of relative, consulting and
// updating the stat cache when enabled.
func (e *Engine) hash(relative string, info fs.FileInfo) (digest.Digest, error) {
	if e.stat != nil {
		if remembered, ok := e.stat.Lookup(relative, info); ok {
			return remembered, nil
		}
	}
	d, _, err := digest.OfFile(e.Algorithm(), e.layout.Abs(relative))
	if err != nil {
		return digest.Digest{}, fmt.Errorf("hashing %s: %w", relative, err)
	}
	if e.stat != nil {
		e.stat.Record(relative, info, d)
	}
	return d, nil
}

// observe stats and hashes relative and combines it with the record
// and cache state.
func (e *Engine) observe(relative string) (Observation, fs.FileInfo, error) {
	var observation Observation
	record, tracked := e.manifest.Get(relative)
	if tracked {
		observation.Tracked = true
		observation.Recorded = record.Digest
		observation.Cached = e.cache.Contains(record.Digest)
	}
	info, err := e.layout.Stat(relative)
	if err != nil {
		return observation, nil, err
	}
	if info != nil {
		observation.Present = true
		observation.Working, err = e.hash(relative, info)
		if err != nil {
			return observation, info, err
		}
	}
	return observation, info, nil
}

// saveStatCache persists the stat cache. Failure only costs re-hashing
// next time, so it is logged rather than returned.
func (e *Engine) saveStatCache() {
	if e.stat == nil {
		return
	}
	if err := e.stat.Save(); err != nil {
		e.logger.Warn("saving stat cache", "error", err)
	}
}

func (e *Engine) transfers() int {
	return max(e.config.Defaults.Transfers, 1)
}

// forEach runs work for every item on a bounded pool and collects the
// results. Under failFast the first failure cancels work not yet
// finished; paths never started are not reported. The returned error
// is non-nil only when ctx itself was cancelled.
func forEach[T any](ctx context.Context, limit int, failFast bool, items []T, work func(context.Context, T) PathResult) (*Report, error) {
	report := &Report{}
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(limit)

	for _, item := range items {
		if groupCtx.Err() != nil {
			break
		}
		group.Go(func() error {
			result := work(groupCtx, item)
			if result.Outcome == Failed && groupCtx.Err() != nil && isCancellation(result.Err) {
				result.Outcome = Canceled
			}
			report.Add(result)
			if failFast && result.Outcome == Failed {
				return result.Err
			}
			return nil
		})
	}
	group.Wait()
	return report, ctx.Err()
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// failure builds a failed result, attaching the path to err.
func failure(relative string, action Action, d digest.Digest, fallback fault.Kind, err error) PathResult {
	if !isCancellation(err) {
		err = fault.WithPath(err, fallback, relative)
	}
	return PathResult{Path: relative, Action: action.String(), Outcome: Failed, Digest: d, Err: err}
}
