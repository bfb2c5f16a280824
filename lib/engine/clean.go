// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"github.com/dustin/go-humanize"

	"github.com/bureau-foundation/vlfs/lib/objectcache"
)

// Cleanup describes cache objects removed (or, for a dry run, that
// would be removed) by Clean.
type Cleanup struct {
	Objects []objectcache.Object `json:"objects"`
	Bytes   int64                `json:"bytes"`
	DryRun  bool                 `json:"dry_run"`
}

// Count returns the number of objects.
func (c *Cleanup) Count() int { return len(c.Objects) }

// Clean evicts every cached object whose digest no manifest record
// references. Referenced objects are never touched.
func (e *Engine) Clean(dryRun bool) (*Cleanup, error) {
	live := e.manifest.Digests()
	if dryRun {
		orphans, err := e.cache.Unreferenced(live)
		if err != nil {
			return nil, err
		}
		cleanup := &Cleanup{Objects: orphans, DryRun: true}
		for _, object := range orphans {
			cleanup.Bytes += object.Size
		}
		return cleanup, nil
	}

	eviction, err := e.cache.EvictUnreferenced(live)
	cleanup := &Cleanup{Objects: eviction.Objects, Bytes: eviction.Bytes}
	if err != nil {
		return cleanup, err
	}
	e.logger.Info("clean finished", "objects", eviction.Count(), "freed", humanize.IBytes(uint64(eviction.Bytes)))
	return cleanup, nil
}
