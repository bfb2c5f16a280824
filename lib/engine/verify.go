// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/bureau-foundation/vlfs/lib/digest"
	"github.com/bureau-foundation/vlfs/lib/manifest"
	"github.com/bureau-foundation/vlfs/lib/objectcache"
)

// FindingKind classifies a verify finding.
type FindingKind string

const (
	// CorruptCacheObject: a cached object does not decompress to
	// content matching its digest.
	CorruptCacheObject FindingKind = "corrupt-cache-object"

	// UnavailableObject: a recorded digest is neither cached intact
	// nor present on its remote.
	UnavailableObject FindingKind = "unavailable-object"

	// WorkspaceMismatch: a working-tree file does not hash to its
	// record.
	WorkspaceMismatch FindingKind = "workspace-mismatch"
)

// Finding is one integrity problem. Verify reports findings and
// repairs nothing.
type Finding struct {
	Kind   FindingKind   `json:"kind"`
	Digest digest.Digest `json:"digest"`

	// Paths are the manifest keys referencing Digest, if any.
	Paths []string `json:"paths,omitempty"`

	Detail string `json:"detail,omitempty"`
}

// VerifyOptions tunes Verify.
type VerifyOptions struct {
	// Workspace also re-hashes every present working-tree file.
	Workspace bool
}

// Verification is the result of Verify.
type Verification struct {
	CheckedObjects int       `json:"checked_objects"`
	CheckedRecords int       `json:"checked_records"`
	CheckedFiles   int       `json:"checked_files"`
	Findings       []Finding `json:"findings"`
}

// OK reports whether nothing was flagged.
func (v *Verification) OK() bool { return len(v.Findings) == 0 }

// Verify checks every cached object, confirms every recorded digest is
// recoverable from the cache or its remote, and optionally re-hashes
// the working tree.
func (e *Engine) Verify(ctx context.Context, options VerifyOptions) (*Verification, error) {
	verification := &Verification{Findings: []Finding{}}
	var mu sync.Mutex
	flag := func(finding Finding) {
		mu.Lock()
		verification.Findings = append(verification.Findings, finding)
		mu.Unlock()
	}

	pathsByDigest := make(map[digest.Digest][]string)
	visibilityByDigest := make(map[digest.Digest]manifest.Visibility)
	for _, record := range e.manifest.Records() {
		pathsByDigest[record.Digest] = append(pathsByDigest[record.Digest], record.Path)
		visibilityByDigest[record.Digest] = record.Visibility
	}

	// Pass 1: every cached object.
	var objects []objectcache.Object
	if err := e.cache.Walk(func(object objectcache.Object) error {
		objects = append(objects, object)
		return nil
	}); err != nil {
		return nil, err
	}
	verification.CheckedObjects = len(objects)

	corrupt := make(map[digest.Digest]bool)
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(e.transfers())
	for _, object := range objects {
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			err := e.cache.Check(object.Digest)
			if err == nil {
				return nil
			}
			mu.Lock()
			corrupt[object.Digest] = true
			mu.Unlock()
			flag(Finding{Kind: CorruptCacheObject, Digest: object.Digest, Paths: pathsByDigest[object.Digest], Detail: err.Error()})
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	// Pass 2: every recorded digest is recoverable.
	verification.CheckedRecords = len(pathsByDigest)
	group, groupCtx = errgroup.WithContext(ctx)
	group.SetLimit(e.transfers())
	for object, paths := range pathsByDigest {
		if e.cache.Contains(object) && !corrupt[object] {
			continue
		}
		group.Go(func() error {
			if e.remote == nil {
				flag(Finding{Kind: UnavailableObject, Digest: object, Paths: paths, Detail: "not cached and " + errNoRemote.Error()})
				return nil
			}
			exists, err := e.remote.Exists(groupCtx, visibilityByDigest[object], object)
			if err != nil {
				if isCancellation(err) {
					return err
				}
				flag(Finding{Kind: UnavailableObject, Digest: object, Paths: paths, Detail: "not cached; remote check failed: " + err.Error()})
				return nil
			}
			if !exists {
				flag(Finding{Kind: UnavailableObject, Digest: object, Paths: paths, Detail: "not cached and not on remote"})
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	// Pass 3: the working tree.
	if options.Workspace {
		if err := e.verifyWorkspace(ctx, verification, flag); err != nil {
			return nil, err
		}
	}

	sort.Slice(verification.Findings, func(i, j int) bool {
		a, b := verification.Findings[i], verification.Findings[j]
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return a.Digest.String() < b.Digest.String()
	})
	e.logger.Info("verify finished",
		"objects", verification.CheckedObjects,
		"records", verification.CheckedRecords,
		"findings", len(verification.Findings))
	return verification, nil
}

// verifyWorkspace re-hashes present tracked files without the stat
// cache, since the point is to catch changes the stat would not show.
func (e *Engine) verifyWorkspace(ctx context.Context, verification *Verification, flag func(Finding)) error {
	var mu sync.Mutex
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(e.transfers())
	for _, record := range e.manifest.Records() {
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			info, err := e.layout.Stat(record.Path)
			if err != nil || info == nil {
				return nil
			}
			working, _, err := digest.OfFile(e.Algorithm(), e.layout.Abs(record.Path))
			if err != nil {
				flag(Finding{Kind: WorkspaceMismatch, Digest: record.Digest, Paths: []string{record.Path}, Detail: err.Error()})
				return nil
			}
			mu.Lock()
			verification.CheckedFiles++
			mu.Unlock()
			if working != record.Digest {
				flag(Finding{Kind: WorkspaceMismatch, Digest: record.Digest, Paths: []string{record.Path},
					Detail: "working tree hashes to " + working.Short()})
			}
			return nil
		})
	}
	return group.Wait()
}
