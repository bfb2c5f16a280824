// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package statcache remembers the digest of working-tree files keyed by
// their size and modification time, so unchanged multi-gigabyte assets
// are not re-hashed on every status or push.
//
// The memo is advisory. It is only consulted when enabled in the
// configuration, a stat mismatch always forces a re-hash, and a
// missing or unreadable memo file is treated as empty.
package statcache

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync"

	"github.com/bureau-foundation/vlfs/lib/atomicfile"
	"github.com/bureau-foundation/vlfs/lib/codec"
	"github.com/bureau-foundation/vlfs/lib/digest"
)

const formatVersion = 1

type entry struct {
	Size      int64         `cbor:"size"`
	ModTimeNS int64         `cbor:"mtime_ns"`
	Digest    digest.Digest `cbor:"digest"`
}

type file struct {
	Version   int              `cbor:"version"`
	Algorithm digest.Algorithm `cbor:"algorithm"`
	Entries   map[string]entry `cbor:"entries"`
}

// Cache is safe for concurrent use.
type Cache struct {
	path      string
	algorithm digest.Algorithm
	logger    *slog.Logger

	mu      sync.Mutex
	entries map[string]entry
	dirty   bool
}

// Open loads the memo at path. Entries recorded under a different
// algorithm are discarded.
func Open(path string, algorithm digest.Algorithm, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	cache := &Cache{
		path:      path,
		algorithm: algorithm,
		logger:    logger,
		entries:   make(map[string]entry),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Warn("ignoring unreadable stat cache", "path", path, "error", err)
		}
		return cache
	}
	var stored file
	if err := codec.Unmarshal(data, &stored); err != nil {
		logger.Warn("ignoring corrupt stat cache", "path", path, "error", err)
		return cache
	}
	if stored.Version != formatVersion || stored.Algorithm != algorithm {
		return cache
	}
	if stored.Entries != nil {
		cache.entries = stored.Entries
	}
	return cache
}

// Lookup returns the remembered digest for relative if info still
// matches the recorded size and modification time.
func (c *Cache) Lookup(relative string, info fs.FileInfo) (digest.Digest, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	remembered, ok := c.entries[relative]
	if !ok || remembered.Size != info.Size() || remembered.ModTimeNS != info.ModTime().UnixNano() {
		return digest.Digest{}, false
	}
	return remembered.Digest, true
}

// Record remembers d as the digest of relative at info.
func (c *Cache) Record(relative string, info fs.FileInfo, d digest.Digest) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[relative] = entry{Size: info.Size(), ModTimeNS: info.ModTime().UnixNano(), Digest: d}
	c.dirty = true
}

// Forget drops the entry for relative.
func (c *Cache) Forget(relative string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[relative]; ok {
		delete(c.entries, relative)
		c.dirty = true
	}
}

// Save writes the memo if it changed since Open.
func (c *Cache) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.dirty {
		return nil
	}
	data, err := codec.Marshal(file{Version: formatVersion, Algorithm: c.algorithm, Entries: c.entries})
	if err != nil {
		return fmt.Errorf("encoding stat cache: %w", err)
	}
	if err := atomicfile.WriteFile(c.path, data, 0o644); err != nil {
		return fmt.Errorf("writing stat cache: %w", err)
	}
	c.dirty = false
	return nil
}
