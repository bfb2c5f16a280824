// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package objectcache

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bureau-foundation/vlfs/lib/atomicfile"
	"github.com/bureau-foundation/vlfs/lib/compress"
	"github.com/bureau-foundation/vlfs/lib/digest"
	"github.com/bureau-foundation/vlfs/lib/fault"
)

// ErrMiss is returned when the cache holds no object for a digest.
var ErrMiss = errors.New("object not in cache")

// Config holds the parameters for opening a Cache.
type Config struct {
	// Root is the cache directory. Created if missing.
	Root string

	// Algorithm verifies object content. It must match the manifest
	// the cache serves.
	Algorithm digest.Algorithm

	// Logger receives eviction and corruption events. Nil discards.
	Logger *slog.Logger
}

// Cache is safe for concurrent use.
type Cache struct {
	root       string
	objectsDir string
	tempDir    string
	algorithm  digest.Algorithm
	logger     *slog.Logger
}

// New opens (creating if needed) the cache at config.Root.
func New(config Config) (*Cache, error) {
	if config.Root == "" {
		return nil, errors.New("object cache root is required")
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	algorithm := config.Algorithm
	if algorithm == "" {
		algorithm = digest.SHA256
	}
	cache := &Cache{
		root:       config.Root,
		objectsDir: filepath.Join(config.Root, "objects"),
		tempDir:    filepath.Join(config.Root, "tmp"),
		algorithm:  algorithm,
		logger:     logger,
	}
	for _, dir := range []string{cache.objectsDir, cache.tempDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}
	return cache, nil
}

// Root returns the cache directory.
func (c *Cache) Root() string { return c.root }

// TempDir returns a directory on the cache's filesystem for staging
// downloads before they are verified.
func (c *Cache) TempDir() string { return c.tempDir }

// Path returns where the object for d is (or would be) stored.
func (c *Cache) Path(d digest.Digest) string {
	return filepath.Join(c.objectsDir, filepath.FromSlash(digest.ShardPath(d)))
}

// Contains reports whether an object for d is stored. It does not
// verify the object.
func (c *Cache) Contains(d digest.Digest) bool {
	info, err := os.Stat(c.Path(d))
	return err == nil && info.Mode().IsRegular()
}

// Size returns the stored (compressed) size of the object for d.
func (c *Cache) Size(d digest.Digest) (int64, error) {
	info, err := os.Stat(c.Path(d))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, ErrMiss
		}
		return 0, err
	}
	return info.Size(), nil
}

// Get returns the decompressed content for d after verifying its
// digest. A corrupt object is evicted and reported as CorruptObject.
func (c *Cache) Get(d digest.Digest) ([]byte, error) {
	compressed, err := os.ReadFile(c.Path(d))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("reading cached object %s: %w", d, err)
	}
	content, err := compress.Decompress(compressed)
	if err == nil && digest.Of(c.algorithm, content) != d {
		err = errors.New("content does not match digest")
	}
	if err != nil {
		return nil, c.corrupt(d, err)
	}
	return content, nil
}

// Put compresses content and stores it under d. Storing a digest that
// is already present is a no-op. Returns the stored size.
func (c *Cache) Put(d digest.Digest, content []byte, options compress.Options) (int64, error) {
	if size, err := c.Size(d); err == nil {
		return size, nil
	}
	compressed, err := compress.Compress(content, options)
	if err != nil {
		return 0, fmt.Errorf("compressing %s: %w", d, err)
	}
	return c.install(d, compressed)
}

// PutCompressed stores already-compressed bytes under d. The caller
// must have verified that they decompress to content matching d.
func (c *Cache) PutCompressed(d digest.Digest, compressed []byte) (int64, error) {
	if size, err := c.Size(d); err == nil {
		return size, nil
	}
	return c.install(d, compressed)
}

func (c *Cache) install(d digest.Digest, compressed []byte) (int64, error) {
	finalPath := c.Path(d)
	if err := os.MkdirAll(filepath.Dir(finalPath), 0o755); err != nil {
		return 0, fmt.Errorf("creating shard directory: %w", err)
	}
	if err := atomicfile.Copy(c.tempDir, finalPath, bytes.NewReader(compressed), 0o644); err != nil {
		return 0, fmt.Errorf("storing object %s: %w", d, err)
	}
	return int64(len(compressed)), nil
}

// Materialize decompresses the object for d into destination. The
// content is streamed into a temp file beside destination, hashed on
// the way, and renamed into place only when the digest matches, so
// destination never holds unverified bytes. An existing destination
// keeps its permission bits. Returns the number of bytes written.
func (c *Cache) Materialize(d digest.Digest, destination string) (int64, error) {
	object, err := os.Open(c.Path(d))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, ErrMiss
		}
		return 0, fmt.Errorf("opening cached object %s: %w", d, err)
	}
	defer object.Close()

	reader, err := compress.NewReader(object)
	if err != nil {
		return 0, c.corrupt(d, err)
	}
	defer reader.Close()

	mode := fs.FileMode(0o644)
	if info, err := os.Stat(destination); err == nil {
		mode = info.Mode().Perm()
	}
	if err := os.MkdirAll(filepath.Dir(destination), 0o755); err != nil {
		return 0, fmt.Errorf("creating parent of %s: %w", destination, err)
	}

	hasher := c.algorithm.New()
	var written int64
	err = atomicfile.WriteFunc(filepath.Dir(destination), destination, mode, func(w io.Writer) error {
		n, copyErr := io.Copy(io.MultiWriter(w, hasher), reader)
		written = n
		if copyErr != nil {
			return copyErr
		}
		if digest.Sum(hasher) != d {
			return fault.New(fault.CorruptObject, "decompressed content does not match digest")
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, fault.CorruptObject) {
			return 0, c.corrupt(d, err)
		}
		return 0, fmt.Errorf("writing %s: %w", destination, err)
	}
	return written, nil
}

// Check verifies the object for d without evicting it. Returns ErrMiss,
// a CorruptObject fault, or nil.
func (c *Cache) Check(d digest.Digest) error {
	object, err := os.Open(c.Path(d))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrMiss
		}
		return err
	}
	defer object.Close()

	reader, err := compress.NewReader(object)
	if err != nil {
		return &fault.Error{Kind: fault.CorruptObject, Digest: d.String(), Err: err}
	}
	defer reader.Close()

	got, _, err := digest.OfReader(c.algorithm, reader)
	if err != nil {
		return &fault.Error{Kind: fault.CorruptObject, Digest: d.String(), Err: err}
	}
	if got != d {
		return &fault.Error{Kind: fault.CorruptObject, Digest: d.String(),
			Err: fmt.Errorf("content hashes to %s", got)}
	}
	return nil
}

// Evict removes the object for d. Evicting an absent object is not an
// error.
func (c *Cache) Evict(d digest.Digest) error {
	if err := os.Remove(c.Path(d)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("evicting %s: %w", d, err)
	}
	return nil
}

func (c *Cache) corrupt(d digest.Digest, cause error) error {
	c.logger.Warn("evicting corrupt cache object", "digest", d.String(), "error", cause)
	if err := c.Evict(d); err != nil {
		c.logger.Error("evicting corrupt cache object failed", "digest", d.String(), "error", err)
	}
	return &fault.Error{Kind: fault.CorruptObject, Digest: d.String(), Err: unwrapFault(cause)}
}

// unwrapFault strips a CorruptObject fault so the returned error does
// not nest two faults of the same kind.
func unwrapFault(err error) error {
	var inner *fault.Error
	if errors.As(err, &inner) && inner.Kind == fault.CorruptObject && inner.Err != nil {
		return inner.Err
	}
	return err
}

// Object describes one stored object.
type Object struct {
	Digest digest.Digest `json:"digest"`
	Size   int64         `json:"size"`
}

// Walk calls fn for every stored object in shard order. Files under the
// objects directory that are not named by the shard layout are skipped.
func (c *Cache) Walk(fn func(Object) error) error {
	return filepath.WalkDir(c.objectsDir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if entry.IsDir() || strings.HasPrefix(entry.Name(), atomicfile.TempPrefix) {
			return nil
		}
		relative, err := filepath.Rel(c.objectsDir, path)
		if err != nil {
			return err
		}
		d, ok := digest.FromShardPath(filepath.ToSlash(relative))
		if !ok {
			return nil
		}
		info, err := entry.Info()
		if err != nil {
			return err
		}
		return fn(Object{Digest: d, Size: info.Size()})
	})
}

// Eviction summarizes an EvictUnreferenced pass.
type Eviction struct {
	Objects []Object `json:"objects"`
	Bytes   int64    `json:"bytes"`
}

// Count returns the number of evicted objects.
func (e Eviction) Count() int { return len(e.Objects) }

// Unreferenced lists stored objects whose digest is not in live.
func (c *Cache) Unreferenced(live map[digest.Digest]struct{}) ([]Object, error) {
	var orphans []Object
	err := c.Walk(func(object Object) error {
		if _, ok := live[object.Digest]; !ok {
			orphans = append(orphans, object)
		}
		return nil
	})
	return orphans, err
}

// EvictUnreferenced removes every stored object whose digest is not in
// live, then prunes shard directories left empty. Digests in live are
// never touched.
func (c *Cache) EvictUnreferenced(live map[digest.Digest]struct{}) (Eviction, error) {
	orphans, err := c.Unreferenced(live)
	if err != nil {
		return Eviction{}, fmt.Errorf("scanning cache: %w", err)
	}

	var eviction Eviction
	for _, object := range orphans {
		if err := c.Evict(object.Digest); err != nil {
			return eviction, err
		}
		eviction.Objects = append(eviction.Objects, object)
		eviction.Bytes += object.Size
		c.logger.Debug("evicted unreferenced object", "digest", object.Digest.String(), "bytes", object.Size)
	}

	if err := pruneEmptyDirs(c.objectsDir); err != nil {
		return eviction, fmt.Errorf("pruning shard directories: %w", err)
	}
	return eviction, nil
}

// pruneEmptyDirs removes empty directories below root, deepest first.
// root itself is kept.
func pruneEmptyDirs(root string) error {
	var dirs []string
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() && path != root {
			dirs = append(dirs, path)
		}
		return nil
	})
	if err != nil {
		return err
	}
	for i := len(dirs) - 1; i >= 0; i-- {
		entries, err := os.ReadDir(dirs[i])
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			if err := os.Remove(dirs[i]); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}
		}
	}
	return nil
}
