// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package objectcache

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/bureau-foundation/vlfs/lib/compress"
	"github.com/bureau-foundation/vlfs/lib/digest"
	"github.com/bureau-foundation/vlfs/lib/fault"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	cache, err := New(Config{Root: filepath.Join(t.TempDir(), "cache"), Algorithm: digest.SHA256})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return cache
}

func put(t *testing.T, cache *Cache, content []byte) digest.Digest {
	t.Helper()
	d := digest.Of(digest.SHA256, content)
	if _, err := cache.Put(d, content, compress.Default()); err != nil {
		t.Fatalf("Put: %v", err)
	}
	return d
}

func TestPutGetRoundTrip(t *testing.T) {
	cache := newTestCache(t)
	content := bytes.Repeat([]byte("asset bytes "), 4096)
	d := digest.Of(digest.SHA256, content)

	size, err := cache.Put(d, content, compress.Default())
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if size <= 0 || size >= int64(len(content)) {
		t.Errorf("compressed size = %d, want in (0, %d)", size, len(content))
	}

	wantPath := filepath.Join(cache.Root(), "objects", d.String()[:2], d.String()[2:4], d.String())
	if cache.Path(d) != wantPath {
		t.Errorf("Path = %s, want %s", cache.Path(d), wantPath)
	}
	if !cache.Contains(d) {
		t.Error("Contains = false after Put")
	}

	got, err := cache.Get(d)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Error("Get returned different content")
	}
}

func TestPutIdempotent(t *testing.T) {
	cache := newTestCache(t)
	content := []byte("same content twice")
	d := put(t, cache, content)

	before, err := os.Stat(cache.Path(d))
	if err != nil {
		t.Fatal(err)
	}
	// A different level would produce different bytes if Put rewrote.
	size, err := cache.Put(d, content, compress.Options{Codec: compress.LZ4, Level: 9})
	if err != nil {
		t.Fatalf("second Put: %v", err)
	}
	after, err := os.Stat(cache.Path(d))
	if err != nil {
		t.Fatal(err)
	}
	if size != before.Size() || !after.ModTime().Equal(before.ModTime()) {
		t.Error("second Put rewrote an existing object")
	}
}

func TestGetMiss(t *testing.T) {
	cache := newTestCache(t)
	_, err := cache.Get(digest.Of(digest.SHA256, []byte("absent")))
	if !errors.Is(err, ErrMiss) {
		t.Errorf("Get(absent) error = %v, want ErrMiss", err)
	}
}

func TestCorruptObjectIsEvictedNotReturned(t *testing.T) {
	tests := map[string]func(t *testing.T, path string){
		"garbage bytes": func(t *testing.T, path string) {
			if err := os.WriteFile(path, []byte("not an object"), 0o644); err != nil {
				t.Fatal(err)
			}
		},
		"valid frame wrong content": func(t *testing.T, path string) {
			other, err := compress.Compress([]byte("some other content"), compress.Default())
			if err != nil {
				t.Fatal(err)
			}
			if err := os.WriteFile(path, other, 0o644); err != nil {
				t.Fatal(err)
			}
		},
	}
	for name, corruptIt := range tests {
		t.Run(name, func(t *testing.T) {
			cache := newTestCache(t)
			d := put(t, cache, []byte("original content"))
			corruptIt(t, cache.Path(d))

			if err := cache.Check(d); !errors.Is(err, fault.CorruptObject) {
				t.Errorf("Check error = %v, want CorruptObject", err)
			}
			if !cache.Contains(d) {
				t.Fatal("Check evicted the object")
			}

			got, err := cache.Get(d)
			if !errors.Is(err, fault.CorruptObject) {
				t.Errorf("Get error = %v, want CorruptObject", err)
			}
			if got != nil {
				t.Errorf("Get returned %q for a corrupt object", got)
			}
			if cache.Contains(d) {
				t.Error("corrupt object still present after Get")
			}
			if _, err := cache.Get(d); !errors.Is(err, ErrMiss) {
				t.Errorf("Get after eviction = %v, want ErrMiss", err)
			}
		})
	}
}

func TestMaterialize(t *testing.T) {
	cache := newTestCache(t)
	content := bytes.Repeat([]byte{0xde, 0xad, 0xbe, 0xef}, 10000)
	d := put(t, cache, content)

	destination := filepath.Join(t.TempDir(), "tools", "nested", "a.exe")
	n, err := cache.Materialize(d, destination)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if n != int64(len(content)) {
		t.Errorf("wrote %d bytes, want %d", n, len(content))
	}
	got, err := os.ReadFile(destination)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, content) {
		t.Error("materialized content differs")
	}
}

func TestMaterializeKeepsModeAndRejectsCorrupt(t *testing.T) {
	cache := newTestCache(t)
	d := put(t, cache, []byte("v2"))

	destination := filepath.Join(t.TempDir(), "run.sh")
	if err := os.WriteFile(destination, []byte("v1"), 0o755); err != nil {
		t.Fatal(err)
	}
	if _, err := cache.Materialize(d, destination); err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	info, err := os.Stat(destination)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o755 {
		t.Errorf("mode = %v, want 0755 preserved", info.Mode().Perm())
	}

	// Replace the object with a frame for different content.
	wrong, _ := compress.Compress([]byte("tampered"), compress.Default())
	if err := os.WriteFile(cache.Path(d), wrong, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := cache.Materialize(d, destination); !errors.Is(err, fault.CorruptObject) {
		t.Fatalf("Materialize(corrupt) error = %v, want CorruptObject", err)
	}
	got, _ := os.ReadFile(destination)
	if string(got) != "v2" {
		t.Errorf("destination = %q after failed materialize, want previous content", got)
	}
	if cache.Contains(d) {
		t.Error("corrupt object not evicted")
	}
	entries, _ := os.ReadDir(filepath.Dir(destination))
	if len(entries) != 1 {
		t.Errorf("destination directory has %d entries, want 1 (temp file leaked)", len(entries))
	}
}

func TestEvictUnreferenced(t *testing.T) {
	cache := newTestCache(t)
	live1 := put(t, cache, []byte("live one"))
	live2 := put(t, cache, []byte("live two"))
	dead := put(t, cache, []byte("dead"))

	live := map[digest.Digest]struct{}{live1: {}, live2: {}}

	orphans, err := cache.Unreferenced(live)
	if err != nil {
		t.Fatalf("Unreferenced: %v", err)
	}
	if len(orphans) != 1 || orphans[0].Digest != dead {
		t.Fatalf("Unreferenced = %v, want only %s", orphans, dead)
	}

	eviction, err := cache.EvictUnreferenced(live)
	if err != nil {
		t.Fatalf("EvictUnreferenced: %v", err)
	}
	if eviction.Count() != 1 || eviction.Bytes <= 0 {
		t.Errorf("eviction = %+v, want one object with bytes", eviction)
	}
	if !cache.Contains(live1) || !cache.Contains(live2) {
		t.Error("live object removed")
	}
	if cache.Contains(dead) {
		t.Error("dead object survived")
	}
	if _, err := os.Stat(filepath.Dir(cache.Path(dead))); !os.IsNotExist(err) && dead.String()[:4] != live1.String()[:4] && dead.String()[:4] != live2.String()[:4] {
		t.Error("empty shard directory not pruned")
	}

	// Every remaining object is live.
	err = cache.Walk(func(object Object) error {
		if _, ok := live[object.Digest]; !ok {
			t.Errorf("unreferenced object %s remains", object.Digest)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
}

func TestWalkSkipsForeignFiles(t *testing.T) {
	cache := newTestCache(t)
	d := put(t, cache, []byte("real"))
	stray := filepath.Join(cache.Root(), "objects", "zz", "README")
	if err := os.MkdirAll(filepath.Dir(stray), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(stray, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	var seen []digest.Digest
	if err := cache.Walk(func(object Object) error {
		seen = append(seen, object.Digest)
		return nil
	}); err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if len(seen) != 1 || seen[0] != d {
		t.Errorf("Walk saw %v, want [%s]", seen, d)
	}
}

func TestConcurrentPutSameDigest(t *testing.T) {
	cache := newTestCache(t)
	content := bytes.Repeat([]byte("racing writers "), 1000)
	d := digest.Of(digest.SHA256, content)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cache.Put(d, content, compress.Default()); err != nil {
				t.Errorf("Put: %v", err)
			}
		}()
	}
	wg.Wait()

	got, err := cache.Get(d)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Error("content corrupted by concurrent puts")
	}
	entries, _ := os.ReadDir(cache.TempDir())
	if len(entries) != 0 {
		t.Errorf("temp dir has %d leftovers", len(entries))
	}
}
