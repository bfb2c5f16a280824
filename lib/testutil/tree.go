// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"io/fs"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// WriteTree creates each file under root, with parent directories.
//
//	testutil.WriteTree(t, root, map[string]string{
//		"art/hero.psd":    "layers",
//		"tools/setup.exe": "MZ",
//	})
func WriteTree(t testing.TB, root string, files map[string]string) {
	t.Helper()
	for relative, content := range files {
		WriteFile(t, filepath.Join(root, filepath.FromSlash(relative)), []byte(content))
	}
}

// WriteFile writes data to path, creating parent directories.
func WriteFile(t testing.TB, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("creating parent of %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

// ReadFile returns the content of path.
func ReadFile(t testing.TB, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return data
}

// Tree returns every regular file under root keyed by slash-separated
// relative path. Directories whose name starts with "." are skipped,
// which leaves out the metadata and cache directories.
func Tree(t testing.TB, root string) map[string]string {
	t.Helper()
	files := make(map[string]string)
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			if path != root && strings.HasPrefix(entry.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !entry.Type().IsRegular() {
			return nil
		}
		relative, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		files[filepath.ToSlash(relative)] = string(data)
		return nil
	})
	if err != nil {
		t.Fatalf("walking %s: %v", root, err)
	}
	return files
}

// Compressible returns size deterministic bytes drawn from a small
// alphabet, so compression shrinks them substantially.
func Compressible(size int) []byte {
	const alphabet = "vlfs large binary asset "
	source := rand.New(rand.NewPCG(1, 2))
	data := make([]byte, size)
	for i := range data {
		data[i] = alphabet[source.IntN(len(alphabet))]
	}
	return data
}
