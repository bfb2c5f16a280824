// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"bytes"
	"maps"
	"testing"
)

func TestWriteTreeRoundTrip(t *testing.T) {
	root := t.TempDir()
	files := map[string]string{
		"a.zip":             "zip",
		"art/deep/hero.psd": "layers",
		"tools/setup.exe":   "MZ",
	}
	WriteTree(t, root, files)
	WriteTree(t, root, map[string]string{".vlfs/index.json": "{}", ".vlfs-cache/objects/x": "y"})

	got := Tree(t, root)
	if !maps.Equal(got, files) {
		t.Errorf("Tree() = %v, want %v", got, files)
	}
}

func TestCompressible(t *testing.T) {
	first := Compressible(4096)
	if len(first) != 4096 {
		t.Fatalf("len = %d, want 4096", len(first))
	}
	if !bytes.Equal(first, Compressible(4096)) {
		t.Error("Compressible is not deterministic")
	}
}

func TestEnv(t *testing.T) {
	vars := IsolatedEnv(t)
	vars["VLFS_CACHE"] = "/tmp/cache"
	getenv := Env(vars)
	if getenv("VLFS_CACHE") != "/tmp/cache" {
		t.Errorf("getenv(VLFS_CACHE) = %q", getenv("VLFS_CACHE"))
	}
	if getenv("HOME") == "" {
		t.Error("HOME is empty")
	}
	if getenv("UNSET") != "" {
		t.Errorf("getenv(UNSET) = %q, want empty", getenv("UNSET"))
	}
}
