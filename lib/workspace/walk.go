// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package workspace

import (
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/bureau-foundation/vlfs/lib/atomicfile"
)

// ignoredDirs are never descended into.
var ignoredDirs = map[string]bool{
	GitDirName:     true,
	MetaDirName:    true,
	CacheDirName:   true,
	"node_modules": true,
	"__pycache__":  true,
	"venv":         true,
	".env":         true,
}

// Walk calls fn for every regular file under dir (a path inside the
// project), passing its manifest key. Ignored directories, symlinks
// and vlfs temp files are skipped.
func (l Layout) Walk(dir string, fn func(relative string, info fs.FileInfo) error) error {
	if dir == "" {
		dir = l.Root
	}
	cacheDir := filepath.Clean(l.CacheDir)
	return filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			if path != dir && (ignoredDirs[entry.Name()] || filepath.Clean(path) == cacheDir) {
				return filepath.SkipDir
			}
			return nil
		}
		if !entry.Type().IsRegular() || strings.HasPrefix(entry.Name(), atomicfile.TempPrefix) {
			return nil
		}
		relative, err := filepath.Rel(l.Root, path)
		if err != nil {
			return err
		}
		info, err := entry.Info()
		if err != nil {
			return err
		}
		return fn(filepath.ToSlash(relative), info)
	})
}
