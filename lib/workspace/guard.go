// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// GitDirName is git's metadata directory, or the gitfile of a
// submodule.
const GitDirName = ".git"

var (
	// ErrReserved is returned for a key inside a directory vlfs must
	// never write to.
	ErrReserved = errors.New("path is inside a reserved directory")

	// ErrSymlinkParent is returned when a directory on the way to a
	// key is a symbolic link.
	ErrSymlinkParent = errors.New("path runs through a symbolic link")
)

// Reserved reports whether the manifest key relative names anything
// inside a .git directory at any depth, or inside the metadata or
// cache directory at the root. Names compare case-insensitively, as
// they resolve on case-insensitive filesystems.
func Reserved(relative string) bool {
	for i, segment := range strings.Split(relative, "/") {
		if strings.EqualFold(segment, GitDirName) {
			return true
		}
		if i == 0 && (strings.EqualFold(segment, MetaDirName) || strings.EqualFold(segment, CacheDirName)) {
			return true
		}
	}
	return false
}

// CheckWritable refuses keys that would write outside the plain
// working tree: reserved names, anything under the (possibly
// relocated) metadata or cache directory, and paths whose existing
// parent directories include a symbolic link.
func (l Layout) CheckWritable(relative string) error {
	if Reserved(relative) {
		return fmt.Errorf("%s: %w", relative, ErrReserved)
	}
	target := l.Abs(relative)
	for _, dir := range []string{l.MetaDir, l.CacheDir} {
		if within(dir, target) {
			return fmt.Errorf("%s: %w", relative, ErrReserved)
		}
	}

	dir := l.Root
	segments := strings.Split(relative, "/")
	for _, segment := range segments[:len(segments)-1] {
		dir = filepath.Join(dir, segment)
		info, err := os.Lstat(dir)
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		if err != nil {
			return err
		}
		if info.Mode()&fs.ModeSymlink != 0 {
			return fmt.Errorf("%s: %w", relative, ErrSymlinkParent)
		}
	}
	return nil
}

func within(dir, target string) bool {
	relative, err := filepath.Rel(filepath.Clean(dir), target)
	if err != nil {
		return false
	}
	relative = filepath.ToSlash(relative)
	return relative != ".." && !strings.HasPrefix(relative, "../")
}
