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

const (
	// MetaDirName holds the committed manifest and repository config.
	MetaDirName = ".vlfs"

	// CacheDirName is the default local object cache. Never committed.
	CacheDirName = ".vlfs-cache"

	// ManifestName is the manifest file inside the metadata directory.
	ManifestName = "index.json"
)

// Layout holds the resolved paths of one project.
type Layout struct {
	Root         string
	MetaDir      string
	CacheDir     string
	ManifestPath string
	ConfigPath   string
}

// Getenv looks up an environment variable. os.Getenv in production.
type Getenv func(string) string

// Discover finds the project containing start. Without a .vlfs
// directory in start or any ancestor, start itself becomes the root of
// a new project.
func Discover(start string, getenv Getenv) (Layout, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	absolute, err := filepath.Abs(start)
	if err != nil {
		return Layout{}, fmt.Errorf("resolving %s: %w", start, err)
	}

	root := absolute
	for dir := absolute; ; {
		if info, err := os.Stat(filepath.Join(dir, MetaDirName)); err == nil && info.IsDir() {
			root = dir
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return NewLayout(root, getenv), nil
}

// NewLayout resolves the layout for a known root.
func NewLayout(root string, getenv Getenv) Layout {
	if getenv == nil {
		getenv = os.Getenv
	}
	metaDir := filepath.Join(root, MetaDirName)
	layout := Layout{
		Root:         root,
		MetaDir:      metaDir,
		CacheDir:     filepath.Join(root, CacheDirName),
		ManifestPath: filepath.Join(metaDir, ManifestName),
		ConfigPath:   findConfig(metaDir),
	}
	if override := getenv("VLFS_CONFIG"); override != "" {
		layout.ConfigPath = absoluteFrom(root, override)
	}
	if override := getenv("VLFS_CACHE"); override != "" {
		layout.CacheDir = absoluteFrom(root, override)
	}
	return layout
}

// findConfig returns the first existing config file in metaDir, or the
// default TOML name.
func findConfig(metaDir string) string {
	for _, name := range []string{"config.toml", "config.yaml", "config.yml"} {
		candidate := filepath.Join(metaDir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return filepath.Join(metaDir, "config.toml")
}

func absoluteFrom(root, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}

// ErrOutsideRoot is returned by Rel for paths not under the root.
var ErrOutsideRoot = errors.New("path is outside the project")

// Rel converts a filesystem path (absolute, or relative to the current
// directory) into the slash-separated form used as a manifest key.
func (l Layout) Rel(path string) (string, error) {
	absolute, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	relative, err := filepath.Rel(l.Root, absolute)
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, ErrOutsideRoot)
	}
	relative = filepath.ToSlash(relative)
	if relative == ".." || strings.HasPrefix(relative, "../") {
		return "", fmt.Errorf("%s: %w", path, ErrOutsideRoot)
	}
	return relative, nil
}

// Abs converts a manifest key into a filesystem path.
func (l Layout) Abs(relative string) string {
	return filepath.Join(l.Root, filepath.FromSlash(relative))
}

// Stat returns file info for a manifest key, or nil info when nothing
// exists there. A directory or other non-regular file is an error.
func (l Layout) Stat(relative string) (fs.FileInfo, error) {
	info, err := os.Stat(l.Abs(relative))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%s is not a regular file", relative)
	}
	return info, nil
}
