// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package atomicfile replaces files through a temp file and a rename,
// so readers see either the old content or the new, never a mix.
package atomicfile

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// TempPrefix starts the name of every temp file this package creates.
// Directory walkers skip names with this prefix.
const TempPrefix = ".vlfs-tmp-"

// WriteFunc creates a temp file in tempDir, lets write fill it, and
// renames it to finalPath. tempDir must be on the same filesystem as
// finalPath. If write fails the temp file is removed and finalPath is
// untouched.
func WriteFunc(tempDir, finalPath string, mode fs.FileMode, write func(io.Writer) error) error {
	tmpFile, err := os.CreateTemp(tempDir, TempPrefix+"*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if err := write(tmpFile); err != nil {
		tmpFile.Close()
		return err
	}
	if err := tmpFile.Chmod(mode); err != nil {
		tmpFile.Close()
		return fmt.Errorf("setting mode on temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return fmt.Errorf("renaming into place: %w", err)
	}

	success = true
	return nil
}

// Copy writes everything from r to finalPath via a temp file in tempDir.
func Copy(tempDir, finalPath string, r io.Reader, mode fs.FileMode) error {
	return WriteFunc(tempDir, finalPath, mode, func(w io.Writer) error {
		_, err := io.Copy(w, r)
		return err
	})
}

// WriteFile writes data to path via a temp file in the same directory,
// creating the directory if needed.
func WriteFile(path string, data []byte, mode fs.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return WriteFunc(filepath.Dir(path), path, mode, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}
