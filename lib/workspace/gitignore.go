// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package workspace

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bureau-foundation/vlfs/lib/atomicfile"
)

// GitignoreEntries keep vlfs's local state out of commits.
var GitignoreEntries = []string{CacheDirName + "/", MetaDirName + "/*.lock"}

// EnsureGitignore appends any of entries missing from the root
// .gitignore, creating the file if needed. Reports whether it changed
// the file.
func (l Layout) EnsureGitignore(entries ...string) (bool, error) {
	path := filepath.Join(l.Root, ".gitignore")
	existing, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return false, err
	}

	present := make(map[string]bool)
	for _, line := range strings.Split(string(existing), "\n") {
		present[strings.TrimSpace(line)] = true
	}

	var buffer bytes.Buffer
	buffer.Write(existing)
	changed := false
	for _, entry := range entries {
		if present[entry] || present[strings.TrimSuffix(entry, "/")] {
			continue
		}
		if !changed && buffer.Len() > 0 && !bytes.HasSuffix(buffer.Bytes(), []byte("\n")) {
			buffer.WriteByte('\n')
		}
		buffer.WriteString(entry)
		buffer.WriteByte('\n')
		present[entry] = true
		changed = true
	}
	if !changed {
		return false, nil
	}
	return true, atomicfile.WriteFile(path, buffer.Bytes(), 0o644)
}
