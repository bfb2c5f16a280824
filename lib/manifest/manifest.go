// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package manifest

import (
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/bureau-foundation/vlfs/lib/digest"
	"github.com/bureau-foundation/vlfs/lib/workspace"
)

// Version is the manifest format this package reads and writes.
const Version = 1

// Visibility selects the backend that stores an object.
type Visibility string

const (
	// Public objects are fetched anonymously over HTTP.
	Public Visibility = "public"

	// Private objects go through the authenticated drive backend.
	Private Visibility = "private"
)

// ParseVisibility validates a visibility name.
func ParseVisibility(name string) (Visibility, error) {
	switch Visibility(name) {
	case Public, Private:
		return Visibility(name), nil
	default:
		return "", fmt.Errorf("unknown visibility %q (want %q or %q)", name, Public, Private)
	}
}

// TrackedFile is one manifest record.
type TrackedFile struct {
	Path           string
	Digest         digest.Digest
	Size           int64
	CompressedSize int64
	Visibility     Visibility
}

// Manifest is the in-memory manifest. It is not safe for concurrent
// mutation; the engine collects updates and applies them from one
// goroutine.
type Manifest struct {
	algorithm digest.Algorithm
	records   map[string]TrackedFile
}

// New returns an empty manifest using algorithm.
func New(algorithm digest.Algorithm) *Manifest {
	if algorithm == "" {
		algorithm = digest.SHA256
	}
	return &Manifest{algorithm: algorithm, records: make(map[string]TrackedFile)}
}

// Algorithm returns the digest algorithm every record uses.
func (m *Manifest) Algorithm() digest.Algorithm { return m.algorithm }

// Len returns the number of records.
func (m *Manifest) Len() int { return len(m.records) }

// Get returns the record for path.
func (m *Manifest) Get(filePath string) (TrackedFile, bool) {
	record, ok := m.records[filePath]
	return record, ok
}

// Upsert replaces any record for file.Path.
func (m *Manifest) Upsert(file TrackedFile) error {
	if err := validateRecord(file); err != nil {
		return err
	}
	m.records[file.Path] = file
	return nil
}

// Remove drops the record for path and reports whether one existed.
func (m *Manifest) Remove(filePath string) bool {
	if _, ok := m.records[filePath]; !ok {
		return false
	}
	delete(m.records, filePath)
	return true
}

// Records returns every record sorted by path.
func (m *Manifest) Records() []TrackedFile {
	records := make([]TrackedFile, 0, len(m.records))
	for _, record := range m.records {
		records = append(records, record)
	}
	slices.SortFunc(records, func(a, b TrackedFile) int {
		return strings.Compare(a.Path, b.Path)
	})
	return records
}

// Digests returns the set of digests referenced by any record.
func (m *Manifest) Digests() map[digest.Digest]struct{} {
	live := make(map[digest.Digest]struct{}, len(m.records))
	for _, record := range m.records {
		live[record.Digest] = struct{}{}
	}
	return live
}

// Referenced reports whether any record holds d.
func (m *Manifest) Referenced(d digest.Digest) bool {
	for _, record := range m.records {
		if record.Digest == d {
			return true
		}
	}
	return false
}

// Clone returns a deep copy, so a dry run can mutate freely.
func (m *Manifest) Clone() *Manifest {
	clone := New(m.algorithm)
	for key, record := range m.records {
		clone.records[key] = record
	}
	return clone
}

// ValidatePath checks that p is a canonical repository-relative path:
// slash-separated, clean, not absolute, and not escaping the root. Keys
// inside .git, .vlfs or the cache directory are rejected too, since
// pull would write there.
func ValidatePath(p string) error {
	switch {
	case p == "" || p == ".":
		return fmt.Errorf("empty path")
	case strings.Contains(p, "\\"):
		return fmt.Errorf("path %q contains a backslash", p)
	case strings.HasPrefix(p, "/"):
		return fmt.Errorf("path %q is absolute", p)
	case len(p) >= 2 && p[1] == ':':
		return fmt.Errorf("path %q has a drive letter", p)
	case path.Clean(p) != p:
		return fmt.Errorf("path %q is not clean (want %q)", p, path.Clean(p))
	case p == ".." || strings.HasPrefix(p, "../"):
		return fmt.Errorf("path %q escapes the repository", p)
	case workspace.Reserved(p):
		return fmt.Errorf("path %q is inside a reserved directory", p)
	}
	return nil
}

func validateRecord(file TrackedFile) error {
	if err := ValidatePath(file.Path); err != nil {
		return err
	}
	if file.Digest.IsZero() {
		return fmt.Errorf("%s: missing digest", file.Path)
	}
	if file.Size < 0 || file.CompressedSize < 0 {
		return fmt.Errorf("%s: negative size", file.Path)
	}
	if _, err := ParseVisibility(string(file.Visibility)); err != nil {
		return fmt.Errorf("%s: %w", file.Path, err)
	}
	return nil
}
