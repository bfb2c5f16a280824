// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/tidwall/jsonc"

	"github.com/bureau-foundation/vlfs/lib/atomicfile"
	"github.com/bureau-foundation/vlfs/lib/digest"
	"github.com/bureau-foundation/vlfs/lib/fault"
)

type wireManifest struct {
	Version   int             `json:"version"`
	Algorithm string          `json:"algorithm"`
	Files     json.RawMessage `json:"files"`
}

// wireRecord uses pointers so absent fields are distinguishable from
// zero values.
type wireRecord struct {
	Digest         *string `json:"digest"`
	Size           *int64  `json:"size"`
	CompressedSize *int64  `json:"compressed_size"`
	Visibility     *string `json:"visibility"`
}

// Load reads the manifest at path. A missing file yields an empty
// manifest using defaultAlgorithm. Any malformed content returns a
// fault.ManifestInvalid error.
func Load(path string, defaultAlgorithm digest.Algorithm) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return New(defaultAlgorithm), nil
		}
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	manifest, err := Parse(data)
	if err != nil {
		return nil, &fault.Error{Kind: fault.ManifestInvalid, Path: path, Err: err}
	}
	return manifest, nil
}

// Parse decodes manifest bytes. The error is not wrapped in a fault;
// Load adds the kind and path.
func Parse(data []byte) (*Manifest, error) {
	decoder := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
	decoder.DisallowUnknownFields()

	var wire wireManifest
	if err := decoder.Decode(&wire); err != nil {
		return nil, fmt.Errorf("decoding manifest: %w", err)
	}
	if decoder.More() {
		return nil, errors.New("trailing data after manifest object")
	}
	if wire.Version != Version {
		return nil, fmt.Errorf("unsupported manifest version %d (this build reads version %d)", wire.Version, Version)
	}
	algorithm, err := digest.ParseAlgorithm(wire.Algorithm)
	if err != nil {
		return nil, err
	}

	manifest := New(algorithm)
	if len(wire.Files) == 0 || string(wire.Files) == "null" {
		return manifest, nil
	}
	if err := decodeFiles(wire.Files, manifest); err != nil {
		return nil, err
	}
	return manifest, nil
}

// decodeFiles walks the files object token by token so duplicate keys,
// which encoding/json would silently collapse, are caught.
func decodeFiles(raw json.RawMessage, manifest *Manifest) error {
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.DisallowUnknownFields()

	token, err := decoder.Token()
	if err != nil {
		return fmt.Errorf("decoding files: %w", err)
	}
	if delim, ok := token.(json.Delim); !ok || delim != '{' {
		return errors.New(`"files" must be an object keyed by path`)
	}

	for decoder.More() {
		token, err := decoder.Token()
		if err != nil {
			return fmt.Errorf("decoding files: %w", err)
		}
		filePath := token.(string)
		if _, duplicate := manifest.records[filePath]; duplicate {
			return fmt.Errorf("duplicate path %q", filePath)
		}

		var wire wireRecord
		if err := decoder.Decode(&wire); err != nil {
			return fmt.Errorf("%s: %w", filePath, err)
		}
		record, err := wire.toRecord(filePath)
		if err != nil {
			return err
		}
		if err := manifest.Upsert(record); err != nil {
			return err
		}
	}

	if _, err := decoder.Token(); err != nil {
		return fmt.Errorf("decoding files: %w", err)
	}
	return nil
}

func (w wireRecord) toRecord(filePath string) (TrackedFile, error) {
	var missing []string
	if w.Digest == nil {
		missing = append(missing, "digest")
	}
	if w.Size == nil {
		missing = append(missing, "size")
	}
	if w.CompressedSize == nil {
		missing = append(missing, "compressed_size")
	}
	if w.Visibility == nil {
		missing = append(missing, "visibility")
	}
	if len(missing) > 0 {
		return TrackedFile{}, fmt.Errorf("%s: missing required fields %v", filePath, missing)
	}

	d, err := digest.Parse(*w.Digest)
	if err != nil {
		return TrackedFile{}, fmt.Errorf("%s: %w", filePath, err)
	}
	visibility, err := ParseVisibility(*w.Visibility)
	if err != nil {
		return TrackedFile{}, fmt.Errorf("%s: %w", filePath, err)
	}
	return TrackedFile{
		Path:           filePath,
		Digest:         d,
		Size:           *w.Size,
		CompressedSize: *w.CompressedSize,
		Visibility:     visibility,
	}, nil
}

// Encode writes the manifest in its canonical form: records sorted by
// path, two-space indentation, trailing newline.
func (m *Manifest) Encode(w io.Writer) error {
	var buffer bytes.Buffer
	buffer.WriteString("{\n")
	fmt.Fprintf(&buffer, "  \"version\": %d,\n", Version)
	fmt.Fprintf(&buffer, "  \"algorithm\": %q,\n", m.algorithm)

	records := m.Records()
	if len(records) == 0 {
		buffer.WriteString("  \"files\": {}\n}\n")
		_, err := w.Write(buffer.Bytes())
		return err
	}

	buffer.WriteString("  \"files\": {\n")
	for i, record := range records {
		key, err := json.Marshal(record.Path)
		if err != nil {
			return err
		}
		body, err := json.MarshalIndent(struct {
			Digest         string `json:"digest"`
			Size           int64  `json:"size"`
			CompressedSize int64  `json:"compressed_size"`
			Visibility     string `json:"visibility"`
		}{record.Digest.String(), record.Size, record.CompressedSize, string(record.Visibility)}, "    ", "  ")
		if err != nil {
			return err
		}
		buffer.WriteString("    ")
		buffer.Write(key)
		buffer.WriteString(": ")
		buffer.Write(body)
		if i < len(records)-1 {
			buffer.WriteByte(',')
		}
		buffer.WriteByte('\n')
	}
	buffer.WriteString("  }\n}\n")
	_, err := w.Write(buffer.Bytes())
	return err
}

// Save writes the manifest to path atomically while holding an advisory
// lock on path+".lock". It replaces whatever is on disk; use Update to
// apply changes on top of the latest saved state.
func (m *Manifest) Save(path string) error {
	unlock, err := lock(path)
	if err != nil {
		return err
	}
	defer unlock()
	return m.save(path)
}

// Update re-reads the manifest at path under its lock, applies change
// to that latest state, and saves it before releasing the lock. On
// success m holds the merged result, so records another process saved
// since m was loaded are kept rather than overwritten.
func (m *Manifest) Update(path string, change func(*Manifest) error) error {
	unlock, err := lock(path)
	if err != nil {
		return err
	}
	defer unlock()

	latest, err := Load(path, m.algorithm)
	if err != nil {
		return err
	}
	if latest.algorithm != m.algorithm {
		if len(latest.records) > 0 {
			return &fault.Error{Kind: fault.ManifestInvalid, Path: path,
				Err: fmt.Errorf("manifest on disk now uses %s, not %s", latest.algorithm, m.algorithm)}
		}
		latest.algorithm = m.algorithm
	}
	if err := change(latest); err != nil {
		return err
	}
	if err := latest.save(path); err != nil {
		return err
	}
	m.algorithm = latest.algorithm
	m.records = latest.records
	return nil
}

func lock(path string) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating manifest directory: %w", err)
	}
	unlock, err := lockFile(path + ".lock")
	if err != nil {
		return nil, fmt.Errorf("locking manifest: %w", err)
	}
	return unlock, nil
}

// save writes without locking; the caller holds the lock.
func (m *Manifest) save(path string) error {
	var buffer bytes.Buffer
	if err := m.Encode(&buffer); err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	if err := atomicfile.WriteFile(path, buffer.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	return nil
}
