// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"

	"github.com/zeebo/blake3"
)

// Size is the byte length of a digest for every supported algorithm.
const Size = 32

// HexLen is the length of a digest's text form.
const HexLen = 2 * Size

// Algorithm names a hash function. The zero value is invalid; use
// [SHA256] when no algorithm has been recorded.
type Algorithm string

const (
	SHA256 Algorithm = "sha256"
	BLAKE3 Algorithm = "blake3"
)

// ParseAlgorithm validates an algorithm name. An empty name selects
// [SHA256].
func ParseAlgorithm(name string) (Algorithm, error) {
	switch Algorithm(name) {
	case "", SHA256:
		return SHA256, nil
	case BLAKE3:
		return BLAKE3, nil
	default:
		return "", fmt.Errorf("unknown digest algorithm %q (want %q or %q)", name, SHA256, BLAKE3)
	}
}

// New returns a fresh hasher for the algorithm.
func (a Algorithm) New() hash.Hash {
	if a == BLAKE3 {
		return blake3.New()
	}
	return sha256.New()
}

// Digest is the hash of a file's uncompressed content.
type Digest [Size]byte

// String returns the lowercase hex form.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// IsZero reports whether d is the zero digest, used as "not computed".
func (d Digest) IsZero() bool {
	return d == Digest{}
}

// Short returns the first 8 hex characters, for listings.
func (d Digest) Short() string {
	return d.String()[:8]
}

// MarshalText implements encoding.TextMarshaler.
func (d Digest) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Digest) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Parse decodes a 64-character hex digest. Upper-case input is accepted
// but [Digest.String] always returns lower case.
func Parse(text string) (Digest, error) {
	var d Digest
	if len(text) != HexLen {
		return d, fmt.Errorf("digest %q is %d characters, want %d", text, len(text), HexLen)
	}
	if _, err := hex.Decode(d[:], []byte(text)); err != nil {
		return d, fmt.Errorf("parsing digest %q: %w", text, err)
	}
	return d, nil
}

// Of returns the digest of data.
func Of(algorithm Algorithm, data []byte) Digest {
	hasher := algorithm.New()
	hasher.Write(data)
	return sum(hasher)
}

// OfReader streams r through the hash function and returns the digest
// and the number of bytes read.
func OfReader(algorithm Algorithm, r io.Reader) (Digest, int64, error) {
	hasher := algorithm.New()
	n, err := io.Copy(hasher, r)
	if err != nil {
		return Digest{}, n, err
	}
	return sum(hasher), n, nil
}

// OfFile streams the file at path through the hash function. Memory use
// is constant regardless of file size.
func OfFile(algorithm Algorithm, path string) (Digest, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		return Digest{}, 0, fmt.Errorf("opening %s for hashing: %w", path, err)
	}
	defer file.Close()

	d, n, err := OfReader(algorithm, file)
	if err != nil {
		return Digest{}, 0, fmt.Errorf("hashing %s: %w", path, err)
	}
	return d, n, nil
}

// Sum finalizes a hasher created by [Algorithm.New].
func Sum(hasher hash.Hash) Digest {
	return sum(hasher)
}

func sum(hasher hash.Hash) Digest {
	var d Digest
	copy(d[:], hasher.Sum(nil))
	return d
}
