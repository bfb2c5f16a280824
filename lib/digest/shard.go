// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package digest

import "strings"

// ShardPath returns the slash-separated object key for d:
// first two hex characters, next two, then the full digest.
//
//	ab/cd/abcdef0123...
//
// Caches and remotes must agree on this layout byte for byte.
func ShardPath(d Digest) string {
	return ShardKey(d.String())
}

// ShardKey applies the shard layout to an arbitrary hex string. Strings
// shorter than four characters have no shard prefix and are returned
// unchanged.
func ShardKey(hexDigest string) string {
	if len(hexDigest) < 4 {
		return hexDigest
	}
	var b strings.Builder
	b.Grow(len(hexDigest) + 6)
	b.WriteString(hexDigest[:2])
	b.WriteByte('/')
	b.WriteString(hexDigest[2:4])
	b.WriteByte('/')
	b.WriteString(hexDigest)
	return b.String()
}

// FromShardPath recovers the digest from an object key. It accepts the
// key with or without leading directories and checks that the shard
// prefix agrees with the digest.
func FromShardPath(key string) (Digest, bool) {
	parts := strings.Split(key, "/")
	if len(parts) < 3 {
		return Digest{}, false
	}
	parts = parts[len(parts)-3:]
	d, err := Parse(parts[2])
	if err != nil {
		return Digest{}, false
	}
	text := strings.ToLower(parts[2])
	if parts[0] != text[:2] || parts[1] != text[2:4] {
		return Digest{}, false
	}
	return d, true
}
