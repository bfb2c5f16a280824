// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package digest computes content digests of tracked files and derives
// the shard path under which their objects are stored.
//
// A [Digest] is the 32-byte hash of a file's uncompressed bytes. Its
// canonical text form is 64 lowercase hex characters. The same text
// form names the object everywhere: in the manifest, in the local
// object cache, and on every remote.
//
// Two algorithms are supported, selected per manifest:
//
//   - [SHA256] -- the default, compatible with existing stores
//   - [BLAKE3] -- faster on large files
//
// [ShardPath] splits the hex form into aa/bb/aabb... so that no
// directory in a cache or bucket listing holds more than 256 entries.
//
// This package has no dependencies on other vlfs packages.
package digest
