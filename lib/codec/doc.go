// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec holds the CBOR configuration for vlfs's private on-disk
// state.
//
// vlfs draws a line between two formats:
//
//   - JSON for anything a person reads or commits: the manifest and
//     --json command output.
//   - CBOR for machine-local state that never leaves the cache
//     directory, such as the stat cache.
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2), so the
// same state always produces the same bytes. Types implementing
// encoding.TextMarshaler (digest.Digest) are stored as text strings,
// keeping the files readable with a CBOR diagnostic tool.
package codec
