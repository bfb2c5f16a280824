// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package manifest reads and writes the committed index that maps
// working-tree paths to the content they should hold.
//
// The file is JSON (comments and trailing commas tolerated on read):
//
//	{
//	  "version": 1,
//	  "algorithm": "sha256",
//	  "files": {
//	    "tools/a.exe": {
//	      "digest": "ba7816bf...",
//	      "size": 10485760,
//	      "compressed_size": 4120331,
//	      "visibility": "public"
//	    }
//	  }
//	}
//
// Loading validates every record. Any defect (duplicate path, unknown
// field, missing field, bad digest, unknown visibility, unsupported
// version) fails the whole load with fault.ManifestInvalid: every
// decision downstream depends on the manifest, so a partially
// understood one is never used.
//
// Save writes records sorted by path with a stable layout so diffs of
// the committed file stay reviewable.
package manifest
