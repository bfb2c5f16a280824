// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package workspace locates a vlfs project on disk and enumerates the
// working-tree files it may track.
//
// A project root is the nearest ancestor directory holding a .vlfs
// directory. [Layout] resolves every path the tool reads or writes
// relative to that root, honoring VLFS_CONFIG and VLFS_CACHE. [Walk]
// visits regular files below the root while skipping VCS metadata,
// vlfs's own directories and common dependency trees. [Matcher]
// implements the tracking-pattern syntax.
package workspace
