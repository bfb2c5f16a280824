// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package engine reconciles the working tree, the manifest, the local
// object cache and remote storage.
//
// Every decision starts from [Classify], a pure function of three
// observations about one path: its working-tree digest (if present),
// its manifest record (if any), and whether the cache holds the
// recorded object. Pull, push, status and verify each act on the
// classification their own way.
//
// An [Engine] serves one invocation. It holds the loaded manifest and
// mutates it from a single goroutine: per-path work runs on a bounded
// errgroup, collects its record updates, and the manifest is saved
// once after every worker has finished. A cancelled context abandons
// the save, so an interrupted push leaves the previous manifest in
// place. All file writes are temp-file-plus-rename, so an interrupted
// pull never leaves a partial file either.
//
// Per-path failures are collected into a [Report] rather than aborting
// the run, unless fail-fast is requested. A malformed manifest aborts
// immediately since every path decision depends on it.
package engine
