// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for vlfs packages.
//
// [WriteTree] lays out a fixture working tree from a map of
// slash-separated paths to contents, and [Tree] reads one back in the
// same form so a test can compare whole trees. [Env] builds a getenv
// function from a map, and [IsolatedEnv] points HOME and
// XDG_CONFIG_HOME at a fresh temporary directory so a test never reads
// the developer's own vlfs configuration or rclone.conf.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
//
// This package has no vlfs-internal dependencies.
package testutil
