// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports the build version of the vlfs binary.
//
// [Version], [GitCommit], [GitDirty] and [BuildTime] are injected with
// -ldflags -X at release build time. When they are not, [Current]
// falls back to the VCS stamp the Go toolchain embeds in the binary.
package version
