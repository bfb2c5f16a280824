// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package fault defines the error kinds shared by every vlfs component.
//
// A [Kind] is itself an error value, so callers test for a category with
// errors.Is without unwrapping:
//
//	if errors.Is(err, fault.CorruptObject) {
//		// evict and refetch
//	}
//
// [Error] attaches the path, digest and backend that a failure concerns.
// The engine collects per-path Errors into a report; the CLI maps kinds
// to exit codes and summary lines.
package fault
