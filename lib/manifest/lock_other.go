// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !unix

package manifest

// lockFile is a no-op where flock is unavailable.
func lockFile(string) (func(), error) {
	return func() {}, nil
}
