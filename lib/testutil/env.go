// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import "testing"

// Env returns a getenv function reading vars. Missing keys read as
// empty, as with os.Getenv.
func Env(vars map[string]string) func(string) string {
	return func(key string) string { return vars[key] }
}

// IsolatedEnv returns an environment whose HOME and XDG_CONFIG_HOME
// are a fresh temporary directory. The caller may add entries before
// passing it to [Env].
func IsolatedEnv(t testing.TB) map[string]string {
	t.Helper()
	home := t.TempDir()
	return map[string]string{
		"HOME":            home,
		"XDG_CONFIG_HOME": home + "/.config",
	}
}
