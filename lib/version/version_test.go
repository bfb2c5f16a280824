// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"runtime/debug"
	"strings"
	"testing"
)

func TestBuildString(t *testing.T) {
	build := Build{Version: "1.2.3", Commit: "abc1234", Dirty: true, BuildTime: "2026-01-02T03:04:05Z", GoVersion: "go1.25.6", Platform: "linux/amd64"}
	if got, want := build.String(), "1.2.3 (abc1234-dirty, 2026-01-02T03:04:05Z)"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	if full := build.Full(); !strings.Contains(full, "Platform: linux/amd64") || !strings.Contains(full, "Go: go1.25.6") {
		t.Errorf("Full() = %q, missing Go version or platform", full)
	}
}

func TestApplyBuildSettings(t *testing.T) {
	settings := []debug.BuildSetting{
		{Key: "vcs.revision", Value: "0123456789abcdef0123"},
		{Key: "vcs.time", Value: "2026-05-06T07:08:09Z"},
		{Key: "vcs.modified", Value: "true"},
	}

	build := Build{Commit: "unknown", BuildTime: "unknown"}
	applyBuildSettings(&build, settings)
	if build.Commit != "0123456789ab" {
		t.Errorf("Commit = %q, want 12-character revision", build.Commit)
	}
	if build.BuildTime != "2026-05-06T07:08:09Z" {
		t.Errorf("BuildTime = %q, want the vcs time", build.BuildTime)
	}
	if !build.Dirty {
		t.Error("Dirty = false, want true from vcs.modified")
	}

	injected := Build{Commit: "release1", BuildTime: "2026-01-01"}
	applyBuildSettings(&injected, settings)
	if injected.Commit != "release1" || injected.BuildTime != "2026-01-01" {
		t.Errorf("injected values overwritten: %+v", injected)
	}
}
