// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transfer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRcloneConf(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vlfs", "rclone.conf")

	conf, err := LoadRcloneConf(path)
	if err != nil {
		t.Fatalf("LoadRcloneConf(missing): %v", err)
	}
	if conf.HasRemote("r2") {
		t.Error("empty config reports a remote")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	existing := "[gdrive]\ntype = drive\ntoken = {\"access_token\":\"ya29\",\"expiry\":\"2026-01-01T00:00:00Z\"}\n\n[r2]\ntype = s3\naccess_key_id = stale\n"
	if err := os.WriteFile(path, []byte(existing), 0o600); err != nil {
		t.Fatal(err)
	}

	conf, err = LoadRcloneConf(path)
	if err != nil {
		t.Fatalf("LoadRcloneConf: %v", err)
	}
	if token := conf.Value("gdrive", "token"); !strings.HasPrefix(token, `{"access_token":"ya29"`) {
		t.Errorf("token = %q", token)
	}

	if err := conf.SetRemote("r2", []Field{
		{"type", "s3"},
		{"provider", "Cloudflare"},
		{"endpoint", ""},
		{"access_key_id", "fresh"},
	}); err != nil {
		t.Fatalf("SetRemote: %v", err)
	}
	if err := conf.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("mode = %v, want 0600", info.Mode().Perm())
	}

	reloaded, err := LoadRcloneConf(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got := reloaded.Value("r2", "access_key_id"); got != "fresh" {
		t.Errorf("access_key_id = %q, want fresh", got)
	}
	if got := reloaded.Value("r2", "provider"); got != "Cloudflare" {
		t.Errorf("provider = %q, want Cloudflare", got)
	}
	if reloaded.Value("r2", "endpoint") != "" {
		t.Error("empty field was written")
	}
	if !reloaded.HasRemote("gdrive") || reloaded.Value("gdrive", "type") != "drive" {
		t.Error("unrelated section lost")
	}
}
