// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// testEnv builds a getenv over a fixed map with an isolated user
// config directory.
func testEnv(t *testing.T, vars map[string]string) func(string) string {
	t.Helper()
	env := map[string]string{"XDG_CONFIG_HOME": t.TempDir(), "HOME": t.TempDir()}
	for key, value := range vars {
		env[key] = value
	}
	return func(key string) string { return env[key] }
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Defaults.CompressionLevel != 3 {
		t.Errorf("compression_level = %d, want 3", cfg.Defaults.CompressionLevel)
	}
	if cfg.Defaults.Transfers != 8 {
		t.Errorf("transfers = %d, want 8", cfg.Defaults.Transfers)
	}
	if cfg.Defaults.PublicRemote != "r2" || cfg.Defaults.PrivateRemote != "gdrive" {
		t.Errorf("remotes = %s/%s, want r2/gdrive", cfg.Defaults.PublicRemote, cfg.Defaults.PrivateRemote)
	}
	if len(cfg.Tracking.Patterns) == 0 {
		t.Error("expected default tracking patterns")
	}
}

func TestLoad_NoFiles(t *testing.T) {
	getenv := testEnv(t, nil)

	cfg, err := Load("", getenv)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Remotes["r2"].Bucket != "vlfs" {
		t.Errorf("r2 bucket = %q, want vlfs", cfg.Remotes["r2"].Bucket)
	}
	if cfg.Remotes["r2"].Transport != TransportRclone {
		t.Errorf("r2 transport = %q, want rclone", cfg.Remotes["r2"].Transport)
	}
	want := filepath.Join(getenv("XDG_CONFIG_HOME"), "vlfs", "rclone.conf")
	if cfg.Rclone.Config != want {
		t.Errorf("rclone config = %q, want %q", cfg.Rclone.Config, want)
	}
}

func TestLoad_TOMLRepoConfig(t *testing.T) {
	getenv := testEnv(t, nil)
	repoPath := filepath.Join(t.TempDir(), ".vlfs", "config.toml")
	writeFile(t, repoPath, `
[defaults]
compression_level = 9
transfers = 4

[remotes.r2]
public_base_url = "https://assets.example.com"
bucket = "game-assets"

[tracking]
patterns = ["*.blend", "art/**/*.png"]
`)

	cfg, err := Load(repoPath, getenv)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Defaults.CompressionLevel != 9 {
		t.Errorf("compression_level = %d, want 9", cfg.Defaults.CompressionLevel)
	}
	if cfg.Defaults.Transfers != 4 {
		t.Errorf("transfers = %d, want 4", cfg.Defaults.Transfers)
	}
	r2 := cfg.Remotes["r2"]
	if r2.Bucket != "game-assets" || r2.PublicBaseURL != "https://assets.example.com" {
		t.Errorf("r2 = %+v", r2)
	}
	if r2.Type != TypeS3 {
		t.Errorf("r2 type = %q, want s3 (kept from defaults)", r2.Type)
	}
	if _, ok := cfg.Remotes["gdrive"]; !ok {
		t.Error("gdrive remote dropped by partial remotes table")
	}
	if got := strings.Join(cfg.Tracking.Patterns, ","); got != "*.blend,art/**/*.png" {
		t.Errorf("patterns = %s", got)
	}
	if len(cfg.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", cfg.Warnings)
	}
}

func TestLoad_UserOverridesRepo(t *testing.T) {
	getenv := testEnv(t, nil)
	repoPath := filepath.Join(t.TempDir(), ".vlfs", "config.yaml")
	writeFile(t, repoPath, `
defaults:
  compression_level: 5
  transfers: 2
remotes:
  r2:
    bucket: team
`)
	writeFile(t, UserConfigPath(getenv), `
[defaults]
transfers = 16

[remotes.r2]
access_key_id = "AKIA"
secret_access_key = "shh"
`)

	cfg, err := Load(repoPath, getenv)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Defaults.CompressionLevel != 5 {
		t.Errorf("compression_level = %d, want 5 (repo)", cfg.Defaults.CompressionLevel)
	}
	if cfg.Defaults.Transfers != 16 {
		t.Errorf("transfers = %d, want 16 (user)", cfg.Defaults.Transfers)
	}
	r2 := cfg.Remotes["r2"]
	if r2.Bucket != "team" {
		t.Errorf("bucket = %q, want team (repo, merged)", r2.Bucket)
	}
	if r2.AccessKeyID != "AKIA" {
		t.Errorf("access_key_id = %q, want AKIA (user)", r2.AccessKeyID)
	}
	if len(cfg.Warnings) != 0 {
		t.Errorf("credentials in user config should not warn: %v", cfg.Warnings)
	}
}

func TestLoad_WarnsOnRepoSecrets(t *testing.T) {
	getenv := testEnv(t, nil)
	repoPath := filepath.Join(t.TempDir(), ".vlfs", "config.toml")
	writeFile(t, repoPath, `
[remotes.r2]
secret_access_key = "committed"
`)

	cfg, err := Load(repoPath, getenv)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if len(cfg.Warnings) != 1 || !strings.Contains(cfg.Warnings[0], "remotes.r2") {
		t.Errorf("warnings = %v, want one naming remotes.r2", cfg.Warnings)
	}
}

func TestLoad_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		wantErr string
	}{
		{"unknown key", "config.toml", "[defaults]\ncompresion_level = 3\n", "compresion_level"},
		{"bad level", "config.toml", "[defaults]\ncompression_level = 40\n", "level"},
		{"bad codec", "config.yaml", "defaults:\n  compression: brotli\n", "brotli"},
		{"bad transport", "config.toml", "[remotes.r2]\ntransport = \"ftp\"\n", "transport"},
		{"drive over s3", "config.toml", "[remotes.gdrive]\ntransport = \"s3\"\n", "drive"},
		{"zero transfers", "config.toml", "[defaults]\ntransfers = 0\n", "transfers"},
		{"syntax", "config.toml", "[defaults\n", "parsing"},
		{"extension", "config.json", "{}", "unsupported extension"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			getenv := testEnv(t, nil)
			repoPath := filepath.Join(t.TempDir(), tt.file)
			writeFile(t, repoPath, tt.content)

			_, err := Load(repoPath, getenv)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestParse(t *testing.T) {
	cfg, err := Parse("config.yml", []byte("defaults:\n  digest_algorithm: blake3\n"))
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	if cfg.Algorithm() != "blake3" {
		t.Errorf("algorithm = %s, want blake3", cfg.Algorithm())
	}
}

func TestUserConfigPath(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"override", map[string]string{"VLFS_USER_CONFIG": "/etc/vlfs.toml"}, "/etc/vlfs.toml"},
		{"xdg", map[string]string{"XDG_CONFIG_HOME": "/xdg"}, "/xdg/vlfs/config.toml"},
		{"home", map[string]string{"HOME": "/home/dev"}, "/home/dev/.config/vlfs/config.toml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := UserConfigPath(func(key string) string { return tt.env[key] })
			if got != tt.want {
				t.Errorf("UserConfigPath() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExpandVars(t *testing.T) {
	vars := map[string]string{"HOME": "/home/dev"}
	tests := []struct {
		in, want string
	}{
		{"${HOME}/rclone.conf", "/home/dev/rclone.conf"},
		{"${MISSING:-/tmp}/x", "/tmp/x"},
		{"${MISSING}/x", "/x"},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		if got := expandVars(tt.in, vars); got != tt.want {
			t.Errorf("expandVars(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCredentials(t *testing.T) {
	remote := RemoteConfig{AccessKeyID: "file-key", SecretAccessKey: "file-secret", Endpoint: "https://file"}

	getenv := func(key string) string {
		return map[string]string{
			"RCLONE_CONFIG_R2_SECRET_ACCESS_KEY": "env-secret",
			"RCLONE_CONFIG_R2_ENDPOINT":          "https://env",
		}[key]
	}
	creds := remote.Credentials("r2", getenv)
	if creds.AccessKeyID != "file-key" {
		t.Errorf("access key = %q, want file-key", creds.AccessKeyID)
	}
	if creds.SecretAccessKey != "env-secret" || creds.Endpoint != "https://env" {
		t.Errorf("env overrides not applied: endpoint=%q", creds.Endpoint)
	}
	if !creds.Complete() {
		t.Error("Complete() = false")
	}
	if (Credentials{AccessKeyID: "x"}).Complete() {
		t.Error("half a key pair reported complete")
	}
}

func TestCredentials_NeverLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	creds := Credentials{AccessKeyID: "AKIDEXAMPLE", SecretAccessKey: "wJalrXUtnFEMI", Endpoint: "https://r2"}

	logger.Info("dispatch", "credentials", creds)
	logged := buf.String() + creds.String()

	for _, secret := range []string{"AKIDEXAMPLE", "wJalrXUtnFEMI"} {
		if strings.Contains(logged, secret) {
			t.Errorf("secret %q leaked into %q", secret, logged)
		}
	}
	if !strings.Contains(buf.String(), "https://r2") {
		t.Errorf("endpoint missing from log: %q", buf.String())
	}
}

func TestEnvPrefix(t *testing.T) {
	if got := EnvPrefix("my-r2"); got != "RCLONE_CONFIG_MY_R2_" {
		t.Errorf("EnvPrefix = %q", got)
	}
}
