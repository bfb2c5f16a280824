// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/bureau-foundation/vlfs/lib/compress"
	"github.com/bureau-foundation/vlfs/lib/digest"
	"github.com/bureau-foundation/vlfs/lib/workspace"
)

// Remote types.
const (
	TypeS3    = "s3"
	TypeDrive = "drive"
)

// Transports for S3-type remotes.
const (
	TransportRclone = "rclone"
	TransportS3     = "s3"
)

// Config is the resolved configuration.
type Config struct {
	Defaults DefaultsConfig          `yaml:"defaults"`
	Remotes  map[string]RemoteConfig `yaml:"remotes"`
	Tracking TrackingConfig          `yaml:"tracking"`
	Rclone   RcloneConfig            `yaml:"rclone"`

	// Warnings collects non-fatal problems found while loading, such
	// as credentials in the committed repository file.
	Warnings []string `yaml:"-"`
}

// DefaultsConfig holds project-wide behavior.
type DefaultsConfig struct {
	// CompressionLevel applies to newly stored objects.
	// Default: 3
	CompressionLevel int `yaml:"compression_level"`

	// Compression is the codec for new objects: zstd or lz4.
	// Default: zstd
	Compression string `yaml:"compression"`

	// DigestAlgorithm is used when creating a new manifest. An existing
	// manifest keeps the algorithm it records.
	// Default: sha256
	DigestAlgorithm string `yaml:"digest_algorithm"`

	// Transfers bounds parallel hashing and transfers.
	// Default: 8
	Transfers int `yaml:"transfers"`

	// FailFast stops a pull or push at the first per-path failure.
	FailFast bool `yaml:"fail_fast"`

	// StatCache trusts a remembered digest while a file's size and
	// modification time are unchanged.
	StatCache bool `yaml:"stat_cache"`

	// PublicRemote and PrivateRemote name the remotes serving each
	// visibility.
	// Default: r2 and gdrive
	PublicRemote  string `yaml:"public_remote"`
	PrivateRemote string `yaml:"private_remote"`

	// Retries is the number of attempts for a transient failure.
	// Default: 3
	Retries int `yaml:"retries"`
}

// RemoteConfig describes one named remote.
type RemoteConfig struct {
	// Type is s3 (any S3-compatible store, such as R2) or drive.
	Type string `yaml:"type"`

	// Transport moves objects for s3 remotes: rclone (default) or the
	// native s3 client.
	Transport string `yaml:"transport"`

	// Bucket is the bucket (s3) or top-level folder (drive).
	// Default: vlfs
	Bucket string `yaml:"bucket"`

	// Prefix is prepended to every object key.
	Prefix string `yaml:"prefix"`

	// PublicBaseURL serves objects anonymously; pulls of public
	// objects use plain HTTP GET against it when set.
	PublicBaseURL string `yaml:"public_base_url"`

	Provider string `yaml:"provider"`
	Endpoint string `yaml:"endpoint"`
	Region   string `yaml:"region"`

	// Credentials. Accepted in the user configuration; in the
	// repository configuration they produce a warning.
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	ClientID        string `yaml:"client_id"`
	ClientSecret    string `yaml:"client_secret"`
}

// TrackingConfig selects which new files push --all picks up and
// status reports as untracked.
type TrackingConfig struct {
	Patterns []string `yaml:"patterns"`
}

// RcloneConfig locates the rclone binary and its config file.
type RcloneConfig struct {
	// Binary is the rclone executable.
	// Default: rclone (found in PATH)
	Binary string `yaml:"binary"`

	// Config is the rclone.conf holding remote sessions. ${VAR}
	// references are expanded.
	// Default: ${VLFS_USER_DIR}/rclone.conf
	Config string `yaml:"config"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Defaults: DefaultsConfig{
			CompressionLevel: compress.DefaultLevel,
			Compression:      string(compress.Zstd),
			DigestAlgorithm:  string(digest.SHA256),
			Transfers:        8,
			PublicRemote:     "r2",
			PrivateRemote:    "gdrive",
			Retries:          3,
		},
		Remotes: map[string]RemoteConfig{
			"r2":     {Type: TypeS3, Provider: "Cloudflare"},
			"gdrive": {Type: TypeDrive},
		},
		Tracking: TrackingConfig{Patterns: append([]string(nil), workspace.DefaultPatterns...)},
		Rclone: RcloneConfig{
			Binary: "rclone",
			Config: "${VLFS_USER_DIR}/rclone.conf",
		},
	}
}

// Compression returns the codec options for new objects.
func (c *Config) Compression() compress.Options {
	return compress.Options{Codec: compress.Codec(c.Defaults.Compression), Level: c.Defaults.CompressionLevel}
}

// Algorithm returns the digest algorithm for new manifests.
func (c *Config) Algorithm() digest.Algorithm {
	algorithm, err := digest.ParseAlgorithm(c.Defaults.DigestAlgorithm)
	if err != nil {
		return digest.SHA256
	}
	return algorithm
}

// Remote returns the named remote.
func (c *Config) Remote(name string) (RemoteConfig, bool) {
	remote, ok := c.Remotes[name]
	return remote, ok
}

// Validate checks cross-field constraints after loading.
func (c *Config) Validate() error {
	if err := c.Compression().Validate(); err != nil {
		return err
	}
	if _, err := digest.ParseAlgorithm(c.Defaults.DigestAlgorithm); err != nil {
		return err
	}
	if c.Defaults.Transfers < 1 {
		return fmt.Errorf("defaults.transfers must be at least 1, got %d", c.Defaults.Transfers)
	}
	if c.Defaults.Retries < 1 {
		return fmt.Errorf("defaults.retries must be at least 1, got %d", c.Defaults.Retries)
	}
	for name, remote := range c.Remotes {
		switch remote.Type {
		case TypeS3:
			if remote.Transport != TransportRclone && remote.Transport != TransportS3 {
				return fmt.Errorf("remotes.%s.transport %q is not %q or %q", name, remote.Transport, TransportRclone, TransportS3)
			}
		case TypeDrive:
			if remote.Transport != TransportRclone {
				return fmt.Errorf("remotes.%s: drive remotes only support the rclone transport", name)
			}
		default:
			return fmt.Errorf("remotes.%s.type %q is not %q or %q", name, remote.Type, TypeS3, TypeDrive)
		}
	}
	return nil
}

// applyRemoteDefaults fills unset remote fields. Applied after merging
// so a file that sets one field of a remote keeps the other defaults.
func (c *Config) applyRemoteDefaults() {
	defaults := Default().Remotes
	for name, remote := range c.Remotes {
		if base, ok := defaults[name]; ok {
			if remote.Type == "" {
				remote.Type = base.Type
			}
			if remote.Provider == "" {
				remote.Provider = base.Provider
			}
		}
		if remote.Bucket == "" {
			remote.Bucket = "vlfs"
		}
		if remote.Transport == "" {
			remote.Transport = TransportRclone
		}
		if remote.Region == "" && remote.Type == TypeS3 {
			remote.Region = "auto"
		}
		c.Remotes[name] = remote
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} in path settings.
func (c *Config) expandVariables(getenv func(string) string) {
	vars := map[string]string{
		"HOME":            getenv("HOME"),
		"XDG_CONFIG_HOME": getenv("XDG_CONFIG_HOME"),
		"VLFS_USER_DIR":   UserDir(getenv),
	}
	c.Rclone.Config = expandVars(c.Rclone.Config, vars)
	c.Rclone.Binary = expandVars(c.Rclone.Binary, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		name := parts[1]
		defaultValue := ""
		if len(parts) > 2 {
			defaultValue = parts[2]
		}
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		return defaultValue
	})
}

// UserDir is the per-user vlfs directory holding the user config,
// rclone.conf and the drive token: $XDG_CONFIG_HOME/vlfs, falling back
// to ~/.config/vlfs.
func UserDir(getenv func(string) string) string {
	if xdg := getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "vlfs")
	}
	home := getenv("HOME")
	if home == "" {
		home, _ = os.UserHomeDir()
	}
	return filepath.Join(home, ".config", "vlfs")
}

// UserConfigPath is the user configuration file: $VLFS_USER_CONFIG, or
// config.toml in UserDir.
func UserConfigPath(getenv func(string) string) string {
	if override := getenv("VLFS_USER_CONFIG"); override != "" {
		return override
	}
	return filepath.Join(UserDir(getenv), "config.toml")
}
