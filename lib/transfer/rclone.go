// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transfer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path"
	"strings"
)

// Remote flavors served by rclone.
const (
	FlavorS3    = "s3"
	FlavorDrive = "drive"
)

// rclone exit codes for a missing directory and a missing file.
const (
	rcloneExitDirNotFound  = 3
	rcloneExitFileNotFound = 4
)

// RcloneConfig configures an [Rclone] backend.
type RcloneConfig struct {
	// Binary is the rclone executable. Defaults to "rclone".
	Binary string

	// ConfigPath is passed as --config when set.
	ConfigPath string

	// Remote is the rclone remote name, e.g. "r2" or "gdrive".
	Remote string

	// Flavor selects provider-specific flags: FlavorS3 or FlavorDrive.
	Flavor string

	// Bucket is the bucket (s3) or folder (drive) holding objects.
	Bucket string

	// Prefix is prepended to every key.
	Prefix string

	// Env is added to the subprocess environment. Used to define the
	// remote through RCLONE_CONFIG_<NAME>_* variables when no config
	// file carries it.
	Env []string

	// Logger receives one debug record per invocation. Nil discards.
	Logger *slog.Logger
}

// Rclone drives an rclone subprocess. Every invocation targets a single
// object with copyto, lsf or deletefile.
type Rclone struct {
	config RcloneConfig
	logger *slog.Logger
}

// NewRclone returns an rclone backend.
func NewRclone(config RcloneConfig) (*Rclone, error) {
	if config.Remote == "" {
		return nil, errors.New("rclone remote name is required")
	}
	if config.Flavor != FlavorS3 && config.Flavor != FlavorDrive {
		return nil, fmt.Errorf("rclone flavor %q is not %q or %q", config.Flavor, FlavorS3, FlavorDrive)
	}
	if config.Binary == "" {
		config.Binary = "rclone"
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Rclone{config: config, logger: logger}, nil
}

func (r *Rclone) Name() string { return r.config.Remote }

// remotePath returns "remote:bucket/prefix/key".
func (r *Rclone) remotePath(key string) string {
	return r.config.Remote + ":" + path.Join(r.config.Bucket, r.config.Prefix, key)
}

func (r *Rclone) Download(ctx context.Context, key, dst string) error {
	_, err := r.run(ctx, r.transferFlags("copyto", r.remotePath(key), dst)...)
	return err
}

func (r *Rclone) Upload(ctx context.Context, src, key string) error {
	_, err := r.run(ctx, r.transferFlags("copyto", src, r.remotePath(key))...)
	return err
}

func (r *Rclone) Exists(ctx context.Context, key string) (bool, error) {
	stdout, err := r.run(ctx, "lsf", r.remotePath(key))
	if err != nil {
		if IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return strings.TrimSpace(stdout) != "", nil
}

func (r *Rclone) Delete(ctx context.Context, key string) error {
	_, err := r.run(ctx, "deletefile", r.remotePath(key))
	if IsNotFound(err) {
		return nil
	}
	return err
}

// transferFlags appends the flavor's transfer tuning to a copy command.
func (r *Rclone) transferFlags(args ...string) []string {
	if r.config.Flavor == FlavorDrive {
		return append(args, "--transfers", "1", "--drive-chunk-size", "8M")
	}
	return args
}

// Command returns the exec.Cmd for an rclone invocation with the
// backend's config file and environment applied.
func (r *Rclone) Command(ctx context.Context, args ...string) *exec.Cmd {
	if r.config.ConfigPath != "" {
		args = append(args, "--config", r.config.ConfigPath)
	}
	if r.config.Flavor == FlavorS3 {
		args = append(args, "--s3-no-check-bucket")
	}
	command := exec.CommandContext(ctx, r.config.Binary, args...)
	if len(r.config.Env) > 0 {
		command.Env = append(os.Environ(), r.config.Env...)
	}
	return command
}

// run executes rclone and returns stdout. Failures carry stderr and
// are classified for retry.
func (r *Rclone) run(ctx context.Context, args ...string) (string, error) {
	var stdout, stderr bytes.Buffer
	command := r.Command(ctx, args...)
	command.Stdout = &stdout
	command.Stderr = &stderr

	r.logger.Debug("rclone", "remote", r.config.Remote, "args", args)
	err := command.Run()
	if err == nil {
		return stdout.String(), nil
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	detail := strings.TrimSpace(stderr.String())
	failure := fmt.Errorf("rclone %s: %w (stderr: %s)", args[0], err, detail)

	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
		return "", Permanent(fmt.Errorf("%s not found in PATH; install from https://rclone.org/downloads/: %w", r.config.Binary, err))
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		switch exitErr.ExitCode() {
		case rcloneExitDirNotFound, rcloneExitFileNotFound:
			return "", fmt.Errorf("%w: %w", ErrNotFound, failure)
		}
	}
	if isRateLimited(detail) {
		return "", fmt.Errorf("%w: %w", ErrRateLimited, failure)
	}
	if strings.Contains(detail, "not found") && args[0] == "copyto" && strings.HasPrefix(args[1], r.config.Remote+":") {
		return "", fmt.Errorf("%w: %w", ErrNotFound, failure)
	}
	return "", failure
}

func isRateLimited(stderr string) bool {
	for _, marker := range []string{"rateLimitExceeded", "userRateLimitExceeded", "429", "403"} {
		if strings.Contains(stderr, marker) {
			return true
		}
	}
	return false
}
