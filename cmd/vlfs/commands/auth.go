// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bureau-foundation/vlfs/cmd/vlfs/cli"
	"github.com/bureau-foundation/vlfs/lib/atomicfile"
	"github.com/bureau-foundation/vlfs/lib/config"
	"github.com/bureau-foundation/vlfs/lib/transfer"
)

func authCommand(env *Environment) *cli.Command {
	return &cli.Command{
		Name:    "auth",
		Summary: "Authorize a remote in the user rclone configuration",
		Description: `Record credentials for a remote in the user's rclone.conf
(~/.config/vlfs/rclone.conf by default), which is never committed.`,
		Subcommands: []*cli.Command{
			authDriveCommand(env),
			authS3Command(env),
		},
	}
}

func authDriveCommand(env *Environment) *cli.Command {
	return &cli.Command{
		Name:    "gdrive",
		Summary: "Authorize Google Drive through rclone's browser flow",
		Description: `Run "rclone config create <remote> drive" against the user rclone.conf,
then record the resulting token so private pulls and pushes work.
The remote name defaults to the configured private remote.`,
		Usage: "vlfs auth gdrive [remote]",
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			_, cfg, _, err := env.loadConfig(logger)
			if err != nil {
				return err
			}
			name, remote, err := authTarget(cfg, args, cfg.Defaults.PrivateRemote, config.TypeDrive)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(cfg.Rclone.Config), 0o700); err != nil {
				return err
			}

			rclone, err := transfer.NewRclone(transfer.RcloneConfig{
				Binary:     cfg.Rclone.Binary,
				ConfigPath: cfg.Rclone.Config,
				Remote:     name,
				Flavor:     transfer.FlavorDrive,
				Logger:     logger,
			})
			if err != nil {
				return err
			}
			createArgs := []string{"config", "create", name, "drive"}
			if remote.ClientID != "" {
				createArgs = append(createArgs, "client_id", remote.ClientID, "client_secret", remote.ClientSecret)
			}
			command := rclone.Command(ctx, createArgs...)
			command.Stdin = os.Stdin
			command.Stdout = env.Stdout
			command.Stderr = os.Stderr
			logger.Debug("running rclone config create", "remote", name, "config", cfg.Rclone.Config)
			if err := command.Run(); err != nil {
				return fmt.Errorf("rclone config create %s: %w", name, err)
			}

			conf, err := transfer.LoadRcloneConf(cfg.Rclone.Config)
			if err != nil {
				return err
			}
			token := conf.Value(name, "token")
			if token == "" {
				return fmt.Errorf("rclone finished but [%s] in %s has no token", name, conf.Path())
			}
			tokenPath := filepath.Join(config.UserDir(env.getenv), transfer.DriveTokenName)
			if err := atomicfile.WriteFile(tokenPath, []byte(token+"\n"), 0o600); err != nil {
				return fmt.Errorf("recording drive token: %w", err)
			}
			env.printf("authorized %s; token recorded in %s\n", name, tokenPath)
			return nil
		},
	}
}

func authS3Command(env *Environment) *cli.Command {
	return &cli.Command{
		Name:    "r2",
		Summary: "Write S3/R2 credentials from the environment into rclone.conf",
		Description: `Copy RCLONE_CONFIG_<REMOTE>_ACCESS_KEY_ID, _SECRET_ACCESS_KEY and
_ENDPOINT from the environment into a [<remote>] section of the user
rclone.conf, so later commands need no environment variables. The
remote name defaults to the configured public remote.`,
		Usage: "vlfs auth r2 [remote]",
		Run: func(_ context.Context, args []string, logger *slog.Logger) error {
			_, cfg, _, err := env.loadConfig(logger)
			if err != nil {
				return err
			}
			name, remote, err := authTarget(cfg, args, cfg.Defaults.PublicRemote, config.TypeS3)
			if err != nil {
				return err
			}
			creds := remote.Credentials(name, env.getenv)
			logger.Debug("resolved credentials", "remote", name, "credentials", creds)
			if !creds.Complete() {
				prefix := config.EnvPrefix(name)
				return cli.Validation("set %sACCESS_KEY_ID and %sSECRET_ACCESS_KEY (and usually %sENDPOINT) first",
					prefix, prefix, prefix)
			}

			conf, err := transfer.LoadRcloneConf(cfg.Rclone.Config)
			if err != nil {
				return err
			}
			if err := conf.SetRemote(name, transfer.S3Fields(remote, creds)); err != nil {
				return err
			}
			if err := conf.Save(); err != nil {
				return err
			}
			env.printf("wrote [%s] to %s\n", name, conf.Path())
			return nil
		},
	}
}

// authTarget picks the remote to authorize: the single argument, or
// fallback. It must be configured with the expected type.
func authTarget(cfg *config.Config, args []string, fallback, wantType string) (string, config.RemoteConfig, error) {
	name := fallback
	switch len(args) {
	case 0:
	case 1:
		name = args[0]
	default:
		return "", config.RemoteConfig{}, cli.Validation("expected at most one remote name, got %d", len(args))
	}
	remote, ok := cfg.Remote(name)
	if !ok {
		return "", config.RemoteConfig{}, cli.Validation("remote %q is not defined under [remotes]", name)
	}
	if remote.Type != wantType {
		return "", config.RemoteConfig{}, cli.Validation("remote %q has type %q, not %q", name, remote.Type, wantType)
	}
	return name, remote, nil
}
