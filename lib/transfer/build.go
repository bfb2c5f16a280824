// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transfer

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/bureau-foundation/vlfs/lib/clock"
	"github.com/bureau-foundation/vlfs/lib/config"
	"github.com/bureau-foundation/vlfs/lib/digest"
	"github.com/bureau-foundation/vlfs/lib/manifest"
)

// DriveTokenName is the file in the user directory recording a
// completed Google Drive authorization.
const DriveTokenName = "gdrive-token.json"

// BuildOptions carries the environment a dispatcher is built in.
type BuildOptions struct {
	// Getenv reads credentials and CI markers. Defaults to os.Getenv.
	Getenv func(string) string

	Algorithm digest.Algorithm
	TempDir   string
	Clock     clock.Clock
	Logger    *slog.Logger

	// HTTPClient serves public HTTP reads and native S3 requests.
	HTTPClient *http.Client
}

// FromConfig builds a dispatcher routing public objects to the
// configured public remote and private objects to the private remote.
// Credentials are resolved once, here. A remote whose credentials are
// missing still gets a route whose operations fail with
// MissingCredentials, so commands that never touch it work.
func FromConfig(cfg *config.Config, options BuildOptions) *Dispatcher {
	getenv := options.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	routes := map[manifest.Visibility]Route{
		manifest.Public:  buildRoute(cfg, cfg.Defaults.PublicRemote, manifest.Public, getenv, options, logger),
		manifest.Private: buildRoute(cfg, cfg.Defaults.PrivateRemote, manifest.Private, getenv, options, logger),
	}
	return NewDispatcher(DispatcherConfig{
		Routes:    routes,
		Algorithm: options.Algorithm,
		TempDir:   options.TempDir,
		Clock:     options.Clock,
		Logger:    logger,
	})
}

func buildRoute(cfg *config.Config, name string, visibility manifest.Visibility, getenv func(string) string, options BuildOptions, logger *slog.Logger) Route {
	remote, ok := cfg.Remote(name)
	if !ok {
		return Route{Unavailable: fmt.Errorf("%s remote %q is not defined under [remotes]", visibility, name)}
	}

	route := Route{Policy: DefaultPolicy}
	route.Policy.Attempts = cfg.Defaults.Retries
	if remote.Type == config.TypeDrive {
		route.Policy = DrivePolicy
		route.Policy.Attempts = max(cfg.Defaults.Retries, DrivePolicy.Attempts)
	}

	backend, err := buildBackend(cfg, name, remote, getenv, options, logger)
	if err != nil {
		route.Unavailable = err
		logger.Debug("remote unavailable", "remote", name, "visibility", visibility, "reason", err)
	} else {
		route.Backend = backend
	}

	if visibility == manifest.Public && remote.PublicBaseURL != "" {
		reader, err := NewHTTP(HTTPConfig{Name: name, BaseURL: joinURL(remote.PublicBaseURL, remote.Prefix), Client: options.HTTPClient})
		if err != nil {
			logger.Warn("ignoring public_base_url", "remote", name, "error", err)
		} else {
			route.Reader = reader
		}
	}
	return route
}

func buildBackend(cfg *config.Config, name string, remote config.RemoteConfig, getenv func(string) string, options BuildOptions, logger *slog.Logger) (Backend, error) {
	userDir := config.UserDir(getenv)

	if remote.Type == config.TypeDrive {
		tokenPath := filepath.Join(userDir, DriveTokenName)
		_, tokenErr := os.Stat(tokenPath)
		if tokenErr != nil && (getenv("CI") != "" || getenv("VLFS_NO_DRIVE") != "") {
			return nil, errors.New("Google Drive is not available in CI; use a public remote or run 'vlfs auth gdrive' locally")
		}
		conf, err := LoadRcloneConf(cfg.Rclone.Config)
		if err != nil {
			return nil, err
		}
		if !conf.HasRemote(name) {
			return nil, fmt.Errorf("remote %q is not authorized; run 'vlfs auth gdrive'", name)
		}
		return NewRclone(RcloneConfig{
			Binary:     cfg.Rclone.Binary,
			ConfigPath: conf.Path(),
			Remote:     name,
			Flavor:     FlavorDrive,
			Bucket:     remote.Bucket,
			Prefix:     remote.Prefix,
			Logger:     logger,
		})
	}

	creds := remote.Credentials(name, getenv)
	logger.Debug("resolved credentials", "remote", name, "credentials", creds)

	if remote.Transport == config.TransportS3 {
		if !creds.Complete() {
			return nil, missingKeys(name)
		}
		return NewS3(S3Config{
			Name:            name,
			Bucket:          remote.Bucket,
			Prefix:          remote.Prefix,
			Endpoint:        creds.Endpoint,
			Region:          remote.Region,
			AccessKeyID:     creds.AccessKeyID,
			SecretAccessKey: creds.SecretAccessKey,
			HTTPClient:      options.HTTPClient,
		})
	}

	rclone := RcloneConfig{
		Binary: cfg.Rclone.Binary,
		Remote: name,
		Flavor: FlavorS3,
		Bucket: remote.Bucket,
		Prefix: remote.Prefix,
		Logger: logger,
	}
	conf, err := LoadRcloneConf(cfg.Rclone.Config)
	if err != nil {
		return nil, err
	}
	switch {
	case creds.Complete():
		rclone.Env = remoteEnv(name, remote, creds)
		if conf.HasRemote(name) {
			rclone.ConfigPath = conf.Path()
		}
	case conf.HasRemote(name):
		rclone.ConfigPath = conf.Path()
	default:
		return nil, missingKeys(name)
	}
	return NewRclone(rclone)
}

// remoteEnv defines an rclone S3 remote entirely through environment
// variables. They take precedence over a same-named config section.
func remoteEnv(name string, remote config.RemoteConfig, creds config.Credentials) []string {
	prefix := config.EnvPrefix(name)
	env := []string{
		prefix + "TYPE=s3",
		prefix + "ACCESS_KEY_ID=" + creds.AccessKeyID,
		prefix + "SECRET_ACCESS_KEY=" + creds.SecretAccessKey,
	}
	if remote.Provider != "" {
		env = append(env, prefix+"PROVIDER="+remote.Provider)
	}
	if creds.Endpoint != "" {
		env = append(env, prefix+"ENDPOINT="+creds.Endpoint)
	}
	if remote.Region != "" {
		env = append(env, prefix+"REGION="+remote.Region)
	}
	return env
}

// S3Fields returns the rclone.conf section describing an S3 remote.
func S3Fields(remote config.RemoteConfig, creds config.Credentials) []Field {
	return []Field{
		{"type", "s3"},
		{"provider", remote.Provider},
		{"endpoint", creds.Endpoint},
		{"region", remote.Region},
		{"access_key_id", creds.AccessKeyID},
		{"secret_access_key", creds.SecretAccessKey},
	}
}

func missingKeys(name string) error {
	prefix := config.EnvPrefix(name)
	return fmt.Errorf("no credentials for remote %q; set %sACCESS_KEY_ID and %sSECRET_ACCESS_KEY, or run 'vlfs auth %s'",
		name, prefix, prefix, name)
}

func joinURL(base, prefix string) string {
	if prefix == "" {
		return base
	}
	for len(base) > 0 && base[len(base)-1] == '/' {
		base = base[:len(base)-1]
	}
	for len(prefix) > 0 && prefix[0] == '/' {
		prefix = prefix[1:]
	}
	return base + "/" + prefix
}
