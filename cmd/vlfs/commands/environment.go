// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/bureau-foundation/vlfs/cmd/vlfs/cli"
	"github.com/bureau-foundation/vlfs/lib/clock"
	"github.com/bureau-foundation/vlfs/lib/config"
	"github.com/bureau-foundation/vlfs/lib/engine"
	"github.com/bureau-foundation/vlfs/lib/manifest"
	"github.com/bureau-foundation/vlfs/lib/objectcache"
	"github.com/bureau-foundation/vlfs/lib/statcache"
	"github.com/bureau-foundation/vlfs/lib/transfer"
	"github.com/bureau-foundation/vlfs/lib/workspace"
)

// statCacheName is the stat cache file inside the cache directory.
const statCacheName = "statcache.cbor"

// Environment is the process state commands run against. Tests fill
// it with a temp directory, a fixed environment and captured output.
type Environment struct {
	// Dir is the working directory. Empty uses os.Getwd.
	Dir string

	// Getenv reads the process environment.
	Getenv func(string) string

	// Stdout receives command output.
	Stdout io.Writer

	// Prompter asks for confirmation before destructive commands.
	Prompter *cli.Prompter

	// HTTPClient serves public reads and native S3. Nil uses
	// http.DefaultClient.
	HTTPClient *http.Client

	// Clock times retry backoff.
	Clock clock.Clock

	// Remote, when set, replaces the dispatcher built from the
	// configuration.
	Remote engine.Remote
}

// DefaultEnvironment is the real process environment.
func DefaultEnvironment() *Environment {
	return &Environment{
		Getenv:   os.Getenv,
		Stdout:   os.Stdout,
		Prompter: cli.TerminalPrompter(),
		Clock:    clock.Real(),
	}
}

func (env *Environment) getenv(key string) string {
	if env.Getenv == nil {
		return os.Getenv(key)
	}
	return env.Getenv(key)
}

func (env *Environment) workingDir() (string, error) {
	if env.Dir != "" {
		return filepath.Abs(env.Dir)
	}
	return os.Getwd()
}

// project is everything one command invocation works with.
type project struct {
	layout     workspace.Layout
	config     *config.Config
	cache      *objectcache.Cache
	dispatcher *transfer.Dispatcher
	engine     *engine.Engine

	// cwd is the invocation directory, against which path arguments
	// are resolved.
	cwd string
}

// loadConfig discovers the project root and loads its configuration.
// Outside any project the working directory stands in for the root,
// so commands like auth work anywhere.
func (env *Environment) loadConfig(logger *slog.Logger) (workspace.Layout, *config.Config, string, error) {
	cwd, err := env.workingDir()
	if err != nil {
		return workspace.Layout{}, nil, "", err
	}
	layout, err := workspace.Discover(cwd, env.getenv)
	if err != nil {
		return workspace.Layout{}, nil, "", err
	}
	logger.Debug("project", "root", layout.Root, "config", layout.ConfigPath, "cache", layout.CacheDir)

	cfg, err := config.Load(layout.ConfigPath, env.getenv)
	if err != nil {
		return workspace.Layout{}, nil, "", cli.Validation("%v", err)
	}
	for _, warning := range cfg.Warnings {
		logger.Warn(warning)
	}
	return layout, cfg, cwd, nil
}

// open loads the project containing the working directory. A manifest
// that fails to parse aborts with ManifestInvalid before any other
// work.
func (env *Environment) open(logger *slog.Logger) (*project, error) {
	layout, cfg, cwd, err := env.loadConfig(logger)
	if err != nil {
		return nil, err
	}

	loaded, err := manifest.Load(layout.ManifestPath, cfg.Algorithm())
	if err != nil {
		return nil, err
	}
	algorithm := loaded.Algorithm()

	cache, err := objectcache.New(objectcache.Config{Root: layout.CacheDir, Algorithm: algorithm, Logger: logger})
	if err != nil {
		return nil, err
	}

	var stat *statcache.Cache
	if cfg.Defaults.StatCache {
		stat = statcache.Open(filepath.Join(layout.CacheDir, statCacheName), algorithm, logger)
	}

	p := &project{layout: layout, config: cfg, cache: cache, cwd: cwd}
	var remote engine.Remote = env.Remote
	if remote == nil {
		p.dispatcher = transfer.FromConfig(cfg, transfer.BuildOptions{
			Getenv:     env.getenv,
			Algorithm:  algorithm,
			TempDir:    cache.TempDir(),
			Clock:      env.Clock,
			Logger:     logger,
			HTTPClient: env.HTTPClient,
		})
		remote = p.dispatcher
	}

	p.engine, err = engine.New(engine.Options{
		Layout:    layout,
		Config:    cfg,
		Manifest:  loaded,
		Cache:     cache,
		Remote:    remote,
		StatCache: stat,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// keys converts command-line paths, relative to the invocation
// directory, into manifest keys. Glob patterns are anchored the same
// way unless they start with "**/" or contain no slash, which already
// match anywhere.
func (p *project) keys(arguments []string) ([]string, error) {
	keys := make([]string, 0, len(arguments))
	prefix, err := p.layout.Rel(p.cwd)
	if err != nil {
		return nil, err
	}
	for _, argument := range arguments {
		if workspace.HasGlobMeta(argument) {
			slashed := filepath.ToSlash(argument)
			if prefix != "." && !isUnanchored(slashed) {
				slashed = prefix + "/" + slashed
			}
			keys = append(keys, slashed)
			continue
		}
		absolute := argument
		if !filepath.IsAbs(absolute) {
			absolute = filepath.Join(p.cwd, argument)
		}
		key, err := p.layout.Rel(absolute)
		if err != nil {
			return nil, cli.Validation("%v", err)
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func isUnanchored(pattern string) bool {
	return strings.HasPrefix(pattern, "**/") || !strings.Contains(pattern, "/")
}

func (env *Environment) printf(format string, args ...any) {
	fmt.Fprintf(env.Stdout, format, args...)
}
