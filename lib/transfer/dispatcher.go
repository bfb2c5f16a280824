// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transfer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/bureau-foundation/vlfs/lib/clock"
	"github.com/bureau-foundation/vlfs/lib/compress"
	"github.com/bureau-foundation/vlfs/lib/digest"
	"github.com/bureau-foundation/vlfs/lib/fault"
	"github.com/bureau-foundation/vlfs/lib/manifest"
)

// Route is how objects of one visibility reach their remote.
type Route struct {
	// Backend serves every operation, or every operation but reads
	// when Reader is set.
	Backend Backend

	// Reader, when set, serves Fetch instead of Backend. Public routes
	// use an HTTP reader so pulls need no credentials.
	Reader Backend

	// Policy bounds retries. Zero uses DefaultPolicy.
	Policy Policy

	// Unavailable explains why Backend could not be built, typically
	// missing credentials. Operations needing Backend fail with it.
	Unavailable error
}

// DispatcherConfig configures a [Dispatcher].
type DispatcherConfig struct {
	// Routes maps each visibility to its remote. A visibility with no
	// route fails with MissingCredentials.
	Routes map[manifest.Visibility]Route

	// Algorithm verifies fetched objects.
	Algorithm digest.Algorithm

	// TempDir stages downloads. It should share a filesystem with the
	// object cache.
	TempDir string

	// Clock times retry backoff. Defaults to clock.Real().
	Clock clock.Clock

	// Logger receives retry and transfer events. Nil discards.
	Logger *slog.Logger
}

// Dispatcher routes object transfers by visibility. Safe for concurrent
// use.
type Dispatcher struct {
	routes    map[manifest.Visibility]Route
	algorithm digest.Algorithm
	tempDir   string
	clock     clock.Clock
	logger    *slog.Logger
}

// NewDispatcher returns a dispatcher over the configured routes.
func NewDispatcher(config DispatcherConfig) *Dispatcher {
	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	algorithm := config.Algorithm
	if algorithm == "" {
		algorithm = digest.SHA256
	}
	routes := make(map[manifest.Visibility]Route, len(config.Routes))
	for visibility, route := range config.Routes {
		if route.Policy.Attempts == 0 {
			route.Policy = DefaultPolicy
		}
		routes[visibility] = route
	}
	return &Dispatcher{
		routes:    routes,
		algorithm: algorithm,
		tempDir:   config.TempDir,
		clock:     clk,
		logger:    logger,
	}
}

// Key returns the remote key for d.
func Key(d digest.Digest) string { return digest.ShardPath(d) }

// BackendName names the backend serving writes for visibility, or ""
// when none is configured.
func (d *Dispatcher) BackendName(visibility manifest.Visibility) string {
	route, ok := d.routes[visibility]
	if !ok || route.Backend == nil {
		return ""
	}
	return route.Backend.Name()
}

// writer returns the backend for non-read operations.
func (d *Dispatcher) writer(visibility manifest.Visibility, object digest.Digest) (Backend, Policy, error) {
	route, ok := d.routes[visibility]
	if !ok {
		return nil, Policy{}, &fault.Error{
			Kind:   fault.MissingCredentials,
			Digest: object.String(),
			Err:    fmt.Errorf("no remote configured for %s objects", visibility),
		}
	}
	if route.Unavailable != nil || route.Backend == nil {
		cause := route.Unavailable
		if cause == nil {
			cause = fmt.Errorf("no remote configured for %s objects", visibility)
		}
		return nil, Policy{}, &fault.Error{Kind: fault.MissingCredentials, Digest: object.String(), Err: cause}
	}
	return route.Backend, route.Policy, nil
}

// reader returns the backend serving reads for visibility.
func (d *Dispatcher) reader(visibility manifest.Visibility, object digest.Digest) (Backend, Policy, error) {
	if route, ok := d.routes[visibility]; ok && route.Reader != nil {
		return route.Reader, route.Policy, nil
	}
	return d.writer(visibility, object)
}

// Fetch downloads the object for object, verifies that it decompresses
// to content with that digest, and returns the compressed bytes.
// Content that does not verify is CorruptObject and is never returned.
func (d *Dispatcher) Fetch(ctx context.Context, visibility manifest.Visibility, object digest.Digest) ([]byte, error) {
	backend, policy, err := d.reader(visibility, object)
	if err != nil {
		return nil, err
	}
	key := Key(object)

	staging, err := os.CreateTemp(d.tempDir, ".vlfs-tmp-fetch-*")
	if err != nil {
		return nil, fmt.Errorf("staging download: %w", err)
	}
	stagingPath := staging.Name()
	staging.Close()
	defer os.Remove(stagingPath)

	err = retry(ctx, d.clock, policy, d.logger, d.describe(backend, "download", object), func() error {
		return backend.Download(ctx, key, stagingPath)
	})
	if err != nil {
		return nil, d.failed(backend, object, err)
	}

	compressed, err := os.ReadFile(stagingPath)
	if err != nil {
		return nil, fmt.Errorf("reading staged download: %w", err)
	}
	content, err := compress.Decompress(compressed)
	if err == nil && digest.Of(d.algorithm, content) != object {
		err = errors.New("downloaded content does not match digest")
	}
	if err != nil {
		d.logger.Error("remote object failed verification", "backend", backend.Name(), "digest", object.String(), "error", err)
		return nil, &fault.Error{Kind: fault.CorruptObject, Digest: object.String(), Backend: backend.Name(), Err: unwrapFault(err)}
	}
	d.logger.Debug("fetched object", "backend", backend.Name(), "digest", object.Short(), "bytes", len(compressed))
	return compressed, nil
}

// Upload copies the object file at objectPath to the remote serving
// visibility, unless the remote already has it. Reports whether bytes
// were sent.
func (d *Dispatcher) Upload(ctx context.Context, visibility manifest.Visibility, object digest.Digest, objectPath string) (bool, error) {
	backend, policy, err := d.writer(visibility, object)
	if err != nil {
		return false, err
	}
	key := Key(object)

	var exists bool
	err = retry(ctx, d.clock, policy, d.logger, d.describe(backend, "exists", object), func() error {
		var existsErr error
		exists, existsErr = backend.Exists(ctx, key)
		return existsErr
	})
	if err != nil {
		return false, d.failed(backend, object, err)
	}
	if exists {
		d.logger.Debug("object already on remote", "backend", backend.Name(), "digest", object.Short())
		return false, nil
	}

	err = retry(ctx, d.clock, policy, d.logger, d.describe(backend, "upload", object), func() error {
		return backend.Upload(ctx, objectPath, key)
	})
	if err != nil {
		return false, d.failed(backend, object, err)
	}
	d.logger.Debug("uploaded object", "backend", backend.Name(), "digest", object.Short())
	return true, nil
}

// Exists reports whether the remote serving visibility holds object.
// Public routes check through their reader when one is set, so no
// credentials are needed.
func (d *Dispatcher) Exists(ctx context.Context, visibility manifest.Visibility, object digest.Digest) (bool, error) {
	backend, policy, err := d.reader(visibility, object)
	if err != nil {
		return false, err
	}
	var exists bool
	err = retry(ctx, d.clock, policy, d.logger, d.describe(backend, "exists", object), func() error {
		var existsErr error
		exists, existsErr = backend.Exists(ctx, Key(object))
		return existsErr
	})
	if err != nil {
		return false, d.failed(backend, object, err)
	}
	return exists, nil
}

// Delete removes object from the remote serving visibility.
func (d *Dispatcher) Delete(ctx context.Context, visibility manifest.Visibility, object digest.Digest) error {
	backend, policy, err := d.writer(visibility, object)
	if err != nil {
		return err
	}
	err = retry(ctx, d.clock, policy, d.logger, d.describe(backend, "delete", object), func() error {
		return backend.Delete(ctx, Key(object))
	})
	if err != nil {
		return d.failed(backend, object, err)
	}
	return nil
}

func (d *Dispatcher) describe(backend Backend, operation string, object digest.Digest) func() []any {
	return func() []any {
		return []any{"backend", backend.Name(), "operation", operation, "digest", object.Short()}
	}
}

// failed converts a final transfer error into a fault Error.
// Cancellation passes through unchanged.
func (d *Dispatcher) failed(backend Backend, object digest.Digest, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &fault.Error{Kind: fault.TransferFailed, Digest: object.String(), Backend: backend.Name(), Err: err}
}

func unwrapFault(err error) error {
	var faultErr *fault.Error
	if errors.As(err, &faultErr) && faultErr.Err != nil {
		return faultErr.Err
	}
	return err
}
