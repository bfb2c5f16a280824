// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transfer

import (
	"context"
	"errors"
)

// Backend stores objects under string keys.
type Backend interface {
	// Name identifies the remote in logs and errors.
	Name() string

	// Download writes the object at key to the local file dst,
	// replacing it.
	Download(ctx context.Context, key, dst string) error

	// Upload copies the local file src to key.
	Upload(ctx context.Context, src, key string) error

	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// ErrNotFound is returned by Download when the key does not exist.
var ErrNotFound = errors.New("object not found on remote")

// ErrReadOnly is returned by backends that cannot write.
var ErrReadOnly = errors.New("remote is read-only")

// ErrRateLimited marks failures the remote attributed to request
// quotas. They are retried like any other transient failure.
var ErrRateLimited = errors.New("rate limited")

// permanentError marks a failure that retrying cannot fix.
type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so the dispatcher does not retry it.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err should not be retried: it was marked
// Permanent, is a missing key, a read-only refusal, or a cancellation.
func IsPermanent(err error) bool {
	var permanent *permanentError
	switch {
	case errors.As(err, &permanent):
		return true
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrReadOnly):
		return true
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return true
	}
	return false
}
