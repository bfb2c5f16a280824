// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"errors"
	"fmt"

	"github.com/bureau-foundation/vlfs/lib/fault"
)

// ErrorCategory classifies a command failure so scripts reading --json
// output can decide whether to retry, fix input, or escalate.
type ErrorCategory string

const (
	// CategoryValidation: bad arguments or flags. Exit code 2.
	CategoryValidation ErrorCategory = "validation"

	// CategoryNotFound: a named path or object does not exist.
	CategoryNotFound ErrorCategory = "not_found"

	// CategoryForbidden: credentials are missing or rejected.
	CategoryForbidden ErrorCategory = "forbidden"

	// CategoryConflict: the working tree disagrees with the manifest.
	CategoryConflict ErrorCategory = "conflict"

	// CategoryTransient: a transfer failed; retrying may help.
	CategoryTransient ErrorCategory = "transient"

	// CategoryIntegrity: stored bytes or the manifest are corrupt.
	CategoryIntegrity ErrorCategory = "integrity"

	// CategoryInternal: anything else.
	CategoryInternal ErrorCategory = "internal"
)

// ToolError is a categorized command error. It wraps the underlying
// error so errors.Is and errors.As still see the cause.
type ToolError struct {
	Category ErrorCategory
	Err      error
}

func (e *ToolError) Error() string { return e.Err.Error() }

func (e *ToolError) Unwrap() error { return e.Err }

// Validation returns a usage error.
func Validation(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryValidation, Err: fmt.Errorf(format, args...)}
}

// NotFound returns a not-found error.
func NotFound(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryNotFound, Err: fmt.Errorf(format, args...)}
}

// Conflict returns a conflict error.
func Conflict(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryConflict, Err: fmt.Errorf(format, args...)}
}

// Internal returns an internal error.
func Internal(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryInternal, Err: fmt.Errorf(format, args...)}
}

// Categorize returns the category of err: its own when it is a
// ToolError, otherwise derived from its fault kind.
func Categorize(err error) ErrorCategory {
	var toolErr *ToolError
	if errors.As(err, &toolErr) {
		return toolErr.Category
	}
	switch fault.KindOf(err) {
	case fault.LocalFileConflict:
		return CategoryConflict
	case fault.MissingCredentials:
		return CategoryForbidden
	case fault.TransferFailed:
		return CategoryTransient
	case fault.CorruptObject, fault.ManifestInvalid:
		return CategoryIntegrity
	}
	return CategoryInternal
}
