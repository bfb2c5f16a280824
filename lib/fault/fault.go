// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package fault

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failure so callers can decide whether to retry,
// repair, or ask the user to intervene.
type Kind string

const (
	// CorruptObject means stored or fetched bytes do not decompress to
	// content matching their digest.
	CorruptObject Kind = "corrupt-object"

	// TransferFailed means a backend operation failed after every
	// retry was spent, or failed permanently.
	TransferFailed Kind = "transfer-failed"

	// ManifestInvalid means the manifest file is malformed. Every path
	// decision depends on it, so this aborts the whole operation.
	ManifestInvalid Kind = "manifest-invalid"

	// MissingCredentials means an operation needed a backend session
	// that is not configured or not authorized.
	MissingCredentials Kind = "missing-credentials"

	// LocalFileConflict means a working-tree file differs from its
	// manifest record and the operation would overwrite or delete it.
	LocalFileConflict Kind = "local-file-conflict"

	// LocalIO means reading or writing the working tree or the local
	// cache failed. No backend was involved.
	LocalIO Kind = "local-io"
)

// Error makes a Kind usable as an errors.Is target.
func (k Kind) Error() string { return string(k) }

// Error is a failure concerning one tracked path or object.
type Error struct {
	Kind Kind

	// Path is the repository-relative path, when the failure concerns
	// a tracked file.
	Path string

	// Digest is the hex digest of the object involved, if any.
	Digest string

	// Backend names the remote that was being talked to, if any.
	Backend string

	// Err is the underlying cause.
	Err error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Path != "" {
		b.WriteString(" ")
		b.WriteString(e.Path)
	}
	var context []string
	if e.Backend != "" {
		context = append(context, "backend "+e.Backend)
	}
	if e.Digest != "" {
		context = append(context, "object "+short(e.Digest))
	}
	if len(context) > 0 {
		b.WriteString(" (")
		b.WriteString(strings.Join(context, ", "))
		b.WriteString(")")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is this error's Kind.
func (e *Error) Is(target error) bool {
	kind, ok := target.(Kind)
	return ok && kind == e.Kind
}

// New returns an Error of the given kind with a formatted cause.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// Wrap returns an Error of the given kind around err. If err already
// is a fault Error it is returned unchanged: the kind assigned closest
// to the failure wins.
func Wrap(kind Kind, err error) *Error {
	var existing *Error
	if errors.As(err, &existing) {
		return existing
	}
	return &Error{Kind: kind, Err: err}
}

// WithPath returns err annotated with path. Errors that are not a fault
// Error are wrapped with kind fallback.
func WithPath(err error, fallback Kind, path string) *Error {
	var existing *Error
	if errors.As(err, &existing) {
		annotated := *existing
		if annotated.Path == "" {
			annotated.Path = path
		}
		return &annotated
	}
	return &Error{Kind: fallback, Path: path, Err: err}
}

// KindOf returns the Kind carried by err, or "" if it has none.
func KindOf(err error) Kind {
	var faultErr *Error
	if errors.As(err, &faultErr) {
		return faultErr.Kind
	}
	var kind Kind
	if errors.As(err, &kind) {
		return kind
	}
	return ""
}

func short(digest string) string {
	if len(digest) > 12 {
		return digest[:12]
	}
	return digest
}
