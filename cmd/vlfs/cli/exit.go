// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"errors"
	"fmt"
)

// Exit codes.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
)

// ExitError makes the process exit with Code without printing
// anything further; the command has already reported (for example
// verify findings, or a pull with failed paths).
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit code %d", e.Code)
}

// ExitCode returns the exit code.
func (e *ExitError) ExitCode() int {
	return e.Code
}

// ExitCode maps an error returned by [Command.Execute] onto the
// process exit status, and reports whether the error still needs to
// be printed.
func ExitCode(err error) (code int, report bool) {
	if err == nil {
		return ExitOK, false
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code, false
	}
	if Categorize(err) == CategoryValidation {
		return ExitUsage, true
	}
	return ExitFailure, true
}
