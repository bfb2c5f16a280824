// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli is the command-line framework for vlfs.
//
// [Command] is a named command with optional subcommands, a lazily
// built [pflag.FlagSet], and a Run function receiving a context and a
// logger. [FlagsFromParams] builds that flag set from a tagged params
// struct, and [JSONOutput] adds a --json mode to it. Unknown commands
// and flags get a "did you mean" suggestion by edit distance.
//
// Errors cross the CLI surface as [ToolError] (categorized) or
// [ExitError] (an explicit code). [ExitCode] maps any error returned by
// a command onto the process exit status: 2 for usage errors, 1 for
// everything else.
package cli
