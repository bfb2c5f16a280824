// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrNotInteractive is returned by Confirm when stdin is not a
// terminal.
var ErrNotInteractive = errors.New("confirmation needed but stdin is not a terminal")

// Prompter asks yes/no questions. The zero value is not usable; use
// [TerminalPrompter].
type Prompter struct {
	In          io.Reader
	Out         io.Writer
	Interactive bool
}

// TerminalPrompter prompts on stderr and reads stdin, and is only
// interactive when stdin is a terminal.
func TerminalPrompter() *Prompter {
	return &Prompter{In: os.Stdin, Out: os.Stderr, Interactive: IsTerminal(os.Stdin)}
}

// Confirm asks question and reports whether the answer was yes.
func (p *Prompter) Confirm(question string) (bool, error) {
	if !p.Interactive {
		return false, ErrNotInteractive
	}
	fmt.Fprintf(p.Out, "%s [y/N] ", question)
	answer, err := bufio.NewReader(p.In).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}
