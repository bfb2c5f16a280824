// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/bureau-foundation/vlfs/cmd/vlfs/cli"
)

// Color modes accepted by --color.
const (
	colorAuto   = "auto"
	colorAlways = "always"
	colorNever  = "never"
)

// palette holds the styles for status categories.
type palette struct {
	clean     lipgloss.Style
	modified  lipgloss.Style
	missing   lipgloss.Style
	untracked lipgloss.Style
	dim       lipgloss.Style
}

// colorProfile resolves a --color mode. Auto enables color only when w
// is a terminal and neither NO_COLOR nor CI is set.
func (env *Environment) colorProfile(mode string, w io.Writer) (termenv.Profile, error) {
	switch mode {
	case colorNever:
		return termenv.Ascii, nil
	case colorAlways:
		return termenv.ANSI256, nil
	case colorAuto, "":
		if env.getenv("NO_COLOR") != "" || env.getenv("CI") != "" {
			return termenv.Ascii, nil
		}
		file, ok := w.(*os.File)
		if !ok || !cli.IsTerminal(file) {
			return termenv.Ascii, nil
		}
		return termenv.ANSI256, nil
	}
	return termenv.Ascii, cli.Validation("--color must be %s, %s or %s, not %q", colorAuto, colorAlways, colorNever, mode)
}

func newPalette(w io.Writer, profile termenv.Profile) palette {
	renderer := lipgloss.NewRenderer(w, termenv.WithProfile(profile))
	renderer.SetColorProfile(profile)
	return palette{
		clean:     renderer.NewStyle().Foreground(lipgloss.Color("2")),
		modified:  renderer.NewStyle().Foreground(lipgloss.Color("3")).Bold(true),
		missing:   renderer.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		untracked: renderer.NewStyle().Foreground(lipgloss.Color("6")),
		dim:       renderer.NewStyle().Faint(true),
	}
}

func (p palette) render(style lipgloss.Style, format string, args ...any) string {
	return style.Render(fmt.Sprintf(format, args...))
}
