// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// terminal.go - Terminal detection and color control for texbench.
//
// Colors are decided once per process from, in order:
//   - NO_COLOR (any non-empty value disables colors)
//   - FORCE_COLOR (any non-empty value enables colors)
//   - the --color flag / output.color setting ("always", "never", "auto")
//   - whether stdout is a terminal

package cli

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// =============================================================================
// TTY DETECTION
// =============================================================================

// IsStdoutTTY returns true if stdout is a terminal.
func IsStdoutTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// IsStderrTTY returns true if stderr is a terminal.
func IsStderrTTY() bool {
	return term.IsTerminal(int(os.Stderr.Fd()))
}

const (
	// DefaultTerminalWidth is the fallback width when detection fails.
	DefaultTerminalWidth = 80

	// MinTerminalWidth is the narrowest width used for previews.
	MinTerminalWidth = 40
)

// GetTerminalWidth returns the stdout terminal width, or
// DefaultTerminalWidth when it cannot be determined.
func GetTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return DefaultTerminalWidth
	}
	if width < MinTerminalWidth {
		return MinTerminalWidth
	}
	return width
}

// =============================================================================
// COLOR OUTPUT CONTROL
// =============================================================================

// ColorsEnabled decides whether styled output should carry ANSI colors for
// the given mode ("auto", "always" or "never").
func ColorsEnabled(mode string) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if os.Getenv("FORCE_COLOR") != "" {
		return true
	}
	switch strings.ToLower(mode) {
	case "always":
		return true
	case "never":
		return false
	default:
		return IsStdoutTTY()
	}
}

// GetColorProfile returns the termenv profile for the given mode.
// Ascii means no colors at all.
func GetColorProfile(mode string) termenv.Profile {
	if !ColorsEnabled(mode) {
		return termenv.Ascii
	}
	if p := termenv.ColorProfile(); p != termenv.Ascii {
		return p
	}
	// Forced colors on a non-terminal: termenv reports Ascii, use 256 colors.
	return termenv.ANSI256
}

// ConfigureColors applies the color mode to every lipgloss style.
func ConfigureColors(mode string) {
	lipgloss.SetColorProfile(GetColorProfile(mode))
}
