// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// terminal.go - Terminal detection and handling.
//
// TTY detection drives output decisions across the CLI: interactive
// terminals get colors, prompts, and markdown rendering; piped output
// stays plain so it can be post-processed. NO_COLOR is respected.

package cli

import (
	"os"
	"sync"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

const (
	// DefaultTerminalWidth is the fallback width when detection fails.
	DefaultTerminalWidth = 80

	// MinTerminalWidth is the narrowest width used for wrapping.
	MinTerminalWidth = 40
)

// IsTTY reports whether stdin is a terminal. Interactive prompts require
// this.
func IsTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// IsStdoutTTY reports whether stdout is a terminal. Colored and rendered
// output requires this.
func IsStdoutTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// GetTerminalWidth returns the current terminal width, clamped to
// MinTerminalWidth, or DefaultTerminalWidth when it cannot be determined.
func GetTerminalWidth() int {
	w, _ := GetTerminalSize()
	return w
}

// GetTerminalSize returns the terminal width and height, with 80x24
// defaults when detection fails.
func GetTerminalSize() (width, height int) {
	w, h, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 || h <= 0 {
		return DefaultTerminalWidth, 24
	}
	if w < MinTerminalWidth {
		w = MinTerminalWidth
	}
	return w, h
}

// =============================================================================
// COLOR OUTPUT CONTROL
// =============================================================================

var colorMode struct {
	once    sync.Once
	enabled bool
}

// ColorsEnabled reports whether colored output should be used. NO_COLOR
// (https://no-color.org/) wins over FORCE_COLOR, which wins over TTY
// detection.
func ColorsEnabled() bool {
	colorMode.once.Do(func() {
		switch {
		case os.Getenv("NO_COLOR") != "":
			colorMode.enabled = false
		case os.Getenv("FORCE_COLOR") != "":
			colorMode.enabled = true
		default:
			colorMode.enabled = IsStdoutTTY()
		}
	})
	return colorMode.enabled
}

// GetColorProfile returns the termenv profile to use: Ascii when colors
// are off, auto-detected otherwise.
func GetColorProfile() termenv.Profile {
	if !ColorsEnabled() {
		return termenv.Ascii
	}
	return termenv.ColorProfile()
}
