// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export renders archived conversations to shareable formats.
// Text, Markdown, and JSON exporters implement a common interface so the
// CLI can pick one by name.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aztr0nutzs/perplexity-bridge-pro/internal/history"
)

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter converts an archived conversation to an output format.
type Exporter interface {
	// Export renders the entry and returns the encoded content.
	Export(entry history.Entry) ([]byte, error)

	// FileExtension returns the extension for the format (e.g. ".md").
	FileExtension() string

	// MimeType returns the MIME type of the exported format.
	MimeType() string
}

// ForFormat returns the exporter for a format name. Plain text is the
// default.
func ForFormat(format string, opts *Options) (Exporter, error) {
	switch format {
	case "", "text", "txt":
		return NewTextExporter(opts), nil
	case "markdown", "md":
		return NewMarkdownExporter(opts), nil
	case "json":
		return NewJSONExporter(opts), nil
	}
	return nil, fmt.Errorf("unknown export format: %s", format)
}

// =============================================================================
// EXPORT OPTIONS
// =============================================================================

// Options configures export behavior.
type Options struct {
	// OutputDir is the directory where files are written.
	// Default: current working directory
	OutputDir string

	// IncludeMetadata includes a header with id, timestamps, and counts.
	IncludeMetadata bool

	// IncludeTimestamps includes per-message timestamps.
	IncludeTimestamps bool
}

// DefaultOptions returns default export options.
func DefaultOptions() *Options {
	return &Options{
		OutputDir:         ".",
		IncludeMetadata:   true,
		IncludeTimestamps: true,
	}
}

// =============================================================================
// FILE OUTPUT
// =============================================================================

// WriteFile exports an entry to a file and returns the output path. The
// filename combines the first user message with the current time, so
// repeated exports of one conversation never collide.
func WriteFile(entry history.Entry, exporter Exporter, opts *Options) (string, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	content, err := exporter.Export(entry)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}

	name := fmt.Sprintf("conversation_%s_%s%s",
		sanitizeFilename(entry.Preview(40)),
		time.Now().Format("20060102_150405"),
		exporter.FileExtension())

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	path := filepath.Join(opts.OutputDir, name)
	if err := os.WriteFile(path, content, 0644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return path, nil
}

// sanitizeFilename maps characters that are invalid in filenames on any
// supported platform to safe replacements and bounds the length.
func sanitizeFilename(s string) string {
	const maxLen = 50
	if runes := []rune(s); len(runes) > maxLen {
		s = string(runes[:maxLen])
	}

	out := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '-'
		case ' ', '\t', '\n', '\r':
			return '_'
		}
		if r < 32 || r == 127 {
			return '-'
		}
		return r
	}, s)

	if out == "" {
		return "conversation"
	}
	return out
}
