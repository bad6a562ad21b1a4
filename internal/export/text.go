// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/aztr0nutzs/perplexity-bridge-pro/internal/history"
)

// =============================================================================
// TEXT EXPORTER
// =============================================================================

// TextExporter exports conversations as plain-text transcripts, matching
// the format the history archive prints in the terminal.
type TextExporter struct {
	options *Options
}

// NewTextExporter creates a new plain-text exporter.
func NewTextExporter(opts *Options) *TextExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &TextExporter{options: opts}
}

// Export converts a conversation to a plain-text transcript.
func (e *TextExporter) Export(entry history.Entry) ([]byte, error) {
	if len(entry.Messages) == 0 {
		return nil, fmt.Errorf("conversation has no messages")
	}

	var sb strings.Builder

	if e.options.IncludeMetadata {
		sb.WriteString("Conversation " + entry.ID + "\n")
		sb.WriteString("Created: " + entry.CreatedAt.Format(time.RFC3339) + "\n\n")
	}

	for _, msg := range entry.Messages {
		if e.options.IncludeTimestamps {
			fmt.Fprintf(&sb, "[%s] %s:\n%s\n\n",
				msg.Timestamp.Format("15:04:05"),
				strings.ToUpper(string(msg.Role)),
				msg.Content)
		} else {
			fmt.Fprintf(&sb, "%s:\n%s\n\n",
				strings.ToUpper(string(msg.Role)),
				msg.Content)
		}
	}

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for plain text.
func (e *TextExporter) FileExtension() string {
	return ".txt"
}

// MimeType returns the MIME type for plain text.
func (e *TextExporter) MimeType() string {
	return "text/plain"
}
