// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"fmt"

	"github.com/aztr0nutzs/perplexity-bridge-pro/internal/history"
)

// =============================================================================
// JSON EXPORTER
// =============================================================================

// JSONExporter emits the archived entry verbatim as indented JSON. The
// filtering options are ignored so the output stays a faithful copy of
// the stored data and can be re-imported.
type JSONExporter struct {
	options *Options
}

// NewJSONExporter creates a new JSON exporter. The options parameter is
// accepted for consistency with the other exporters.
func NewJSONExporter(opts *Options) *JSONExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &JSONExporter{options: opts}
}

// Export encodes the complete entry.
func (e *JSONExporter) Export(entry history.Entry) ([]byte, error) {
	if len(entry.Messages) == 0 {
		return nil, fmt.Errorf("conversation has no messages")
	}
	return json.MarshalIndent(entry, "", "  ")
}

// FileExtension returns the file extension for JSON.
func (e *JSONExporter) FileExtension() string {
	return ".json"
}

// MimeType returns the MIME type for JSON.
func (e *JSONExporter) MimeType() string {
	return "application/json"
}
