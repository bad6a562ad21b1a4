// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/aztr0nutzs/perplexity-bridge-pro/internal/history"
	"github.com/aztr0nutzs/perplexity-bridge-pro/internal/session"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter renders a conversation as a Markdown document with
// optional YAML frontmatter.
type MarkdownExporter struct {
	options *Options
}

// NewMarkdownExporter creates a new Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{options: opts}
}

// Export converts a conversation to Markdown format.
func (e *MarkdownExporter) Export(entry history.Entry) ([]byte, error) {
	if len(entry.Messages) == 0 {
		return nil, fmt.Errorf("conversation has no messages")
	}

	title := entry.Preview(60)
	var sb strings.Builder

	if e.options.IncludeMetadata {
		e.writeFrontmatter(&sb, entry, title)
	}

	fmt.Fprintf(&sb, "# %s\n\n", escapeMarkdown(title))

	if e.options.IncludeMetadata {
		sb.WriteString("## Session Information\n\n")
		fmt.Fprintf(&sb, "- **Saved**: %s\n", entry.CreatedAt.Format("2006-01-02 15:04:05"))
		fmt.Fprintf(&sb, "- **Messages**: %d\n", len(entry.Messages))
		sb.WriteString("\n---\n\n")
	}

	sb.WriteString("## Conversation\n\n")
	for i, msg := range entry.Messages {
		if i > 0 {
			sb.WriteString("---\n\n")
		}
		e.writeMessage(&sb, msg)
	}

	fmt.Fprintf(&sb, "\n---\n\n*Exported on %s*\n",
		time.Now().Format("January 2, 2006 at 3:04 PM"))

	return []byte(sb.String()), nil
}

func (e *MarkdownExporter) writeFrontmatter(sb *strings.Builder, entry history.Entry, title string) {
	sb.WriteString("---\n")
	fmt.Fprintf(sb, "title: %s\n", escapeYAML(title))
	fmt.Fprintf(sb, "id: %s\n", entry.ID)
	fmt.Fprintf(sb, "date: %s\n", entry.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(sb, "messages: %d\n", len(entry.Messages))
	fmt.Fprintf(sb, "exported: %s\n", time.Now().Format(time.RFC3339))
	sb.WriteString("generator: perplexity-bridge-pro\n")
	sb.WriteString("---\n\n")
}

func (e *MarkdownExporter) writeMessage(sb *strings.Builder, msg session.Message) {
	heading := roleHeading(msg.Role)
	if e.options.IncludeTimestamps {
		fmt.Fprintf(sb, "### %s <sub>%s</sub>\n\n", heading, msg.Timestamp.Format("15:04:05"))
	} else {
		fmt.Fprintf(sb, "### %s\n\n", heading)
	}

	// Message content is already markdown-shaped
	sb.WriteString(strings.TrimSpace(msg.Content))
	sb.WriteString("\n\n")
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// MimeType returns the MIME type for Markdown.
func (e *MarkdownExporter) MimeType() string {
	return "text/markdown"
}

// =============================================================================
// FORMATTING HELPERS
// =============================================================================

// roleHeading returns the section heading for a message role.
func roleHeading(role session.Role) string {
	switch role {
	case session.RoleUser:
		return "[User]"
	case session.RoleAssistant:
		return "[Assistant]"
	case session.RoleSystem:
		return "[System]"
	}
	if role == "" {
		return "Unknown"
	}
	runes := []rune(string(role))
	return strings.ToUpper(string(runes[0])) + string(runes[1:])
}

// escapeMarkdown escapes characters that would break headings.
func escapeMarkdown(s string) string {
	r := strings.NewReplacer(
		"#", "\\#",
		"*", "\\*",
		"_", "\\_",
		"[", "\\[",
		"]", "\\]",
	)
	return r.Replace(s)
}

// escapeYAML quotes and escapes values containing YAML metacharacters.
func escapeYAML(s string) string {
	if !strings.ContainsAny(s, ":#|>@`\"'[]{}!%&*\n\r\\") &&
		!strings.HasPrefix(s, " ") && !strings.HasSuffix(s, " ") {
		return s
	}
	r := strings.NewReplacer(
		"\\", "\\\\",
		"\"", "\\\"",
		"\n", "\\n",
		"\r", "\\r",
	)
	return fmt.Sprintf("\"%s\"", r.Replace(s))
}
