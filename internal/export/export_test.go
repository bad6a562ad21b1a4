// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aztr0nutzs/perplexity-bridge-pro/internal/history"
	"github.com/aztr0nutzs/perplexity-bridge-pro/internal/session"
)

func testEntry() history.Entry {
	created := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	return history.Entry{
		ID:        "entry-1",
		CreatedAt: created,
		Messages: []session.Message{
			{Role: session.RoleUser, Content: "What is a goroutine?", Timestamp: created},
			{Role: session.RoleAssistant, Content: "A lightweight thread managed by the Go runtime.", Timestamp: created.Add(2 * time.Second)},
		},
	}
}

func TestForFormat(t *testing.T) {
	cases := []struct {
		format  string
		wantExt string
		wantErr bool
	}{
		{"", ".txt", false},
		{"text", ".txt", false},
		{"txt", ".txt", false},
		{"markdown", ".md", false},
		{"md", ".md", false},
		{"json", ".json", false},
		{"pdf", "", true},
	}

	for _, tc := range cases {
		exp, err := ForFormat(tc.format, nil)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ForFormat(%q): expected error", tc.format)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ForFormat(%q): %v", tc.format, err)
		}
		if got := exp.FileExtension(); got != tc.wantExt {
			t.Errorf("ForFormat(%q): extension = %q, want %q", tc.format, got, tc.wantExt)
		}
	}
}

func TestTextExport(t *testing.T) {
	content, err := NewTextExporter(nil).Export(testEntry())
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	out := string(content)
	if !strings.Contains(out, "Conversation entry-1") {
		t.Errorf("missing header: %q", out)
	}
	if !strings.Contains(out, "USER:") || !strings.Contains(out, "ASSISTANT:") {
		t.Errorf("missing role labels: %q", out)
	}
	if !strings.Contains(out, "What is a goroutine?") {
		t.Errorf("missing message content: %q", out)
	}
}

func TestTextExportWithoutMetadata(t *testing.T) {
	opts := &Options{IncludeMetadata: false, IncludeTimestamps: false}
	content, err := NewTextExporter(opts).Export(testEntry())
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	out := string(content)
	if strings.Contains(out, "Conversation entry-1") {
		t.Errorf("metadata header should be omitted: %q", out)
	}
	if strings.Contains(out, "09:26:53") {
		t.Errorf("timestamps should be omitted: %q", out)
	}
}

func TestMarkdownExport(t *testing.T) {
	content, err := NewMarkdownExporter(nil).Export(testEntry())
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	out := string(content)
	if !strings.HasPrefix(out, "---\n") {
		t.Errorf("expected YAML frontmatter, got %q", out[:20])
	}
	if !strings.Contains(out, "id: entry-1") {
		t.Errorf("missing id in frontmatter: %q", out)
	}
	if !strings.Contains(out, "### [User]") || !strings.Contains(out, "### [Assistant]") {
		t.Errorf("missing role headings: %q", out)
	}
	if !strings.Contains(out, "## Conversation") {
		t.Errorf("missing conversation section: %q", out)
	}
}

func TestMarkdownExportEmptyEntry(t *testing.T) {
	if _, err := NewMarkdownExporter(nil).Export(history.Entry{}); err == nil {
		t.Error("expected error for empty entry")
	}
}

func TestJSONExportRoundTrip(t *testing.T) {
	entry := testEntry()
	content, err := NewJSONExporter(nil).Export(entry)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	var decoded history.Entry
	if err := json.Unmarshal(content, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.ID != entry.ID {
		t.Errorf("id = %q, want %q", decoded.ID, entry.ID)
	}
	if len(decoded.Messages) != 2 {
		t.Fatalf("messages = %d, want 2", len(decoded.Messages))
	}
	if decoded.Messages[1].Content != entry.Messages[1].Content {
		t.Errorf("content = %q, want %q", decoded.Messages[1].Content, entry.Messages[1].Content)
	}
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	opts := DefaultOptions()
	opts.OutputDir = dir

	path, err := WriteFile(testEntry(), NewMarkdownExporter(opts), opts)
	if err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if filepath.Ext(path) != ".md" {
		t.Errorf("extension = %q, want .md", filepath.Ext(path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(data), "What is a goroutine?") {
		t.Errorf("file missing content")
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"hello world", "hello_world"},
		{"a/b\\c:d", "a-b-c-d"},
		{"", "conversation"},
		{"what?", "what-"},
	}
	for _, tc := range cases {
		if got := sanitizeFilename(tc.in); got != tc.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
