// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package history provides the bounded archive of finished conversations.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-runewidth"

	"github.com/aztr0nutzs/perplexity-bridge-pro/internal/session"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// maxEntries bounds the archive, newest first. Inserting past the cap
	// evicts the oldest entry.
	maxEntries = 100

	// storeKey is the store name for the serialized archive.
	storeKey = "history"
)

// ErrNotFound is returned when an entry id does not exist.
var ErrNotFound = errors.New("history entry not found")

// =============================================================================
// ENTRY
// =============================================================================

// Entry is one archived conversation. Its message list is an independent
// snapshot; later mutation of the live conversation never alters it.
type Entry struct {
	ID        string            `json:"id"`
	Messages  []session.Message `json:"messages"`
	CreatedAt time.Time         `json:"createdAt"`
}

// Preview returns the first user message truncated for list display.
func (e Entry) Preview(width int) string {
	for _, msg := range e.Messages {
		if msg.Role == session.RoleUser && msg.Content != "" {
			line := strings.ReplaceAll(msg.Content, "\n", " ")
			return runewidth.Truncate(line, width, "...")
		}
	}
	return "(empty)"
}

// =============================================================================
// STORE ACCESS
// =============================================================================

// KV is the slice of the key/value store the archive needs.
type KV interface {
	Get(name string) (string, bool, error)
	Set(name, value string) error
}

// =============================================================================
// ARCHIVE
// =============================================================================

// Archive is the bounded, persisted conversation history.
// Entries are ordered newest first. Safe for concurrent use; the
// auto-save path reaches it from the stream read goroutine while the UI
// goroutine lists and edits entries.
type Archive struct {
	mu      sync.RWMutex
	st      KV
	entries []Entry
}

// NewArchive creates an archive bound to the given store.
func NewArchive(st KV) *Archive {
	return &Archive{st: st}
}

// Load restores the archive from the store. A corrupt or missing value
// starts empty rather than failing.
func (a *Archive) Load() error {
	raw, ok, err := a.st.Get(storeKey)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if !ok {
		return nil
	}

	var entries []Entry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		a.entries = nil
		return nil
	}
	a.entries = entries
	return nil
}

// Save archives a message snapshot. An empty conversation is a no-op and
// returns false. The entry is prepended, the archive truncated to the cap,
// and persisted before Save returns.
func (a *Archive) Save(messages []session.Message) (Entry, bool, error) {
	if len(messages) == 0 {
		return Entry{}, false, nil
	}

	snapshot := make([]session.Message, len(messages))
	copy(snapshot, messages)

	entry := Entry{
		ID:        uuid.NewString(),
		Messages:  snapshot,
		CreatedAt: time.Now(),
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append([]Entry{entry}, a.entries...)
	if len(a.entries) > maxEntries {
		a.entries = a.entries[:maxEntries]
	}

	if err := a.persist(); err != nil {
		return Entry{}, false, err
	}
	return entry, true, nil
}

// List returns the archived entries, newest first.
func (a *Archive) List() []Entry {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]Entry, len(a.entries))
	copy(out, a.entries)
	return out
}

// Get retrieves an entry by id.
func (a *Archive) Get(id string) (Entry, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for _, e := range a.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return Entry{}, ErrNotFound
}

// Delete removes an entry by id and persists.
func (a *Archive) Delete(id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i, e := range a.entries {
		if e.ID == id {
			a.entries = append(a.entries[:i], a.entries[i+1:]...)
			return a.persist()
		}
	}
	return ErrNotFound
}

// Clear removes all entries and persists.
func (a *Archive) Clear() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = nil
	return a.persist()
}

// Len returns the number of archived entries.
func (a *Archive) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.entries)
}

// persist serializes the archive to the store. Callers hold a.mu.
func (a *Archive) persist() error {
	data, err := json.Marshal(a.entries)
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}
	if err := a.st.Set(storeKey, string(data)); err != nil {
		return fmt.Errorf("failed to persist history: %w", err)
	}
	return nil
}

// =============================================================================
// EXPORT
// =============================================================================

// ExportText renders one entry as a plain-text transcript.
func (e Entry) ExportText() string {
	var sb strings.Builder
	sb.WriteString("Conversation " + e.ID + "\n")
	sb.WriteString("Created: " + e.CreatedAt.Format(time.RFC3339) + "\n\n")

	for _, msg := range e.Messages {
		sb.WriteString(fmt.Sprintf("[%s] %s:\n%s\n\n",
			msg.Timestamp.Format("15:04:05"), strings.ToUpper(string(msg.Role)), msg.Content))
	}
	return sb.String()
}

// ExportAll renders every archived entry as one transcript document.
func (a *Archive) ExportAll() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if len(a.entries) == 0 {
		return "No conversations saved.\n"
	}

	var sb strings.Builder
	for i, e := range a.entries {
		if i > 0 {
			sb.WriteString(strings.Repeat("=", 60) + "\n\n")
		}
		sb.WriteString(e.ExportText())
	}
	return sb.String()
}
