// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session owns the active conversation: the ordered message list
// every transport reads from and writes into.
package session

import (
	"sync"
	"time"
)

// =============================================================================
// MESSAGE
// =============================================================================

// Role identifies the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single conversation entry. Messages are immutable once
// complete; the one exception is the in-flight assistant message during
// streaming, whose content grows until the stream terminates.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// =============================================================================
// CONVERSATION
// =============================================================================

// Conversation is the ordered message list for the active chat.
// Exactly one conversation is active at a time. Safe for concurrent use.
type Conversation struct {
	mu       sync.RWMutex
	messages []Message

	// onChange is invoked after every mutation so the rendering layer can
	// re-pull state. May be nil.
	onChange func()
}

// NewConversation creates an empty conversation.
func NewConversation() *Conversation {
	return &Conversation{}
}

// OnChange registers a callback fired after every mutation.
func (c *Conversation) OnChange(fn func()) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

// Append adds a new message with a fresh timestamp and returns it.
// Appending to an empty conversation is valid.
func (c *Conversation) Append(role Role, content string) Message {
	c.mu.Lock()
	msg := Message{Role: role, Content: content, Timestamp: time.Now()}
	c.messages = append(c.messages, msg)
	fn := c.onChange
	c.mu.Unlock()

	if fn != nil {
		fn()
	}
	return msg
}

// AppendDelta appends delta to the content of the most recent message.
// Used only while streaming into the assistant placeholder. A delta on an
// empty conversation is dropped.
func (c *Conversation) AppendDelta(delta string) {
	c.mu.Lock()
	if len(c.messages) == 0 {
		c.mu.Unlock()
		return
	}
	c.messages[len(c.messages)-1].Content += delta
	fn := c.onChange
	c.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// SetLastContent replaces the content of the most recent message.
func (c *Conversation) SetLastContent(content string) {
	c.mu.Lock()
	if len(c.messages) == 0 {
		c.mu.Unlock()
		return
	}
	c.messages[len(c.messages)-1].Content = content
	fn := c.onChange
	c.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// LastContent returns the content of the most recent message, or "" when
// the conversation is empty.
func (c *Conversation) LastContent() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.messages) == 0 {
		return ""
	}
	return c.messages[len(c.messages)-1].Content
}

// Replace swaps in a full message list, keeping the given timestamps.
// Used when restoring an archived conversation.
func (c *Conversation) Replace(messages []Message) {
	c.mu.Lock()
	c.messages = make([]Message, len(messages))
	copy(c.messages, messages)
	fn := c.onChange
	c.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// Clear empties the conversation.
func (c *Conversation) Clear() {
	c.mu.Lock()
	c.messages = nil
	fn := c.onChange
	c.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// Len returns the number of messages.
func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.messages)
}

// Messages returns an independent snapshot of the message list. Later
// mutation of the conversation never alters a returned snapshot.
func (c *Conversation) Messages() []Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}
