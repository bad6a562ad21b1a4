// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestAppendAndLen(t *testing.T) {
	conv := NewConversation()
	if conv.Len() != 0 {
		t.Fatalf("new conversation length = %d, want 0", conv.Len())
	}

	msg := conv.Append(RoleUser, "hello")
	if msg.Role != RoleUser || msg.Content != "hello" {
		t.Errorf("appended message = %+v", msg)
	}
	if msg.Timestamp.IsZero() {
		t.Error("appended message has zero timestamp")
	}
	if conv.Len() != 1 {
		t.Errorf("length = %d, want 1", conv.Len())
	}
}

func TestAppendDeltaGrowsLastMessage(t *testing.T) {
	conv := NewConversation()
	conv.Append(RoleUser, "question")
	conv.Append(RoleAssistant, "")

	conv.AppendDelta("Hel")
	conv.AppendDelta("lo")

	if got := conv.LastContent(); got != "Hello" {
		t.Errorf("LastContent = %q, want %q", got, "Hello")
	}
	// The user message is untouched
	if got := conv.Messages()[0].Content; got != "question" {
		t.Errorf("first message = %q, want %q", got, "question")
	}
}

func TestAppendDeltaOnEmptyConversationIsDropped(t *testing.T) {
	conv := NewConversation()
	conv.AppendDelta("lost")
	if conv.Len() != 0 {
		t.Errorf("length = %d, want 0", conv.Len())
	}
}

func TestSetLastContent(t *testing.T) {
	conv := NewConversation()
	conv.Append(RoleAssistant, "partial")
	conv.SetLastContent("replaced")
	if got := conv.LastContent(); got != "replaced" {
		t.Errorf("LastContent = %q, want %q", got, "replaced")
	}
}

func TestLastContentEmpty(t *testing.T) {
	if got := NewConversation().LastContent(); got != "" {
		t.Errorf("LastContent on empty = %q, want empty", got)
	}
}

func TestReplaceKeepsTimestamps(t *testing.T) {
	conv := NewConversation()
	conv.Append(RoleUser, "old")

	stamp := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	restored := []Message{
		{Role: RoleUser, Content: "first", Timestamp: stamp},
		{Role: RoleAssistant, Content: "second", Timestamp: stamp.Add(time.Second)},
	}
	conv.Replace(restored)

	got := conv.Messages()
	if len(got) != 2 {
		t.Fatalf("length = %d, want 2", len(got))
	}
	if !got[0].Timestamp.Equal(stamp) {
		t.Errorf("timestamp = %v, want %v", got[0].Timestamp, stamp)
	}

	// Mutating the input slice afterwards must not leak in
	restored[0].Content = "mutated"
	if conv.Messages()[0].Content != "first" {
		t.Error("Replace did not copy the input slice")
	}
}

func TestClear(t *testing.T) {
	conv := NewConversation()
	conv.Append(RoleUser, "one")
	conv.Append(RoleAssistant, "two")
	conv.Clear()
	if conv.Len() != 0 {
		t.Errorf("length after Clear = %d, want 0", conv.Len())
	}
}

func TestMessagesSnapshotIsIndependent(t *testing.T) {
	conv := NewConversation()
	conv.Append(RoleAssistant, "original")

	snap := conv.Messages()
	conv.SetLastContent("changed")

	if snap[0].Content != "original" {
		t.Errorf("snapshot content = %q, want %q", snap[0].Content, "original")
	}
}

func TestOnChangeFiresPerMutation(t *testing.T) {
	conv := NewConversation()

	var mu sync.Mutex
	calls := 0
	conv.OnChange(func() {
		mu.Lock()
		calls++
		mu.Unlock()
	})

	conv.Append(RoleUser, "a")
	conv.AppendDelta("b")
	conv.SetLastContent("c")
	conv.Replace(nil)
	conv.Clear()

	mu.Lock()
	defer mu.Unlock()
	if calls != 5 {
		t.Errorf("onChange fired %d times, want 5", calls)
	}
}

func TestConcurrentAppends(t *testing.T) {
	conv := NewConversation()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			conv.Append(RoleUser, fmt.Sprintf("msg-%d", n))
		}(i)
	}
	wg.Wait()

	if conv.Len() != 20 {
		t.Errorf("length = %d, want 20", conv.Len())
	}
}
