// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stats tracks running usage counters and a bounded activity log.
package stats

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// maxActivities bounds the activity log, newest first.
	maxActivities = 50

	// storeKey is the store name for the serialized snapshot.
	storeKey = "stats"
)

// =============================================================================
// TYPES
// =============================================================================

// Activity is one completed exchange in the activity log.
type Activity struct {
	Time         time.Time `json:"time"`
	ResponseTime float64   `json:"responseTime"` // seconds
	Tokens       int       `json:"tokens"`
}

// Snapshot is the full statistics state.
//
// TotalTokens is an estimate derived from character counts, not a
// tokenizer count; callers must not treat it as exact.
type Snapshot struct {
	TotalRequests int        `json:"totalRequests"`
	TotalMessages int        `json:"totalMessages"`
	TotalTokens   int        `json:"totalTokens"`
	TotalTime     float64    `json:"totalTime"` // seconds
	Activities    []Activity `json:"activities"`
}

// =============================================================================
// STORE ACCESS
// =============================================================================

// KV is the slice of the key/value store the tracker needs.
type KV interface {
	Get(name string) (string, bool, error)
	Set(name, value string) error
}

// =============================================================================
// TRACKER
// =============================================================================

// Tracker owns the statistics state and flushes it to the store after
// every mutation. Safe for concurrent use.
type Tracker struct {
	mu   sync.RWMutex
	st   KV
	snap Snapshot
}

// NewTracker creates a tracker bound to the given store.
func NewTracker(st KV) *Tracker {
	return &Tracker{st: st}
}

// Load restores the snapshot from the store. A corrupt or missing value
// starts from zero rather than failing.
func (t *Tracker) Load() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	raw, ok, err := t.st.Get(storeKey)
	if err != nil {
		return fmt.Errorf("failed to load stats: %w", err)
	}
	if !ok {
		return nil
	}

	var snap Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		// Corrupt persisted stats reset to zero
		t.snap = Snapshot{}
		return nil
	}
	t.snap = snap
	return nil
}

// Record registers one completed exchange: the request, its user and
// assistant messages, the estimated tokens of the response, and the
// elapsed time. The snapshot is persisted before Record returns.
func (t *Tracker) Record(responseTime time.Duration, contentLength int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	seconds := responseTime.Seconds()
	tokens := EstimateTokens(contentLength)

	t.snap.TotalRequests++
	t.snap.TotalMessages += 2 // one user, one assistant
	t.snap.TotalTokens += tokens
	t.snap.TotalTime += seconds

	activity := Activity{Time: time.Now(), ResponseTime: seconds, Tokens: tokens}
	t.snap.Activities = append([]Activity{activity}, t.snap.Activities...)
	if len(t.snap.Activities) > maxActivities {
		t.snap.Activities = t.snap.Activities[:maxActivities]
	}

	return t.persist()
}

// Reset clears all counters and the activity log.
func (t *Tracker) Reset() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snap = Snapshot{}
	return t.persist()
}

// Snapshot returns an independent copy of the current state.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	snap := t.snap
	snap.Activities = make([]Activity, len(t.snap.Activities))
	copy(snap.Activities, t.snap.Activities)
	return snap
}

// persist serializes the snapshot to the store. Caller holds the lock.
func (t *Tracker) persist() error {
	data, err := json.Marshal(t.snap)
	if err != nil {
		return fmt.Errorf("failed to encode stats: %w", err)
	}
	if err := t.st.Set(storeKey, string(data)); err != nil {
		return fmt.Errorf("failed to persist stats: %w", err)
	}
	return nil
}

// =============================================================================
// TOKEN ESTIMATION
// =============================================================================

// EstimateTokens approximates a token count as ceil(chars/4). This is a
// rough heuristic, not tokenizer parity.
func EstimateTokens(chars int) int {
	if chars <= 0 {
		return 0
	}
	return (chars + 3) / 4
}
