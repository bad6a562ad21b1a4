// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stats

import (
	"math"
	"testing"
	"time"

	"github.com/aztr0nutzs/perplexity-bridge-pro/internal/store"
)

func TestRecord(t *testing.T) {
	tr := NewTracker(store.NewMemory())

	if err := tr.Record(500*time.Millisecond, 8); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	snap := tr.Snapshot()
	if snap.TotalRequests != 1 {
		t.Errorf("TotalRequests = %d, want 1", snap.TotalRequests)
	}
	if snap.TotalMessages != 2 {
		t.Errorf("TotalMessages = %d, want 2", snap.TotalMessages)
	}
	if snap.TotalTokens != 2 {
		t.Errorf("TotalTokens = %d, want ceil(8/4)=2", snap.TotalTokens)
	}
	if math.Abs(snap.TotalTime-0.5) > 1e-9 {
		t.Errorf("TotalTime = %g, want 0.5", snap.TotalTime)
	}
	if len(snap.Activities) != 1 {
		t.Fatalf("Activities len = %d, want 1", len(snap.Activities))
	}
	if snap.Activities[0].Tokens != 2 {
		t.Errorf("activity tokens = %d, want 2", snap.Activities[0].Tokens)
	}
}

func TestActivityLogBounded(t *testing.T) {
	tr := NewTracker(store.NewMemory())

	for i := 0; i < maxActivities+5; i++ {
		if err := tr.Record(time.Duration(i)*time.Millisecond, 4); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	snap := tr.Snapshot()
	if len(snap.Activities) != maxActivities {
		t.Errorf("Activities len = %d, want %d", len(snap.Activities), maxActivities)
	}

	// Newest first: the last recorded response time is at the head.
	wantHead := float64(maxActivities+4) / 1000
	if math.Abs(snap.Activities[0].ResponseTime-wantHead) > 1e-9 {
		t.Errorf("head ResponseTime = %g, want %g", snap.Activities[0].ResponseTime, wantHead)
	}
}

func TestPersistAndReload(t *testing.T) {
	st := store.NewMemory()

	tr := NewTracker(st)
	tr.Record(time.Second, 16)
	tr.Record(2*time.Second, 16)

	tr2 := NewTracker(st)
	if err := tr2.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	snap := tr2.Snapshot()
	if snap.TotalRequests != 2 {
		t.Errorf("TotalRequests after reload = %d, want 2", snap.TotalRequests)
	}
	if snap.TotalTokens != 8 {
		t.Errorf("TotalTokens after reload = %d, want 8", snap.TotalTokens)
	}
	if len(snap.Activities) != 2 {
		t.Errorf("Activities after reload = %d, want 2", len(snap.Activities))
	}
}

func TestLoadCorruptSnapshot(t *testing.T) {
	st := store.NewMemory()
	st.Set("stats", "{definitely not json")

	tr := NewTracker(st)
	if err := tr.Load(); err != nil {
		t.Fatalf("Load on corrupt value failed: %v", err)
	}
	if snap := tr.Snapshot(); snap.TotalRequests != 0 {
		t.Errorf("corrupt snapshot did not reset: %+v", snap)
	}
}

func TestReset(t *testing.T) {
	tr := NewTracker(store.NewMemory())
	tr.Record(time.Second, 100)

	if err := tr.Reset(); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	snap := tr.Snapshot()
	if snap.TotalRequests != 0 || len(snap.Activities) != 0 {
		t.Errorf("state not cleared: %+v", snap)
	}
}

func TestEstimateTokens(t *testing.T) {
	cases := []struct {
		chars, want int
	}{
		{0, 0},
		{1, 1},
		{4, 1},
		{5, 2},
		{8, 2},
		{-3, 0},
	}
	for _, tc := range cases {
		if got := EstimateTokens(tc.chars); got != tc.want {
			t.Errorf("EstimateTokens(%d) = %d, want %d", tc.chars, got, tc.want)
		}
	}
}

func TestSnapshotIndependence(t *testing.T) {
	tr := NewTracker(store.NewMemory())
	tr.Record(time.Second, 4)

	snap := tr.Snapshot()
	snap.Activities[0].Tokens = 999

	if tr.Snapshot().Activities[0].Tokens == 999 {
		t.Error("snapshot shares backing array with tracker state")
	}
}
