// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aztr0nutzs/perplexity-bridge-pro/internal/store"
)

func TestDefaults(t *testing.T) {
	s := Default()

	assert.Equal(t, "http://localhost:7860", s.URL)
	assert.Equal(t, "dev-secret", s.APIKey)
	assert.False(t, s.Streaming)
	assert.Equal(t, 0.0, s.Temperature)
	assert.Equal(t, 1024, s.MaxTokens)
	assert.Equal(t, 1.0, s.FrequencyPenalty)
	assert.True(t, s.AutoSave)
	assert.Equal(t, "dark", s.Theme)
}

func TestRoundTrip(t *testing.T) {
	st := store.NewMemory()

	mgr := NewManagerWithFile(st, "")
	require.NoError(t, mgr.Load())

	err := mgr.Update(func(s *Settings) {
		s.URL = "http://example.com:9000"
		s.Streaming = true
		s.Temperature = 0.7
		s.MaxTokens = 2048
		s.SoundEnabled = true
	})
	require.NoError(t, err)

	// A fresh manager over the same store must see identical settings.
	mgr2 := NewManagerWithFile(st, "")
	require.NoError(t, mgr2.Load())

	assert.Equal(t, mgr.Settings(), mgr2.Settings())
}

func TestBooleansSerializedAsStrings(t *testing.T) {
	st := store.NewMemory()

	mgr := NewManagerWithFile(st, "")
	require.NoError(t, mgr.Load())
	require.NoError(t, mgr.Update(func(s *Settings) { s.Streaming = true }))

	v, ok, err := st.Get("streaming")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "true", v)

	v, ok, err = st.Get("soundEnabled")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "false", v)
}

func TestStoreOverlayIgnoresGarbage(t *testing.T) {
	st := store.NewMemory()
	st.Set("temperature", "not-a-number")
	st.Set("maxTokens", "also-bad")

	mgr := NewManagerWithFile(st, "")
	require.NoError(t, mgr.Load())

	// Unparseable values fall back to defaults rather than failing the load.
	s := mgr.Settings()
	assert.Equal(t, 0.0, s.Temperature)
	assert.Equal(t, 1024, s.MaxTokens)
}

func TestTOMLBootstrap(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := "url = \"http://bridge.lan:7860\"\nstreaming = true\nmax_tokens = 512\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	mgr := NewManagerWithFile(store.NewMemory(), path)
	require.NoError(t, mgr.Load())

	s := mgr.Settings()
	assert.Equal(t, "http://bridge.lan:7860", s.URL)
	assert.True(t, s.Streaming)
	assert.Equal(t, 512, s.MaxTokens)
	// Keys the file does not mention keep their defaults.
	assert.Equal(t, "dev-secret", s.APIKey)
}

func TestStoreOverridesBootstrapFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("url = \"http://from-file:1\"\n"), 0600))

	st := store.NewMemory()
	st.Set("url", "http://from-store:2")

	mgr := NewManagerWithFile(st, path)
	require.NoError(t, mgr.Load())

	assert.Equal(t, "http://from-store:2", mgr.Settings().URL)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("BRIDGE_URL", "http://from-env:3")
	t.Setenv("BRIDGE_API_KEY", "env-secret")

	mgr := NewManagerWithFile(store.NewMemory(), "")
	require.NoError(t, mgr.Load())

	s := mgr.Settings()
	assert.Equal(t, "http://from-env:3", s.URL)
	assert.Equal(t, "env-secret", s.APIKey)
}

func TestUpdateRejectsInvalid(t *testing.T) {
	st := store.NewMemory()
	mgr := NewManagerWithFile(st, "")
	require.NoError(t, mgr.Load())

	err := mgr.Update(func(s *Settings) { s.MaxTokens = -1 })
	require.Error(t, err)

	// Rejected update must not leak into the live settings or the store.
	assert.Equal(t, 1024, mgr.Settings().MaxTokens)
	if _, ok, _ := st.Get("maxTokens"); ok {
		t.Error("rejected update was persisted")
	}
}

func TestIsConfigured(t *testing.T) {
	s := Default()
	assert.True(t, s.IsConfigured())

	s.APIKey = ""
	assert.False(t, s.IsConfigured())

	s = Default()
	s.URL = "   "
	assert.False(t, s.IsConfigured())
}

func TestConcurrentAccess(t *testing.T) {
	mgr := NewManagerWithFile(store.NewMemory(), "")
	require.NoError(t, mgr.Load())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			mgr.Update(func(s *Settings) { s.Streaming = !s.Streaming })
		}()
		go func() {
			defer wg.Done()
			_ = mgr.Settings()
		}()
	}
	wg.Wait()
}
