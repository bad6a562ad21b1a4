// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides settings loading and management for the bridge client.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/aztr0nutzs/perplexity-bridge-pro/internal/store"
)

// =============================================================================
// SETTINGS
// =============================================================================

// Settings holds all persisted client settings.
//
// Generation parameters are read at request time; changing them never
// affects an in-flight request.
type Settings struct {
	// Connection
	URL    string `toml:"url"`
	APIKey string `toml:"api_key"`

	// Transport: streamed WebSocket delivery vs single-shot REST
	Streaming bool `toml:"streaming"`

	// Generation parameters
	Temperature      float64 `toml:"temperature"`
	MaxTokens        int     `toml:"max_tokens"`
	FrequencyPenalty float64 `toml:"frequency_penalty"`

	// UI behavior
	MarkdownRender bool   `toml:"markdown_render"`
	AutoSave       bool   `toml:"auto_save"`
	ShowTimestamps bool   `toml:"show_timestamps"`
	SoundEnabled   bool   `toml:"sound_enabled"`
	Theme          string `toml:"theme"`
}

// Default returns Settings with built-in default values.
func Default() Settings {
	return Settings{
		URL:              "http://localhost:7860",
		APIKey:           "dev-secret",
		Streaming:        false,
		Temperature:      0.0,
		MaxTokens:        1024,
		FrequencyPenalty: 1.0,
		MarkdownRender:   true,
		AutoSave:         true,
		ShowTimestamps:   true,
		SoundEnabled:     false,
		Theme:            "dark",
	}
}

// IsConfigured reports whether both endpoint URL and credential are set.
// Requests are never attempted while either is empty.
func (s Settings) IsConfigured() bool {
	return strings.TrimSpace(s.URL) != "" && strings.TrimSpace(s.APIKey) != ""
}

// Validate checks the settings for obviously bad values.
func (s Settings) Validate() error {
	if s.URL != "" {
		u, err := url.Parse(s.URL)
		if err != nil {
			return fmt.Errorf("invalid url: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("invalid url scheme %q: must be http or https", u.Scheme)
		}
	}
	if s.MaxTokens < 0 {
		return fmt.Errorf("max_tokens cannot be negative, got %d", s.MaxTokens)
	}
	if s.Temperature < 0 || s.Temperature > 2 {
		return fmt.Errorf("temperature must be 0.0-2.0, got %g", s.Temperature)
	}
	if s.Theme != "" && s.Theme != "dark" && s.Theme != "light" {
		return fmt.Errorf("invalid theme %q: must be dark or light", s.Theme)
	}
	return nil
}

// =============================================================================
// STORE KEYS
// =============================================================================

// Store key names, one per setting. All values are strings; booleans are
// serialized as the literals "true"/"false".
const (
	keyURL              = "url"
	keyAPIKey           = "key"
	keyStreaming        = "streaming"
	keyTemperature      = "temperature"
	keyMaxTokens        = "maxTokens"
	keyFrequencyPenalty = "frequencyPenalty"
	keyMarkdownRender   = "markdownRender"
	keyAutoSave         = "autoSave"
	keyShowTimestamps   = "showTimestamps"
	keySoundEnabled     = "soundEnabled"
	keyTheme            = "theme"
)

// =============================================================================
// PATH HELPERS
// =============================================================================

// DataDir returns the bridge data directory path.
func DataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".perplexity-bridge"), nil
}

// ConfigPath returns the path to the TOML bootstrap file.
func ConfigPath() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// StorePath returns the path to the SQLite state database.
func StorePath() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "state.db"), nil
}

// EnsureDataDir ensures the data directory exists.
func EnsureDataDir() error {
	dir, err := DataDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// =============================================================================
// MANAGER
// =============================================================================

// Manager owns the live Settings and keeps the backing store in sync.
// Safe for concurrent use.
type Manager struct {
	mu   sync.RWMutex
	st   store.Store
	cur  Settings
	path string // TOML bootstrap path, empty to skip file loading
}

// NewManager creates a manager bound to the given store, using the default
// bootstrap file location.
func NewManager(st store.Store) *Manager {
	path, _ := ConfigPath()
	return &Manager{st: st, cur: Default(), path: path}
}

// NewManagerWithFile creates a manager with an explicit bootstrap file path.
// An empty path disables file loading.
func NewManagerWithFile(st store.Store, path string) *Manager {
	return &Manager{st: st, cur: Default(), path: path}
}

// Load resolves settings from defaults, the bootstrap file, the store, and
// environment overrides, in that order. The resolved settings become the
// live settings; they are not written back to the store until Update.
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Default()

	if m.path != "" {
		if err := loadTOML(&s, m.path); err != nil {
			return err
		}
	}

	if err := m.overlayStore(&s); err != nil {
		return err
	}

	applyEnvOverrides(&s)

	if err := s.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	m.cur = s
	return nil
}

// Settings returns a copy of the live settings.
func (m *Manager) Settings() Settings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cur
}

// Update applies fn to a copy of the live settings, validates the result,
// installs it, and persists every setting to the store.
func (m *Manager) Update(fn func(*Settings)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.cur
	fn(&s)

	if err := s.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	if err := m.persist(s); err != nil {
		return err
	}

	m.cur = s
	return nil
}

// persist writes every setting to the store as a string value.
func (m *Manager) persist(s Settings) error {
	entries := []struct {
		name  string
		value string
	}{
		{keyURL, s.URL},
		{keyAPIKey, s.APIKey},
		{keyStreaming, strconv.FormatBool(s.Streaming)},
		{keyTemperature, strconv.FormatFloat(s.Temperature, 'f', -1, 64)},
		{keyMaxTokens, strconv.Itoa(s.MaxTokens)},
		{keyFrequencyPenalty, strconv.FormatFloat(s.FrequencyPenalty, 'f', -1, 64)},
		{keyMarkdownRender, strconv.FormatBool(s.MarkdownRender)},
		{keyAutoSave, strconv.FormatBool(s.AutoSave)},
		{keyShowTimestamps, strconv.FormatBool(s.ShowTimestamps)},
		{keySoundEnabled, strconv.FormatBool(s.SoundEnabled)},
		{keyTheme, s.Theme},
	}

	for _, e := range entries {
		if err := m.st.Set(e.name, e.value); err != nil {
			return fmt.Errorf("failed to persist %s: %w", e.name, err)
		}
	}
	return nil
}

// overlayStore applies persisted store values over s. Absent names leave
// the current value untouched; unparseable values are skipped rather than
// failing the whole load.
func (m *Manager) overlayStore(s *Settings) error {
	getStr := func(name string, dst *string) error {
		v, ok, err := m.st.Get(name)
		if err != nil {
			return err
		}
		if ok {
			*dst = v
		}
		return nil
	}
	getBool := func(name string, dst *bool) error {
		v, ok, err := m.st.Get(name)
		if err != nil {
			return err
		}
		if ok {
			*dst = v == "true"
		}
		return nil
	}
	getFloat := func(name string, dst *float64) error {
		v, ok, err := m.st.Get(name)
		if err != nil {
			return err
		}
		if ok {
			if f, perr := strconv.ParseFloat(v, 64); perr == nil {
				*dst = f
			}
		}
		return nil
	}
	getInt := func(name string, dst *int) error {
		v, ok, err := m.st.Get(name)
		if err != nil {
			return err
		}
		if ok {
			if n, perr := strconv.Atoi(v); perr == nil {
				*dst = n
			}
		}
		return nil
	}

	steps := []func() error{
		func() error { return getStr(keyURL, &s.URL) },
		func() error { return getStr(keyAPIKey, &s.APIKey) },
		func() error { return getBool(keyStreaming, &s.Streaming) },
		func() error { return getFloat(keyTemperature, &s.Temperature) },
		func() error { return getInt(keyMaxTokens, &s.MaxTokens) },
		func() error { return getFloat(keyFrequencyPenalty, &s.FrequencyPenalty) },
		func() error { return getBool(keyMarkdownRender, &s.MarkdownRender) },
		func() error { return getBool(keyAutoSave, &s.AutoSave) },
		func() error { return getBool(keyShowTimestamps, &s.ShowTimestamps) },
		func() error { return getBool(keySoundEnabled, &s.SoundEnabled) },
		func() error { return getStr(keyTheme, &s.Theme) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// TOML BOOTSTRAP
// =============================================================================

// fileSettings mirrors Settings with pointer fields so an absent key can be
// distinguished from a zero value.
type fileSettings struct {
	URL              *string  `toml:"url"`
	APIKey           *string  `toml:"api_key"`
	Streaming        *bool    `toml:"streaming"`
	Temperature      *float64 `toml:"temperature"`
	MaxTokens        *int     `toml:"max_tokens"`
	FrequencyPenalty *float64 `toml:"frequency_penalty"`
	MarkdownRender   *bool    `toml:"markdown_render"`
	AutoSave         *bool    `toml:"auto_save"`
	ShowTimestamps   *bool    `toml:"show_timestamps"`
	SoundEnabled     *bool    `toml:"sound_enabled"`
	Theme            *string  `toml:"theme"`
}

// loadTOML overlays values from a TOML file onto s. A missing file is fine.
func loadTOML(s *Settings, path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var f fileSettings
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}

	f.apply(s)
	return nil
}

func (f *fileSettings) apply(s *Settings) {
	if f.URL != nil {
		s.URL = *f.URL
	}
	if f.APIKey != nil {
		s.APIKey = *f.APIKey
	}
	if f.Streaming != nil {
		s.Streaming = *f.Streaming
	}
	if f.Temperature != nil {
		s.Temperature = *f.Temperature
	}
	if f.MaxTokens != nil {
		s.MaxTokens = *f.MaxTokens
	}
	if f.FrequencyPenalty != nil {
		s.FrequencyPenalty = *f.FrequencyPenalty
	}
	if f.MarkdownRender != nil {
		s.MarkdownRender = *f.MarkdownRender
	}
	if f.AutoSave != nil {
		s.AutoSave = *f.AutoSave
	}
	if f.ShowTimestamps != nil {
		s.ShowTimestamps = *f.ShowTimestamps
	}
	if f.SoundEnabled != nil {
		s.SoundEnabled = *f.SoundEnabled
	}
	if f.Theme != nil {
		s.Theme = *f.Theme
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// applyEnvOverrides applies environment variable overrides.
//
// Supported environment variables:
//   - BRIDGE_URL: overrides the endpoint URL
//   - BRIDGE_API_KEY: overrides the credential
func applyEnvOverrides(s *Settings) {
	if v := os.Getenv("BRIDGE_URL"); v != "" {
		s.URL = v
	}
	if v := os.Getenv("BRIDGE_API_KEY"); v != "" {
		s.APIKey = v
	}
}
