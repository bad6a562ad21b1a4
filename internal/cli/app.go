// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// app.go - Shared application state for CLI commands.
//
// Every command handler receives an App holding the opened store and the
// managers built over it. The store is opened once per process and closed
// on exit.

package cli

import (
	"fmt"

	"github.com/aztr0nutzs/perplexity-bridge-pro/internal/config"
	"github.com/aztr0nutzs/perplexity-bridge-pro/internal/controller"
	"github.com/aztr0nutzs/perplexity-bridge-pro/internal/history"
	"github.com/aztr0nutzs/perplexity-bridge-pro/internal/stats"
	"github.com/aztr0nutzs/perplexity-bridge-pro/internal/store"
	"github.com/aztr0nutzs/perplexity-bridge-pro/internal/ui/styles"
)

// App bundles the persistent state shared by all commands.
type App struct {
	Store   store.Store
	Config  *config.Manager
	Tracker *stats.Tracker
	Archive *history.Archive
	Ctrl    *controller.Controller
}

// NewApp opens the SQLite store under the data directory and loads
// settings, statistics, and archived conversations from it.
func NewApp() (*App, error) {
	if err := config.EnsureDataDir(); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	storePath, err := config.StorePath()
	if err != nil {
		return nil, err
	}
	st, err := store.Open(storePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	configPath, err := config.ConfigPath()
	if err != nil {
		st.Close()
		return nil, err
	}

	cfg := config.NewManagerWithFile(st, configPath)
	if err := cfg.Load(); err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	styles.Apply(cfg.Settings().Theme)

	tracker := stats.NewTracker(st)
	if err := tracker.Load(); err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to load statistics: %w", err)
	}

	archive := history.NewArchive(st)
	if err := archive.Load(); err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	return &App{
		Store:   st,
		Config:  cfg,
		Tracker: tracker,
		Archive: archive,
		Ctrl:    controller.New(cfg, tracker, archive),
	}, nil
}

// Close releases the store.
func (a *App) Close() error {
	return a.Store.Close()
}
