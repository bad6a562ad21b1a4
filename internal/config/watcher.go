// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// =============================================================================
// CONFIG FILE WATCHER
// =============================================================================

// Watcher re-applies the TOML bootstrap file when it changes on disk, so
// hand-edits take effect without a restart. File values are overlaid onto
// the live settings and persisted through the normal Update path.
type Watcher struct {
	mgr      *Manager
	watcher  *fsnotify.Watcher
	debounce time.Duration
	mu       sync.Mutex
	lastSeen time.Time
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewWatcher creates a watcher for the manager's bootstrap file.
func NewWatcher(mgr *Manager) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Watcher{
		mgr:      mgr,
		watcher:  w,
		debounce: 500 * time.Millisecond,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Watch starts watching the bootstrap file for changes.
func (w *Watcher) Watch() error {
	if w.mgr.path == "" {
		return nil
	}

	// Watch the containing directory: editors replace the file on save,
	// which drops a watch on the file itself.
	if err := w.watcher.Add(filepath.Dir(w.mgr.path)); err != nil {
		return err
	}

	go w.processEvents()
	return nil
}

// processEvents handles file system events with a debounce.
func (w *Watcher) processEvents() {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("config watcher stopped: %v", r)
		}
	}()

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Name != w.mgr.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.handleChange()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("config watcher error: %v", err)
		}
	}
}

// handleChange re-applies the bootstrap file after the debounce window.
func (w *Watcher) handleChange() {
	w.mu.Lock()
	now := time.Now()
	if now.Sub(w.lastSeen) < w.debounce {
		w.mu.Unlock()
		return
	}
	w.lastSeen = now
	w.mu.Unlock()

	err := w.mgr.Update(func(s *Settings) {
		if lerr := loadTOML(s, w.mgr.path); lerr != nil {
			log.Printf("config reload skipped: %v", lerr)
		}
	})
	if err != nil {
		log.Printf("config reload rejected: %v", err)
		return
	}
	log.Printf("config reloaded from %s", w.mgr.path)
}

// Close stops watching and releases resources.
func (w *Watcher) Close() error {
	w.cancel()
	if w.watcher != nil {
		return w.watcher.Close()
	}
	return nil
}
