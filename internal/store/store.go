// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store provides namespaced key/value persistence for bridge state.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrStoreClosed = errors.New("store closed")
)

// keyPrefix namespaces every persisted entry so the bridge never collides
// with other tools sharing the same database file.
const keyPrefix = "perplexity_bridge_"

// =============================================================================
// STORE INTERFACE
// =============================================================================

// Store is a namespaced string key/value store.
//
// All values are strings; booleans are serialized as the literal strings
// "true"/"false" and numbers via strconv. Get returns (value, true, nil)
// when the name exists and ("", false, nil) when it does not.
type Store interface {
	Get(name string) (string, bool, error)
	Set(name, value string) error
	Delete(name string) error
	Close() error
}

// =============================================================================
// SQLITE STORE
// =============================================================================

// schema holds the settings table. A single table with TEXT name/value
// pairs is all the bridge needs; richer state is JSON-encoded into values.
const schema = `
CREATE TABLE IF NOT EXISTS settings (
    name TEXT PRIMARY KEY,
    value TEXT NOT NULL
) WITHOUT ROWID;
`

// SQLiteStore persists entries to a SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// Open opens (creating if needed) a SQLite-backed store at path.
func Open(path string) (*SQLiteStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Get retrieves a value by name. The second return is false when the
// name has never been set.
func (s *SQLiteStore) Get(name string) (string, bool, error) {
	if s.db == nil {
		return "", false, ErrStoreClosed
	}

	var value string
	err := s.db.QueryRow("SELECT value FROM settings WHERE name = ?", keyPrefix+name).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %q: %w", name, err)
	}
	return value, true, nil
}

// Set writes a value, replacing any previous value under the same name.
func (s *SQLiteStore) Set(name, value string) error {
	if s.db == nil {
		return ErrStoreClosed
	}

	_, err := s.db.Exec(
		"INSERT INTO settings (name, value) VALUES (?, ?) ON CONFLICT(name) DO UPDATE SET value = excluded.value",
		keyPrefix+name, value,
	)
	if err != nil {
		return fmt.Errorf("failed to write %q: %w", name, err)
	}
	return nil
}

// Delete removes a value. Deleting a missing name is not an error.
func (s *SQLiteStore) Delete(name string) error {
	if s.db == nil {
		return ErrStoreClosed
	}

	if _, err := s.db.Exec("DELETE FROM settings WHERE name = ?", keyPrefix+name); err != nil {
		return fmt.Errorf("failed to delete %q: %w", name, err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
