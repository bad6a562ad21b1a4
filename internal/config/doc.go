// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides settings loading and management for the bridge client.
//
// Settings live in the key/value store and survive restarts. A TOML file
// (~/.perplexity-bridge/config.toml) seeds values the store has never seen,
// and environment variables override everything at load time.
//
// # Key Types
//
//   - Settings: All client settings (endpoint, credential, generation knobs, UI flags)
//   - Manager: Thread-safe owner of the live Settings, bound to a store.Store
//
// # Configuration Precedence
//
// Settings are resolved from (lowest to highest precedence):
//   - Built-in defaults
//   - ~/.perplexity-bridge/config.toml bootstrap file
//   - Persisted store values
//   - BRIDGE_URL / BRIDGE_API_KEY environment variables
//
// # Usage
//
// Load settings:
//
//	mgr := config.NewManager(st)
//	if err := mgr.Load(); err != nil {
//	    log.Fatal(err)
//	}
//
// Access settings:
//
//	s := mgr.Settings()
//	url := s.URL
package config
