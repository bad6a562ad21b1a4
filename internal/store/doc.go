// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store provides namespaced key/value persistence for bridge state.
//
// All client state (settings, statistics, chat history) is persisted as
// string values under namespaced names. The SQLite implementation is the
// production backend; Memory is used by tests and as a fallback when no
// data directory is writable.
package store
