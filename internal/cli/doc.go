// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides command-line interface parsing and execution for
// the bridge client.
//
// This package implements all CLI commands for the application, covering
// both interactive use (the chat REPL) and one-shot queries against the
// bridge backend.
//
// # Key Types
//
//   - App: Shared state (config, stats, history, controller) handed to
//     every command handler
//   - ArgParser: Unified flag and positional argument parsing
//
// # Commands Overview
//
//   - chat: Interactive REPL chat session
//   - ask: Single question query
//   - models: List models the bridge exposes
//   - status: Connection and configuration status
//   - history: Archived conversation management
//   - stats: Usage statistics display
//   - export: Export archived conversations as text, markdown, or JSON
//   - config: Show or change settings
package cli
