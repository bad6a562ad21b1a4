// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the Bubble Tea chat view: a scrollable
// transcript, an input line, and a status bar, driven by the exchange
// controller. Controller callbacks arrive as messages through
// Program.Send so all state changes flow through Update.
package chat
