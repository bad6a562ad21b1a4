// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package controller drives chat exchanges against the bridge backend.
// It owns transport selection (REST vs streaming), keeps the active
// conversation, and feeds the stats tracker and history archive as
// exchanges complete.
package controller
