// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api implements the REST client for the bridge inference service.
//
// The service exposes an OpenAI-style chat completion endpoint plus model
// discovery and a health probe. Streamed delivery runs over a separate
// WebSocket channel; see the stream package.
package api
