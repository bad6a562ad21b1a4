// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream implements streamed chat delivery over WebSocket.
//
// The bridge multiplexes an event-stream-style framing over a single
// duplex connection: the client sends one request frame, then consumes
// "data: "-prefixed lines carrying JSON delta envelopes until the [DONE]
// sentinel arrives. The Decoder is a pure state machine over inbound
// payloads; Conn owns the socket and delivers classified events through
// callbacks.
package stream
