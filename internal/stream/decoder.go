// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"encoding/json"
	"strings"
)

// STREAMING: Tolerant line classification with raw-text fallbacks

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// dataPrefix marks a data line in the event-stream framing.
	dataPrefix = "data: "

	// doneSentinel terminates the stream.
	doneSentinel = "[DONE]"
)

// =============================================================================
// STATES
// =============================================================================

// State is the lifecycle of one streaming exchange.
type State int

const (
	StateConnecting State = iota
	StateStreaming
	StateDone
	StateError
	StateClosedAbnormally
)

// String returns the state name for logging.
func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateStreaming:
		return "streaming"
	case StateDone:
		return "done"
	case StateError:
		return "error"
	case StateClosedAbnormally:
		return "closed_abnormally"
	default:
		return "unknown"
	}
}

// =============================================================================
// EVENTS
// =============================================================================

// EventKind classifies a decoded event.
type EventKind int

const (
	// EventDelta carries an incremental content fragment.
	EventDelta EventKind = iota

	// EventDone signals the termination sentinel was seen.
	EventDone
)

// Event is one decoded outcome from an inbound payload.
type Event struct {
	Kind  EventKind
	Delta string
}

// =============================================================================
// DELTA ENVELOPE
// =============================================================================

// deltaEnvelope is the JSON shape of a data line during streaming.
type deltaEnvelope struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// =============================================================================
// DECODER
// =============================================================================

// Decoder turns inbound payloads into delta and done events. It is a pure
// state machine with no I/O; Conn feeds it whatever arrives on the socket.
//
// Line classification:
//   - "data: " prefix followed by the sentinel terminates the stream.
//   - "data: " prefix followed by JSON yields the nested delta content.
//     A parse failure is NOT an error: the raw payload (minus prefix) is
//     emitted verbatim, since the server may send plain-text chunks.
//   - Blank lines and comment lines (leading colon) are keep-alives.
//   - Any other non-empty line is emitted verbatim, so minor protocol
//     drift does not drop output.
//
// Once the sentinel is seen the decoder emits nothing further, no matter
// how many frames arrive afterwards.
type Decoder struct {
	done bool
}

// NewDecoder creates a decoder for one connection.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Done reports whether the termination sentinel has been seen.
func (d *Decoder) Done() bool {
	return d.done
}

// Feed classifies one inbound payload and returns the events it produced.
// A payload may span multiple lines.
func (d *Decoder) Feed(payload string) []Event {
	if d.done {
		return nil
	}

	var events []Event
	for _, line := range strings.Split(payload, "\n") {
		line = strings.TrimRight(line, "\r")

		ev, ok := d.classify(line)
		if !ok {
			continue
		}
		events = append(events, ev)
		if ev.Kind == EventDone {
			d.done = true
			break
		}
	}
	return events
}

// classify handles a single line. The bool return is false for lines that
// produce no event (keep-alives, empty deltas).
func (d *Decoder) classify(line string) (Event, bool) {
	if line == "" || strings.HasPrefix(line, ":") {
		// Keep-alive
		return Event{}, false
	}

	if !strings.HasPrefix(line, dataPrefix) {
		// Raw-text fallback for unprefixed lines
		return Event{Kind: EventDelta, Delta: line}, true
	}

	data := line[len(dataPrefix):]
	if data == doneSentinel {
		return Event{Kind: EventDone}, true
	}

	var envelope deltaEnvelope
	if err := json.Unmarshal([]byte(data), &envelope); err != nil {
		// Raw-text fallback for unparseable data payloads
		if strings.TrimSpace(data) == "" {
			return Event{}, false
		}
		return Event{Kind: EventDelta, Delta: data}, true
	}

	if len(envelope.Choices) == 0 {
		return Event{}, false
	}
	content := envelope.Choices[0].Delta.Content
	if content == "" {
		return Event{}, false
	}
	return Event{Kind: EventDelta, Delta: content}, true
}
