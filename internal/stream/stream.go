// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/aztr0nutzs/perplexity-bridge-pro/internal/api"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// handshakeTimeout bounds the WebSocket upgrade.
	handshakeTimeout = 15 * time.Second

	// closeGracePeriod bounds the normal-closure write after [DONE].
	closeGracePeriod = 5 * time.Second
)

// =============================================================================
// EVENTS
// =============================================================================

// Events receives the classified outcomes of one streaming exchange.
// All callbacks fire from the connection's read goroutine. Exactly one of
// Done, Fail, or Closed fires per connection, and only once.
type Events struct {
	// Delta receives each accepted content fragment in arrival order.
	Delta func(delta string)

	// Done fires when the termination sentinel is seen.
	Done func()

	// Fail fires on a transport-level error before termination.
	Fail func(err error)

	// Closed fires when the server closes the connection without a
	// sentinel. clean is true for normal closure codes (1000, 1001).
	Closed func(code int, reason string, clean bool)
}

// =============================================================================
// ENDPOINT
// =============================================================================

// Endpoint derives the streaming URL from the REST endpoint: the scheme
// flips http->ws (https->wss) and the credential rides as a query
// parameter.
func Endpoint(baseURL, apiKey string) (string, error) {
	u, err := url.Parse(strings.TrimSuffix(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return "", fmt.Errorf("invalid endpoint url: %w", err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
		// Already a WebSocket URL
	default:
		return "", fmt.Errorf("invalid endpoint scheme %q", u.Scheme)
	}

	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws/chat"
	q := u.Query()
	q.Set("api_key", apiKey)
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// =============================================================================
// CONNECTION
// =============================================================================

// Conn is one live streaming exchange. The caller sends nothing after the
// initial request frame; all further progress arrives via Events.
type Conn struct {
	ws      *websocket.Conn
	decoder *Decoder
	events  Events

	mu    sync.Mutex
	state State

	// terminal guarantees exactly one terminal callback per connection,
	// no matter how many frames or errors follow.
	terminal sync.Once
}

// Open dials the streaming endpoint, sends the single request frame, and
// starts the read loop. It returns as soon as the connection is up; the
// exchange completes via the Events callbacks.
func Open(ctx context.Context, endpoint string, req *api.ChatRequest, ev Events) (*Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}

	ws, resp, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("stream dial failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("stream dial failed: %w", err)
	}

	if err := ws.WriteJSON(req); err != nil {
		ws.Close()
		return nil, fmt.Errorf("failed to send request frame: %w", err)
	}

	c := &Conn{
		ws:      ws,
		decoder: NewDecoder(),
		events:  ev,
		state:   StateStreaming,
	}

	go c.readLoop()
	return c, nil
}

// State returns the connection's current state.
func (c *Conn) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Conn) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// readLoop consumes inbound frames until the sentinel, an error, or a
// close. The only writer on the socket after the request frame is the
// normal-closure message sent from this goroutine.
func (c *Conn) readLoop() {
	defer c.ws.Close()

	for {
		_, payload, err := c.ws.ReadMessage()
		if err != nil {
			c.handleReadError(err)
			return
		}

		for _, ev := range c.decoder.Feed(string(payload)) {
			switch ev.Kind {
			case EventDelta:
				if c.events.Delta != nil {
					c.events.Delta(ev.Delta)
				}
			case EventDone:
				c.finish()
				return
			}
		}
	}
}

// finish performs normal termination after the sentinel.
func (c *Conn) finish() {
	c.terminal.Do(func() {
		c.setState(StateDone)

		deadline := time.Now().Add(closeGracePeriod)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		if err := c.ws.WriteControl(websocket.CloseMessage, msg, deadline); err != nil {
			log.Printf("stream close write failed: %v", err)
		}

		if c.events.Done != nil {
			c.events.Done()
		}
	})
}

// handleReadError classifies a read failure into Closed or Fail.
func (c *Conn) handleReadError(err error) {
	c.terminal.Do(func() {
		var closeErr *websocket.CloseError
		if websocket.IsCloseError(err,
			websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			closeErr = err.(*websocket.CloseError)
			c.setState(StateDone)
			if c.events.Closed != nil {
				c.events.Closed(closeErr.Code, closeErr.Text, true)
			}
			return
		}

		if ce, ok := err.(*websocket.CloseError); ok {
			c.setState(StateClosedAbnormally)
			if c.events.Closed != nil {
				c.events.Closed(ce.Code, ce.Text, false)
			}
			return
		}

		c.setState(StateError)
		if c.events.Fail != nil {
			c.events.Fail(err)
		}
	})
}
