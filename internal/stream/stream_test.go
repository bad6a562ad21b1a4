// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/aztr0nutzs/perplexity-bridge-pro/internal/api"
)

var upgrader = websocket.Upgrader{}

// chatServer runs handler for each accepted /ws/chat connection.
func chatServer(t *testing.T, handler func(*websocket.Conn)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ws/chat" {
			http.NotFound(w, r)
			return
		}
		if r.URL.Query().Get("api_key") != "dev-secret" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		handler(ws)
	}))
}

// recorder collects Events callbacks for assertions.
type recorder struct {
	mu       sync.Mutex
	content  strings.Builder
	done     int
	failed   []error
	closed   []int
	finished chan struct{}
	once     sync.Once
}

func newRecorder() *recorder {
	return &recorder{finished: make(chan struct{})}
}

func (r *recorder) events() Events {
	return Events{
		Delta: func(d string) {
			r.mu.Lock()
			r.content.WriteString(d)
			r.mu.Unlock()
		},
		Done: func() {
			r.mu.Lock()
			r.done++
			r.mu.Unlock()
			r.once.Do(func() { close(r.finished) })
		},
		Fail: func(err error) {
			r.mu.Lock()
			r.failed = append(r.failed, err)
			r.mu.Unlock()
			r.once.Do(func() { close(r.finished) })
		},
		Closed: func(code int, reason string, clean bool) {
			r.mu.Lock()
			r.closed = append(r.closed, code)
			r.mu.Unlock()
			r.once.Do(func() { close(r.finished) })
		},
	}
}

func (r *recorder) wait(t *testing.T) {
	t.Helper()
	select {
	case <-r.finished:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for terminal event")
	}
}

func testRequest() *api.ChatRequest {
	return &api.ChatRequest{
		Model:            api.DefaultModel,
		Messages:         []api.Message{{Role: "user", Content: "Hello"}},
		Stream:           true,
		MaxTokens:        1024,
		FrequencyPenalty: 1.0,
	}
}

func TestEndpoint(t *testing.T) {
	cases := []struct {
		base string
		want string
	}{
		{"http://localhost:7860", "ws://localhost:7860/ws/chat?api_key=dev-secret"},
		{"https://bridge.example.com", "wss://bridge.example.com/ws/chat?api_key=dev-secret"},
		{"http://localhost:7860/", "ws://localhost:7860/ws/chat?api_key=dev-secret"},
	}
	for _, tc := range cases {
		got, err := Endpoint(tc.base, "dev-secret")
		if err != nil {
			t.Errorf("Endpoint(%q) error: %v", tc.base, err)
			continue
		}
		if got != tc.want {
			t.Errorf("Endpoint(%q) = %q, want %q", tc.base, got, tc.want)
		}
	}

	if _, err := Endpoint("ftp://nope", "k"); err == nil {
		t.Error("Endpoint accepted non-http scheme")
	}
}

func TestStreamHappyPath(t *testing.T) {
	srv := chatServer(t, func(ws *websocket.Conn) {
		var req api.ChatRequest
		if err := ws.ReadJSON(&req); err != nil {
			t.Errorf("failed to read request frame: %v", err)
			return
		}
		if !req.Stream {
			t.Error("request frame missing stream flag")
		}

		ws.WriteMessage(websocket.TextMessage, []byte(`data: {"choices":[{"delta":{"content":"Hel"}}]}`))
		ws.WriteMessage(websocket.TextMessage, []byte(`data: {"choices":[{"delta":{"content":"lo"}}]}`))
		ws.WriteMessage(websocket.TextMessage, []byte("data: [DONE]"))

		// Wait for the client's normal closure.
		ws.ReadMessage()
	})
	defer srv.Close()

	endpoint, err := Endpoint(srv.URL, "dev-secret")
	if err != nil {
		t.Fatalf("Endpoint failed: %v", err)
	}

	rec := newRecorder()
	conn, err := Open(context.Background(), endpoint, testRequest(), rec.events())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	rec.wait(t)

	if got := rec.content.String(); got != "Hello" {
		t.Errorf("content = %q, want %q", got, "Hello")
	}
	if rec.done != 1 {
		t.Errorf("Done fired %d times, want exactly once", rec.done)
	}
	if conn.State() != StateDone {
		t.Errorf("state = %v, want done", conn.State())
	}
}

func TestStreamExtraFramesAfterDone(t *testing.T) {
	srv := chatServer(t, func(ws *websocket.Conn) {
		var req api.ChatRequest
		ws.ReadJSON(&req)

		ws.WriteMessage(websocket.TextMessage, []byte(`data: {"choices":[{"delta":{"content":"x"}}]}`))
		ws.WriteMessage(websocket.TextMessage, []byte("data: [DONE]"))
		ws.WriteMessage(websocket.TextMessage, []byte(`data: {"choices":[{"delta":{"content":"late"}}]}`))
		ws.ReadMessage()
	})
	defer srv.Close()

	endpoint, _ := Endpoint(srv.URL, "dev-secret")
	rec := newRecorder()
	if _, err := Open(context.Background(), endpoint, testRequest(), rec.events()); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	rec.wait(t)

	// Frames after the sentinel never mutate state; brief settle to make
	// sure no second terminal event sneaks in.
	time.Sleep(50 * time.Millisecond)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if got := rec.content.String(); got != "x" {
		t.Errorf("content = %q, want %q", got, "x")
	}
	if rec.done != 1 {
		t.Errorf("Done fired %d times, want exactly once", rec.done)
	}
}

func TestStreamAbnormalClose(t *testing.T) {
	srv := chatServer(t, func(ws *websocket.Conn) {
		var req api.ChatRequest
		ws.ReadJSON(&req)

		ws.WriteMessage(websocket.TextMessage, []byte(`data: {"choices":[{"delta":{"content":"partial"}}]}`))
		ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "backend crashed"),
			time.Now().Add(time.Second))
	})
	defer srv.Close()

	endpoint, _ := Endpoint(srv.URL, "dev-secret")
	rec := newRecorder()
	conn, err := Open(context.Background(), endpoint, testRequest(), rec.events())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	rec.wait(t)

	// Partial content is preserved on abnormal closure.
	if got := rec.content.String(); got != "partial" {
		t.Errorf("content = %q, want partial content retained", got)
	}
	if len(rec.closed) != 1 || rec.closed[0] != websocket.CloseInternalServerErr {
		t.Errorf("closed codes = %v, want [%d]", rec.closed, websocket.CloseInternalServerErr)
	}
	if rec.done != 0 {
		t.Error("Done fired on abnormal close")
	}
	if conn.State() != StateClosedAbnormally {
		t.Errorf("state = %v, want closed_abnormally", conn.State())
	}
}

func TestStreamCleanCloseWithoutSentinel(t *testing.T) {
	srv := chatServer(t, func(ws *websocket.Conn) {
		var req api.ChatRequest
		ws.ReadJSON(&req)

		ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
	})
	defer srv.Close()

	endpoint, _ := Endpoint(srv.URL, "dev-secret")
	rec := newRecorder()
	if _, err := Open(context.Background(), endpoint, testRequest(), rec.events()); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	rec.wait(t)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.closed) != 1 || rec.closed[0] != websocket.CloseNormalClosure {
		t.Errorf("closed codes = %v, want [1000]", rec.closed)
	}
}

func TestStreamDialFailure(t *testing.T) {
	// Nothing listens here.
	endpoint, _ := Endpoint("http://127.0.0.1:1", "dev-secret")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if _, err := Open(ctx, endpoint, testRequest(), Events{}); err == nil {
		t.Error("Open succeeded against a dead endpoint")
	}
}
