// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aztr0nutzs/perplexity-bridge-pro/internal/api"
	"github.com/aztr0nutzs/perplexity-bridge-pro/internal/config"
	"github.com/aztr0nutzs/perplexity-bridge-pro/internal/history"
	"github.com/aztr0nutzs/perplexity-bridge-pro/internal/session"
	"github.com/aztr0nutzs/perplexity-bridge-pro/internal/stats"
	"github.com/aztr0nutzs/perplexity-bridge-pro/internal/stream"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrBusy is returned by Send while a previous exchange is in flight.
	ErrBusy = errors.New("an exchange is already in flight")

	// ErrEmptyPrompt is returned when the prompt is blank after trimming.
	ErrEmptyPrompt = errors.New("prompt is empty")
)

// =============================================================================
// CONTROLLER
// =============================================================================

// DialFunc opens one streaming exchange against endpoint. The default
// implementation wraps stream.Open; tests substitute a fake transport.
type DialFunc func(ctx context.Context, endpoint string, req *api.ChatRequest, ev stream.Events) error

// Controller runs chat exchanges: it selects the transport from the
// current settings, keeps the conversation paired (one user message, one
// assistant message per exchange, even on failure), and feeds the stats
// tracker and history archive when an exchange completes.
type Controller struct {
	mu   sync.Mutex
	busy bool

	cfg     *config.Manager
	conv    *session.Conversation
	tracker *stats.Tracker
	archive *history.Archive

	model        string
	systemPrompt string

	// notify surfaces transient user-facing messages (toasts). May be nil.
	notify func(text string)

	// onDelta receives each streamed content fragment. May be nil.
	onDelta func(delta string)

	// onComplete fires after an exchange reaches a terminal state,
	// successful or not. May be nil.
	onComplete func()

	dial DialFunc
}

// New creates a controller over the shared managers. The conversation
// starts empty and the model defaults to the bridge's baked-in model.
func New(cfg *config.Manager, tracker *stats.Tracker, archive *history.Archive) *Controller {
	c := &Controller{
		cfg:     cfg,
		conv:    session.NewConversation(),
		tracker: tracker,
		archive: archive,
		model:   api.DefaultModel,
	}
	c.dial = func(ctx context.Context, endpoint string, req *api.ChatRequest, ev stream.Events) error {
		_, err := stream.Open(ctx, endpoint, req, ev)
		return err
	}
	return c
}

// WithDialFunc replaces the streaming transport.
func (c *Controller) WithDialFunc(dial DialFunc) *Controller {
	c.dial = dial
	return c
}

// WithNotify registers the transient-message callback.
func (c *Controller) WithNotify(fn func(text string)) *Controller {
	c.notify = fn
	return c
}

// WithOnDelta registers the per-fragment streaming callback.
func (c *Controller) WithOnDelta(fn func(delta string)) *Controller {
	c.onDelta = fn
	return c
}

// WithOnComplete registers the exchange-terminal callback.
func (c *Controller) WithOnComplete(fn func()) *Controller {
	c.onComplete = fn
	return c
}

// Conversation returns the active conversation.
func (c *Controller) Conversation() *session.Conversation {
	return c.conv
}

// Model returns the model requested on outbound exchanges.
func (c *Controller) Model() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.model
}

// SetModel changes the model requested on outbound exchanges.
func (c *Controller) SetModel(model string) {
	c.mu.Lock()
	c.model = strings.TrimSpace(model)
	c.mu.Unlock()
}

// SystemPrompt returns the system prompt prepended to outbound requests.
func (c *Controller) SystemPrompt() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.systemPrompt
}

// SetSystemPrompt changes the system prompt. An empty prompt means no
// system message is sent.
func (c *Controller) SetSystemPrompt(prompt string) {
	c.mu.Lock()
	c.systemPrompt = strings.TrimSpace(prompt)
	c.mu.Unlock()
}

// Busy reports whether an exchange is currently in flight.
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

// =============================================================================
// EXCHANGES
// =============================================================================

// Send runs one exchange with the given prompt. The transport comes from
// the streaming setting: REST blocks until the full completion arrives,
// streaming returns once the connection is up and the assistant message
// fills in via conversation callbacks.
//
// Exactly one exchange runs at a time; a second Send while one is in
// flight returns ErrBusy without touching the conversation.
func (c *Controller) Send(ctx context.Context, prompt string) error {
	return c.send(ctx, prompt, false)
}

// SendBlocking runs one exchange over REST regardless of the streaming
// setting, without changing it. Used where the caller needs the full
// completion before returning, such as JSON output.
func (c *Controller) SendBlocking(ctx context.Context, prompt string) error {
	return c.send(ctx, prompt, true)
}

func (c *Controller) send(ctx context.Context, prompt string, forceREST bool) error {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return ErrEmptyPrompt
	}

	settings := c.cfg.Settings()
	if !settings.IsConfigured() {
		c.say("Please configure connection settings first")
		return api.ErrNotConfigured
	}

	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return ErrBusy
	}
	c.busy = true
	model := c.model
	c.mu.Unlock()

	if settings.Streaming && !forceREST {
		return c.sendStream(ctx, settings, model, prompt)
	}
	return c.sendREST(ctx, settings, model, prompt)
}

// buildRequest assembles the outbound message list: system prompt first
// when non-empty, then the full conversation.
func (c *Controller) buildRequest(settings config.Settings, model string, streaming bool) *api.ChatRequest {
	c.mu.Lock()
	system := c.systemPrompt
	c.mu.Unlock()

	var messages []api.Message
	if system != "" {
		messages = append(messages, api.Message{Role: string(session.RoleSystem), Content: system})
	}
	for _, m := range c.conv.Messages() {
		messages = append(messages, api.Message{Role: string(m.Role), Content: m.Content})
	}

	return &api.ChatRequest{
		Model:            model,
		Messages:         messages,
		Stream:           streaming,
		MaxTokens:        settings.MaxTokens,
		Temperature:      settings.Temperature,
		FrequencyPenalty: settings.FrequencyPenalty,
	}
}

// sendREST runs a blocking request/response exchange. Stats are recorded
// only on success; a failure still appends an assistant message carrying
// the error text so the conversation stays paired.
func (c *Controller) sendREST(ctx context.Context, settings config.Settings, model, prompt string) error {
	start := time.Now()
	c.conv.Append(session.RoleUser, prompt)

	req := c.buildRequest(settings, model, false)
	client := api.NewClient(settings.URL, settings.APIKey)

	content, err := client.Complete(ctx, req)
	if err != nil {
		c.conv.Append(session.RoleAssistant, fmt.Sprintf("Error: %s", err.Error()))
		c.say(fmt.Sprintf("Request failed: %s", err.Error()))
		c.finishExchange(false, 0, 0)
		return err
	}

	c.conv.Append(session.RoleAssistant, content)
	c.finishExchange(true, time.Since(start), len(content))
	return nil
}

// sendStream runs one streaming exchange. The request list is built
// before the assistant placeholder is appended, so the placeholder never
// rides along in the outbound frame.
func (c *Controller) sendStream(ctx context.Context, settings config.Settings, model, prompt string) error {
	endpoint, err := stream.Endpoint(settings.URL, settings.APIKey)
	if err != nil {
		c.clearBusy()
		return err
	}

	start := time.Now()
	c.conv.Append(session.RoleUser, prompt)
	req := c.buildRequest(settings, model, true)
	c.conv.Append(session.RoleAssistant, "")

	ev := stream.Events{
		Delta: func(delta string) {
			c.conv.AppendDelta(delta)
			if c.onDelta != nil {
				c.onDelta(delta)
			}
		},
		Done: func() {
			content := c.conv.LastContent()
			c.finishExchange(true, time.Since(start), len(content))
		},
		Fail: func(err error) {
			c.conv.SetLastContent(fmt.Sprintf("WebSocket error: %s", err.Error()))
			c.say("WebSocket connection error")
			c.finishExchange(false, 0, 0)
		},
		Closed: func(code int, reason string, clean bool) {
			if !clean {
				content := c.conv.LastContent()
				if !strings.Contains(strings.ToLower(content), "error") {
					if reason == "" {
						reason = "Unknown reason"
					}
					c.conv.AppendDelta(fmt.Sprintf("\n\n[Connection closed: %d - %s]", code, reason))
				}
			}
			c.finishExchange(false, 0, 0)
		},
	}

	if err := c.dial(ctx, endpoint, req, ev); err != nil {
		c.conv.SetLastContent(fmt.Sprintf("WebSocket error: %s", err.Error()))
		c.say("WebSocket connection error")
		c.finishExchange(false, 0, 0)
		return err
	}
	return nil
}

// finishExchange records stats for successful exchanges, archives the
// conversation when auto-save is on, and releases the busy flag.
func (c *Controller) finishExchange(success bool, elapsed time.Duration, contentLength int) {
	if success {
		if err := c.tracker.Record(elapsed, contentLength); err != nil {
			c.say(fmt.Sprintf("Failed to save stats: %s", err.Error()))
		}
	}

	if c.cfg.Settings().AutoSave {
		if _, _, err := c.archive.Save(c.conv.Messages()); err != nil {
			c.say(fmt.Sprintf("Failed to save conversation: %s", err.Error()))
		}
	}

	c.clearBusy()

	if c.onComplete != nil {
		c.onComplete()
	}
}

func (c *Controller) clearBusy() {
	c.mu.Lock()
	c.busy = false
	c.mu.Unlock()
}

func (c *Controller) say(text string) {
	if c.notify != nil {
		c.notify(text)
	}
}

// =============================================================================
// CONVERSATION MANAGEMENT
// =============================================================================

// NewConversation archives the current conversation when non-empty, then
// clears it.
func (c *Controller) NewConversation() error {
	if c.conv.Len() > 0 {
		if _, _, err := c.archive.Save(c.conv.Messages()); err != nil {
			return err
		}
	}
	c.conv.Clear()
	return nil
}

// SaveConversation archives the current conversation explicitly,
// regardless of the auto-save setting. saved is false when the
// conversation is empty.
func (c *Controller) SaveConversation() (history.Entry, bool, error) {
	return c.archive.Save(c.conv.Messages())
}

// LoadConversation replaces the active conversation with an archived one.
func (c *Controller) LoadConversation(id string) error {
	entry, err := c.archive.Get(id)
	if err != nil {
		return err
	}

	c.conv.Replace(entry.Messages)
	return nil
}

// Clear empties the active conversation without archiving.
func (c *Controller) Clear() {
	c.conv.Clear()
}

// =============================================================================
// BACKEND QUERIES
// =============================================================================

// ListModels fetches the models the bridge exposes.
func (c *Controller) ListModels(ctx context.Context) ([]api.ModelInfo, error) {
	settings := c.cfg.Settings()
	return api.NewClient(settings.URL, settings.APIKey).ListModels(ctx)
}

// Health checks backend reachability.
func (c *Controller) Health(ctx context.Context) error {
	settings := c.cfg.Settings()
	return api.NewClient(settings.URL, settings.APIKey).Health(ctx)
}
