// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/aztr0nutzs/perplexity-bridge-pro/internal/config"
	"github.com/aztr0nutzs/perplexity-bridge-pro/internal/controller"
	"github.com/aztr0nutzs/perplexity-bridge-pro/internal/ui/styles"
)

// =============================================================================
// MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat view.
type Model struct {
	width  int
	height int
	ready  bool

	cfg  *config.Manager
	ctrl *controller.Controller

	viewport viewport.Model
	input    textinput.Model
	spin     spinner.Model

	keyMap   KeyMap
	showHelp bool

	// sending is true from submit until ExchangeDoneMsg arrives
	sending bool
	notice  string

	// renderer wraps markdown to the viewport width; rebuilt on resize
	renderer *glamour.TermRenderer
}

// New creates the chat view over the shared controller.
func New(cfg *config.Manager, ctrl *controller.Controller) Model {
	input := textinput.New()
	input.Placeholder = "Type a message, /help for commands"
	input.Prompt = "> "
	input.PromptStyle = lipgloss.NewStyle().Foreground(styles.Cyan).Bold(true)
	input.Focus()

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = lipgloss.NewStyle().Foreground(styles.Purple)

	return Model{
		cfg:    cfg,
		ctrl:   ctrl,
		input:  input,
		spin:   spin,
		keyMap: DefaultKeyMap(),
	}
}

// Init starts the cursor blink.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// =============================================================================
// UPDATE
// =============================================================================

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.refreshTranscript()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keyMap.Quit):
			return m, tea.Quit

		case key.Matches(msg, m.keyMap.Help):
			m.showHelp = !m.showHelp
			return m, nil

		case key.Matches(msg, m.keyMap.Clear):
			m.ctrl.Clear()
			m.notice = "Conversation cleared"
			m.refreshTranscript()
			return m, nil

		case key.Matches(msg, m.keyMap.Submit):
			return m.submit()
		}

		// Scrolling keys fall through to the viewport
		var vpCmd tea.Cmd
		m.viewport, vpCmd = m.viewport.Update(msg)
		cmds = append(cmds, vpCmd)

		var inCmd tea.Cmd
		m.input, inCmd = m.input.Update(msg)
		cmds = append(cmds, inCmd)
		return m, tea.Batch(cmds...)

	case ConversationChangedMsg:
		m.refreshTranscript()
		m.viewport.GotoBottom()
		return m, nil

	case ExchangeDoneMsg:
		m.sending = false
		m.refreshTranscript()
		m.viewport.GotoBottom()
		return m, nil

	case SendFailedMsg:
		m.sending = false
		m.notice = msg.Err.Error()
		m.refreshTranscript()
		return m, nil

	case NoticeMsg:
		m.notice = msg.Text
		return m, nil

	case ModelsLoadedMsg:
		if msg.Err != nil {
			m.notice = fmt.Sprintf("Failed to list models: %v", msg.Err)
			return m, nil
		}
		ids := make([]string, 0, len(msg.Models))
		for _, mi := range msg.Models {
			ids = append(ids, mi.ID)
		}
		m.notice = "Models: " + strings.Join(ids, ", ")
		return m, nil

	case spinner.TickMsg:
		if m.sending {
			var cmd tea.Cmd
			m.spin, cmd = m.spin.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// resize lays out the viewport and input for the current window.
func (m *Model) resize() {
	headerHeight := 2
	footerHeight := 3
	if m.showHelp {
		footerHeight += 3
	}

	vpHeight := m.height - headerHeight - footerHeight
	if vpHeight < 1 {
		vpHeight = 1
	}

	if !m.ready {
		m.viewport = viewport.New(m.width, vpHeight)
		m.ready = true
	} else {
		m.viewport.Width = m.width
		m.viewport.Height = vpHeight
	}
	m.input.Width = m.width - 4

	wrap := m.width - 4
	if wrap < 20 {
		wrap = 20
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wrap),
	)
	if err == nil {
		m.renderer = renderer
	}
}

// submit sends the input line as a prompt or slash command.
func (m Model) submit() (tea.Model, tea.Cmd) {
	line := strings.TrimSpace(m.input.Value())
	if line == "" {
		return m, nil
	}
	m.input.Reset()

	if strings.HasPrefix(line, "/") {
		return m.handleCommand(line)
	}

	if m.sending {
		m.notice = "An exchange is already in flight"
		return m, nil
	}

	m.sending = true
	m.notice = ""
	ctrl := m.ctrl
	send := func() tea.Msg {
		if err := ctrl.Send(context.Background(), line); err != nil {
			return SendFailedMsg{Err: err}
		}
		return nil
	}
	return m, tea.Batch(send, m.spin.Tick)
}

// handleCommand runs the in-view slash commands.
func (m Model) handleCommand(line string) (tea.Model, tea.Cmd) {
	parts := strings.Fields(line)
	args := parts[1:]

	switch strings.ToLower(parts[0]) {
	case "/help", "/h":
		m.showHelp = !m.showHelp
		m.resize()
		return m, nil

	case "/quit", "/q":
		return m, tea.Quit

	case "/clear", "/c":
		m.ctrl.Clear()
		m.notice = "Conversation cleared"
		m.refreshTranscript()
		return m, nil

	case "/new":
		if err := m.ctrl.NewConversation(); err != nil {
			m.notice = err.Error()
			return m, nil
		}
		m.notice = "Started new conversation"
		m.refreshTranscript()
		return m, nil

	case "/save":
		entry, saved, err := m.ctrl.SaveConversation()
		if err != nil {
			m.notice = err.Error()
		} else if !saved {
			m.notice = "Nothing to save"
		} else {
			m.notice = "Saved " + entry.ID
		}
		return m, nil

	case "/model", "/m":
		if len(args) == 0 {
			m.notice = "Model: " + m.ctrl.Model()
			return m, nil
		}
		m.ctrl.SetModel(args[0])
		m.notice = "Switched to model " + args[0]
		return m, nil

	case "/models":
		ctrl := m.ctrl
		return m, func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			models, err := ctrl.ListModels(ctx)
			return ModelsLoadedMsg{Models: models, Err: err}
		}

	case "/system":
		if len(args) == 0 {
			if m.ctrl.SystemPrompt() == "" {
				m.notice = "No system prompt set"
			} else {
				m.notice = "System prompt: " + m.ctrl.SystemPrompt()
			}
			return m, nil
		}
		m.ctrl.SetSystemPrompt(strings.Join(args, " "))
		m.notice = "System prompt set"
		return m, nil

	case "/stream":
		return m.toggle("Streaming", args, func(s *config.Settings, v bool) {
			s.Streaming = v
		}, func(s config.Settings) bool { return s.Streaming })

	case "/markdown":
		return m.toggle("Markdown", args, func(s *config.Settings, v bool) {
			s.MarkdownRender = v
		}, func(s config.Settings) bool { return s.MarkdownRender })

	default:
		m.notice = "Unknown command: " + parts[0]
		return m, nil
	}
}

// toggle shows or flips a boolean setting.
func (m Model) toggle(label string, args []string, set func(*config.Settings, bool), get func(config.Settings) bool) (tea.Model, tea.Cmd) {
	value := !get(m.cfg.Settings())
	if len(args) > 0 {
		switch strings.ToLower(args[0]) {
		case "on", "true", "yes", "1":
			value = true
		case "off", "false", "no", "0":
			value = false
		default:
			m.notice = "Expected on or off"
			return m, nil
		}
	}

	if err := m.cfg.Update(func(s *config.Settings) {
		set(s, value)
	}); err != nil {
		m.notice = err.Error()
		return m, nil
	}

	state := "off"
	if value {
		state = "on"
	}
	m.notice = label + " " + state
	m.refreshTranscript()
	return m, nil
}
