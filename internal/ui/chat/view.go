// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/aztr0nutzs/perplexity-bridge-pro/internal/session"
	"github.com/aztr0nutzs/perplexity-bridge-pro/internal/ui/styles"
)

// =============================================================================
// STYLES
// =============================================================================

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(styles.Cyan).
			Bold(true)

	headerInfoStyle = lipgloss.NewStyle().
			Foreground(styles.TextMuted)

	userLabelStyle = lipgloss.NewStyle().
			Foreground(styles.UserAccent).
			Bold(true)

	assistantLabelStyle = lipgloss.NewStyle().
				Foreground(styles.AssistantAccent).
				Bold(true)

	systemLabelStyle = lipgloss.NewStyle().
				Foreground(styles.SystemAccent).
				Bold(true)

	timestampStyle = lipgloss.NewStyle().
			Foreground(styles.TextMuted)

	noticeStyle = lipgloss.NewStyle().
			Foreground(styles.Amber)

	statusStyle = lipgloss.NewStyle().
			Foreground(styles.TextSecondary)

	helpStyle = lipgloss.NewStyle().
			Foreground(styles.TextMuted)
)

// =============================================================================
// VIEW
// =============================================================================

func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(m.renderInput())
	b.WriteString("\n")
	b.WriteString(m.renderStatus())
	if m.showHelp {
		b.WriteString("\n")
		b.WriteString(m.renderHelp())
	}
	return b.String()
}

// renderHeader renders the title bar with transport and model info.
func (m Model) renderHeader() string {
	settings := m.cfg.Settings()
	transport := "REST"
	if settings.Streaming {
		transport = "stream"
	}

	title := headerStyle.Render("perplexity-bridge")
	info := headerInfoStyle.Render(fmt.Sprintf("%s | %s | %s",
		settings.URL, m.ctrl.Model(), transport))

	gap := m.width - lipgloss.Width(title) - lipgloss.Width(info)
	if gap < 1 {
		return title + "\n"
	}
	return title + strings.Repeat(" ", gap) + info + "\n"
}

// renderInput renders the input line, replaced by a spinner while an
// exchange is in flight.
func (m Model) renderInput() string {
	if m.sending {
		return m.spin.View() + " " + statusStyle.Render("waiting for response...")
	}
	return m.input.View()
}

// renderStatus renders the status bar.
func (m Model) renderStatus() string {
	if m.notice != "" {
		return noticeStyle.Render(m.notice)
	}

	n := m.ctrl.Conversation().Len()
	return statusStyle.Render(fmt.Sprintf("%d messages | C-h help | C-c quit", n))
}

// renderHelp renders the expanded key binding help.
func (m Model) renderHelp() string {
	var rows []string
	for _, group := range m.keyMap.FullHelp() {
		var parts []string
		for _, b := range group {
			parts = append(parts, fmt.Sprintf("%s %s", b.Help().Key, b.Help().Desc))
		}
		rows = append(rows, strings.Join(parts, "  |  "))
	}
	return helpStyle.Render(strings.Join(rows, "\n"))
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

// refreshTranscript re-renders the conversation into the viewport.
func (m *Model) refreshTranscript() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderTranscript())
}

// renderTranscript renders every message with role labels and optional
// timestamps; assistant content renders through glamour when markdown is
// enabled.
func (m *Model) renderTranscript() string {
	messages := m.ctrl.Conversation().Messages()
	if len(messages) == 0 {
		return statusStyle.Render("\n  Start the conversation by typing below.")
	}

	settings := m.cfg.Settings()
	var b strings.Builder

	for i, msg := range messages {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(m.renderMessage(msg, settings.MarkdownRender, settings.ShowTimestamps))
	}
	return b.String()
}

func (m *Model) renderMessage(msg session.Message, markdown, showTimestamps bool) string {
	var label string
	switch msg.Role {
	case session.RoleUser:
		label = userLabelStyle.Render("You")
	case session.RoleAssistant:
		label = assistantLabelStyle.Render("Assistant")
	case session.RoleSystem:
		label = systemLabelStyle.Render("System")
	default:
		label = string(msg.Role)
	}

	if showTimestamps {
		label += " " + timestampStyle.Render(msg.Timestamp.Format("15:04:05"))
	}

	content := msg.Content
	if content == "" {
		content = statusStyle.Render("...")
	} else if markdown && msg.Role == session.RoleAssistant && m.renderer != nil {
		if rendered, err := m.renderer.Render(content); err == nil {
			content = strings.TrimRight(rendered, "\n")
		}
	}

	return label + "\n" + content + "\n"
}
