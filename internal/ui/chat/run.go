// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/aztr0nutzs/perplexity-bridge-pro/internal/config"
	"github.com/aztr0nutzs/perplexity-bridge-pro/internal/controller"
)

// Run starts the chat TUI and blocks until it exits. Controller callbacks
// are routed into the Bubble Tea loop with Program.Send so every state
// change goes through Update.
func Run(cfg *config.Manager, ctrl *controller.Controller) error {
	p := tea.NewProgram(New(cfg, ctrl), tea.WithAltScreen())

	ctrl.Conversation().OnChange(func() {
		p.Send(ConversationChangedMsg{})
	})
	ctrl.WithNotify(func(text string) {
		p.Send(NoticeMsg{Text: text})
	})
	ctrl.WithOnComplete(func() {
		p.Send(ExchangeDoneMsg{})
	})

	_, err := p.Run()
	return err
}
