// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import "github.com/aztr0nutzs/perplexity-bridge-pro/internal/api"

// =============================================================================
// MESSAGES
// =============================================================================

// ConversationChangedMsg signals that the conversation mutated and the
// transcript needs re-rendering. Sent from controller callbacks via
// Program.Send.
type ConversationChangedMsg struct{}

// ExchangeDoneMsg signals that the in-flight exchange reached a terminal
// state, successful or not.
type ExchangeDoneMsg struct{}

// NoticeMsg carries a transient status-bar message.
type NoticeMsg struct {
	Text string
}

// SendFailedMsg reports a send that was rejected before any transport
// activity.
type SendFailedMsg struct {
	Err error
}

// ModelsLoadedMsg carries the result of a model list request.
type ModelsLoadedMsg struct {
	Models []api.ModelInfo
	Err    error
}
