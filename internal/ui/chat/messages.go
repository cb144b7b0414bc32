// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/aquaally/ally/internal/config"
	"github.com/aquaally/ally/internal/model"
)

// =============================================================================
// CONVERSATION MESSAGES
// =============================================================================

// conversationsLoadedMsg reports a history refresh.
type conversationsLoadedMsg struct {
	Err error
}

// conversationOpenedMsg carries the messages of a conversation picked in
// the sidebar.
type conversationOpenedMsg struct {
	ID       string
	Messages []model.Message
	Err      error
}

// exchangeSavedMsg reports a saved user/assistant pair.
type exchangeSavedMsg struct {
	ConversationID string
	Err            error
}

// replySavedMsg reports a regenerated reply saved after an edit.
type replySavedMsg struct {
	Err error
}

// messageUpdatedMsg reports an edited message written to storage. The
// reply is only requested once the later messages are gone.
type messageUpdatedMsg struct {
	Index int
	Err   error
}

// deletedMsg reports a single or bulk delete. WasActive is true when the
// open conversation was among the deleted ones.
type deletedMsg struct {
	IDs       []string
	WasActive bool
	Err       error
}

// listChangedMsg reports a pin or rename.
type listChangedMsg struct {
	Err error
}

// exportedMsg reports a conversation written to disk. Notified is set
// when the manager has already shown the failure.
type exportedMsg struct {
	Path     string
	Err      error
	Notified bool
}

// =============================================================================
// STREAMING MESSAGES
// =============================================================================

// streamEventMsg carries chunks batched since the last event. Done is set
// on the final event together with the full reply or the error.
type streamEventMsg struct {
	ID    int
	Chunk string
	Done  bool
	Reply string
	Err   error
}

// thinkingMsg fires when a reply has been pending for a while without any
// streamed text.
type thinkingMsg struct {
	ID int
}

// =============================================================================
// CONFIG MESSAGES
// =============================================================================

// reloadMsg carries a changed config file.
type reloadMsg struct {
	Reload config.Reload
}
