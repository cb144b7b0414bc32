// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat provides the main chat screen of the Ally terminal client.

The screen combines the conversation with Ally, the history sidebar and the
suggestion chips derived from Ally's last reply. All state lives in a single
Bubble Tea model; storage and assistant calls run as commands and report back
as messages.

# Key Components

## Model (model.go)

The Model struct holds the displayed messages, the reply state (pending,
streaming, thinking), the typewriter, the virtualized message list and the
sidebar. Deps wires it to a conversation.Manager and an assistant Replier.

## Update Loop (update.go)

Handles keys per focused pane (input, chips, messages, sidebar), stream
events, storage results and config reloads. Editing a user message rewrites
it in place, drops every later message and requests a new reply.

## View Rendering (view.go)

Renders only the virtual window of the message list. Each visible row is
measured after rendering so the list can position rows of varying height
and keep the view pinned to the bottom while a reply streams.

## Streaming (streaming.go)

A reply runs in a goroutine that pushes chunks into a buffered channel. The
update loop pulls them with a command that folds every queued chunk into one
message. A reply that stays silent for ThinkingDelay switches the loading
row to the thinking indicator.

# Usage

	m := chat.New(chat.Deps{
		Manager:   manager,
		Assistant: client,
		Session:   sess,
		Toasts:    toasts,
		Logger:    logger,
		UI:        cfg.UI,
		Ctx:       ctx,
	})
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
*/
package chat
