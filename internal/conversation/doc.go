// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package conversation manages the active chat and the conversation list.
//
// The Manager wraps storage.Backend calls with the state the chat view
// needs: the signed-in user's conversations, the active conversation ID and
// the selected aquarium. Every mutation follows the same protocol: issue
// the remote write, then re-fetch the list. Failures are reported through a
// Notifier and leave local state at its last known good value.
//
// # Lifecycle
//
//	NEW (no ID) -> ACTIVE (ID assigned by the first SaveConversation)
//	ACTIVE -> ACTIVE (rename, pin, new messages)
//	ACTIVE -> NEW (deleted, or loaded with no stored messages)
//
// Asynchronous callers capture a Target when an exchange completes and
// save with SaveExchange. A save that finishes after the user started a
// new chat or opened another conversation still lands in the captured
// conversation and does not change which one is active.
//
// # Usage
//
//	mgr := conversation.New(store, sess, conversation.WithLogger(logger))
//	msgs := mgr.StartNewConversation()
//	id, err := mgr.SaveConversation(ctx, userMsg, assistantMsg)
package conversation
