// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
//
// This package defines the core domain types shared by storage, the
// conversation manager, the annotators and the UI.
//
// # Key Types
//
//   - Conversation: One chat_conversations row with derived message count
//   - Message: Single message with role, content, timestamp and optional image
//   - FollowUpItem: Suggested next prompt parsed from an assistant reply
//   - QuickAction: Shortcut to an app screen detected in an assistant reply
//   - Role: Message role enumeration (user, assistant)
//
// # Usage
//
// Start a conversation view with the synthetic greeting:
//
//	msgs := model.GreetingOnly()
//
// Derive the stored title from the first user message:
//
//	title := model.DeriveTitle("What's a good pH for my reef tank?")
//	// "What's a good pH for my reef tank"
package model
