// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists conversations and messages.
//
// The data lives in two tables, chat_conversations and chat_messages. Every
// Backend call takes the owning user's ID and only touches that user's rows,
// so callers never see another user's conversations.
//
// # Key Types
//
//   - Backend: Table operations used by the conversation manager and API
//   - SQLiteStore: Local database under ~/.ally (modernc.org/sqlite)
//   - PostgresStore: Hosted database through a pgx connection pool
//   - ConversationPatch: Partial update of a conversation row
//
// # Usage
//
//	store, err := storage.Open(ctx, cfg.Storage)
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	convs, err := store.ListConversations(ctx, userID)
//
// # Errors
//
// ErrNotFound is returned for rows that do not exist or belong to another
// user. ErrUnauthenticated is returned when the user ID is empty.
package storage
