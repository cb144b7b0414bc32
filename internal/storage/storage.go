// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/aquaally/ally/internal/config"
	"github.com/aquaally/ally/internal/model"
)

// =============================================================================
// BACKEND INTERFACE
// =============================================================================

// Backend is the chat_conversations / chat_messages table pair.
type Backend interface {
	// ListConversations returns the user's conversations, pinned first and
	// then most recently updated, with message counts.
	ListConversations(ctx context.Context, userID string) ([]model.Conversation, error)

	// GetConversation returns one conversation.
	GetConversation(ctx context.Context, userID, id string) (model.Conversation, error)

	// CreateConversation inserts conv. Empty ID and zero times are filled in.
	CreateConversation(ctx context.Context, conv model.Conversation) (model.Conversation, error)

	// UpdateConversation applies the non-nil fields of patch.
	UpdateConversation(ctx context.Context, userID, id string, patch ConversationPatch) error

	// DeleteConversations removes conversations and their messages in one
	// statement batch and returns how many conversations were removed.
	DeleteConversations(ctx context.Context, userID string, ids []string) (int, error)

	// ListMessages returns a conversation's messages in creation order.
	ListMessages(ctx context.Context, userID, conversationID string) ([]model.Message, error)

	// InsertMessages appends msgs to a conversation in one transaction.
	InsertMessages(ctx context.Context, userID, conversationID string, msgs []model.Message) error

	// UpdateMessage replaces a message's content.
	UpdateMessage(ctx context.Context, userID, messageID, content string) error

	// DeleteMessages removes messages and returns how many were removed.
	DeleteMessages(ctx context.Context, userID string, ids []string) (int, error)

	// Close releases the underlying connections.
	Close() error
}

// ConversationPatch is a partial update. Nil fields are left unchanged.
type ConversationPatch struct {
	Title              *string
	IsPinned           *bool
	UpdatedAt          *time.Time
	LastMessagePreview *string
}

// IsEmpty reports whether the patch changes nothing.
func (p ConversationPatch) IsEmpty() bool {
	return p.Title == nil && p.IsPinned == nil && p.UpdatedAt == nil && p.LastMessagePreview == nil
}

// =============================================================================
// FACTORY
// =============================================================================

// Driver names accepted by Open.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Open connects to the backend selected by cfg.Driver and ensures the schema
// exists.
func Open(ctx context.Context, cfg config.StorageConfig) (Backend, error) {
	switch cfg.Driver {
	case "", DriverSQLite:
		return OpenSQLite(ctx, cfg.Path)
	case DriverPostgres:
		return OpenPostgres(ctx, cfg.DatabaseURL, cfg.MaxConns)
	default:
		return nil, fmt.Errorf("storage: unknown driver %q", cfg.Driver)
	}
}

// =============================================================================
// HELPERS
// =============================================================================

func requireUser(userID string) error {
	if userID == "" {
		return ErrUnauthenticated
	}
	return nil
}

// prepareConversation fills defaults for a new row.
func prepareConversation(conv model.Conversation, now time.Time) model.Conversation {
	if conv.ID == "" {
		conv.ID = newID()
	}
	if conv.Title == "" {
		conv.Title = model.DefaultTitle
	}
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = now
	}
	if conv.UpdatedAt.IsZero() {
		conv.UpdatedAt = conv.CreatedAt
	}
	conv.MessageCount = 0
	return conv
}

// prepareMessage fills defaults and validates the role.
func prepareMessage(msg model.Message, now time.Time) (model.Message, error) {
	if !msg.Role.Valid() {
		return msg, fmt.Errorf("storage: invalid message role %q", msg.Role)
	}
	if msg.ID == "" || msg.IsGreeting() {
		msg.ID = newID()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = now
	}
	return msg, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
