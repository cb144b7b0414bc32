// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Ally"
	default:
		return string(r)
	}
}

// Valid reports whether r is a role the chat tables accept.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// GreetingID is the fixed ID of the synthetic greeting message.
// The greeting is never persisted.
const GreetingID = "greeting"

// GreetingText is shown when a conversation has no stored messages.
const GreetingText = "Hi! I'm Ally, your aquatic assistant. Ask me anything about your aquarium, " +
	"pool, spa or pond: water chemistry, livestock, plants, equipment or maintenance schedules."

// Message represents a single chat message.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	ImageURL  string    `json:"imageUrl,omitempty"`
}

// NewMessage creates a new message with a generated ID.
func NewMessage(role Role, content string) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) Message {
	return NewMessage(RoleUser, content)
}

// NewAssistantMessage creates a new assistant message.
func NewAssistantMessage(content string) Message {
	return NewMessage(RoleAssistant, content)
}

// Greeting returns the synthetic assistant greeting.
func Greeting() Message {
	return Message{
		ID:        GreetingID,
		Role:      RoleAssistant,
		Content:   GreetingText,
		Timestamp: time.Now(),
	}
}

// GreetingOnly returns a message list holding just the greeting.
func GreetingOnly() []Message {
	return []Message{Greeting()}
}

// IsGreeting reports whether m is the synthetic greeting.
func (m Message) IsGreeting() bool {
	return m.ID == GreetingID
}

// Preview returns a truncated preview of the message content.
// Uses rune-based truncation to handle Unicode correctly.
func (m Message) Preview(maxLen int) string {
	return TruncateRunes(strings.TrimSpace(m.Content), maxLen)
}

// =============================================================================
// HELPERS
// =============================================================================

// TruncateRunes cuts s to maxLen runes and appends "..." when it was longer.
// The ellipsis is not counted against maxLen.
func TruncateRunes(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
