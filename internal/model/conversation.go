// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// Title and preview limits.
const (
	MaxTitleRunes   = 50
	MaxPreviewRunes = 100
	DefaultTitle    = "New Conversation"
)

// GeneralAquarium is the selected-aquarium value meaning "no specific aquatic space".
const GeneralAquarium = "general"

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation is one row of the chat_conversations table plus the derived
// message count.
type Conversation struct {
	ID                 string    `json:"id"`
	UserID             string    `json:"user_id"`
	Title              string    `json:"title"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
	AquariumID         *string   `json:"aquarium_id"`
	IsPinned           bool      `json:"is_pinned"`
	LastMessagePreview string    `json:"last_message_preview"`
	MessageCount       int       `json:"message_count"`
}

// HasAquarium reports whether the conversation is tied to an aquatic space.
func (c Conversation) HasAquarium() bool {
	return c.AquariumID != nil && *c.AquariumID != ""
}

// AquariumOrGeneral returns the associated aquarium ID or GeneralAquarium.
func (c Conversation) AquariumOrGeneral() string {
	if c.HasAquarium() {
		return *c.AquariumID
	}
	return GeneralAquarium
}

// =============================================================================
// DERIVED FIELDS
// =============================================================================

// DeriveTitle builds a conversation title from the first user message: the
// first sentence, cut at a word boundary so that the title including its
// "..." stays within MaxTitleRunes.
func DeriveTitle(content string) string {
	text := strings.TrimSpace(content)
	if text == "" {
		return DefaultTitle
	}

	if end := sentenceEnd(text); end > 0 {
		text = text[:end]
	}
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return DefaultTitle
	}

	runes := []rune(text)
	if len(runes) <= MaxTitleRunes {
		return text
	}

	cut := string(runes[:MaxTitleRunes-len(ellipsis)])
	if idx := strings.LastIndexFunc(cut, unicode.IsSpace); idx > 0 {
		cut = cut[:idx]
	}
	return strings.TrimRightFunc(cut, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	}) + ellipsis
}

const ellipsis = "..."


// sentenceEnd returns the byte index where the first sentence stops: a line
// break, or '.', '!' or '?' followed by whitespace or the end of text.
// Returns -1 when the whole text is one sentence.
func sentenceEnd(text string) int {
	for i, r := range text {
		switch r {
		case '\n':
			return i
		case '.', '!', '?':
			next, _ := utf8.DecodeRuneInString(text[i+1:])
			if next == utf8.RuneError || unicode.IsSpace(next) {
				return i
			}
		}
	}
	return -1
}

// DerivePreview truncates an assistant reply for the history sidebar.
func DerivePreview(content string) string {
	return TruncateRunes(strings.TrimSpace(content), MaxPreviewRunes)
}
