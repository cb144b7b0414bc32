// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

// =============================================================================
// TITLE TESTS
// =============================================================================

func TestDeriveTitle(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"question", "What's a good pH for my reef tank?", "What's a good pH for my reef tank"},
		{"first sentence only", "My tank is cloudy. What should I do?", "My tank is cloudy"},
		{"decimal is not a sentence end", "Is pH 8.2 fine for corals?", "Is pH 8.2 fine for corals"},
		{"line break ends sentence", "Nitrate spike\nafter feeding", "Nitrate spike"},
		{"collapses whitespace", "  too   many    spaces  ", "too many spaces"},
		{"empty", "   ", DefaultTitle},
		{
			"long cut at word boundary",
			"I recently set up a planted freshwater community aquarium with neon tetras and corydoras",
			"I recently set up a planted freshwater...",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DeriveTitle(tc.content))
		})
	}
}

func TestDeriveTitle_NeverExceedsLimit(t *testing.T) {
	long := strings.Repeat("coralline ", 20)
	title := DeriveTitle(long)
	assert.LessOrEqual(t, utf8.RuneCountInString(title), MaxTitleRunes)
	assert.True(t, strings.HasSuffix(title, "..."))

	exact := strings.Repeat("x", MaxTitleRunes)
	assert.Equal(t, exact, DeriveTitle(exact))
}

// =============================================================================
// PREVIEW TESTS
// =============================================================================

func TestDerivePreview(t *testing.T) {
	short := "Keep salinity at 1.025."
	assert.Equal(t, short, DerivePreview(short))

	long := strings.Repeat("a", 150)
	got := DerivePreview(long)
	assert.Equal(t, strings.Repeat("a", 100)+"...", got)
}

func TestTruncateRunes_Unicode(t *testing.T) {
	assert.Equal(t, "🐠🐠...", TruncateRunes("🐠🐠🐠", 2))
	assert.Equal(t, "", TruncateRunes("abc", 0))
}

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestGreeting(t *testing.T) {
	msgs := GreetingOnly()
	if assert.Len(t, msgs, 1) {
		assert.True(t, msgs[0].IsGreeting())
		assert.Equal(t, RoleAssistant, msgs[0].Role)
		assert.Contains(t, msgs[0].Content, "Hi! I'm Ally")
	}
}

func TestNewMessage_GeneratesIDs(t *testing.T) {
	a := NewUserMessage("hello")
	b := NewUserMessage("hello")
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.False(t, a.Timestamp.IsZero())
}

func TestConversation_AquariumOrGeneral(t *testing.T) {
	var c Conversation
	assert.Equal(t, GeneralAquarium, c.AquariumOrGeneral())

	id := "tank-1"
	c.AquariumID = &id
	assert.True(t, c.HasAquarium())
	assert.Equal(t, "tank-1", c.AquariumOrGeneral())
}

func TestQuickActionTypes_AllRouted(t *testing.T) {
	types := QuickActionTypes()
	assert.Len(t, types, 11)
	for _, typ := range types {
		assert.NotEmpty(t, typ.Route(), "missing route for %s", typ)
	}
}
