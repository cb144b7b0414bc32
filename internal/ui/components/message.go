// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/aquaally/ally/internal/model"
	"github.com/aquaally/ally/internal/ui/styles"
)

// =============================================================================
// MESSAGE RENDERER
// =============================================================================

// RenderOptions adjusts how one message is drawn.
type RenderOptions struct {
	// Streaming disables caching while content is still changing.
	Streaming bool
	// Cursor highlights the message under the edit cursor.
	Cursor bool
}

type cachedMessage struct {
	width   int
	content string
	cursor  bool
	out     string
}

// MessageRenderer draws chat messages, caching finished ones by ID and width.
type MessageRenderer struct {
	theme       *styles.Theme
	highlighter *Highlighter
	markdown    bool
	width       int
	glamour     *glamour.TermRenderer
	cache       map[string]cachedMessage
}

// NewMessageRenderer creates a renderer. With markdown off, replies are
// wrapped as plain text and only fenced code is highlighted.
func NewMessageRenderer(theme *styles.Theme, markdown bool) *MessageRenderer {
	return &MessageRenderer{
		theme:       theme,
		highlighter: NewHighlighter(theme),
		markdown:    markdown,
		cache:       make(map[string]cachedMessage),
	}
}

// SetWidth changes the wrap width and drops the cache when it differs.
func (r *MessageRenderer) SetWidth(width int) {
	if width == r.width {
		return
	}
	r.width = width
	r.glamour = nil
	r.cache = make(map[string]cachedMessage)
}

// SetTheme switches styles after a theme change.
func (r *MessageRenderer) SetTheme(theme *styles.Theme) {
	r.theme = theme
	r.highlighter = NewHighlighter(theme)
	r.glamour = nil
	r.cache = make(map[string]cachedMessage)
}

// Forget drops the cached rendering of one message.
func (r *MessageRenderer) Forget(id string) {
	delete(r.cache, id)
}

// CacheSize reports how many messages are cached.
func (r *MessageRenderer) CacheSize() int {
	return len(r.cache)
}

func (r *MessageRenderer) bodyWidth() int {
	// Border plus padding take two cells.
	if w := r.width - 2; w > 10 {
		return w
	}
	return 10
}

func (r *MessageRenderer) termRenderer() *glamour.TermRenderer {
	if r.glamour != nil {
		return r.glamour
	}
	tr, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(r.theme.GlamourStyle()),
		glamour.WithWordWrap(r.bodyWidth()),
	)
	if err != nil {
		return nil
	}
	r.glamour = tr
	return tr
}

// Render draws msg with content as its visible text. content differs from
// msg.Content while the typewriter is revealing a reply or after the
// follow-up block was stripped.
func (r *MessageRenderer) Render(msg model.Message, content string, opts RenderOptions) string {
	if !opts.Streaming {
		if c, ok := r.cache[msg.ID]; ok && c.width == r.width && c.content == content && c.cursor == opts.Cursor {
			return c.out
		}
	}

	label := r.theme.AssistantLabel
	body := r.theme.AssistantBody
	if msg.Role == model.RoleUser {
		label = r.theme.UserLabel
		body = r.theme.UserBody
	}

	header := label.Render(msg.Role.DisplayName())
	if !msg.Timestamp.IsZero() && !msg.IsGreeting() {
		header += " " + r.theme.Timestamp.Render(msg.Timestamp.Format("15:04"))
	}
	if opts.Cursor {
		header = r.theme.EditMarker.Render("> ") + header
	}

	text := r.renderBody(msg.Role, content)
	if msg.ImageURL != "" {
		text += "\n" + r.theme.Muted.Render("[image] "+msg.ImageURL)
	}
	out := header + "\n" + body.Width(r.bodyWidth()).Render(text)

	if !opts.Streaming {
		r.cache[msg.ID] = cachedMessage{width: r.width, content: content, cursor: opts.Cursor, out: out}
	}
	return out
}

func (r *MessageRenderer) renderBody(role model.Role, content string) string {
	if role == model.RoleAssistant && r.markdown {
		if tr := r.termRenderer(); tr != nil {
			if out, err := tr.Render(content); err == nil {
				return strings.Trim(out, "\n")
			}
		}
	}
	if role == model.RoleAssistant {
		return RenderCodeBlocks(r.theme, r.highlighter, content)
	}
	return lipgloss.NewStyle().Width(r.bodyWidth()).Render(content)
}
