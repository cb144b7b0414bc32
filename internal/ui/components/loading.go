// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/aquaally/ally/internal/ui/styles"
	"github.com/aquaally/ally/internal/ui/virtuallist"
)

// =============================================================================
// LOADING ROW
// =============================================================================

// LoadingIndicator renders the synthetic trailing row shown while a reply
// is pending and nothing has streamed yet.
type LoadingIndicator struct {
	theme   *styles.Theme
	spinner spinner.Model
	kind    virtuallist.LoadingKind
}

// NewLoadingIndicator creates an indicator in typing mode.
func NewLoadingIndicator(theme *styles.Theme) LoadingIndicator {
	l := LoadingIndicator{theme: theme, spinner: spinner.New()}
	l.SetKind(virtuallist.LoadingTyping)
	return l
}

// SetKind switches between the typing and thinking animations.
func (l *LoadingIndicator) SetKind(kind virtuallist.LoadingKind) {
	if kind == l.kind {
		return
	}
	l.kind = kind
	frames := styles.TypingFrames
	if kind == virtuallist.LoadingThinking {
		frames = styles.ThinkingFrames
	}
	l.spinner.Spinner = spinner.Spinner{Frames: frames.Frames, FPS: frames.Interval()}
	l.spinner.Style = l.theme.LoadingRow
}

// Kind returns the current animation kind.
func (l LoadingIndicator) Kind() virtuallist.LoadingKind { return l.kind }

// Tick starts the animation.
func (l LoadingIndicator) Tick() tea.Cmd {
	return l.spinner.Tick
}

// Update advances the animation.
func (l LoadingIndicator) Update(msg tea.Msg) (LoadingIndicator, tea.Cmd) {
	var cmd tea.Cmd
	l.spinner, cmd = l.spinner.Update(msg)
	return l, cmd
}

// View renders the row.
func (l LoadingIndicator) View() string {
	label := "Ally is typing"
	if l.kind == virtuallist.LoadingThinking {
		label = "Ally is thinking"
	}
	return l.theme.AssistantLabel.Render("Ally") + "\n" +
		l.theme.LoadingRow.Render(label+" ") + l.spinner.View()
}
