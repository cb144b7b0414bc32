// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/aquaally/ally/internal/ui/styles"
)

// =============================================================================
// PROMPT DIALOG
// =============================================================================

// PromptDialog asks for one line of text, as when renaming a conversation.
type PromptDialog struct {
	theme  *styles.Theme
	Title  string
	Target string
	input  textinput.Model
}

// NewPromptDialog creates a focused dialog prefilled with value.
func NewPromptDialog(theme *styles.Theme, title, target, value string) PromptDialog {
	in := textinput.New()
	in.SetValue(value)
	in.CharLimit = 200
	in.Width = 40
	in.Focus()
	in.CursorEnd()
	return PromptDialog{theme: theme, Title: title, Target: target, input: in}
}

// Value returns the trimmed input.
func (d PromptDialog) Value() string {
	return strings.TrimSpace(d.input.Value())
}

// Update forwards keys to the text input.
func (d PromptDialog) Update(msg tea.Msg) (PromptDialog, tea.Cmd) {
	var cmd tea.Cmd
	d.input, cmd = d.input.Update(msg)
	return d, cmd
}

// View renders the dialog box.
func (d PromptDialog) View() string {
	hint := d.theme.ShortcutKey.Render("enter") + d.theme.ShortcutDesc.Render(" save  ") +
		d.theme.ShortcutKey.Render("esc") + d.theme.ShortcutDesc.Render(" cancel")
	return d.theme.Dialog.Render(d.theme.Brand.Render(d.Title) + "\n\n" + d.input.View() + "\n\n" + hint)
}

// =============================================================================
// CONFIRM DIALOG
// =============================================================================

// ConfirmDialog asks a yes/no question before a destructive action.
type ConfirmDialog struct {
	theme   *styles.Theme
	Title   string
	Message string
	IDs     []string
}

// NewConfirmDialog creates a confirmation for ids.
func NewConfirmDialog(theme *styles.Theme, title, message string, ids []string) ConfirmDialog {
	return ConfirmDialog{theme: theme, Title: title, Message: message, IDs: ids}
}

// View renders the dialog box.
func (d ConfirmDialog) View() string {
	hint := d.theme.ShortcutKey.Render("y") + d.theme.ShortcutDesc.Render(" delete  ") +
		d.theme.ShortcutKey.Render("n/esc") + d.theme.ShortcutDesc.Render(" cancel")
	return d.theme.Dialog.Render(d.theme.SelectionBanner.Render(d.Title) + "\n\n" + d.Message + "\n\n" + hint)
}
