// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/aquaally/ally/internal/annotate"
	"github.com/aquaally/ally/internal/model"
	"github.com/aquaally/ally/internal/ui/components"
	"github.com/aquaally/ally/internal/ui/styles"
	"github.com/aquaally/ally/internal/ui/virtuallist"
	"github.com/aquaally/ally/internal/util"
)

// =============================================================================
// VIEW
// =============================================================================

// View renders the whole screen.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 {
		return "Loading Ally..."
	}

	bodyH := m.bodyHeight()
	var body string
	switch {
	case m.rename != nil:
		body = lipgloss.Place(m.width, bodyH, lipgloss.Center, lipgloss.Center, m.rename.View())
	case m.confirm != nil:
		body = lipgloss.Place(m.width, bodyH, lipgloss.Center, lipgloss.Center, m.confirm.View())
	default:
		var cols []string
		if m.sidebarVisible() {
			cols = append(cols, m.sidebar.View(m.focus == focusSidebar))
		}
		if m.chatVisible() {
			if len(cols) > 0 {
				cols = append(cols, " ")
			}
			cols = append(cols, m.chatView(bodyH))
		}
		body = lipgloss.JoinHorizontal(lipgloss.Top, cols...)
	}

	return lipgloss.JoinVertical(lipgloss.Left, m.headerView(), body, m.footerView())
}

func (m Model) headerView() string {
	title := model.DefaultTitle
	if id := m.manager.CurrentConversationID(); id != "" {
		if c, ok := m.manager.Find(id); ok {
			title = c.Title
		}
	}

	right := "Signed out"
	if m.session != nil {
		if u, ok := m.session.User(); ok {
			right = u.DisplayName
			if right == "" {
				right = u.Email
			}
		}
	}
	right = m.theme.Muted.Render(right)

	left := m.theme.Brand.Render("Ally") + "  " +
		util.TruncateWidth(title, m.width-lipgloss.Width(right)-12)
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	return m.theme.Header.Render(left + strings.Repeat(" ", gap) + right)
}

func (m Model) footerView() string {
	input := m.theme.InputBox.Width(m.width - 2).Render(m.input.View())

	tier := ""
	if m.session != nil {
		tier = string(m.session.Tier())
	}
	bar := components.StatusBar{
		Aquarium:  m.manager.SelectedAquarium(),
		Tier:      tier,
		Status:    m.statusText(),
		Shortcuts: m.shortcuts(),
	}
	return lipgloss.JoinVertical(lipgloss.Left, input, bar.View(m.theme, m.width))
}

func (m Model) statusText() string {
	switch {
	case m.editIndex >= 0:
		return m.theme.EditMarker.Render("Editing message, esc cancels")
	case m.saving:
		return m.theme.Muted.Render("Saving...")
	}
	return ""
}

// shortcuts lists the hints for the focused pane.
func (m Model) shortcuts() []components.Shortcut {
	k := m.keys
	switch m.focus {
	case focusChips:
		return []components.Shortcut{hint(k.Left), hint(k.Right), hint(k.Submit), hint(k.Cancel)}
	case focusMessages:
		return []components.Shortcut{hint(k.Up), hint(k.Down), hint(k.EditMessage), hint(k.Cancel)}
	case focusSidebar:
		if m.sidebar.Selection().Active() {
			return []components.Shortcut{hint(k.ToggleCheck), hint(k.SelectAll), hint(k.BulkDelete), hint(k.Cancel)}
		}
		return []components.Shortcut{
			{Key: "enter", Desc: "open"}, hint(k.Pin), hint(k.Rename), hint(k.Export),
			hint(k.Delete), hint(k.SelectMode), hint(k.Search), hint(k.CycleFilter),
		}
	}
	if m.pending {
		return []components.Shortcut{{Key: "esc", Desc: "stop"}, hint(k.Quit)}
	}
	return []components.Shortcut{hint(k.Submit), hint(k.FocusNext), hint(k.NewChat), hint(k.ToggleSide), hint(k.Quit)}
}

// chatView draws the visible message lines with chips and toasts below.
func (m Model) chatView(height int) string {
	vp := m.list.Viewport()
	lines := make([]string, 0, vp)
	lines = append(lines, m.chatLines...)
	for len(lines) < vp {
		lines = append(lines, "")
	}
	view := strings.Join(lines, "\n")
	if extras := m.extrasView(); extras != "" {
		view += "\n" + extras
	}
	return lipgloss.NewStyle().Width(m.chatWidth()).Height(height).MaxHeight(height).Render(view)
}

func (m Model) extrasView() string {
	var parts []string
	if len(m.chips) > 0 && !m.pending {
		sel := -1
		if m.focus == focusChips {
			sel = m.chipSel
		}
		parts = append(parts, components.RenderChips(m.theme, m.chips, sel, m.chipWidth()))
	}
	if toasts := m.toasts.Toasts(); len(toasts) > 0 {
		parts = append(parts, components.RenderToastStack(m.theme, toasts, m.chatWidth()))
	}
	if len(parts) == 0 {
		return ""
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// =============================================================================
// LAYOUT
// =============================================================================

func (m Model) sidebarVisible() bool {
	if m.layout == styles.LayoutNarrow {
		return m.focus == focusSidebar
	}
	return m.showSidebar
}

func (m Model) chatVisible() bool {
	return !(m.layout == styles.LayoutNarrow && m.focus == focusSidebar)
}

func (m Model) sidebarOuterWidth() int {
	if m.layout == styles.LayoutNarrow {
		return m.width
	}
	w := m.sidebarWidth
	if w <= 0 {
		w = defaultSidebarWidth
	}
	if w > m.width/2 {
		w = m.width / 2
	}
	return w
}

func (m Model) chatWidth() int {
	if m.layout == styles.LayoutWide && m.showSidebar {
		return m.width - m.sidebarOuterWidth() - 1
	}
	return m.width
}

func (m Model) chipWidth() int {
	if w := m.chatWidth() - 2; w > 10 {
		return w
	}
	return 10
}

func (m Model) bodyHeight() int {
	h := m.height - lipgloss.Height(m.headerView()) - lipgloss.Height(m.footerView())
	if h < 3 {
		return 3
	}
	return h
}

func (m Model) chatHeight() int {
	h := m.bodyHeight()
	if extras := m.extrasView(); extras != "" {
		h -= lipgloss.Height(extras)
	}
	if h < 1 {
		return 1
	}
	return h
}

// resize recomputes pane sizes after a terminal or layout change.
func (m *Model) resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	m.width, m.height = width, height
	m.layout = styles.LayoutFor(width)
	m.renderer.SetWidth(m.chatWidth())
	m.list.Invalidate()
	if w := width - 8; w > 10 {
		m.input.Width = w
	}
	m.sidebar.SetSize(m.sidebarOuterWidth(), m.bodyHeight())
}

// layoutMessages renders the virtual window of the message list into
// chatLines, measuring each rendered row. A second pass runs when
// measurements moved the window.
func (m *Model) layoutMessages() {
	if m.width == 0 {
		return
	}
	m.list.SetViewport(m.chatHeight())

	for pass := 0; pass < 2; pass++ {
		items := m.list.VirtualItems()
		if len(items) == 0 {
			m.chatLines = nil
			return
		}

		rows := make([]string, len(items))
		changed := false
		for k, it := range items {
			rows[k] = m.renderRow(it)
			h := lipgloss.Height(rows[k]) + 1
			if h != m.list.Size(it.Index) {
				changed = true
			}
			m.list.Measure(it.Index, h)
		}
		if changed && pass == 0 {
			continue
		}

		var lines []string
		for _, r := range rows {
			lines = append(lines, strings.Split(r, "\n")...)
			lines = append(lines, "")
		}
		from := m.list.Offset() - m.list.Start(items[0].Index)
		if from < 0 {
			from = 0
		}
		if from > len(lines) {
			from = len(lines)
		}
		to := from + m.list.Viewport()
		if to > len(lines) {
			to = len(lines)
		}
		m.chatLines = lines[from:to]
		return
	}
}

// renderRow draws one virtual row: a message or the loading indicator.
func (m *Model) renderRow(it virtuallist.Item) string {
	if it.Loading {
		return m.loading.View()
	}

	msg := m.messages[it.Index]
	live := m.streaming && it.Index == len(m.messages)-1
	content := msg.Content
	if msg.Role == model.RoleAssistant {
		if live {
			if m.typewriter.Active() {
				content = m.typewriter.Visible()
			}
			content = annotate.VisibleWhileStreaming(content)
		} else {
			content, _ = annotate.ParseFollowUpSuggestions(content)
		}
	}

	return m.renderer.Render(msg, content, components.RenderOptions{
		Streaming: live,
		Cursor:    m.focus == focusMessages && it.Index == m.cursor,
	})
}
