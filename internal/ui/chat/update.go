// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/aquaally/ally/internal/config"
	"github.com/aquaally/ally/internal/model"
	"github.com/aquaally/ally/internal/ui/components"
	"github.com/aquaally/ally/internal/ui/styles"
	"github.com/aquaally/ally/internal/ui/typewriter"
	"github.com/aquaally/ally/internal/ui/virtuallist"
)

// =============================================================================
// UPDATE
// =============================================================================

// Update handles every message for the chat screen.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)

	case tea.KeyMsg:
		cmds = append(cmds, m.handleKey(msg))

	case components.SearchDebounceMsg:
		cmds = append(cmds, m.sidebar.Update(msg))

	case components.ToastTickMsg:
		m.toasts.Prune(msg.Time)
		cmds = append(cmds, components.ToastTickCmd())

	case typewriter.TickMsg:
		cmds = append(cmds, m.typewriter.Update(msg))

	case spinner.TickMsg:
		// The animation stops with the loading row and restarts with the
		// next request.
		if m.list.Loading() != virtuallist.LoadingNone {
			var cmd tea.Cmd
			m.loading, cmd = m.loading.Update(msg)
			cmds = append(cmds, cmd)
		}

	case streamEventMsg:
		cmds = append(cmds, m.handleStreamEvent(msg))

	case thinkingMsg:
		if m.stream != nil && msg.ID == m.stream.id && m.pending && !m.streaming {
			m.thinking = true
			m.loading.SetKind(virtuallist.LoadingThinking)
			m.list.SetLoading(true, false, true)
		}

	case conversationsLoadedMsg:
		m.logErr("Failed to fetch conversations", msg.Err)
		m.syncSidebar()

	case conversationOpenedMsg:
		if msg.Err != nil {
			m.logErr("Failed to open conversation", msg.Err)
			break
		}
		m.cancelReply()
		m.setMessages(msg.Messages)
		m.syncSidebar()
		if m.layout == styles.LayoutNarrow {
			m.setFocus(focusInput)
		}

	case exchangeSavedMsg:
		m.saving = false
		m.logErr("Failed to save exchange", msg.Err)
		m.syncSidebar()

	case replySavedMsg:
		m.saving = false
		m.logErr("Failed to save reply", msg.Err)
		m.syncSidebar()

	case messageUpdatedMsg:
		if !m.pending || m.stream != nil {
			break
		}
		m.persist = persistReply
		if msg.Err != nil {
			m.logErr("Failed to update message", msg.Err)
			m.persist = persistNone
		}
		cmds = append(cmds, m.requestReply())

	case deletedMsg:
		cmds = append(cmds, m.handleDeleted(msg))

	case listChangedMsg:
		m.logErr("Failed to update conversation", msg.Err)
		m.syncSidebar()

	case exportedMsg:
		switch {
		case msg.Err == nil:
			m.toasts.Success("Exported", msg.Path)
		case !msg.Notified:
			m.logErr("Failed to write export", msg.Err)
			m.toasts.Error("Error", "Failed to export conversation")
		}

	case reloadMsg:
		if msg.Reload.Err != nil {
			m.logger.Warn("Config reload failed", zap.Error(msg.Reload.Err))
		} else if msg.Reload.Config != nil {
			m.applyUI(msg.Reload.Config.UI)
			m.logger.Info("Config reloaded")
		}
		cmds = append(cmds, waitForReload(m.reloads))

	default:
		if m.focus == focusInput && m.rename == nil {
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	if m.quitting {
		return m, tea.Quit
	}
	m.layoutMessages()
	return m, tea.Batch(cmds...)
}

// =============================================================================
// KEYS
// =============================================================================

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if key.Matches(msg, m.keys.Quit) {
		m.cancelReply()
		m.quitting = true
		return nil
	}
	if m.confirm != nil {
		return m.handleConfirmKey(msg)
	}
	if m.rename != nil {
		return m.handleRenameKey(msg)
	}
	if m.focus == focusSidebar && m.sidebar.Searching() {
		return m.handleSearchKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.NewChat):
		m.newChat()
		return nil
	case key.Matches(msg, m.keys.FocusNext):
		m.cycleFocus()
		return nil
	case key.Matches(msg, m.keys.ToggleSide):
		m.toggleSidebar()
		return nil
	case key.Matches(msg, m.keys.PageUp):
		m.list.ScrollBy(-m.pageStep())
		return nil
	case key.Matches(msg, m.keys.PageDown):
		m.list.ScrollBy(m.pageStep())
		return nil
	}

	switch m.focus {
	case focusChips:
		return m.handleChipKey(msg)
	case focusMessages:
		return m.handleMessageKey(msg)
	case focusSidebar:
		return m.handleSidebarKey(msg)
	default:
		return m.handleInputKey(msg)
	}
}

func (m *Model) handleInputKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Submit):
		return m.submit(m.input.Value())
	case key.Matches(msg, m.keys.Cancel):
		switch {
		case m.pending:
			m.cancelReply()
		case m.editIndex >= 0:
			m.editIndex = -1
			m.input.SetValue("")
		}
		return nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

func (m *Model) handleChipKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Left):
		if m.chipSel > 0 {
			m.chipSel--
		}
	case key.Matches(msg, m.keys.Right):
		if m.chipSel < len(m.chips)-1 {
			m.chipSel++
		}
	case key.Matches(msg, m.keys.Submit):
		return m.activateChip()
	case key.Matches(msg, m.keys.Cancel):
		m.setFocus(focusInput)
	}
	return nil
}

func (m *Model) handleMessageKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
			m.revealCursor()
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.messages)-1 {
			m.cursor++
			m.revealCursor()
		}
	case key.Matches(msg, m.keys.EditMessage):
		m.startEdit(m.cursor)
	case key.Matches(msg, m.keys.Cancel):
		m.setFocus(focusInput)
	}
	return nil
}

func (m *Model) handleSidebarKey(msg tea.KeyMsg) tea.Cmd {
	sel := m.sidebar.Selection()

	switch {
	case key.Matches(msg, m.keys.Up):
		m.sidebar.CursorUp()
	case key.Matches(msg, m.keys.Down):
		m.sidebar.CursorDown()
	case key.Matches(msg, m.keys.Search):
		return m.sidebar.StartSearch()
	case key.Matches(msg, m.keys.CycleFilter):
		m.sidebar.CycleFilter()
	case key.Matches(msg, m.keys.SelectMode):
		m.sidebar.ToggleSelectionMode()
	case key.Matches(msg, m.keys.Cancel):
		switch {
		case sel.Active():
			sel.Exit()
		case m.sidebar.Query() != "":
			m.sidebar.ClearSearch()
		default:
			m.setFocus(focusInput)
		}
	case sel.Active():
		return m.handleSelectionKey(msg)
	default:
		return m.handleRowKey(msg)
	}
	return nil
}

// handleSelectionKey handles keys in selection mode, where per-row actions
// are disabled.
func (m *Model) handleSelectionKey(msg tea.KeyMsg) tea.Cmd {
	sel := m.sidebar.Selection()
	switch {
	case key.Matches(msg, m.keys.ToggleCheck):
		m.sidebar.ToggleChecked()
	case key.Matches(msg, m.keys.SelectAll):
		m.sidebar.SelectAllVisible()
	case key.Matches(msg, m.keys.BulkDelete), key.Matches(msg, m.keys.Delete):
		if sel.Count() == 0 {
			return nil
		}
		ids := sel.IDs()
		noun := "conversations"
		if len(ids) == 1 {
			noun = "conversation"
		}
		d := components.NewConfirmDialog(m.theme,
			fmt.Sprintf("Delete %d %s?", len(ids), noun),
			"This cannot be undone.", ids)
		m.confirm = &d
	}
	return nil
}

// handleRowKey handles actions on the conversation under the cursor.
func (m *Model) handleRowKey(msg tea.KeyMsg) tea.Cmd {
	conv, ok := m.sidebar.Selected()
	if !ok {
		return nil
	}

	switch {
	case key.Matches(msg, m.keys.Submit):
		return m.loadConversationCmd(conv.ID)
	case key.Matches(msg, m.keys.Pin):
		return m.pinCmd(conv.ID)
	case key.Matches(msg, m.keys.Rename):
		d := components.NewPromptDialog(m.theme, "Rename conversation", conv.ID, conv.Title)
		m.rename = &d
		return textinput.Blink
	case key.Matches(msg, m.keys.Export):
		return m.exportCmd(conv.ID)
	case key.Matches(msg, m.keys.Delete):
		d := components.NewConfirmDialog(m.theme, "Delete conversation?",
			fmt.Sprintf("%q will be deleted permanently.", conv.Title), []string{conv.ID})
		m.confirm = &d
	}
	return nil
}

func (m *Model) handleSearchKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEnter:
		m.sidebar.StopSearch()
		return nil
	case tea.KeyEsc:
		m.sidebar.ClearSearch()
		return nil
	}
	return m.sidebar.Update(msg)
}

func (m *Model) handleConfirmKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.ConfirmYes):
		ids := m.confirm.IDs
		m.confirm = nil
		return m.deleteCmd(ids)
	case key.Matches(msg, m.keys.ConfirmNo):
		m.confirm = nil
	}
	return nil
}

func (m *Model) handleRenameKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEnter:
		id, title := m.rename.Target, m.rename.Value()
		m.rename = nil
		if title == "" {
			return nil
		}
		return m.renameCmd(id, title)
	case tea.KeyEsc:
		m.rename = nil
		return nil
	}
	d, cmd := m.rename.Update(msg)
	m.rename = &d
	return cmd
}

// =============================================================================
// SENDING AND EDITING
// =============================================================================

// submit sends text as a new user message, or as the edited message when
// an edit is in progress.
func (m *Model) submit(text string) tea.Cmd {
	text = strings.TrimSpace(text)
	if text == "" || m.pending || m.saving {
		return nil
	}
	if m.assistant == nil {
		m.toasts.Error("Error", "Ally is not configured")
		return nil
	}
	m.input.SetValue("")

	if m.editIndex >= 0 {
		return m.submitEdit(text)
	}

	userMsg := model.NewUserMessage(text)
	m.messages = append(m.messages, userMsg)
	m.list.SetCount(len(m.messages))
	m.cursor = len(m.messages) - 1
	m.replyTo = userMsg
	m.persist = persistExchange
	return m.requestReply()
}

// startEdit loads a user message into the input for in-place editing.
func (m *Model) startEdit(i int) {
	if m.pending || i < 0 || i >= len(m.messages) || m.messages[i].Role != model.RoleUser {
		return
	}
	m.editIndex = i
	m.input.SetValue(m.messages[i].Content)
	m.input.CursorEnd()
	m.setFocus(focusInput)
}

// submitEdit rewrites the message and drops every later one. The new reply
// is requested once storage has caught up.
func (m *Model) submitEdit(text string) tea.Cmd {
	i := m.editIndex
	m.editIndex = -1

	for _, later := range m.messages[i:] {
		m.renderer.Forget(later.ID)
	}
	edited := m.messages[i]
	edited.Content = text
	m.messages = append(m.messages[:i:i], edited)
	m.list.SetCount(len(m.messages))
	m.cursor = i
	m.replyTo = edited
	m.chips = nil
	m.chipSel = -1

	m.pending = true
	m.list.SetLoading(true, false, false)
	return tea.Batch(m.updateMessageCmd(m.dbIndex(i), text), m.loading.Tick())
}

// requestReply starts streaming a reply to the current conversation.
func (m *Model) requestReply() tea.Cmd {
	m.streamSeq++
	m.pending = true
	m.streaming = false
	m.thinking = false
	m.chips = nil
	m.chipSel = -1
	if m.focus == focusChips {
		m.setFocus(focusInput)
	}

	history := make([]model.Message, len(m.messages))
	copy(history, m.messages)
	m.stream = startStream(m.ctx, m.assistant, m.streamSeq, history, m.manager.SelectedAquarium())

	m.loading.SetKind(virtuallist.LoadingTyping)
	m.list.SetLoading(true, false, false)
	return tea.Batch(m.stream.wait(), thinkingAfter(m.streamSeq), m.loading.Tick())
}

func (m *Model) handleStreamEvent(msg streamEventMsg) tea.Cmd {
	if m.stream == nil || msg.ID != m.stream.id {
		return nil
	}

	var cmds []tea.Cmd
	if msg.Chunk != "" {
		if !m.streaming {
			m.streaming = true
			m.list.SetLoading(true, true, m.thinking)
			m.messages = append(m.messages, model.NewAssistantMessage(""))
			m.list.SetCount(len(m.messages))
		}
		last := &m.messages[len(m.messages)-1]
		last.Content += msg.Chunk
		if m.typewriterOn {
			wasActive := m.typewriter.Active()
			m.typewriter.Set(last.Content, true)
			if !wasActive {
				cmds = append(cmds, m.typewriter.TickCmd())
			}
		}
	}

	if !msg.Done {
		cmds = append(cmds, m.stream.wait())
		return tea.Batch(cmds...)
	}
	cmds = append(cmds, m.finishReply(msg.Reply, msg.Err))
	return tea.Batch(cmds...)
}

// finishReply settles the reply and stores it.
func (m *Model) finishReply(reply string, err error) tea.Cmd {
	hadPlaceholder := m.streaming
	m.stopStream()

	if err != nil {
		if hadPlaceholder {
			m.dropLast()
		}
		if !errors.Is(err, context.Canceled) {
			m.logger.Error("Assistant reply failed", zap.Error(err))
			m.toasts.Error("Error", "Ally could not answer. Please try again.")
		}
		return nil
	}

	var msg model.Message
	if hadPlaceholder {
		last := &m.messages[len(m.messages)-1]
		last.Content = reply
		msg = *last
	} else {
		msg = model.NewAssistantMessage(reply)
		m.messages = append(m.messages, msg)
		m.list.SetCount(len(m.messages))
	}
	m.renderer.Forget(msg.ID)
	m.cursor = len(m.messages) - 1
	m.refreshChips()

	switch m.persist {
	case persistExchange:
		m.saving = true
		return m.saveExchangeCmd(m.replyTo, msg)
	case persistReply:
		m.saving = true
		return m.saveReplyCmd(msg)
	}
	return nil
}

// cancelReply abandons the pending reply. A partial reply is discarded and
// nothing is stored.
func (m *Model) cancelReply() {
	if m.stream == nil {
		m.pending = false
		m.list.SetLoading(false, false, false)
		return
	}
	hadPlaceholder := m.streaming
	m.stopStream()
	if hadPlaceholder {
		m.dropLast()
	}
}

func (m *Model) stopStream() {
	if m.stream != nil {
		m.stream.cancel()
		m.stream = nil
	}
	m.pending = false
	m.streaming = false
	m.thinking = false
	m.typewriter.Set("", false)
	m.list.SetLoading(false, false, false)
}

func (m *Model) dropLast() {
	last := m.messages[len(m.messages)-1]
	m.renderer.Forget(last.ID)
	m.messages = m.messages[:len(m.messages)-1]
	m.list.SetCount(len(m.messages))
	if m.cursor >= len(m.messages) {
		m.cursor = len(m.messages) - 1
	}
}

// activateChip sends a follow-up, or points at the app screen for a quick
// action.
func (m *Model) activateChip() tea.Cmd {
	if m.chipSel < 0 || m.chipSel >= len(m.chips) {
		return nil
	}
	chip := m.chips[m.chipSel]
	if chip.Kind == components.ChipQuickAction {
		m.toasts.Success(chip.Label, "Open "+chip.Action.Type.Route()+" in the Ally app")
		return nil
	}
	text := chip.FollowUp.Template
	if strings.TrimSpace(text) == "" {
		text = chip.FollowUp.Label
	}
	m.setFocus(focusInput)
	return m.submit(text)
}

// =============================================================================
// CONVERSATION ACTIONS
// =============================================================================

func (m *Model) newChat() {
	m.cancelReply()
	m.setMessages(m.manager.StartNewConversation())
	m.syncSidebar()
	m.setFocus(focusInput)
}

func (m *Model) handleDeleted(msg deletedMsg) tea.Cmd {
	bulk := len(msg.IDs) > 1
	if msg.Err != nil {
		m.logErr("Failed to delete conversations", msg.Err)
		if bulk {
			m.toasts.Error("Error", "Failed to delete conversations")
		}
		return nil
	}
	if bulk {
		m.toasts.Success("Deleted", fmt.Sprintf("%d conversations deleted", len(msg.IDs)))
	}
	m.sidebar.Selection().Exit()
	if msg.WasActive {
		m.cancelReply()
		m.setMessages(m.manager.StartNewConversation())
	}
	m.syncSidebar()
	return nil
}

// syncSidebar copies the manager's list into the sidebar.
func (m *Model) syncSidebar() {
	m.sidebar.SetConversations(m.manager.Conversations())
	m.sidebar.SetActive(m.manager.CurrentConversationID())
}

// =============================================================================
// FOCUS AND LAYOUT
// =============================================================================

func (m *Model) setFocus(f focusArea) {
	m.focus = f
	if f == focusInput {
		m.input.Focus()
	} else {
		m.input.Blur()
	}
	if f == focusSidebar {
		m.showSidebar = true
	}
}

// cycleFocus moves input → chips → messages → sidebar, skipping panes
// that are empty or hidden.
func (m *Model) cycleFocus() {
	order := []focusArea{focusInput, focusChips, focusMessages, focusSidebar}
	for i, f := range order {
		if f != m.focus {
			continue
		}
		for step := 1; step < len(order); step++ {
			next := order[(i+step)%len(order)]
			if next == focusChips && len(m.chips) == 0 {
				continue
			}
			if next == focusSidebar && !m.showSidebar && m.layout == styles.LayoutWide {
				continue
			}
			m.setFocus(next)
			return
		}
	}
}

func (m *Model) toggleSidebar() {
	if m.layout == styles.LayoutNarrow {
		if m.focus == focusSidebar {
			m.setFocus(focusInput)
		} else {
			m.setFocus(focusSidebar)
		}
		return
	}
	m.showSidebar = !m.showSidebar
	if m.showSidebar {
		m.setFocus(focusSidebar)
	} else if m.focus == focusSidebar {
		m.setFocus(focusInput)
	}
	m.resize(m.width, m.height)
}

// revealCursor scrolls the message under the cursor into view.
func (m *Model) revealCursor() {
	start, size := m.list.Start(m.cursor), m.list.Size(m.cursor)
	off, vp := m.list.Offset(), m.list.Viewport()
	switch {
	case start < off:
		m.list.ScrollTo(start)
	case start+size > off+vp:
		m.list.ScrollTo(start + size - vp)
	}
}

func (m Model) pageStep() int {
	if step := m.list.Viewport() - 2; step > 0 {
		return step
	}
	return 1
}

// applyUI applies a reloaded [ui] section.
func (m *Model) applyUI(ui config.UIConfig) {
	m.typewriterOn = ui.TypewriterCPS > 0
	m.typewriter.SetRate(ui.TypewriterCPS)
	m.theme.Apply(ui.Theme)
	m.renderer.SetTheme(m.theme)
	m.sidebar.SetTheme(m.theme)
	m.sidebar.SetDebounce(time.Duration(ui.SearchDebounceMs) * time.Millisecond)
	if ui.SidebarWidth > 0 {
		m.sidebarWidth = ui.SidebarWidth
	}
	m.list.Invalidate()
	m.resize(m.width, m.height)
}
