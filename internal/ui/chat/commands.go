// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/aquaally/ally/internal/config"
	"github.com/aquaally/ally/internal/export"
	"github.com/aquaally/ally/internal/model"
)

// =============================================================================
// CONVERSATION COMMANDS
// =============================================================================
// Each command runs one manager call off the update loop with the program
// context, so quitting cancels whatever is in flight.

func (m Model) fetchConversationsCmd() tea.Cmd {
	ctx, mgr := m.ctx, m.manager
	return func() tea.Msg {
		return conversationsLoadedMsg{Err: mgr.FetchConversations(ctx)}
	}
}

func (m Model) loadConversationCmd(id string) tea.Cmd {
	ctx, mgr := m.ctx, m.manager
	return func() tea.Msg {
		msgs, err := mgr.LoadConversation(ctx, id)
		return conversationOpenedMsg{ID: id, Messages: msgs, Err: err}
	}
}

// saveExchangeCmd captures the active conversation now, so switching
// conversations before the command runs cannot redirect the save.
func (m Model) saveExchangeCmd(userMsg, reply model.Message) tea.Cmd {
	ctx, mgr := m.ctx, m.manager
	target := mgr.CurrentTarget()
	return func() tea.Msg {
		id, err := mgr.SaveExchange(ctx, target, userMsg, reply)
		return exchangeSavedMsg{ConversationID: id, Err: err}
	}
}

func (m Model) saveReplyCmd(reply model.Message) tea.Cmd {
	ctx, mgr := m.ctx, m.manager
	target := mgr.CurrentTarget()
	return func() tea.Msg {
		return replySavedMsg{Err: mgr.SaveReply(ctx, target, reply)}
	}
}

func (m Model) updateMessageCmd(index int, content string) tea.Cmd {
	ctx, mgr := m.ctx, m.manager
	return func() tea.Msg {
		return messageUpdatedMsg{Index: index, Err: mgr.UpdateMessageInDB(ctx, index, content)}
	}
}

func (m Model) deleteCmd(ids []string) tea.Cmd {
	ctx, mgr := m.ctx, m.manager
	return func() tea.Msg {
		if len(ids) == 1 {
			wasActive, err := mgr.DeleteConversation(ctx, ids[0])
			return deletedMsg{IDs: ids, WasActive: wasActive, Err: err}
		}
		wasActive, err := mgr.BulkDeleteConversations(ctx, ids)
		return deletedMsg{IDs: ids, WasActive: wasActive, Err: err}
	}
}

func (m Model) pinCmd(id string) tea.Cmd {
	ctx, mgr := m.ctx, m.manager
	return func() tea.Msg {
		return listChangedMsg{Err: mgr.PinConversation(ctx, id)}
	}
}

func (m Model) renameCmd(id, title string) tea.Cmd {
	ctx, mgr := m.ctx, m.manager
	return func() tea.Msg {
		return listChangedMsg{Err: mgr.RenameConversation(ctx, id, title)}
	}
}

// exportCmd writes the Markdown export of a conversation into the export
// directory.
func (m Model) exportCmd(id string) tea.Cmd {
	ctx, mgr, dir := m.ctx, m.manager, m.exportDir
	return func() tea.Msg {
		content, filename, err := mgr.ExportConversation(ctx, id)
		if err != nil {
			return exportedMsg{Err: err, Notified: true}
		}
		path, err := export.WriteFile(dir, filename, []byte(content))
		if err != nil {
			return exportedMsg{Err: err}
		}
		return exportedMsg{Path: path}
	}
}

// =============================================================================
// CONFIG RELOAD
// =============================================================================

// waitForReload delivers the next config change, or nothing once the
// watcher has stopped.
func waitForReload(ch <-chan config.Reload) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		r, ok := <-ch
		if !ok {
			return nil
		}
		return reloadMsg{Reload: r}
	}
}

// logErr logs a failed command; the manager has already shown a toast.
func (m Model) logErr(what string, err error) {
	if err != nil {
		m.logger.Warn(what, zap.Error(err))
	}
}
