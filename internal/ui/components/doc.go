// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package components provides the reusable pieces of the Ally chat TUI.

Components are plain structs with Update and View methods in the Bubble Tea
style. None of them talk to storage; the chat model owns the conversation
manager and feeds results in.

# Display Components

MessageRenderer (message.go) - Draws messages with glamour, caching finished
ones by ID and width.
Highlighter (codeblock.go) - Chroma highlighting for fenced code when
Markdown rendering is off.
LoadingIndicator (loading.go) - Typing and thinking row built on the bubbles
spinner.
Chips (chips.go) - Follow-up and quick-action suggestions.
StatusBar (statusbar.go) - Bottom line with the active aquarium and key hints.

# Interactive Components

Sidebar (sidebar.go) - History panel with debounced search, quick filters,
date groups and selection mode.
PromptDialog, ConfirmDialog (dialog.go) - Rename and delete confirmation.

# Feedback

ToastManager (toast.go) - Auto-dismissing toasts. Its Success and Error
methods satisfy conversation.Notifier.

# Usage

	theme := styles.NewTheme("auto")
	toasts := components.NewToastManager()
	sidebar := components.NewSidebar(theme, 200*time.Millisecond)
	sidebar.SetConversations(mgr.Conversations())
*/
package components
