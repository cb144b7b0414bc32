// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/aquaally/ally/internal/annotate"
	"github.com/aquaally/ally/internal/config"
	"github.com/aquaally/ally/internal/conversation"
	"github.com/aquaally/ally/internal/model"
	"github.com/aquaally/ally/internal/session"
	"github.com/aquaally/ally/internal/ui/components"
	"github.com/aquaally/ally/internal/ui/styles"
	"github.com/aquaally/ally/internal/ui/typewriter"
	"github.com/aquaally/ally/internal/ui/virtuallist"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// estimateRows is the height assumed for a message not yet rendered.
	estimateRows = 4

	maxInputChars = 4000

	defaultSidebarWidth = 34
)

// focusArea is the pane receiving keys.
type focusArea int

const (
	focusInput focusArea = iota
	focusChips
	focusMessages
	focusSidebar
)

// persistMode decides how a finished reply is stored.
type persistMode int

const (
	// persistExchange saves the user message and the reply as a pair.
	persistExchange persistMode = iota
	// persistReply appends the reply alone, after an edit.
	persistReply
	persistNone
)

// =============================================================================
// DEPENDENCIES
// =============================================================================

// Deps are the collaborators the chat screen is wired with.
type Deps struct {
	Manager   *conversation.Manager
	Assistant Replier
	Session   *session.Session
	Toasts    *components.ToastManager
	Logger    *zap.Logger
	UI        config.UIConfig

	// ExportDir receives Markdown exports; empty means the working directory.
	ExportDir string

	// Ctx is cancelled when the program exits.
	Ctx context.Context

	// Reloads delivers config file changes; nil disables live reload.
	Reloads <-chan config.Reload
}

// =============================================================================
// MODEL
// =============================================================================

// Model is the Bubble Tea model of the chat screen: the message list on the
// right, the history sidebar on the left, suggestion chips under the last
// reply and the input box at the bottom.
type Model struct {
	ctx       context.Context
	manager   *conversation.Manager
	assistant Replier
	session   *session.Session
	toasts    *components.ToastManager
	logger    *zap.Logger
	exportDir string
	reloads   <-chan config.Reload

	theme  *styles.Theme
	keys   KeyMap
	width  int
	height int
	layout styles.LayoutMode

	// Conversation
	messages []model.Message
	chips    []components.Chip
	chipSel  int

	// Reply state
	pending   bool
	streaming bool
	thinking  bool
	saving    bool
	stream    *stream
	streamSeq int
	// replyTo is the user message the pending reply answers.
	replyTo model.Message
	persist persistMode

	// Rendering
	typewriter   *typewriter.Typewriter
	typewriterOn bool
	list         *virtuallist.List
	renderer     *components.MessageRenderer
	loading      components.LoadingIndicator
	chatLines    []string

	// Input and panes
	input        textinput.Model
	focus        focusArea
	showSidebar  bool
	sidebar      *components.Sidebar
	sidebarWidth int
	cursor       int
	editIndex    int
	rename       *components.PromptDialog
	confirm      *components.ConfirmDialog

	quitting bool
}

// New creates the chat screen showing a fresh conversation.
func New(deps Deps) Model {
	ctx := deps.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	toasts := deps.Toasts
	if toasts == nil {
		toasts = components.NewToastManager()
	}
	exportDir := deps.ExportDir
	if exportDir == "" {
		exportDir = "."
	}

	pref := deps.UI.Theme
	if deps.Session != nil && deps.Session.Theme() != "" {
		pref = deps.Session.Theme()
	}
	theme := styles.NewTheme(pref)

	in := textinput.New()
	in.Placeholder = "Ask Ally about your tank, pool or pond..."
	in.CharLimit = maxInputChars
	in.Prompt = "> "
	in.Focus()

	tw := typewriter.New(deps.UI.TypewriterCPS)

	m := Model{
		ctx:         ctx,
		manager:     deps.Manager,
		assistant:   deps.Assistant,
		session:     deps.Session,
		toasts:      toasts,
		logger:      logger,
		exportDir:   exportDir,
		reloads:     deps.Reloads,
		theme:       theme,
		keys:        DefaultKeyMap(),
		typewriter:  tw,
		list:        virtuallist.New(estimateRows, deps.UI.Overscan, deps.UI.NearBottomRows),
		renderer:    components.NewMessageRenderer(theme, deps.UI.Markdown),
		loading:     components.NewLoadingIndicator(theme),
		input:       in,
		showSidebar: true,
		sidebar:     components.NewSidebar(theme, time.Duration(deps.UI.SearchDebounceMs)*time.Millisecond),
		editIndex:   -1,
		chipSel:     -1,
	}
	m.typewriterOn = deps.UI.TypewriterCPS > 0
	m.sidebarWidth = deps.UI.SidebarWidth
	m.setMessages(m.manager.StartNewConversation())
	return m
}

// Init loads the history and starts the background tickers.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.fetchConversationsCmd(),
		components.ToastTickCmd(),
		textinput.Blink,
		waitForReload(m.reloads),
	)
}

// =============================================================================
// MESSAGE STATE
// =============================================================================

// setMessages replaces the whole conversation, as on load or new chat.
func (m *Model) setMessages(msgs []model.Message) {
	m.messages = msgs
	m.editIndex = -1
	m.cursor = len(msgs) - 1
	m.typewriter.Set("", false)
	m.list.SetCount(len(msgs))
	m.list.ScrollToEnd()
	m.refreshChips()
}

// refreshChips derives suggestion chips from the last assistant reply.
func (m *Model) refreshChips() {
	m.chips = nil
	m.chipSel = -1
	if len(m.messages) == 0 {
		return
	}
	last := m.messages[len(m.messages)-1]
	if last.Role != model.RoleAssistant || last.IsGreeting() {
		return
	}
	clean, followUps := annotate.ParseFollowUpSuggestions(last.Content)
	m.chips = components.BuildChips(followUps, annotate.DetectQuickActions(clean))
	if len(m.chips) > 0 {
		m.chipSel = 0
	}
}

// dbIndex maps a displayed message index to its stored position; the
// greeting is never stored.
func (m Model) dbIndex(i int) int {
	if len(m.messages) > 0 && m.messages[0].IsGreeting() {
		return i - 1
	}
	return i
}

// Messages returns the displayed conversation.
func (m Model) Messages() []model.Message {
	return m.messages
}

// Chips returns the suggestions under the last reply.
func (m Model) Chips() []components.Chip {
	return m.chips
}

// Pending reports whether a reply is outstanding.
func (m Model) Pending() bool {
	return m.pending
}
