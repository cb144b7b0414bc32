// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aquaally/ally/internal/config"
	"github.com/aquaally/ally/internal/conversation"
	"github.com/aquaally/ally/internal/model"
	"github.com/aquaally/ally/internal/session"
	"github.com/aquaally/ally/internal/storage"
	"github.com/aquaally/ally/internal/ui/components"
	"github.com/aquaally/ally/internal/ui/virtuallist"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// scriptedReplier streams fixed chunks, or blocks until cancelled when
// block is set.
type scriptedReplier struct {
	mu      sync.Mutex
	chunks  []string
	err     error
	block   bool
	history [][]model.Message
}

func (r *scriptedReplier) Reply(ctx context.Context, history []model.Message, aquarium string, onChunk func(string)) (string, error) {
	r.mu.Lock()
	r.history = append(r.history, history)
	chunks, err, block := r.chunks, r.err, r.block
	r.mu.Unlock()

	if block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	var b strings.Builder
	for _, c := range chunks {
		onChunk(c)
		b.WriteString(c)
	}
	if err != nil {
		return "", err
	}
	return b.String(), nil
}

func (r *scriptedReplier) set(chunks ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chunks = chunks
}

type fixture struct {
	model   Model
	store   storage.Backend
	manager *conversation.Manager
	toasts  *components.ToastManager
	replier *scriptedReplier
	dir     string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.OpenSQLite(context.Background(), filepath.Join(dir, "ally.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	toasts := components.NewToastManager()
	sess := session.NewWithUser(session.User{ID: "user-1", DisplayName: "Sam"}, session.TierPlus)
	mgr := conversation.New(store, sess, conversation.WithNotifier(toasts))
	replier := &scriptedReplier{}

	m := New(Deps{
		Manager:   mgr,
		Assistant: replier,
		Session:   sess,
		Toasts:    toasts,
		UI:        config.UIConfig{Theme: "dark", Overscan: 2, NearBottomRows: 3, SearchDebounceMs: 10},
		ExportDir: filepath.Join(dir, "exports"),
	})
	m = update(m, tea.WindowSizeMsg{Width: 120, Height: 40})

	f := &fixture{model: m, store: store, manager: mgr, toasts: toasts, replier: replier, dir: dir}
	t.Cleanup(func() { f.model.cancelReply() })
	return f
}

func update(m Model, msg tea.Msg) Model {
	next, _ := m.Update(msg)
	return next.(Model)
}

func updateCmd(m Model, msg tea.Msg) (Model, tea.Cmd) {
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

// run executes cmd and any batched commands, returning the produced
// messages. Only use it on commands known not to sleep.
func run(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, run(c)...)
		}
		return out
	}
	if msg == nil {
		return nil
	}
	return []tea.Msg{msg}
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// send types text and presses enter.
func (f *fixture) send(text string) {
	f.model.input.SetValue(text)
	f.model = update(f.model, tea.KeyMsg{Type: tea.KeyEnter})
}

// drain feeds stream events until the reply settles and returns the
// command produced by the final event.
func (f *fixture) drain(t *testing.T) tea.Cmd {
	t.Helper()
	var cmd tea.Cmd
	for i := 0; i < 100 && f.model.stream != nil; i++ {
		f.model, cmd = updateCmd(f.model, f.model.stream.wait()())
	}
	require.Nil(t, f.model.stream, "stream did not finish")
	return cmd
}

// deliver runs cmd and feeds every message of type T back into the model.
func deliver[T tea.Msg](f *fixture, cmd tea.Cmd) int {
	n := 0
	for _, msg := range run(cmd) {
		if _, ok := msg.(T); ok {
			f.model = update(f.model, msg)
			n++
		}
	}
	return n
}

// exchange completes one question and answer, including the save.
func (f *fixture) exchange(t *testing.T, question string, chunks ...string) {
	t.Helper()
	f.replier.set(chunks...)
	f.send(question)
	require.True(t, f.model.Pending())
	require.Equal(t, 1, deliver[exchangeSavedMsg](f, f.drain(t)))
}

const replyWithFollowUps = "Test your water weekly and keep nitrate low.\n" +
	"<!-- FOLLOW_UPS -->\n" +
	`- "Safe nitrate?" | "What nitrate level is safe for my fish?"` + "\n" +
	"<!-- /FOLLOW_UPS -->"

// =============================================================================
// INITIAL STATE
// =============================================================================

func TestNew_StartsWithGreeting(t *testing.T) {
	f := newFixture(t)
	msgs := f.model.Messages()
	require.Len(t, msgs, 1)
	assert.True(t, msgs[0].IsGreeting())
	assert.Empty(t, f.model.Chips())
	assert.False(t, f.model.Pending())
	assert.NotEmpty(t, f.model.View())
}

// =============================================================================
// SENDING
// =============================================================================

func TestSend_StreamsReplyAndSavesExchange(t *testing.T) {
	f := newFixture(t)
	f.exchange(t, "How often should I test my water?",
		"Test your water weekly ", "and keep nitrate low.\n<!-- FOLLOW_UPS -->\n",
		`- "Safe nitrate?" | "What nitrate level is safe for my fish?"`+"\n<!-- /FOLLOW_UPS -->")

	msgs := f.model.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, model.RoleUser, msgs[1].Role)
	assert.Equal(t, model.RoleAssistant, msgs[2].Role)
	assert.Equal(t, replyWithFollowUps, msgs[2].Content)

	chips := f.model.Chips()
	require.NotEmpty(t, chips)
	assert.Equal(t, components.ChipFollowUp, chips[0].Kind)
	assert.Equal(t, "Safe nitrate?", chips[0].Label)

	id := f.manager.CurrentConversationID()
	require.NotEmpty(t, id)
	stored, err := f.store.ListMessages(context.Background(), "user-1", id)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, "How often should I test my water?", stored[0].Content)

	require.Len(t, f.model.sidebar.Items(), 1)
	assert.Equal(t, "Test your water weekly and keep nitrate low.", f.model.sidebar.Items()[0].LastMessagePreview)
}

func TestSend_PassesFullHistory(t *testing.T) {
	f := newFixture(t)
	f.exchange(t, "First question", "First answer.")
	f.exchange(t, "Second question", "Second answer.")

	require.Len(t, f.replier.history, 2)
	last := f.replier.history[1]
	require.Len(t, last, 4)
	assert.True(t, last[0].IsGreeting())
	assert.Equal(t, "Second question", last[3].Content)
}

func TestSend_IgnoredWhilePendingOrBlank(t *testing.T) {
	f := newFixture(t)
	f.send("   ")
	assert.False(t, f.model.Pending())
	assert.Len(t, f.model.Messages(), 1)

	f.replier.block = true
	f.send("Is my heater too hot?")
	require.True(t, f.model.Pending())
	f.send("Hello again")
	assert.Len(t, f.model.Messages(), 2)
}

func TestSend_ErrorDropsPartialReply(t *testing.T) {
	f := newFixture(t)
	f.replier.chunks = []string{"Partial"}
	f.replier.err = errors.New("upstream down")
	f.send("Why is my water cloudy?")
	f.drain(t)

	assert.False(t, f.model.Pending())
	assert.Len(t, f.model.Messages(), 2)
	toasts := f.toasts.Toasts()
	require.Len(t, toasts, 1)
	assert.Equal(t, components.ToastError, toasts[0].Kind)
	assert.Empty(t, f.manager.CurrentConversationID())
}

func TestCancel_StopsPendingReply(t *testing.T) {
	f := newFixture(t)
	f.replier.block = true
	f.send("Should I dose iron?")
	require.True(t, f.model.Pending())
	assert.Equal(t, virtuallist.LoadingTyping, f.model.list.Loading())

	f.model = update(f.model, tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, f.model.Pending())
	assert.Nil(t, f.model.stream)
	assert.Equal(t, virtuallist.LoadingNone, f.model.list.Loading())
	assert.Len(t, f.model.Messages(), 2)
	assert.Empty(t, f.toasts.Toasts())
}

func TestThinking_AfterSilence(t *testing.T) {
	f := newFixture(t)
	f.replier.block = true
	f.send("Plan a stocking list for 200 litres")

	f.model = update(f.model, thinkingMsg{ID: f.model.streamSeq - 1})
	assert.False(t, f.model.thinking, "stale timer ignored")

	f.model = update(f.model, thinkingMsg{ID: f.model.streamSeq})
	assert.True(t, f.model.thinking)
	assert.Equal(t, virtuallist.LoadingThinking, f.model.list.Loading())
	assert.Equal(t, virtuallist.LoadingThinking, f.model.loading.Kind())
	assert.Contains(t, f.model.View(), "Ally is thinking")
}

func TestStaleStreamEventsAreIgnored(t *testing.T) {
	f := newFixture(t)
	f.model = update(f.model, streamEventMsg{ID: 99, Chunk: "ghost"})
	assert.Len(t, f.model.Messages(), 1)
}

// =============================================================================
// EDITING
// =============================================================================

func TestEdit_RewritesAndRegenerates(t *testing.T) {
	f := newFixture(t)
	f.exchange(t, "How warm for bettas?", "Keep bettas at 26 C.")
	f.exchange(t, "And for goldfish?", "Goldfish like it cooler.")
	require.Len(t, f.model.Messages(), 5)

	f.model.setFocus(focusMessages)
	f.model.cursor = 1
	f.model = update(f.model, keyRunes("e"))
	require.Equal(t, 1, f.model.editIndex)
	assert.Equal(t, "How warm for bettas?", f.model.input.Value())
	assert.Equal(t, focusInput, f.model.focus)

	f.replier.set("Guppies like 24 to 27 C.")
	f.model.input.SetValue("How warm for guppies?")
	var cmd tea.Cmd
	f.model, cmd = updateCmd(f.model, tea.KeyMsg{Type: tea.KeyEnter})
	require.True(t, f.model.Pending())
	require.Len(t, f.model.Messages(), 2)
	assert.Equal(t, "How warm for guppies?", f.model.Messages()[1].Content)

	require.Equal(t, 1, deliver[messageUpdatedMsg](f, cmd))
	require.Equal(t, 1, deliver[replySavedMsg](f, f.drain(t)))

	msgs := f.model.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "Guppies like 24 to 27 C.", msgs[2].Content)

	stored, err := f.store.ListMessages(context.Background(), "user-1", f.manager.CurrentConversationID())
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, "How warm for guppies?", stored[0].Content)
	assert.Equal(t, "Guppies like 24 to 27 C.", stored[1].Content)
}

func TestEdit_OnlyUserMessages(t *testing.T) {
	f := newFixture(t)
	f.exchange(t, "Hi", "Hello!")
	f.model.setFocus(focusMessages)
	f.model.cursor = 2
	f.model = update(f.model, keyRunes("e"))
	assert.Equal(t, -1, f.model.editIndex)
}

// =============================================================================
// CHIPS
// =============================================================================

func TestChips_FollowUpSendsTemplate(t *testing.T) {
	f := newFixture(t)
	f.exchange(t, "How often should I test?", replyWithFollowUps)

	f.model = update(f.model, tea.KeyMsg{Type: tea.KeyTab})
	require.Equal(t, focusChips, f.model.focus)

	f.replier.block = true
	f.model = update(f.model, tea.KeyMsg{Type: tea.KeyEnter})
	msgs := f.model.Messages()
	assert.Equal(t, "What nitrate level is safe for my fish?", msgs[len(msgs)-1].Content)
	assert.True(t, f.model.Pending())
	assert.Empty(t, f.model.Chips())
}

func TestChips_QuickActionShowsRoute(t *testing.T) {
	f := newFixture(t)
	f.exchange(t, "My fish are gasping", "Do a 30% water change today.")

	var idx = -1
	for i, c := range f.model.Chips() {
		if c.Kind == components.ChipQuickAction && c.Action.Type == model.ActionWaterChange {
			idx = i
		}
	}
	require.GreaterOrEqual(t, idx, 0)

	f.model.setFocus(focusChips)
	f.model.chipSel = idx
	f.model = update(f.model, tea.KeyMsg{Type: tea.KeyEnter})

	toasts := f.toasts.Toasts()
	require.NotEmpty(t, toasts)
	last := toasts[len(toasts)-1]
	assert.Equal(t, "Log Water Change", last.Title)
	assert.Contains(t, last.Description, model.ActionWaterChange.Route())
	assert.False(t, f.model.Pending())
}

// =============================================================================
// SIDEBAR ACTIONS
// =============================================================================

func TestSidebar_DeleteActiveConversation(t *testing.T) {
	f := newFixture(t)
	f.exchange(t, "Pond algae help", "Add more plants.")
	f.model.setFocus(focusSidebar)

	f.model = update(f.model, keyRunes("d"))
	require.NotNil(t, f.model.confirm)

	var cmd tea.Cmd
	f.model, cmd = updateCmd(f.model, keyRunes("y"))
	assert.Nil(t, f.model.confirm)
	require.Equal(t, 1, deliver[deletedMsg](f, cmd))

	assert.Empty(t, f.manager.CurrentConversationID())
	assert.Empty(t, f.model.sidebar.Items())
	require.Len(t, f.model.Messages(), 1)
	assert.True(t, f.model.Messages()[0].IsGreeting())
}

func TestSidebar_BulkDelete(t *testing.T) {
	f := newFixture(t)
	f.exchange(t, "Pool chlorine?", "Keep it at 1 to 3 ppm.")
	f.model = update(f.model, tea.KeyMsg{Type: tea.KeyCtrlN})
	f.exchange(t, "Spa pH?", "Aim for 7.4 to 7.6.")
	require.Len(t, f.model.sidebar.Items(), 2)

	f.model.setFocus(focusSidebar)
	f.model = update(f.model, keyRunes("s"))
	f.model = update(f.model, keyRunes("a"))
	assert.Equal(t, 2, f.model.sidebar.Selection().Count())

	f.model = update(f.model, keyRunes("p"))
	assert.False(t, f.model.sidebar.Items()[0].IsPinned, "row actions are disabled in selection mode")

	f.model = update(f.model, keyRunes("D"))
	require.NotNil(t, f.model.confirm)
	var cmd tea.Cmd
	f.model, cmd = updateCmd(f.model, keyRunes("y"))
	require.Equal(t, 1, deliver[deletedMsg](f, cmd))

	assert.Empty(t, f.model.sidebar.Items())
	assert.False(t, f.model.sidebar.Selection().Active())
	toasts := f.toasts.Toasts()
	require.NotEmpty(t, toasts)
	assert.Equal(t, "2 conversations deleted", toasts[len(toasts)-1].Description)
}

func TestSidebar_PinAndRename(t *testing.T) {
	f := newFixture(t)
	f.exchange(t, "Koi feeding", "Feed sparingly below 10 C.")
	f.model.setFocus(focusSidebar)

	var cmd tea.Cmd
	f.model, cmd = updateCmd(f.model, keyRunes("p"))
	require.Equal(t, 1, deliver[listChangedMsg](f, cmd))
	assert.True(t, f.model.sidebar.Items()[0].IsPinned)

	f.model = update(f.model, keyRunes("r"))
	require.NotNil(t, f.model.rename)
	f.model = update(f.model, tea.KeyMsg{Type: tea.KeyCtrlU})
	f.model = update(f.model, keyRunes("Winter koi"))
	f.model, cmd = updateCmd(f.model, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, f.model.rename)
	require.Equal(t, 1, deliver[listChangedMsg](f, cmd))
	assert.Equal(t, "Winter koi", f.model.sidebar.Items()[0].Title)
}

func TestSidebar_ExportWritesMarkdown(t *testing.T) {
	f := newFixture(t)
	f.exchange(t, "Shrimp molting", "Molting is normal.")
	f.model.setFocus(focusSidebar)

	var cmd tea.Cmd
	f.model, cmd = updateCmd(f.model, keyRunes("e"))
	msgs := run(cmd)
	require.Len(t, msgs, 1)
	exported, ok := msgs[0].(exportedMsg)
	require.True(t, ok)
	require.NoError(t, exported.Err)
	assert.Equal(t, filepath.Join(f.dir, "exports", "Shrimp_molting.md"), exported.Path)

	data, err := os.ReadFile(exported.Path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# Shrimp molting"))
	assert.Contains(t, string(data), "Molting is normal.")

	f.model = update(f.model, exported)
	toasts := f.toasts.Toasts()
	assert.Equal(t, "Exported", toasts[len(toasts)-1].Title)
}

func TestSidebar_OpenConversation(t *testing.T) {
	f := newFixture(t)
	f.exchange(t, "Cichlid aggression", "Add hiding spots.")
	id := f.manager.CurrentConversationID()
	f.model = update(f.model, tea.KeyMsg{Type: tea.KeyCtrlN})
	require.Len(t, f.model.Messages(), 1)

	f.model.setFocus(focusSidebar)
	var cmd tea.Cmd
	f.model, cmd = updateCmd(f.model, tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, 1, deliver[conversationOpenedMsg](f, cmd))

	assert.Equal(t, id, f.manager.CurrentConversationID())
	msgs := f.model.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "Add hiding spots.", msgs[1].Content)
}

func TestNewChat_WhileSaving(t *testing.T) {
	f := newFixture(t)
	f.replier.set("Aim for 8.1 to 8.4.")
	f.send("What's a good pH for my reef tank")
	save := f.drain(t)
	require.True(t, f.model.saving)

	f.model = update(f.model, tea.KeyMsg{Type: tea.KeyCtrlN})
	require.Equal(t, 1, deliver[exchangeSavedMsg](f, save))

	require.Len(t, f.model.Messages(), 1)
	assert.True(t, f.model.Messages()[0].IsGreeting())
	assert.Empty(t, f.manager.CurrentConversationID())

	f.exchange(t, "How often should I feed corals", "Two or three times a week.")
	convs := f.manager.Conversations()
	require.Len(t, convs, 2)
	for _, c := range convs {
		assert.Equal(t, 2, c.MessageCount, c.Title)
	}
}

func TestOpenConversation_WhileSaving(t *testing.T) {
	f := newFixture(t)
	f.exchange(t, "Cichlid aggression", "Add hiding spots.")
	id := f.manager.CurrentConversationID()
	f.model = update(f.model, tea.KeyMsg{Type: tea.KeyCtrlN})

	f.replier.set("Keep it at 1 to 3 ppm.")
	f.send("Pool chlorine level")
	save := f.drain(t)

	f.model.setFocus(focusSidebar)
	var open tea.Cmd
	f.model, open = updateCmd(f.model, tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, 1, deliver[conversationOpenedMsg](f, open))
	require.Equal(t, 1, deliver[exchangeSavedMsg](f, save))

	assert.Equal(t, id, f.manager.CurrentConversationID())
	msgs := f.model.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "Add hiding spots.", msgs[1].Content)
	assert.Len(t, f.manager.Conversations(), 2)
}

// =============================================================================
// RENDERING AND CONFIG
// =============================================================================

func TestLayout_RendersOnlyVisibleWindow(t *testing.T) {
	f := newFixture(t)
	msgs := make([]model.Message, 200)
	for i := range msgs {
		msgs[i] = model.NewUserMessage(fmt.Sprintf("message %d", i))
	}
	f.model.setMessages(msgs)
	f.model = update(f.model, tea.WindowSizeMsg{Width: 120, Height: 30})

	assert.LessOrEqual(t, len(f.model.chatLines), f.model.list.Viewport())
	assert.Less(t, f.model.renderer.CacheSize(), 60)
	assert.True(t, f.model.list.NearBottom())
	assert.Contains(t, f.model.View(), "message 199")
}

func TestReload_AppliesUISettings(t *testing.T) {
	f := newFixture(t)
	cfg := config.Default()
	cfg.UI.TypewriterCPS = 300
	cfg.UI.Theme = "light"

	f.model = update(f.model, reloadMsg{Reload: config.Reload{Config: cfg}})
	assert.Equal(t, 300, f.model.typewriter.Rate())
	assert.True(t, f.model.typewriterOn)
	assert.False(t, f.model.theme.IsDark)
}

func TestQuit_CancelsStream(t *testing.T) {
	f := newFixture(t)
	f.replier.block = true
	f.send("Long question")
	_, cmd := updateCmd(f.model, tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	_, ok := cmd().(tea.QuitMsg)
	assert.True(t, ok)
}

func TestStreamWait_FoldsQueuedChunks(t *testing.T) {
	r := &scriptedReplier{chunks: []string{"a", "b", "c"}}
	s := startStream(context.Background(), r, 7, nil, model.GeneralAquarium)
	defer s.cancel()

	var got strings.Builder
	var final streamEventMsg
	for i := 0; i < 10; i++ {
		ev := s.wait()().(streamEventMsg)
		assert.Equal(t, 7, ev.ID)
		got.WriteString(ev.Chunk)
		if ev.Done {
			final = ev
			break
		}
	}
	require.True(t, final.Done)
	require.NoError(t, final.Err)
	assert.Equal(t, "abc", got.String())
	assert.Equal(t, "abc", final.Reply)
}
