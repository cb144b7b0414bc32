// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aquaally/ally/internal/model"
	"github.com/aquaally/ally/internal/session"
	"github.com/aquaally/ally/internal/storage"
)

// =============================================================================
// HELPERS
// =============================================================================

type toast struct {
	kind, title, description string
}

type recorder struct {
	toasts []toast
}

func (r *recorder) Success(title, description string) {
	r.toasts = append(r.toasts, toast{"success", title, description})
}

func (r *recorder) Error(title, description string) {
	r.toasts = append(r.toasts, toast{"error", title, description})
}

func (r *recorder) errors() []toast {
	var out []toast
	for _, t := range r.toasts {
		if t.kind == "error" {
			out = append(out, t)
		}
	}
	return out
}

// failingStore wraps a real backend and fails selected calls.
type failingStore struct {
	storage.Backend
	failInsert bool
	failDelete bool
	failList   bool

	// onCreate runs after a conversation row is created, before
	// CreateConversation returns.
	onCreate func()
}

var errBoom = errors.New("boom")

func (f *failingStore) InsertMessages(ctx context.Context, userID, convID string, msgs []model.Message) error {
	if f.failInsert {
		return errBoom
	}
	return f.Backend.InsertMessages(ctx, userID, convID, msgs)
}

func (f *failingStore) DeleteConversations(ctx context.Context, userID string, ids []string) (int, error) {
	if f.failDelete {
		return 0, errBoom
	}
	return f.Backend.DeleteConversations(ctx, userID, ids)
}

func (f *failingStore) CreateConversation(ctx context.Context, conv model.Conversation) (model.Conversation, error) {
	created, err := f.Backend.CreateConversation(ctx, conv)
	if err == nil && f.onCreate != nil {
		f.onCreate()
	}
	return created, err
}

func (f *failingStore) ListConversations(ctx context.Context, userID string) ([]model.Conversation, error) {
	if f.failList {
		return nil, errBoom
	}
	return f.Backend.ListConversations(ctx, userID)
}

func openStore(t *testing.T) storage.Backend {
	t.Helper()
	store, err := storage.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "ally.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func newManager(t *testing.T, store storage.Backend) (*Manager, *recorder) {
	t.Helper()
	rec := &recorder{}
	sess := session.NewWithUser(session.User{ID: "user-1", Email: "reef@example.com"}, session.TierFree)
	return New(store, sess, WithNotifier(rec)), rec
}

func exchange(question, answer string) (model.Message, model.Message) {
	return model.NewUserMessage(question), model.NewAssistantMessage(answer)
}

// =============================================================================
// SAVE AND LOAD
// =============================================================================

func TestSaveConversation_CreatesOnFirstSave(t *testing.T) {
	ctx := context.Background()
	mgr, rec := newManager(t, openStore(t))
	mgr.StartNewConversation()
	assert.Empty(t, mgr.CurrentConversationID())

	q, a := exchange("What's a good pH for my reef tank? It is new.",
		"Aim for 8.1 to 8.4.\n<!-- FOLLOW_UPS -->\n- How do I raise pH?\n<!-- /FOLLOW_UPS -->")
	id, err := mgr.SaveConversation(ctx, q, a)
	require.NoError(t, err)
	require.NotEmpty(t, id)
	assert.Equal(t, id, mgr.CurrentConversationID())
	assert.Empty(t, rec.errors())

	convs := mgr.Conversations()
	require.Len(t, convs, 1)
	assert.Equal(t, "What's a good pH for my reef tank", convs[0].Title)
	assert.Equal(t, "Aim for 8.1 to 8.4.", convs[0].LastMessagePreview)
	assert.Equal(t, 2, convs[0].MessageCount)
	assert.Nil(t, convs[0].AquariumID)

	q2, a2 := exchange("And alkalinity?", "Keep dKH between 7 and 11.")
	id2, err := mgr.SaveConversation(ctx, q2, a2)
	require.NoError(t, err)
	assert.Equal(t, id, id2)

	convs = mgr.Conversations()
	require.Len(t, convs, 1)
	assert.Equal(t, 4, convs[0].MessageCount)
	assert.Equal(t, "Keep dKH between 7 and 11.", convs[0].LastMessagePreview)
}

func TestSaveConversation_NewChatDuringSave(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{Backend: openStore(t)}
	mgr, _ := newManager(t, store)
	store.onCreate = func() { mgr.StartNewConversation() }

	q, a := exchange("Betta fin rot?", "Keep the water clean and warm.")
	first, err := mgr.SaveConversation(ctx, q, a)
	require.NoError(t, err)
	require.NotEmpty(t, first)
	assert.Empty(t, mgr.CurrentConversationID())

	store.onCreate = nil
	q2, a2 := exchange("Pond pump size?", "Turn the volume over once an hour.")
	second, err := mgr.SaveConversation(ctx, q2, a2)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
	assert.Equal(t, second, mgr.CurrentConversationID())

	convs := mgr.Conversations()
	require.Len(t, convs, 2)
	for _, c := range convs {
		assert.Equal(t, 2, c.MessageCount, c.Title)
	}
}

func TestSaveExchange_KeepsCapturedConversation(t *testing.T) {
	ctx := context.Background()
	mgr, _ := newManager(t, openStore(t))

	q, a := exchange("Molly gestation?", "Around four weeks.")
	id, err := mgr.SaveConversation(ctx, q, a)
	require.NoError(t, err)

	target := mgr.CurrentTarget()
	require.Equal(t, id, target.ConversationID)
	mgr.StartNewConversation()

	q2, a2 := exchange("How many fry?", "Twenty to sixty is common.")
	got, err := mgr.SaveExchange(ctx, target, q2, a2)
	require.NoError(t, err)
	assert.Equal(t, id, got)
	assert.Empty(t, mgr.CurrentConversationID())

	reply := model.NewAssistantMessage("Separate them from the adults.")
	require.NoError(t, mgr.SaveReply(ctx, target, reply))

	convs := mgr.Conversations()
	require.Len(t, convs, 1)
	assert.Equal(t, 5, convs[0].MessageCount)
	assert.Equal(t, "Separate them from the adults.", convs[0].LastMessagePreview)
}

func TestSaveConversation_OpenedOtherDuringSave(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{Backend: openStore(t)}
	mgr, _ := newManager(t, store)

	q, a := exchange("Guppy fry food?", "Crushed flakes or baby brine shrimp.")
	existing, err := mgr.SaveConversation(ctx, q, a)
	require.NoError(t, err)
	mgr.StartNewConversation()

	store.onCreate = func() {
		_, err := mgr.LoadConversation(ctx, existing)
		require.NoError(t, err)
	}
	q2, a2 := exchange("Pool shock dose?", "Follow the label for your volume.")
	created, err := mgr.SaveConversation(ctx, q2, a2)
	require.NoError(t, err)
	assert.NotEqual(t, existing, created)
	assert.Equal(t, existing, mgr.CurrentConversationID())

	msgs, err := store.ListMessages(ctx, "user-1", created)
	require.NoError(t, err)
	assert.Len(t, msgs, 2)
}

func TestSaveConversation_TiesSelectedAquarium(t *testing.T) {
	mgr, _ := newManager(t, openStore(t))
	mgr.SetSelectedAquarium("tank-7")

	q, a := exchange("Cloudy water", "Check your filter.")
	_, err := mgr.SaveConversation(context.Background(), q, a)
	require.NoError(t, err)

	convs := mgr.Conversations()
	require.Len(t, convs, 1)
	require.NotNil(t, convs[0].AquariumID)
	assert.Equal(t, "tank-7", *convs[0].AquariumID)
}

func TestSaveConversation_NoUser(t *testing.T) {
	mgr := New(openStore(t), session.New(nil))
	q, a := exchange("hi", "hello")
	id, err := mgr.SaveConversation(context.Background(), q, a)
	assert.NoError(t, err)
	assert.Empty(t, id)
	assert.Empty(t, mgr.Conversations())
}

func TestSaveConversation_InsertFailureKeepsConversation(t *testing.T) {
	store := &failingStore{Backend: openStore(t), failInsert: true}
	mgr, rec := newManager(t, store)

	q, a := exchange("Ammonia spike", "Do a water change.")
	id, err := mgr.SaveConversation(context.Background(), q, a)
	assert.ErrorIs(t, err, errBoom)
	assert.NotEmpty(t, id)
	assert.Equal(t, id, mgr.CurrentConversationID())

	errs := rec.errors()
	require.Len(t, errs, 1)
	assert.Equal(t, "Failed to save messages", errs[0].description)
}

func TestLoadConversation(t *testing.T) {
	ctx := context.Background()
	mgr, _ := newManager(t, openStore(t))
	mgr.SetSelectedAquarium("pond-1")

	q, a := exchange("Koi feeding", "Feed sparingly below 10°C.")
	id, err := mgr.SaveConversation(ctx, q, a)
	require.NoError(t, err)

	mgr.StartNewConversation()
	mgr.SetSelectedAquarium("")
	assert.Equal(t, model.GeneralAquarium, mgr.SelectedAquarium())

	msgs, err := mgr.LoadConversation(ctx, id)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, q.ID, msgs[0].ID)
	assert.Equal(t, a.ID, msgs[1].ID)
	assert.Equal(t, id, mgr.CurrentConversationID())
	assert.Equal(t, "pond-1", mgr.SelectedAquarium())
}

func TestLoadConversation_EmptyFallsBackToGreeting(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	mgr, _ := newManager(t, store)

	conv, err := store.CreateConversation(ctx, model.Conversation{UserID: "user-1", Title: "Empty"})
	require.NoError(t, err)

	msgs, err := mgr.LoadConversation(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.True(t, msgs[0].IsGreeting())
	assert.Empty(t, mgr.CurrentConversationID())
}

func TestFetchConversations_FailureKeepsList(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{Backend: openStore(t)}
	mgr, rec := newManager(t, store)

	q, a := exchange("Pool chlorine", "Keep free chlorine at 1 to 3 ppm.")
	_, err := mgr.SaveConversation(ctx, q, a)
	require.NoError(t, err)
	require.Len(t, mgr.Conversations(), 1)

	store.failList = true
	assert.Error(t, mgr.FetchConversations(ctx))
	assert.Len(t, mgr.Conversations(), 1)
	assert.Len(t, rec.errors(), 1)
}

// =============================================================================
// DELETE
// =============================================================================

func TestDeleteConversation(t *testing.T) {
	ctx := context.Background()
	mgr, rec := newManager(t, openStore(t))

	q, a := exchange("first", "one")
	first, err := mgr.SaveConversation(ctx, q, a)
	require.NoError(t, err)
	mgr.StartNewConversation()
	q, a = exchange("second", "two")
	second, err := mgr.SaveConversation(ctx, q, a)
	require.NoError(t, err)

	wasActive, err := mgr.DeleteConversation(ctx, first)
	require.NoError(t, err)
	assert.False(t, wasActive)
	assert.Equal(t, second, mgr.CurrentConversationID())

	wasActive, err = mgr.DeleteConversation(ctx, second)
	require.NoError(t, err)
	assert.True(t, wasActive)
	assert.Empty(t, mgr.CurrentConversationID())
	assert.Empty(t, mgr.Conversations())

	require.Len(t, rec.toasts, 2)
	assert.Equal(t, "Conversation deleted", rec.toasts[1].description)
}

func TestDeleteConversation_Failure(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{Backend: openStore(t)}
	mgr, rec := newManager(t, store)

	q, a := exchange("keep me", "ok")
	id, err := mgr.SaveConversation(ctx, q, a)
	require.NoError(t, err)

	store.failDelete = true
	wasActive, err := mgr.DeleteConversation(ctx, id)
	assert.Error(t, err)
	assert.False(t, wasActive)
	assert.Equal(t, id, mgr.CurrentConversationID())
	assert.Len(t, mgr.Conversations(), 1)
	assert.Len(t, rec.errors(), 1)
}

func TestBulkDeleteConversations(t *testing.T) {
	ctx := context.Background()
	mgr, rec := newManager(t, openStore(t))

	var ids []string
	for _, text := range []string{"one", "two", "three"} {
		mgr.StartNewConversation()
		q, a := exchange(text, "reply")
		id, err := mgr.SaveConversation(ctx, q, a)
		require.NoError(t, err)
		ids = append(ids, id)
	}

	wasActive, err := mgr.BulkDeleteConversations(ctx, ids[1:])
	require.NoError(t, err)
	assert.True(t, wasActive)
	assert.Empty(t, mgr.CurrentConversationID())

	convs := mgr.Conversations()
	require.Len(t, convs, 1)
	assert.Equal(t, ids[0], convs[0].ID)
	assert.Empty(t, rec.toasts)

	wasActive, err = mgr.BulkDeleteConversations(ctx, nil)
	assert.NoError(t, err)
	assert.False(t, wasActive)
}

func TestBulkDeleteConversations_FailureHasNoToast(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{Backend: openStore(t)}
	mgr, rec := newManager(t, store)

	q, a := exchange("x", "y")
	id, err := mgr.SaveConversation(ctx, q, a)
	require.NoError(t, err)

	store.failDelete = true
	_, err = mgr.BulkDeleteConversations(ctx, []string{id})
	assert.ErrorIs(t, err, errBoom)
	assert.Empty(t, rec.toasts)
}

// =============================================================================
// PIN AND RENAME
// =============================================================================

func TestPinConversation_Toggles(t *testing.T) {
	ctx := context.Background()
	mgr, rec := newManager(t, openStore(t))

	q, a := exchange("pin me", "sure")
	id, err := mgr.SaveConversation(ctx, q, a)
	require.NoError(t, err)

	require.NoError(t, mgr.PinConversation(ctx, id))
	conv, ok := mgr.Find(id)
	require.True(t, ok)
	assert.True(t, conv.IsPinned)

	require.NoError(t, mgr.PinConversation(ctx, id))
	conv, _ = mgr.Find(id)
	assert.False(t, conv.IsPinned)

	require.NoError(t, mgr.PinConversation(ctx, "missing"))
	assert.Len(t, rec.toasts, 2)
}

func TestRenameConversation(t *testing.T) {
	ctx := context.Background()
	mgr, rec := newManager(t, openStore(t))

	q, a := exchange("old title", "reply")
	id, err := mgr.SaveConversation(ctx, q, a)
	require.NoError(t, err)

	require.NoError(t, mgr.RenameConversation(ctx, id, "  Reef pH  "))
	conv, _ := mgr.Find(id)
	assert.Equal(t, "Reef pH", conv.Title)

	require.NoError(t, mgr.RenameConversation(ctx, id, "   "))
	conv, _ = mgr.Find(id)
	assert.Equal(t, "Reef pH", conv.Title)
	assert.Len(t, rec.toasts, 1)
}

// =============================================================================
// EXPORT AND EDIT
// =============================================================================

func TestExportConversation(t *testing.T) {
	ctx := context.Background()
	fixed := time.Date(2025, 3, 4, 15, 30, 0, 0, time.Local)
	store := openStore(t)
	rec := &recorder{}
	mgr := New(store, session.NewWithUser(session.User{ID: "user-1"}, session.TierFree),
		WithNotifier(rec), WithClock(func() time.Time { return fixed }))

	q, a := exchange("Reef pH?", "8.1 to 8.4")
	id, err := mgr.SaveConversation(ctx, q, a)
	require.NoError(t, err)
	require.NoError(t, mgr.RenameConversation(ctx, id, "Reef pH/alk"))

	content, filename, err := mgr.ExportConversation(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Reef_pH_alk.md", filename)
	assert.True(t, strings.HasPrefix(content, "# Reef pH/alk\n"))
	assert.Contains(t, content, "*Exported on March 4, 2025 at 3:30 PM*")
	assert.Contains(t, content, "8.1 to 8.4")
}

func TestUpdateMessageInDB_TruncatesLater(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	mgr, _ := newManager(t, store)

	q1, a1 := exchange("Q1", "A1")
	id, err := mgr.SaveConversation(ctx, q1, a1)
	require.NoError(t, err)
	q2, a2 := exchange("Q2", "A2")
	_, err = mgr.SaveConversation(ctx, q2, a2)
	require.NoError(t, err)

	require.NoError(t, mgr.UpdateMessageInDB(ctx, 2, "Q2 edited"))

	msgs, err := store.ListMessages(ctx, "user-1", id)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "Q2 edited", msgs[2].Content)

	require.NoError(t, mgr.SaveAssistantReply(ctx, model.NewAssistantMessage("A2 regenerated")))
	msgs, err = store.ListMessages(ctx, "user-1", id)
	require.NoError(t, err)
	require.Len(t, msgs, 4)
	assert.Equal(t, "A2 regenerated", msgs[3].Content)
}

func TestUpdateMessageInDB_NoOps(t *testing.T) {
	ctx := context.Background()
	mgr, _ := newManager(t, openStore(t))

	assert.NoError(t, mgr.UpdateMessageInDB(ctx, 0, "nothing active"))

	q, a := exchange("Q", "A")
	_, err := mgr.SaveConversation(ctx, q, a)
	require.NoError(t, err)
	assert.NoError(t, mgr.UpdateMessageInDB(ctx, 10, "past the end"))
	assert.NoError(t, mgr.UpdateMessageInDB(ctx, -1, "negative"))
}
