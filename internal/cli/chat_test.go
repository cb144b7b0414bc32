// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aquaally/ally/internal/conversation"
	"github.com/aquaally/ally/internal/model"
	"github.com/aquaally/ally/internal/session"
	"github.com/aquaally/ally/internal/storage"
)

// fakeReplier streams its chunks and records each history it was sent.
type fakeReplier struct {
	chunks  []string
	err     error
	history [][]model.Message
}

func (r *fakeReplier) Reply(ctx context.Context, history []model.Message, aquarium string, onChunk func(string)) (string, error) {
	r.history = append(r.history, history)
	var b strings.Builder
	for _, c := range r.chunks {
		onChunk(c)
		b.WriteString(c)
	}
	if r.err != nil {
		return "", r.err
	}
	return b.String(), nil
}

func newTestREPL(t *testing.T, replier *fakeReplier) (*repl, storage.Backend) {
	t.Helper()
	store, err := storage.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "ally.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	sess := session.NewWithUser(session.User{ID: testUser}, session.TierFree)
	return newREPL(conversation.New(store, sess), replier, nil), store
}

const replyWithFollowUps = "Keep pH between 6.5 and 7.5 for neon tetras.\n\n" +
	"<!--FOLLOW_UPS-->\n- \"Lower pH\" | \"How do I lower pH safely?\"\n<!--/FOLLOW_UPS-->"

func TestREPL_SendStreamsAndSaves(t *testing.T) {
	replier := &fakeReplier{chunks: []string{"Keep pH between 6.5 and 7.5", " for neon tetras.\n\n<!--FOLL", "OW_UPS-->\n- \"Lower pH\" | \"How do I lower pH safely?\"\n<!--/FOLLOW_UPS-->"}}
	r, store := newTestREPL(t, replier)

	var out bytes.Buffer
	quit, err := r.handle(context.Background(), "What pH for neon tetras?", &out)
	require.NoError(t, err)
	assert.False(t, quit)

	text := out.String()
	assert.Contains(t, text, "Keep pH between 6.5 and 7.5 for neon tetras.")
	assert.NotContains(t, text, "FOLLOW_UPS")
	assert.NotContains(t, text, "<!--")
	assert.Contains(t, text, "1. Lower pH")

	convs, err := store.ListConversations(context.Background(), testUser)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, "What pH for neon tetras", convs[0].Title)
	assert.Equal(t, 2, convs[0].MessageCount)

	// The greeting is first in every request.
	require.Len(t, replier.history, 1)
	assert.Equal(t, model.GreetingID, replier.history[0][0].ID)
}

func TestREPL_NumberSendsFollowUp(t *testing.T) {
	replier := &fakeReplier{chunks: []string{replyWithFollowUps}}
	r, store := newTestREPL(t, replier)
	ctx := context.Background()

	_, err := r.handle(ctx, "What pH for neon tetras?", &bytes.Buffer{})
	require.NoError(t, err)
	_, err = r.handle(ctx, "1", &bytes.Buffer{})
	require.NoError(t, err)

	require.Len(t, replier.history, 2)
	second := replier.history[1]
	assert.Equal(t, "How do I lower pH safely?", second[len(second)-1].Content)

	convs, err := store.ListConversations(ctx, testUser)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, 4, convs[0].MessageCount)
}

func TestREPL_FailedReplyIsNotSaved(t *testing.T) {
	replier := &fakeReplier{chunks: []string{"Partial"}, err: errors.New("upstream 500")}
	r, store := newTestREPL(t, replier)

	_, err := r.handle(context.Background(), "Is 0.5 ppm ammonia bad?", &bytes.Buffer{})
	assert.ErrorIs(t, err, errNoAnswer)

	convs, err := store.ListConversations(context.Background(), testUser)
	require.NoError(t, err)
	assert.Empty(t, convs)
	assert.Len(t, r.messages, 1)
}

func TestREPL_CancelledReplyIsQuiet(t *testing.T) {
	replier := &fakeReplier{err: context.Canceled}
	r, _ := newTestREPL(t, replier)

	var out bytes.Buffer
	_, err := r.handle(context.Background(), "Hello", &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "[Cancelled]")
}

func TestREPL_Commands(t *testing.T) {
	replier := &fakeReplier{chunks: []string{"Do a 30% water change today."}}
	r, _ := newTestREPL(t, replier)
	ctx := context.Background()

	var out bytes.Buffer
	_, err := r.handle(ctx, "My tank smells", &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Log Water Change")
	id := r.manager.CurrentConversationID()
	require.NotEmpty(t, id)

	out.Reset()
	_, err = r.handle(ctx, "/history", &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), id)
	assert.Contains(t, out.String(), "My tank smells")

	out.Reset()
	_, err = r.handle(ctx, "/new", &out)
	require.NoError(t, err)
	assert.Empty(t, r.manager.CurrentConversationID())
	assert.Contains(t, out.String(), model.GreetingText)

	out.Reset()
	_, err = r.handle(ctx, "/open "+id, &out)
	require.NoError(t, err)
	assert.Equal(t, id, r.manager.CurrentConversationID())
	assert.Contains(t, out.String(), "My tank smells")
	assert.Len(t, r.messages, 2)

	_, err = r.handle(ctx, "/open missing", &out)
	var notFound *NotFoundError
	assert.ErrorAs(t, err, &notFound)

	_, err = r.handle(ctx, "/dance", &out)
	var usage *UsageError
	assert.ErrorAs(t, err, &usage)

	quit, err := r.handle(ctx, "/quit", &out)
	require.NoError(t, err)
	assert.True(t, quit)
}

func TestPrintDelta(t *testing.T) {
	var out bytes.Buffer
	n := printDelta(&out, "Hello", 0)
	n = printDelta(&out, "Hello, wor", n)
	n = printDelta(&out, "Hello", n)
	n = printDelta(&out, "Hello, world", n)
	assert.Equal(t, "Hello, world", out.String())
	assert.Equal(t, 12, n)
}
