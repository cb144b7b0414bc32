// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/aquaally/ally/internal/annotate"
	"github.com/aquaally/ally/internal/export"
	"github.com/aquaally/ally/internal/model"
	"github.com/aquaally/ally/internal/session"
	"github.com/aquaally/ally/internal/storage"
)

// =============================================================================
// MANAGER
// =============================================================================

// Manager owns the conversation list and the active conversation.
// It is safe for concurrent use; remote calls run without holding the lock.
type Manager struct {
	mu sync.Mutex

	store   storage.Backend
	session *session.Session
	notify  Notifier
	logger  *zap.Logger
	now     func() time.Time

	conversations    []model.Conversation
	currentID        string
	selectedAquarium string

	// generation changes whenever the active conversation is switched or
	// cleared. A save that started under an older generation must not
	// make its conversation active again.
	generation uint64
}

// Option configures a Manager.
type Option func(*Manager)

// WithNotifier sets the toast surface.
func WithNotifier(n Notifier) Option {
	return func(m *Manager) { m.notify = n }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// New creates a manager with no active conversation.
func New(store storage.Backend, sess *session.Session, opts ...Option) *Manager {
	m := &Manager{
		store:            store,
		session:          sess,
		notify:           NopNotifier{},
		logger:           zap.NewNop(),
		now:              time.Now,
		selectedAquarium: model.GeneralAquarium,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// =============================================================================
// STATE ACCESSORS
// =============================================================================

// Conversations returns a copy of the last fetched list.
func (m *Manager) Conversations() []model.Conversation {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Conversation, len(m.conversations))
	copy(out, m.conversations)
	return out
}

// CurrentConversationID returns the active conversation ID, or "" when the
// chat is a new, unsaved conversation.
func (m *Manager) CurrentConversationID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentID
}

// SelectedAquarium returns the aquarium new conversations are tied to, or
// model.GeneralAquarium.
func (m *Manager) SelectedAquarium() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.selectedAquarium
}

// SetSelectedAquarium changes the aquarium context. Empty means general.
func (m *Manager) SetSelectedAquarium(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id == "" {
		id = model.GeneralAquarium
	}
	m.selectedAquarium = id
}

// Find returns a conversation from the last fetched list.
func (m *Manager) Find(id string) (model.Conversation, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findLocked(id)
}

func (m *Manager) findLocked(id string) (model.Conversation, bool) {
	for _, c := range m.conversations {
		if c.ID == id {
			return c, true
		}
	}
	return model.Conversation{}, false
}

func (m *Manager) userID() string {
	if m.session == nil {
		return ""
	}
	return m.session.UserID()
}

// =============================================================================
// LIST AND LOAD
// =============================================================================

// FetchConversations reloads the signed-in user's conversations, pinned
// first and then most recent. On failure the previous list is kept.
func (m *Manager) FetchConversations(ctx context.Context) error {
	user := m.userID()
	if user == "" {
		return nil
	}

	convs, err := m.store.ListConversations(ctx, user)
	if err != nil {
		m.logger.Error("Failed to fetch conversations", zap.Error(err))
		m.notify.Error("Error", "Failed to load conversation history")
		return fmt.Errorf("fetch conversations: %w", err)
	}

	m.mu.Lock()
	m.conversations = convs
	m.mu.Unlock()
	return nil
}

// LoadConversation makes id the active conversation and returns its
// messages oldest first. A conversation without stored messages is treated
// as gone: the active ID is cleared and only the greeting is returned.
func (m *Manager) LoadConversation(ctx context.Context, id string) ([]model.Message, error) {
	user := m.userID()
	if user == "" {
		return model.GreetingOnly(), storage.ErrUnauthenticated
	}

	m.mu.Lock()
	m.generation++
	m.mu.Unlock()

	msgs, err := m.store.ListMessages(ctx, user, id)
	if err != nil {
		m.logger.Error("Failed to load conversation", zap.String("conversation_id", id), zap.Error(err))
		m.notify.Error("Error", "Failed to load conversation")
		return nil, fmt.Errorf("load conversation: %w", err)
	}

	if len(msgs) == 0 {
		m.logger.Warn("Conversation has no messages, starting fresh", zap.String("conversation_id", id))
		m.mu.Lock()
		m.currentID = ""
		m.mu.Unlock()
		return model.GreetingOnly(), nil
	}

	conv, ok := m.Find(id)
	if !ok {
		conv, err = m.store.GetConversation(ctx, user, id)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			m.logger.Warn("Failed to read conversation row", zap.String("conversation_id", id), zap.Error(err))
		}
	}

	m.mu.Lock()
	m.currentID = id
	m.selectedAquarium = conv.AquariumOrGeneral()
	m.mu.Unlock()
	return msgs, nil
}

// StartNewConversation clears the active conversation and returns the
// greeting. Nothing is written until the first SaveConversation.
func (m *Manager) StartNewConversation() []model.Message {
	m.mu.Lock()
	m.currentID = ""
	m.generation++
	m.mu.Unlock()
	return model.GreetingOnly()
}

// =============================================================================
// SAVE
// =============================================================================

// Target pins a save to the conversation that was active when the
// exchange happened.
type Target struct {
	ConversationID string
	Aquarium       string
	generation     uint64
}

// CurrentTarget captures the active conversation for a later save.
func (m *Manager) CurrentTarget() Target {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Target{ConversationID: m.currentID, Aquarium: m.selectedAquarium, generation: m.generation}
}

// SaveConversation persists one exchange into the active conversation.
// See SaveExchange.
func (m *Manager) SaveConversation(ctx context.Context, userMsg, assistantMsg model.Message) (string, error) {
	return m.SaveExchange(ctx, m.CurrentTarget(), userMsg, assistantMsg)
}

// SaveExchange persists one exchange into target. The conversation is
// created on the first save with a title derived from the user's message.
// Both messages are inserted in one write, then updated_at and the preview
// are refreshed. Returns the conversation ID, or "" when nobody is signed in.
//
// A failed message insert is reported but the created conversation is kept.
// A created conversation becomes active only if the active conversation has
// not been switched or cleared since target was captured.
func (m *Manager) SaveExchange(ctx context.Context, target Target, userMsg, assistantMsg model.Message) (string, error) {
	user := m.userID()
	if user == "" {
		return "", nil
	}

	convID, aquarium := target.ConversationID, target.Aquarium
	if convID == "" {
		conv := model.Conversation{
			UserID: user,
			Title:  model.DeriveTitle(userMsg.Content),
		}
		if aquarium != "" && aquarium != model.GeneralAquarium {
			conv.AquariumID = &aquarium
		}
		created, err := m.store.CreateConversation(ctx, conv)
		if err != nil {
			m.logger.Error("Failed to create conversation", zap.Error(err))
			m.notify.Error("Error", "Failed to save conversation")
			return "", fmt.Errorf("create conversation: %w", err)
		}
		convID = created.ID
		m.mu.Lock()
		if m.generation == target.generation {
			m.currentID = convID
		}
		m.mu.Unlock()
		m.logger.Info("Conversation created", zap.String("conversation_id", convID))
	}

	if err := m.store.InsertMessages(ctx, user, convID, []model.Message{userMsg, assistantMsg}); err != nil {
		m.logger.Error("Failed to save messages", zap.String("conversation_id", convID), zap.Error(err))
		m.notify.Error("Error", "Failed to save messages")
		return convID, fmt.Errorf("insert messages: %w", err)
	}

	if err := m.touch(ctx, user, convID, assistantMsg.Content); err != nil {
		return convID, err
	}

	_ = m.FetchConversations(ctx)
	return convID, nil
}

// SaveAssistantReply appends a single regenerated reply to the active
// conversation, as after editing an earlier user message.
func (m *Manager) SaveAssistantReply(ctx context.Context, reply model.Message) error {
	return m.SaveReply(ctx, m.CurrentTarget(), reply)
}

// SaveReply appends a single reply to target's conversation. A target
// without a conversation is ignored.
func (m *Manager) SaveReply(ctx context.Context, target Target, reply model.Message) error {
	user := m.userID()
	convID := target.ConversationID
	if user == "" || convID == "" {
		return nil
	}

	if err := m.store.InsertMessages(ctx, user, convID, []model.Message{reply}); err != nil {
		m.logger.Error("Failed to save reply", zap.String("conversation_id", convID), zap.Error(err))
		m.notify.Error("Error", "Failed to save messages")
		return fmt.Errorf("insert reply: %w", err)
	}
	if err := m.touch(ctx, user, convID, reply.Content); err != nil {
		return err
	}
	_ = m.FetchConversations(ctx)
	return nil
}

// touch bumps updated_at and sets the preview from an assistant reply
// with its follow-up block removed.
func (m *Manager) touch(ctx context.Context, user, convID, reply string) error {
	now := m.now()
	preview := model.DerivePreview(annotate.StripFollowUps(reply))
	err := m.store.UpdateConversation(ctx, user, convID, storage.ConversationPatch{
		UpdatedAt:          &now,
		LastMessagePreview: &preview,
	})
	if err != nil {
		m.logger.Error("Failed to update conversation", zap.String("conversation_id", convID), zap.Error(err))
		m.notify.Error("Error", "Failed to update conversation")
		return fmt.Errorf("update conversation: %w", err)
	}
	return nil
}

// =============================================================================
// DELETE
// =============================================================================

// DeleteConversation removes one conversation. It reports true when the
// deleted conversation was the active one, which is then cleared so the
// caller can reset its view to the greeting.
func (m *Manager) DeleteConversation(ctx context.Context, id string) (bool, error) {
	user := m.userID()
	if user == "" {
		return false, storage.ErrUnauthenticated
	}

	if _, err := m.store.DeleteConversations(ctx, user, []string{id}); err != nil {
		m.logger.Error("Failed to delete conversation", zap.String("conversation_id", id), zap.Error(err))
		m.notify.Error("Error", "Failed to delete conversation")
		return false, fmt.Errorf("delete conversation: %w", err)
	}
	m.notify.Success("Deleted", "Conversation deleted")

	wasActive := m.clearIfActive(id)
	_ = m.FetchConversations(ctx)
	return wasActive, nil
}

// BulkDeleteConversations removes ids in one batched delete. Errors are
// returned without a toast so the caller can phrase its own. Reports true
// when the active conversation was among ids.
func (m *Manager) BulkDeleteConversations(ctx context.Context, ids []string) (bool, error) {
	if len(ids) == 0 {
		return false, nil
	}
	user := m.userID()
	if user == "" {
		return false, storage.ErrUnauthenticated
	}

	n, err := m.store.DeleteConversations(ctx, user, ids)
	if err != nil {
		m.logger.Error("Failed to bulk delete conversations", zap.Int("count", len(ids)), zap.Error(err))
		return false, fmt.Errorf("bulk delete conversations: %w", err)
	}
	m.logger.Info("Conversations deleted", zap.Int("requested", len(ids)), zap.Int("deleted", n))

	wasActive := m.clearIfActive(ids...)
	_ = m.FetchConversations(ctx)
	return wasActive, nil
}

func (m *Manager) clearIfActive(ids ...string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		if id != "" && id == m.currentID {
			m.currentID = ""
			m.generation++
			return true
		}
	}
	return false
}

// =============================================================================
// PIN AND RENAME
// =============================================================================

// PinConversation toggles the pinned flag. Unknown IDs are ignored.
func (m *Manager) PinConversation(ctx context.Context, id string) error {
	user := m.userID()
	conv, ok := m.Find(id)
	if user == "" || !ok {
		return nil
	}

	pinned := !conv.IsPinned
	if err := m.store.UpdateConversation(ctx, user, id, storage.ConversationPatch{IsPinned: &pinned}); err != nil {
		m.logger.Error("Failed to pin conversation", zap.String("conversation_id", id), zap.Error(err))
		m.notify.Error("Error", "Failed to update conversation")
		return fmt.Errorf("pin conversation: %w", err)
	}
	if pinned {
		m.notify.Success("Pinned", "Conversation pinned")
	} else {
		m.notify.Success("Unpinned", "Conversation unpinned")
	}
	return m.FetchConversations(ctx)
}

// RenameConversation sets a new title. Blank titles and unknown IDs are
// ignored without a remote call.
func (m *Manager) RenameConversation(ctx context.Context, id, title string) error {
	title = strings.TrimSpace(title)
	user := m.userID()
	if title == "" || user == "" {
		return nil
	}
	if _, ok := m.Find(id); !ok {
		return nil
	}

	if err := m.store.UpdateConversation(ctx, user, id, storage.ConversationPatch{Title: &title}); err != nil {
		m.logger.Error("Failed to rename conversation", zap.String("conversation_id", id), zap.Error(err))
		m.notify.Error("Error", "Failed to rename conversation")
		return fmt.Errorf("rename conversation: %w", err)
	}
	m.notify.Success("Renamed", "Conversation renamed")
	return m.FetchConversations(ctx)
}

// =============================================================================
// EXPORT AND EDIT
// =============================================================================

// ExportDocument gathers a conversation and its messages for an exporter.
func (m *Manager) ExportDocument(ctx context.Context, id string) (export.Document, error) {
	user := m.userID()
	if user == "" {
		return export.Document{}, storage.ErrUnauthenticated
	}

	conv, ok := m.Find(id)
	if !ok {
		var err error
		conv, err = m.store.GetConversation(ctx, user, id)
		if err != nil {
			m.notify.Error("Error", "Failed to export conversation")
			return export.Document{}, fmt.Errorf("export conversation: %w", err)
		}
	}

	msgs, err := m.store.ListMessages(ctx, user, id)
	if err != nil {
		m.logger.Error("Failed to export conversation", zap.String("conversation_id", id), zap.Error(err))
		m.notify.Error("Error", "Failed to export conversation")
		return export.Document{}, fmt.Errorf("export conversation: %w", err)
	}
	return export.Document{Conversation: conv, Messages: msgs, ExportedAt: m.now()}, nil
}

// ExportConversation renders a conversation as Markdown and returns it
// with a filename derived from the title.
func (m *Manager) ExportConversation(ctx context.Context, id string) (content, filename string, err error) {
	doc, err := m.ExportDocument(ctx, id)
	if err != nil {
		return "", "", err
	}
	content = export.Markdown(doc.Conversation.Title, doc.Messages, doc.ExportedAt)
	return content, export.Filename(doc.Conversation.Title, ".md"), nil
}

// UpdateMessageInDB rewrites the message at index in the active
// conversation and deletes every later message. Without an active
// conversation, or with an index past the end, it does nothing.
func (m *Manager) UpdateMessageInDB(ctx context.Context, index int, content string) error {
	user := m.userID()
	convID := m.CurrentConversationID()
	if user == "" || convID == "" || index < 0 {
		return nil
	}

	msgs, err := m.store.ListMessages(ctx, user, convID)
	if err != nil {
		m.notify.Error("Error", "Failed to update message")
		return fmt.Errorf("update message: %w", err)
	}
	if index >= len(msgs) {
		return nil
	}

	if err := m.store.UpdateMessage(ctx, user, msgs[index].ID, content); err != nil {
		m.logger.Error("Failed to update message", zap.String("message_id", msgs[index].ID), zap.Error(err))
		m.notify.Error("Error", "Failed to update message")
		return fmt.Errorf("update message: %w", err)
	}

	later := make([]string, 0, len(msgs)-index-1)
	for _, msg := range msgs[index+1:] {
		later = append(later, msg.ID)
	}
	if len(later) > 0 {
		if _, err := m.store.DeleteMessages(ctx, user, later); err != nil {
			m.logger.Error("Failed to delete later messages", zap.Int("count", len(later)), zap.Error(err))
			m.notify.Error("Error", "Failed to update message")
			return fmt.Errorf("delete later messages: %w", err)
		}
	}
	return nil
}
