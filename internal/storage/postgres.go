// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aquaally/ally/internal/model"
)

// =============================================================================
// POSTGRES STORE
// =============================================================================

// PostgresStore keeps the chat tables in a hosted Postgres database.
type PostgresStore struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// OpenPostgres connects a pool to databaseURL and ensures the schema exists.
// maxConns <= 0 keeps the pgx default.
func OpenPostgres(ctx context.Context, databaseURL string, maxConns int) (*PostgresStore, error) {
	if databaseURL == "" {
		return nil, errors.New("storage: postgres database_url is empty")
	}

	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}
	if maxConns > 0 {
		poolConfig.MaxConns = int32(maxConns)
	}
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	if _, err := pool.Exec(connectCtx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &PostgresStore{pool: pool, now: time.Now}, nil
}

// Close implements Backend.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// =============================================================================
// CONVERSATIONS
// =============================================================================

const postgresConversationColumns = `c.id, c.user_id, c.title, c.created_at, c.updated_at, c.aquarium_id,
    c.is_pinned, c.last_message_preview,
    (SELECT COUNT(*) FROM chat_messages m WHERE m.conversation_id = c.id)`

// ListConversations implements Backend.
func (s *PostgresStore) ListConversations(ctx context.Context, userID string) ([]model.Conversation, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `SELECT `+postgresConversationColumns+`
        FROM chat_conversations c
        WHERE c.user_id = $1
        ORDER BY c.is_pinned DESC, c.updated_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("storage: list conversations: %w", err)
	}
	defer rows.Close()

	var convs []model.Conversation
	for rows.Next() {
		conv, err := scanPostgresConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: list conversations: %w", err)
		}
		convs = append(convs, conv)
	}
	return convs, rows.Err()
}

// GetConversation implements Backend.
func (s *PostgresStore) GetConversation(ctx context.Context, userID, id string) (model.Conversation, error) {
	if err := requireUser(userID); err != nil {
		return model.Conversation{}, err
	}

	row := s.pool.QueryRow(ctx, `SELECT `+postgresConversationColumns+`
        FROM chat_conversations c
        WHERE c.user_id = $1 AND c.id = $2`, userID, id)
	conv, err := scanPostgresConversation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Conversation{}, ErrNotFound
	}
	if err != nil {
		return model.Conversation{}, fmt.Errorf("storage: get conversation: %w", err)
	}
	return conv, nil
}

// CreateConversation implements Backend.
func (s *PostgresStore) CreateConversation(ctx context.Context, conv model.Conversation) (model.Conversation, error) {
	if err := requireUser(conv.UserID); err != nil {
		return model.Conversation{}, err
	}
	conv = prepareConversation(conv, s.now())

	var aquarium *string
	if conv.HasAquarium() {
		aquarium = conv.AquariumID
	}
	_, err := s.pool.Exec(ctx, `INSERT INTO chat_conversations
        (id, user_id, title, created_at, updated_at, aquarium_id, is_pinned, last_message_preview)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		conv.ID, conv.UserID, conv.Title, conv.CreatedAt, conv.UpdatedAt,
		aquarium, conv.IsPinned, conv.LastMessagePreview)
	if err != nil {
		return model.Conversation{}, fmt.Errorf("storage: create conversation: %w", err)
	}
	return conv, nil
}

// UpdateConversation implements Backend.
func (s *PostgresStore) UpdateConversation(ctx context.Context, userID, id string, patch ConversationPatch) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	if patch.IsEmpty() {
		return nil
	}

	var sets []string
	var args []any
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if patch.Title != nil {
		add("title", *patch.Title)
	}
	if patch.IsPinned != nil {
		add("is_pinned", *patch.IsPinned)
	}
	if patch.UpdatedAt != nil {
		add("updated_at", *patch.UpdatedAt)
	}
	if patch.LastMessagePreview != nil {
		add("last_message_preview", *patch.LastMessagePreview)
	}
	args = append(args, userID, id)

	query := fmt.Sprintf(`UPDATE chat_conversations SET %s WHERE user_id = $%d AND id = $%d`,
		strings.Join(sets, ", "), len(args)-1, len(args))
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("storage: update conversation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteConversations implements Backend. Messages go with the
// conversation through ON DELETE CASCADE.
func (s *PostgresStore) DeleteConversations(ctx context.Context, userID string, ids []string) (int, error) {
	if err := requireUser(userID); err != nil {
		return 0, err
	}
	ids = dedupe(ids)
	if len(ids) == 0 {
		return 0, nil
	}

	tag, err := s.pool.Exec(ctx,
		`DELETE FROM chat_conversations WHERE user_id = $1 AND id = ANY($2)`, userID, ids)
	if err != nil {
		return 0, fmt.Errorf("storage: delete conversations: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// =============================================================================
// MESSAGES
// =============================================================================

// ListMessages implements Backend.
func (s *PostgresStore) ListMessages(ctx context.Context, userID, conversationID string) ([]model.Message, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `SELECT id, role, content, image_url, created_at
        FROM chat_messages
        WHERE conversation_id = $1
          AND conversation_id IN (SELECT id FROM chat_conversations WHERE user_id = $2)
        ORDER BY created_at ASC, seq ASC`, conversationID, userID)
	if err != nil {
		return nil, fmt.Errorf("storage: list messages: %w", err)
	}
	defer rows.Close()

	var msgs []model.Message
	for rows.Next() {
		var (
			msg  model.Message
			role string
		)
		if err := rows.Scan(&msg.ID, &role, &msg.Content, &msg.ImageURL, &msg.Timestamp); err != nil {
			return nil, fmt.Errorf("storage: list messages: %w", err)
		}
		msg.Role = model.Role(role)
		msgs = append(msgs, msg)
	}
	return msgs, rows.Err()
}

// InsertMessages implements Backend.
func (s *PostgresStore) InsertMessages(ctx context.Context, userID, conversationID string, msgs []model.Message) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	if len(msgs) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("storage: insert messages: %w", err)
	}
	defer tx.Rollback(ctx)

	var owned bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM chat_conversations WHERE user_id = $1 AND id = $2)`,
		userID, conversationID).Scan(&owned)
	if err != nil {
		return fmt.Errorf("storage: insert messages: %w", err)
	}
	if !owned {
		return ErrNotFound
	}

	now := s.now()
	batch := &pgx.Batch{}
	for _, m := range msgs {
		msg, err := prepareMessage(m, now)
		if err != nil {
			return err
		}
		batch.Queue(`INSERT INTO chat_messages
            (id, conversation_id, role, content, image_url, created_at)
            VALUES ($1, $2, $3, $4, $5, $6)`,
			msg.ID, conversationID, string(msg.Role), msg.Content, msg.ImageURL, msg.Timestamp)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("storage: insert message: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("storage: insert messages: %w", err)
	}
	return nil
}

// UpdateMessage implements Backend.
func (s *PostgresStore) UpdateMessage(ctx context.Context, userID, messageID, content string) error {
	if err := requireUser(userID); err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx, `UPDATE chat_messages SET content = $1
        WHERE id = $2
          AND conversation_id IN (SELECT id FROM chat_conversations WHERE user_id = $3)`,
		content, messageID, userID)
	if err != nil {
		return fmt.Errorf("storage: update message: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteMessages implements Backend.
func (s *PostgresStore) DeleteMessages(ctx context.Context, userID string, ids []string) (int, error) {
	if err := requireUser(userID); err != nil {
		return 0, err
	}
	ids = dedupe(ids)
	if len(ids) == 0 {
		return 0, nil
	}

	tag, err := s.pool.Exec(ctx, `DELETE FROM chat_messages
        WHERE id = ANY($1)
          AND conversation_id IN (SELECT id FROM chat_conversations WHERE user_id = $2)`,
		ids, userID)
	if err != nil {
		return 0, fmt.Errorf("storage: delete messages: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func scanPostgresConversation(row pgx.Row) (model.Conversation, error) {
	var conv model.Conversation
	var count int64
	err := row.Scan(&conv.ID, &conv.UserID, &conv.Title, &conv.CreatedAt, &conv.UpdatedAt,
		&conv.AquariumID, &conv.IsPinned, &conv.LastMessagePreview, &count)
	conv.MessageCount = int(count)
	return conv, err
}
