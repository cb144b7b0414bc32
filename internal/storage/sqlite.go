// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/aquaally/ally/internal/model"
)

// =============================================================================
// SQLITE STORE
// =============================================================================

// SQLiteStore keeps the chat tables in a local SQLite file.
type SQLiteStore struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("storage: sqlite path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %q: %w", pragma, err)
		}
	}

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	if _, err := db.ExecContext(ctx,
		`INSERT OR REPLACE INTO metadata (key, value) VALUES ('schema_version', ?)`,
		fmt.Sprint(SchemaVersion)); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to record schema version: %w", err)
	}

	return &SQLiteStore{db: db, path: path, now: time.Now}, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Close implements Backend.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// =============================================================================
// CONVERSATIONS
// =============================================================================

const sqliteConversationColumns = `c.id, c.user_id, c.title, c.created_at, c.updated_at, c.aquarium_id,
    c.is_pinned, c.last_message_preview,
    (SELECT COUNT(*) FROM chat_messages m WHERE m.conversation_id = c.id)`

// ListConversations implements Backend.
func (s *SQLiteStore) ListConversations(ctx context.Context, userID string) ([]model.Conversation, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+sqliteConversationColumns+`
        FROM chat_conversations c
        WHERE c.user_id = ?
        ORDER BY c.is_pinned DESC, c.updated_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("storage: list conversations: %w", err)
	}
	defer rows.Close()

	var convs []model.Conversation
	for rows.Next() {
		conv, err := scanSQLiteConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: list conversations: %w", err)
		}
		convs = append(convs, conv)
	}
	return convs, rows.Err()
}

// GetConversation implements Backend.
func (s *SQLiteStore) GetConversation(ctx context.Context, userID, id string) (model.Conversation, error) {
	if err := requireUser(userID); err != nil {
		return model.Conversation{}, err
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+sqliteConversationColumns+`
        FROM chat_conversations c
        WHERE c.user_id = ? AND c.id = ?`, userID, id)
	conv, err := scanSQLiteConversation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Conversation{}, ErrNotFound
	}
	if err != nil {
		return model.Conversation{}, fmt.Errorf("storage: get conversation: %w", err)
	}
	return conv, nil
}

// CreateConversation implements Backend.
func (s *SQLiteStore) CreateConversation(ctx context.Context, conv model.Conversation) (model.Conversation, error) {
	if err := requireUser(conv.UserID); err != nil {
		return model.Conversation{}, err
	}
	conv = prepareConversation(conv, s.now())

	_, err := s.db.ExecContext(ctx, `INSERT INTO chat_conversations
        (id, user_id, title, created_at, updated_at, aquarium_id, is_pinned, last_message_preview)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		conv.ID, conv.UserID, conv.Title,
		conv.CreatedAt.UnixNano(), conv.UpdatedAt.UnixNano(),
		nullString(conv.AquariumID), conv.IsPinned, conv.LastMessagePreview)
	if err != nil {
		return model.Conversation{}, fmt.Errorf("storage: create conversation: %w", err)
	}
	return conv, nil
}

// UpdateConversation implements Backend.
func (s *SQLiteStore) UpdateConversation(ctx context.Context, userID, id string, patch ConversationPatch) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	if patch.IsEmpty() {
		return nil
	}

	var sets []string
	var args []any
	if patch.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *patch.Title)
	}
	if patch.IsPinned != nil {
		sets = append(sets, "is_pinned = ?")
		args = append(args, *patch.IsPinned)
	}
	if patch.UpdatedAt != nil {
		sets = append(sets, "updated_at = ?")
		args = append(args, patch.UpdatedAt.UnixNano())
	}
	if patch.LastMessagePreview != nil {
		sets = append(sets, "last_message_preview = ?")
		args = append(args, *patch.LastMessagePreview)
	}
	args = append(args, userID, id)

	res, err := s.db.ExecContext(ctx,
		`UPDATE chat_conversations SET `+strings.Join(sets, ", ")+` WHERE user_id = ? AND id = ?`,
		args...)
	if err != nil {
		return fmt.Errorf("storage: update conversation: %w", err)
	}
	return requireAffected(res)
}

// DeleteConversations implements Backend.
func (s *SQLiteStore) DeleteConversations(ctx context.Context, userID string, ids []string) (int, error) {
	if err := requireUser(userID); err != nil {
		return 0, err
	}
	ids = dedupe(ids)
	if len(ids) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("storage: delete conversations: %w", err)
	}
	defer tx.Rollback()

	in, idArgs := inClause(ids)
	args := append([]any{userID}, idArgs...)

	if _, err := tx.ExecContext(ctx, `DELETE FROM chat_messages WHERE conversation_id IN (
        SELECT id FROM chat_conversations WHERE user_id = ? AND id IN `+in+`)`, args...); err != nil {
		return 0, fmt.Errorf("storage: delete conversation messages: %w", err)
	}
	res, err := tx.ExecContext(ctx,
		`DELETE FROM chat_conversations WHERE user_id = ? AND id IN `+in, args...)
	if err != nil {
		return 0, fmt.Errorf("storage: delete conversations: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("storage: delete conversations: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("storage: delete conversations: %w", err)
	}
	return int(n), nil
}

// =============================================================================
// MESSAGES
// =============================================================================

// ListMessages implements Backend.
func (s *SQLiteStore) ListMessages(ctx context.Context, userID, conversationID string) ([]model.Message, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id, role, content, image_url, created_at
        FROM chat_messages
        WHERE conversation_id = ?
          AND conversation_id IN (SELECT id FROM chat_conversations WHERE user_id = ?)
        ORDER BY created_at ASC, rowid ASC`, conversationID, userID)
	if err != nil {
		return nil, fmt.Errorf("storage: list messages: %w", err)
	}
	defer rows.Close()

	var msgs []model.Message
	for rows.Next() {
		var (
			msg  model.Message
			role string
			ts   int64
		)
		if err := rows.Scan(&msg.ID, &role, &msg.Content, &msg.ImageURL, &ts); err != nil {
			return nil, fmt.Errorf("storage: list messages: %w", err)
		}
		msg.Role = model.Role(role)
		msg.Timestamp = time.Unix(0, ts)
		msgs = append(msgs, msg)
	}
	return msgs, rows.Err()
}

// InsertMessages implements Backend.
func (s *SQLiteStore) InsertMessages(ctx context.Context, userID, conversationID string, msgs []model.Message) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	if len(msgs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage: insert messages: %w", err)
	}
	defer tx.Rollback()

	var owned int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM chat_conversations WHERE user_id = ? AND id = ?`,
		userID, conversationID).Scan(&owned)
	if err != nil {
		return fmt.Errorf("storage: insert messages: %w", err)
	}
	if owned == 0 {
		return ErrNotFound
	}

	now := s.now()
	for _, m := range msgs {
		msg, err := prepareMessage(m, now)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO chat_messages
            (id, conversation_id, role, content, image_url, created_at)
            VALUES (?, ?, ?, ?, ?, ?)`,
			msg.ID, conversationID, string(msg.Role), msg.Content, msg.ImageURL, msg.Timestamp.UnixNano()); err != nil {
			return fmt.Errorf("storage: insert message: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage: insert messages: %w", err)
	}
	return nil
}

// UpdateMessage implements Backend.
func (s *SQLiteStore) UpdateMessage(ctx context.Context, userID, messageID, content string) error {
	if err := requireUser(userID); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `UPDATE chat_messages SET content = ?
        WHERE id = ?
          AND conversation_id IN (SELECT id FROM chat_conversations WHERE user_id = ?)`,
		content, messageID, userID)
	if err != nil {
		return fmt.Errorf("storage: update message: %w", err)
	}
	return requireAffected(res)
}

// DeleteMessages implements Backend.
func (s *SQLiteStore) DeleteMessages(ctx context.Context, userID string, ids []string) (int, error) {
	if err := requireUser(userID); err != nil {
		return 0, err
	}
	ids = dedupe(ids)
	if len(ids) == 0 {
		return 0, nil
	}

	in, idArgs := inClause(ids)
	args := append(idArgs, userID)
	res, err := s.db.ExecContext(ctx, `DELETE FROM chat_messages
        WHERE id IN `+in+`
          AND conversation_id IN (SELECT id FROM chat_conversations WHERE user_id = ?)`,
		args...)
	if err != nil {
		return 0, fmt.Errorf("storage: delete messages: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("storage: delete messages: %w", err)
	}
	return int(n), nil
}

// =============================================================================
// HELPERS
// =============================================================================

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteConversation(row rowScanner) (model.Conversation, error) {
	var (
		conv             model.Conversation
		created, updated int64
		aquarium         sql.NullString
	)
	err := row.Scan(&conv.ID, &conv.UserID, &conv.Title, &created, &updated,
		&aquarium, &conv.IsPinned, &conv.LastMessagePreview, &conv.MessageCount)
	if err != nil {
		return conv, err
	}
	conv.CreatedAt = time.Unix(0, created)
	conv.UpdatedAt = time.Unix(0, updated)
	if aquarium.Valid {
		id := aquarium.String
		conv.AquariumID = &id
	}
	return conv, nil
}

func nullString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// inClause returns "(?, ?, ...)" and the matching args.
func inClause(ids []string) (string, []any) {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return "(" + strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ") + ")", args
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
