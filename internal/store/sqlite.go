// Package store persists conversations in SQLite as single-row documents:
// each conversation row embeds its messages as a JSON array, so reading a
// conversation (history included) is a single fetch and writing one is a
// single row update. SQLite serializes writes per database, which gives the
// per-document write ordering the chat layer relies on.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/davext/chatgate/internal/chat"
	"github.com/davext/chatgate/providers/ai"
)

const schema = `
CREATE TABLE IF NOT EXISTS conversations (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    title TEXT NOT NULL,
    provider TEXT NOT NULL,
    messages TEXT NOT NULL DEFAULT '[]',
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_conversations_user_updated
    ON conversations (user_id, updated_at DESC);`

// SQLite implements chat.ConversationStore on a SQLite database.
type SQLite struct {
	db *sql.DB
}

// Open opens (creating if needed) the conversation database at path.
func Open(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close releases the underlying database handle.
func (store *SQLite) Close() error {
	return store.db.Close()
}

// Insert persists a newly created conversation document.
func (store *SQLite) Insert(ctx context.Context, conversation *chat.Conversation) error {
	messages, err := json.Marshal(conversation.Messages)
	if err != nil {
		return fmt.Errorf("encoding messages: %w", err)
	}

	_, err = store.db.ExecContext(ctx, `
        INSERT INTO conversations (id, user_id, title, provider, messages, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)`,
		conversation.ID, conversation.UserID, conversation.Title, string(conversation.Provider),
		string(messages), conversation.CreatedAt, conversation.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting conversation: %w", err)
	}
	return nil
}

// Get fetches one conversation scoped to its owning user. Misses — including
// conversations owned by a different user — return chat.ErrNotFound.
func (store *SQLite) Get(ctx context.Context, id, userID string) (*chat.Conversation, error) {
	row := store.db.QueryRowContext(ctx, `
        SELECT id, user_id, title, provider, messages, created_at, updated_at
        FROM conversations WHERE id = ? AND user_id = ?`, id, userID)

	var conversation chat.Conversation
	var provider, messages string
	err := row.Scan(&conversation.ID, &conversation.UserID, &conversation.Title,
		&provider, &messages, &conversation.CreatedAt, &conversation.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, chat.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetching conversation: %w", err)
	}

	conversation.Provider = ai.ProviderID(provider)
	if err := json.Unmarshal([]byte(messages), &conversation.Messages); err != nil {
		return nil, fmt.Errorf("decoding messages for %s: %w", id, err)
	}

	return &conversation, nil
}

// Save replaces the whole conversation document and bumps updated_at.
func (store *SQLite) Save(ctx context.Context, conversation *chat.Conversation) error {
	messages, err := json.Marshal(conversation.Messages)
	if err != nil {
		return fmt.Errorf("encoding messages: %w", err)
	}

	conversation.UpdatedAt = time.Now().UTC()

	result, err := store.db.ExecContext(ctx, `
        UPDATE conversations
        SET title = ?, provider = ?, messages = ?, updated_at = ?
        WHERE id = ? AND user_id = ?`,
		conversation.Title, string(conversation.Provider), string(messages),
		conversation.UpdatedAt, conversation.ID, conversation.UserID)
	if err != nil {
		return fmt.Errorf("saving conversation: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("saving conversation: %w", err)
	}
	if affected == 0 {
		return chat.ErrNotFound
	}
	return nil
}

// List returns up to limit of the user's conversation summaries,
// newest-updated first. Message bodies are never read.
func (store *SQLite) List(ctx context.Context, userID string, limit int) ([]chat.Summary, error) {
	rows, err := store.db.QueryContext(ctx, `
        SELECT id, title, provider, created_at, updated_at
        FROM conversations WHERE user_id = ?
        ORDER BY updated_at DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}
	defer rows.Close()

	summaries := []chat.Summary{}
	for rows.Next() {
		var summary chat.Summary
		var provider string
		if err := rows.Scan(&summary.ID, &summary.Title, &provider, &summary.CreatedAt, &summary.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning conversation summary: %w", err)
		}
		summary.Provider = ai.ProviderID(provider)
		summaries = append(summaries, summary)
	}

	return summaries, rows.Err()
}

// Delete removes one conversation (its embedded messages with it) scoped to
// the owning user. Deleting a missing or foreign conversation returns
// chat.ErrNotFound.
func (store *SQLite) Delete(ctx context.Context, id, userID string) error {
	result, err := store.db.ExecContext(ctx,
		`DELETE FROM conversations WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("deleting conversation: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting conversation: %w", err)
	}
	if affected == 0 {
		return chat.ErrNotFound
	}
	return nil
}
