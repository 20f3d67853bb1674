// Package postgres implements store.Store on PostgreSQL using pgx. Suited
// for deployments where conversation history must survive restarts; the
// in-memory store remains the default for tests and demos.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/swilltec/weather/chat"
	"github.com/swilltec/weather/store"
)

// Schema holds the DDL for the two tables this store uses. Applied by
// EnsureSchema; safe to run repeatedly.
const Schema = `
CREATE TABLE IF NOT EXISTS conversations (
    id              UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    fingerprint     TEXT NOT NULL,
    title           TEXT NOT NULL DEFAULT '',
    message_count   INTEGER NOT NULL DEFAULT 0,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
    last_message_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS conversations_fingerprint_idx
    ON conversations (fingerprint, last_message_at DESC);

CREATE TABLE IF NOT EXISTS messages (
    id              BIGSERIAL PRIMARY KEY,
    conversation_id UUID NOT NULL REFERENCES conversations (id) ON DELETE CASCADE,
    role            TEXT NOT NULL,
    content         TEXT NOT NULL DEFAULT '',
    tool_calls      JSONB,
    tool_call_id    TEXT NOT NULL DEFAULT '',
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS messages_conversation_idx
    ON messages (conversation_id, id);
`

// PostgresStore implements store.Store backed by a pgx connection pool.
type PostgresStore struct {
	db *pgxpool.Pool
}

// New connects to Postgres and returns a Postgres-backed Store.
func New(ctx context.Context, connStr string) (*PostgresStore, error) {
	db, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// NewFromPool wraps an existing pool.
func NewFromPool(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the tables and indexes if they do not exist.
func (ps *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := ps.db.Exec(ctx, Schema)
	return err
}

// Close releases the underlying pool.
func (ps *PostgresStore) Close() { ps.db.Close() }

// CreateConversation implements store.Store.
func (ps *PostgresStore) CreateConversation(ctx context.Context, fingerprint string) (*store.Conversation, error) {
	conv := &store.Conversation{Fingerprint: fingerprint}
	err := ps.db.QueryRow(ctx, `
        INSERT INTO conversations (fingerprint)
        VALUES ($1)
        RETURNING id, message_count, created_at, last_message_at;
    `, fingerprint).Scan(&conv.ID, &conv.MessageCount, &conv.CreatedAt, &conv.LastMessageAt)
	if err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	return conv, nil
}

// Conversation implements store.Store.
func (ps *PostgresStore) Conversation(ctx context.Context, id string) (*store.Conversation, error) {
	conv := &store.Conversation{}
	err := ps.db.QueryRow(ctx, `
        SELECT id, fingerprint, title, message_count, created_at, last_message_at
        FROM conversations
        WHERE id = $1;
    `, id).Scan(&conv.ID, &conv.Fingerprint, &conv.Title, &conv.MessageCount, &conv.CreatedAt, &conv.LastMessageAt)
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", store.ErrConversationNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	return conv, nil
}

// Conversations implements store.Store, most recent activity first.
func (ps *PostgresStore) Conversations(ctx context.Context, fingerprint string) ([]*store.Conversation, error) {
	rows, err := ps.db.Query(ctx, `
        SELECT id, fingerprint, title, message_count, created_at, last_message_at
        FROM conversations
        WHERE fingerprint = $1
        ORDER BY last_message_at DESC;
    `, fingerprint)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	var out []*store.Conversation
	for rows.Next() {
		conv := &store.Conversation{}
		if err := rows.Scan(&conv.ID, &conv.Fingerprint, &conv.Title, &conv.MessageCount, &conv.CreatedAt, &conv.LastMessageAt); err != nil {
			return nil, err
		}
		out = append(out, conv)
	}
	return out, rows.Err()
}

// Messages implements store.Store, ordered ascending by insertion.
func (ps *PostgresStore) Messages(ctx context.Context, conversationID string) ([]chat.Message, error) {
	if _, err := ps.Conversation(ctx, conversationID); err != nil {
		return nil, err
	}

	rows, err := ps.db.Query(ctx, `
        SELECT role, content, tool_calls, tool_call_id
        FROM messages
        WHERE conversation_id = $1
        ORDER BY id;
    `, conversationID)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	defer rows.Close()

	var out []chat.Message
	for rows.Next() {
		var (
			msg      chat.Message
			rawCalls []byte
		)
		if err := rows.Scan(&msg.Role, &msg.Content, &rawCalls, &msg.ToolCallID); err != nil {
			return nil, err
		}
		if len(rawCalls) > 0 {
			if err := json.Unmarshal(rawCalls, &msg.ToolCalls); err != nil {
				return nil, fmt.Errorf("decode tool calls: %w", err)
			}
		}
		out = append(out, msg)
	}
	return out, rows.Err()
}

// AppendMessages implements store.Store. All turns plus the conversation
// counter update commit in one transaction so a partial turn is never
// visible.
func (ps *PostgresStore) AppendMessages(ctx context.Context, conversationID string, messages ...chat.Message) error {
	if len(messages) == 0 {
		return nil
	}

	tx, err := ps.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin append: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, msg := range messages {
		var rawCalls []byte
		if len(msg.ToolCalls) > 0 {
			rawCalls, err = json.Marshal(msg.ToolCalls)
			if err != nil {
				return fmt.Errorf("encode tool calls: %w", err)
			}
		}
		if _, err := tx.Exec(ctx, `
            INSERT INTO messages (conversation_id, role, content, tool_calls, tool_call_id)
            VALUES ($1, $2, $3, $4, $5);
        `, conversationID, string(msg.Role), msg.Content, rawCalls, msg.ToolCallID); err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
	}

	tag, err := tx.Exec(ctx, `
        UPDATE conversations
        SET message_count = message_count + $2, last_message_at = now()
        WHERE id = $1;
    `, conversationID, len(messages))
	if err != nil {
		return fmt.Errorf("update conversation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", store.ErrConversationNotFound, conversationID)
	}

	return tx.Commit(ctx)
}

var _ store.Store = (*PostgresStore)(nil)
