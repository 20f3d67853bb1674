// Package store defines the conversation persistence collaborator: ordered
// message history keyed by conversation id, with the conversation record
// tracking the originating client fingerprint and activity counters. The
// orchestrator itself is stateless between invocations; its caller loads
// prior messages from a Store and persists the new turns after each run.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/swilltec/weather/chat"
)

// ErrConversationNotFound is returned when a conversation id is unknown.
var ErrConversationNotFound = errors.New("conversation not found")

// Conversation is the persistent container for one chat thread. Fingerprint
// identifies the anonymous client that owns it.
type Conversation struct {
	ID            string    `json:"id"`
	Fingerprint   string    `json:"fingerprint"`
	Title         string    `json:"title,omitempty"`
	MessageCount  int       `json:"message_count"`
	CreatedAt     time.Time `json:"created_at"`
	LastMessageAt time.Time `json:"last_message_at"`
}

// Store persists conversations and their ordered message history.
//
// Contract:
//   - Messages returns history ordered by insertion time ascending
//   - AppendMessages appends atomically in the given order and updates the
//     conversation's MessageCount and LastMessageAt
//   - Implementations are safe for concurrent use
type Store interface {
	// CreateConversation starts a new conversation for the given client
	// fingerprint.
	CreateConversation(ctx context.Context, fingerprint string) (*Conversation, error)

	// Conversation returns the conversation record or ErrConversationNotFound.
	Conversation(ctx context.Context, id string) (*Conversation, error)

	// Conversations lists a client's conversations, most recent activity first.
	Conversations(ctx context.Context, fingerprint string) ([]*Conversation, error)

	// Messages returns the full ordered history for a conversation.
	Messages(ctx context.Context, conversationID string) ([]chat.Message, error)

	// AppendMessages appends new turns to a conversation in order.
	AppendMessages(ctx context.Context, conversationID string, messages ...chat.Message) error
}
