package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/swilltec/weather/chat"
)

// InMemoryStore is a volatile Store implementation keeping conversations in a
// process local map. It is safe for concurrent access and best suited for
// tests or ephemeral demo servers. Returned records and histories are copies
// to prevent external mutation of internal state.
type InMemoryStore struct {
	mu            sync.RWMutex
	conversations map[string]*Conversation
	messages      map[string][]chat.Message
}

// NewInMemoryStore constructs an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		conversations: make(map[string]*Conversation),
		messages:      make(map[string][]chat.Message),
	}
}

// CreateConversation implements Store.
func (s *InMemoryStore) CreateConversation(_ context.Context, fingerprint string) (*Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	conv := &Conversation{
		ID:            uuid.NewString(),
		Fingerprint:   fingerprint,
		CreatedAt:     now,
		LastMessageAt: now,
	}
	s.conversations[conv.ID] = conv
	s.messages[conv.ID] = nil
	clone := *conv
	return &clone, nil
}

// Conversation implements Store.
func (s *InMemoryStore) Conversation(_ context.Context, id string) (*Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrConversationNotFound, id)
	}
	clone := *conv
	return &clone, nil
}

// Conversations implements Store, most recent activity first.
func (s *InMemoryStore) Conversations(_ context.Context, fingerprint string) ([]*Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Conversation
	for _, conv := range s.conversations {
		if conv.Fingerprint == fingerprint {
			clone := *conv
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastMessageAt.After(out[j].LastMessageAt)
	})
	return out, nil
}

// Messages implements Store.
func (s *InMemoryStore) Messages(_ context.Context, conversationID string) ([]chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs, ok := s.messages[conversationID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrConversationNotFound, conversationID)
	}
	out := make([]chat.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

// AppendMessages implements Store.
func (s *InMemoryStore) AppendMessages(_ context.Context, conversationID string, messages ...chat.Message) error {
	if len(messages) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrConversationNotFound, conversationID)
	}
	s.messages[conversationID] = append(s.messages[conversationID], messages...)
	conv.MessageCount += len(messages)
	conv.LastMessageAt = time.Now()
	return nil
}
