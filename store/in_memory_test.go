package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swilltec/weather/chat"
)

func TestInMemoryStore_CreateAndGet(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	conv, err := s.CreateConversation(ctx, "fp-1")
	require.NoError(t, err)
	assert.NotEmpty(t, conv.ID)
	assert.Equal(t, "fp-1", conv.Fingerprint)
	assert.Zero(t, conv.MessageCount)

	got, err := s.Conversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, conv.ID, got.ID)

	_, err = s.Conversation(ctx, "missing")
	assert.ErrorIs(t, err, ErrConversationNotFound)
}

func TestInMemoryStore_AppendAndReadBack(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	conv, err := s.CreateConversation(ctx, "fp-1")
	require.NoError(t, err)

	turns := []chat.Message{
		chat.User("Weather in Paris?"),
		chat.AssistantToolCalls("", []chat.ToolCall{{ID: "t1", Name: "get_current_weather"}}),
		{Role: chat.RoleTool, Content: `{"temperature":18}`, ToolCallID: "t1"},
		chat.Assistant("It's 18°C in Paris."),
	}
	require.NoError(t, s.AppendMessages(ctx, conv.ID, turns...))

	msgs, err := s.Messages(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, turns, msgs)

	got, err := s.Conversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, got.MessageCount)
	assert.False(t, got.LastMessageAt.Before(got.CreatedAt))
}

func TestInMemoryStore_AppendToMissingConversation(t *testing.T) {
	s := NewInMemoryStore()
	err := s.AppendMessages(context.Background(), "missing", chat.User("hi"))
	assert.ErrorIs(t, err, ErrConversationNotFound)
}

func TestInMemoryStore_ConversationsSortedByActivity(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	first, err := s.CreateConversation(ctx, "fp-1")
	require.NoError(t, err)
	second, err := s.CreateConversation(ctx, "fp-1")
	require.NoError(t, err)
	_, err = s.CreateConversation(ctx, "fp-2")
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	require.NoError(t, s.AppendMessages(ctx, first.ID, chat.User("newest activity")))

	convs, err := s.Conversations(ctx, "fp-1")
	require.NoError(t, err)
	require.Len(t, convs, 2)
	assert.Equal(t, first.ID, convs[0].ID)
	assert.Equal(t, second.ID, convs[1].ID)
}

func TestInMemoryStore_ReturnedHistoryIsACopy(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	conv, err := s.CreateConversation(ctx, "fp-1")
	require.NoError(t, err)
	require.NoError(t, s.AppendMessages(ctx, conv.ID, chat.User("original")))

	msgs, err := s.Messages(ctx, conv.ID)
	require.NoError(t, err)
	msgs[0].Content = "mutated"

	again, err := s.Messages(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "original", again[0].Content)
}
