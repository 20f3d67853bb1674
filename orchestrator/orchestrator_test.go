package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swilltec/weather/chat"
	"github.com/swilltec/weather/model"
	"github.com/swilltec/weather/tool"
)

func weatherRegistry(t *testing.T) *tool.Registry {
	t.Helper()
	return registryWith(t, &stubTool{
		name:   "get_current_weather",
		result: map[string]any{"temperature": 18.0, "description": "clear sky"},
	})
}

// Full turn end to end: one tool round then a terminal answer.
func TestRun_SingleToolRound(t *testing.T) {
	gw := model.NewMockGateway(
		&model.Result{ToolCalls: []chat.ToolCall{call("t1", "get_current_weather", `{"location":"Paris"}`)}},
		&model.Result{Text: "It's 18°C and clear in Paris."},
	)
	orch := New(gw, weatherRegistry(t))

	outcome, err := orch.Run(context.Background(), nil, "What's the weather in Paris?")
	require.NoError(t, err)

	assert.Equal(t, "It's 18°C and clear in Paris.", outcome.FinalText)
	assert.Equal(t, 2, outcome.RoundsUsed)
	require.Len(t, outcome.ToolCalls, 1)
	assert.Equal(t, "t1", outcome.ToolCalls[0].ID)
	require.Len(t, outcome.ToolResults, 1)
	assert.Equal(t, map[string]any{"temperature": 18.0, "description": "clear sky"}, outcome.ToolResults[0].Value)

	// New turns in persistence order: user, assistant tool calls, tool, final assistant.
	require.Len(t, outcome.Messages, 4)
	assert.Equal(t, chat.RoleUser, outcome.Messages[0].Role)
	assert.True(t, outcome.Messages[1].HasToolCalls())
	assert.Equal(t, chat.RoleTool, outcome.Messages[2].Role)
	assert.Equal(t, "It's 18°C and clear in Paris.", outcome.Messages[3].Content)
}

func TestRun_NoToolsNeeded(t *testing.T) {
	gw := model.NewMockGateway(&model.Result{Text: "Hello! Ask me about the weather."})
	orch := New(gw, weatherRegistry(t))

	outcome, err := orch.Run(context.Background(), nil, "hi")
	require.NoError(t, err)
	assert.Equal(t, 1, outcome.RoundsUsed)
	assert.Equal(t, "Hello! Ask me about the weather.", outcome.FinalText)
	assert.Empty(t, outcome.ToolCalls)
}

// Empty tool_calls plus empty text yields "", not null: callers must never
// special-case missing text.
func TestRun_EmptyTerminalText(t *testing.T) {
	gw := model.NewMockGateway(&model.Result{})
	orch := New(gw, weatherRegistry(t))

	outcome, err := orch.Run(context.Background(), nil, "say nothing")
	require.NoError(t, err)
	assert.Equal(t, "", outcome.FinalText)
	assert.Equal(t, 1, outcome.RoundsUsed)
}

// A backend that always requests tools terminates at exactly maxRounds+1
// completion calls with the last completion's text as the answer.
func TestRun_RoundLimitGuard(t *testing.T) {
	always := &model.Result{
		Text:      "Need more data.",
		ToolCalls: []chat.ToolCall{call("t1", "get_current_weather", `{"location":"Paris"}`)},
	}
	gw := model.NewMockGateway(always)
	orch := New(gw, weatherRegistry(t), func(o *Options) { o.MaxRounds = 1 })

	outcome, err := orch.Run(context.Background(), nil, "weather?")
	require.NoError(t, err)
	assert.Equal(t, 2, outcome.RoundsUsed)
	assert.Equal(t, "Need more data.", outcome.FinalText)
	assert.Equal(t, 2, gw.Calls())
	assert.Len(t, outcome.ToolCalls, 2)
	assert.Len(t, outcome.ToolResults, 2)
}

func TestRun_DeeperRoundLimit(t *testing.T) {
	always := &model.Result{ToolCalls: []chat.ToolCall{call("t1", "get_current_weather", `{"location":"Paris"}`)}}
	gw := model.NewMockGateway(always)
	orch := New(gw, weatherRegistry(t), func(o *Options) { o.MaxRounds = 3 })

	outcome, err := orch.Run(context.Background(), nil, "weather?")
	require.NoError(t, err)
	assert.Equal(t, 4, outcome.RoundsUsed)
	assert.Equal(t, 4, gw.Calls())
}

func TestRun_UpstreamErrorEscapes(t *testing.T) {
	gw := model.NewMockGateway()
	gw.FailWith(model.NewUpstreamError("openai", errors.New("rate limited")))
	orch := New(gw, weatherRegistry(t))

	_, err := orch.Run(context.Background(), nil, "weather?")
	require.Error(t, err)
	var upstream *model.UpstreamError
	assert.ErrorAs(t, err, &upstream)
}

// Stored history carrying a stale tool message is repaired before submission.
func TestRun_SanitizesReplayedHistory(t *testing.T) {
	history := []chat.Message{
		chat.System("You are a weather assistant."),
		{Role: chat.RoleTool, Content: `{"stale":true}`, ToolCallID: "old-1"},
		chat.Assistant("Earlier answer."),
	}
	gw := model.NewMockGateway(&model.Result{Text: "ok"})
	orch := New(gw, weatherRegistry(t))

	_, err := orch.Run(context.Background(), history, "and today?")
	require.NoError(t, err)

	require.Len(t, gw.Requests, 1)
	for _, m := range gw.Requests[0] {
		assert.NotEqual(t, chat.RoleTool, m.Role, "orphaned tool message must be dropped")
	}
}

// Tool results appended in round N must be present (and sanitizer-approved)
// in the round N+1 submission.
func TestRun_ToolResultsFlowIntoNextRound(t *testing.T) {
	gw := model.NewMockGateway(
		&model.Result{ToolCalls: []chat.ToolCall{call("t1", "get_current_weather", `{"location":"Paris"}`)}},
		&model.Result{Text: "done"},
	)
	orch := New(gw, weatherRegistry(t))

	_, err := orch.Run(context.Background(), nil, "weather?")
	require.NoError(t, err)

	require.Len(t, gw.Requests, 2)
	second := gw.Requests[1]
	require.GreaterOrEqual(t, len(second), 3)
	assert.True(t, second[len(second)-2].HasToolCalls())
	last := second[len(second)-1]
	assert.Equal(t, chat.RoleTool, last.Role)
	assert.Equal(t, "t1", last.ToolCallID)
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	gw := model.NewMockGateway(&model.Result{Text: "never"})
	orch := New(gw, weatherRegistry(t))

	_, err := orch.Run(ctx, nil, "weather?")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, gw.Calls())
}

func TestRun_DoesNotMutateCallerHistory(t *testing.T) {
	history := []chat.Message{chat.System("sys"), chat.User("earlier")}
	orig := make([]chat.Message, len(history))
	copy(orig, history)

	gw := model.NewMockGateway(
		&model.Result{ToolCalls: []chat.ToolCall{call("t1", "get_current_weather", `{"location":"Paris"}`)}},
		&model.Result{Text: "done"},
	)
	orch := New(gw, weatherRegistry(t))

	_, err := orch.Run(context.Background(), history, "weather?")
	require.NoError(t, err)
	assert.Equal(t, orig, history)
}
