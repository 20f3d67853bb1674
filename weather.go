// Package weather provides a high-level façade over the orchestrator and its
// collaborators (conversation store, tool registry, logging) for building
// weather chat backends. Most applications interact with this package by:
//  1. Creating a Service via New() with a completion gateway
//  2. Registering weather tools on its registry (see the openweather package)
//  3. Starting conversations and calling Chat() per user turn
//
// The façade delegates turn resolution to orchestrator.Orchestrator while
// handling history loading, the weather system prompt and persistence. All
// defaults are safe for local development and testing; production deployments
// typically supply a durable store and a structured logger.
package weather

import (
	"context"
	"errors"

	"github.com/swilltec/weather/chat"
	"github.com/swilltec/weather/logging"
	"github.com/swilltec/weather/model"
	"github.com/swilltec/weather/orchestrator"
	"github.com/swilltec/weather/store"
	"github.com/swilltec/weather/tool"
)

// SystemPrompt constrains the assistant to weather topics. It is injected at
// the head of every completion request and never persisted with the
// conversation history.
const SystemPrompt = `You are a specialized weather assistant. Your ONLY purpose is to help users with weather-related questions and requests.

Weather-related topics include:
- Current weather conditions
- Weather forecasts
- Temperature, humidity, wind speed, precipitation
- Climate and seasonal patterns
- Weather phenomena (storms, hurricanes, snow, rain, etc.)
- UV index, air quality, visibility
- Weather safety and preparedness
- Historical weather data
- Weather impact on activities (outdoor events, travel, etc.)

If a user asks about ANYTHING that is NOT related to weather or the environment/climate, you must politely redirect them:
- Do NOT answer non-weather questions
- Politely explain you can only help with weather-related queries
- Suggest weather-related topics they might be interested in

Be friendly but firm about staying on topic.

When presenting weather data:
- Use clear, conversational language
- Include relevant details based on user's question
- Mention units (Celsius/Fahrenheit) when discussing temperature
- Provide context and practical advice when appropriate

You have access to real-time weather data through functions. Use them when users ask about current conditions, forecasts, or air quality.`

// FallbackReply is returned and persisted when the completion backend fails.
// The user's message is still recorded so the conversation stays coherent on
// retry.
const FallbackReply = "I encountered an error while processing your request. Please try again."

// Options configures the Service.
type Options struct {
	// Store persists conversations (defaults to in-memory if not provided).
	Store store.Store

	// Registry holds the tools exposed to the completion backend (defaults
	// to an empty registry).
	Registry *tool.Registry

	// SystemPrompt overrides the default weather system prompt.
	SystemPrompt string

	// MaxRounds is the continuation round limit passed to the orchestrator.
	MaxRounds int

	// MaxParallelTools caps concurrent tool executions within one round.
	// Zero means unbounded.
	MaxParallelTools int

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// Service is the high-level façade aggregating the orchestrator, the tool
// registry and the conversation store.
type Service struct {
	opts  Options
	store store.Store
	orch  *orchestrator.Orchestrator
}

// New creates a new Service over a completion gateway with optional
// overrides. Any unset collaborator is initialized with a safe default.
func New(gateway model.Gateway, optFns ...func(o *Options)) *Service {
	opts := Options{
		Store:        store.NewInMemoryStore(),
		Registry:     tool.NewRegistry(),
		SystemPrompt: SystemPrompt,
		MaxRounds:    1,
		Logger:       logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	orch := orchestrator.New(gateway, opts.Registry, func(o *orchestrator.Options) {
		o.MaxRounds = opts.MaxRounds
		o.Dispatcher.MaxParallel = opts.MaxParallelTools
		o.Logger = opts.Logger
	})

	return &Service{opts: opts, store: opts.Store, orch: orch}
}

// Registry returns the tool registry so callers can register tools after
// construction.
func (s *Service) Registry() *tool.Registry { return s.opts.Registry }

// StartConversation creates a new conversation owned by the given client
// fingerprint.
func (s *Service) StartConversation(ctx context.Context, fingerprint string) (*store.Conversation, error) {
	return s.store.CreateConversation(ctx, fingerprint)
}

// Conversations lists a client's conversations, most recent activity first.
func (s *Service) Conversations(ctx context.Context, fingerprint string) ([]*store.Conversation, error) {
	return s.store.Conversations(ctx, fingerprint)
}

// History returns the persisted message history for a conversation.
func (s *Service) History(ctx context.Context, conversationID string) ([]chat.Message, error) {
	return s.store.Messages(ctx, conversationID)
}

// Reply is the caller-facing result of one chat turn.
type Reply struct {
	ConversationID string            `json:"conversation_id"`
	Text           string            `json:"text"`
	ToolCalls      []chat.ToolCall   `json:"tool_calls,omitempty"`
	ToolResults    []chat.ToolResult `json:"tool_results,omitempty"`
	RoundsUsed     int               `json:"rounds_used"`

	// Fallback is true when the completion backend failed and Text holds
	// the canned fallback reply instead of a generated answer.
	Fallback bool `json:"fallback,omitempty"`
}

// Chat resolves one user turn: it loads the conversation history, runs the
// orchestrator with the system prompt prepended and persists the new turns in
// order (user message, tool exchange, final assistant message).
//
// When the completion backend fails, the user's message and the fallback
// assistant reply are persisted and a Fallback Reply is returned instead of
// an error, so a transient upstream outage never loses the user's input.
// Store failures and cancellation are returned as errors.
func (s *Service) Chat(ctx context.Context, conversationID, userText string) (*Reply, error) {
	history, err := s.store.Messages(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	run := make([]chat.Message, 0, len(history)+1)
	run = append(run, chat.System(s.opts.SystemPrompt))
	run = append(run, history...)

	outcome, err := s.orch.Run(ctx, run, userText)
	if err != nil {
		var upstream *model.UpstreamError
		if !errors.As(err, &upstream) {
			return nil, err
		}

		s.opts.Logger.Error("chat.upstream_failure",
			"conversation_id", conversationID,
			"provider", upstream.Provider,
			"error", upstream.Err.Error(),
		)
		turns := []chat.Message{chat.User(userText), chat.Assistant(FallbackReply)}
		if err := s.store.AppendMessages(ctx, conversationID, turns...); err != nil {
			return nil, err
		}
		return &Reply{
			ConversationID: conversationID,
			Text:           FallbackReply,
			Fallback:       true,
		}, nil
	}

	if err := s.store.AppendMessages(ctx, conversationID, outcome.Messages...); err != nil {
		return nil, err
	}

	s.opts.Logger.Info("chat.turn",
		"conversation_id", conversationID,
		"rounds_used", outcome.RoundsUsed,
		"tool_calls", len(outcome.ToolCalls),
	)

	return &Reply{
		ConversationID: conversationID,
		Text:           outcome.FinalText,
		ToolCalls:      outcome.ToolCalls,
		ToolResults:    outcome.ToolResults,
		RoundsUsed:     outcome.RoundsUsed,
	}, nil
}
