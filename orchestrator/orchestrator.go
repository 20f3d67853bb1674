// Package orchestrator drives tool-augmented conversations: it submits a
// sanitized message history to a completion gateway, dispatches any requested
// tool calls, appends the results and repeats until the backend produces a
// final natural-language answer or the configured round limit is reached.
//
// The continuation is an explicit bounded loop with an accumulating Outcome
// rather than recursion, which keeps the round limit and cancellation checks
// structurally visible and the call stack flat under misbehaving backends.
package orchestrator

import (
	"context"
	"fmt"

	"github.com/swilltec/weather/chat"
	"github.com/swilltec/weather/logging"
	"github.com/swilltec/weather/model"
	"github.com/swilltec/weather/tool"
)

// Outcome is the final return value of one Run invocation. ToolCalls and
// ToolResults accumulate across all resolution rounds in issue order.
// Messages holds the new turns produced during the run (the user message,
// assistant tool call turns, tool results, final assistant message) so a
// caller can persist them verbatim.
type Outcome struct {
	FinalText   string            `json:"final_text"`
	ToolCalls   []chat.ToolCall   `json:"tool_calls,omitempty"`
	ToolResults []chat.ToolResult `json:"tool_results,omitempty"`
	RoundsUsed  int               `json:"rounds_used"`
	Messages    []chat.Message    `json:"messages"`
}

// Options configures an Orchestrator.
type Options struct {
	// MaxRounds is the number of continuation rounds allowed beyond the
	// first completion call. Backends normally resolve a request in a single
	// follow-up, so the default is 1. When the limit is hit the last
	// completion's text is returned as the final answer.
	MaxRounds int
	// Dispatcher configuration (parallelism, logging).
	Dispatcher DispatcherConfig
	// Logger defaults to NoOp.
	Logger logging.Logger
}

// Orchestrator is the state-machine driver for one conversation turn. It is
// stateless between invocations: each Run owns its private working copy of
// the message list and no component retains references to it after return.
type Orchestrator struct {
	gateway    model.Gateway
	registry   *tool.Registry
	dispatcher *Dispatcher
	maxRounds  int
	logger     logging.Logger
}

// New constructs an Orchestrator over a completion gateway and a tool
// registry with optional overrides.
func New(gateway model.Gateway, registry *tool.Registry, optFns ...func(o *Options)) *Orchestrator {
	opts := Options{
		MaxRounds: 1,
		Logger:    logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Dispatcher.Logger == nil {
		opts.Dispatcher.Logger = opts.Logger
	}
	return &Orchestrator{
		gateway:    gateway,
		registry:   registry,
		dispatcher: NewDispatcher(opts.Dispatcher),
		maxRounds:  opts.MaxRounds,
		logger:     opts.Logger,
	}
}

// Run resolves one user turn. The prior history is combined with the new user
// message, sanitized, and driven through completion/dispatch rounds until the
// backend stops requesting tools or the round limit forces termination.
//
// Only upstream completion failures escape as errors (*model.UpstreamError);
// tool level failures are absorbed into the outcome's data so a partial,
// explainable result is always available. A round-limit stop is a designed
// termination path, not an error: the last completion's text becomes
// FinalText even though the backend asked for more tools.
func (o *Orchestrator) Run(ctx context.Context, history []chat.Message, userMessage string) (*Outcome, error) {
	userMsg := chat.User(userMessage)

	// Private working copy for the duration of this invocation.
	working := make([]chat.Message, 0, len(history)+4)
	working = append(working, history...)
	working = append(working, userMsg)

	outcome := &Outcome{Messages: []chat.Message{userMsg}}
	defs := o.registry.Definitions()

	round := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("orchestration cancelled: %w", err)
		}

		working = chat.Sanitize(working)

		result, err := o.gateway.Complete(ctx, working, defs)
		if err != nil {
			return nil, err
		}

		if !result.NeedsContinuation() {
			outcome.FinalText = result.Text // empty text stays "", never null
			outcome.RoundsUsed = round + 1
			outcome.Messages = append(outcome.Messages, chat.Assistant(result.Text))
			o.logger.Info("orchestrator.terminal",
				"rounds_used", outcome.RoundsUsed,
				"tool_calls", len(outcome.ToolCalls),
			)
			return outcome, nil
		}

		o.logger.Debug("orchestrator.round.tools",
			"round", round+1,
			"requested", len(result.ToolCalls),
		)

		assistantMsg := chat.AssistantToolCalls(result.Text, result.ToolCalls)
		results := o.dispatcher.Execute(ctx, o.registry, result.ToolCalls)

		// Append the assistant announcement and its results together so a
		// cancellation mid-round never leaves an unanswered tool message.
		working = append(working, assistantMsg)
		outcome.Messages = append(outcome.Messages, assistantMsg)
		for _, res := range results {
			toolMsg := chat.ToolResponse(res.ToolCallID, res.Value)
			working = append(working, toolMsg)
			outcome.Messages = append(outcome.Messages, toolMsg)
		}
		outcome.ToolCalls = append(outcome.ToolCalls, result.ToolCalls...)
		outcome.ToolResults = append(outcome.ToolResults, results...)

		round++
		if round > o.maxRounds {
			// Guard against unbounded back-and-forth with a backend or tool
			// that always asks for more: emit the last completion's text.
			outcome.FinalText = result.Text
			outcome.RoundsUsed = round
			outcome.Messages = append(outcome.Messages, chat.Assistant(result.Text))
			o.logger.Warn("orchestrator.round_limit",
				"max_rounds", o.maxRounds,
				"rounds_used", outcome.RoundsUsed,
			)
			return outcome, nil
		}
	}
}
