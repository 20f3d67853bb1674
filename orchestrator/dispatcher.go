package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/swilltec/weather/chat"
	"github.com/swilltec/weather/logging"
	"github.com/swilltec/weather/tool"
)

// DispatcherConfig configures the default parallel dispatcher.
type DispatcherConfig struct {
	// MaxParallel bounds concurrent handler executions within one round.
	// 0 or <1 means no explicit limit (len of the batch).
	MaxParallel int
	// Logger receives per-call execution records. Defaults to NoOp.
	Logger logging.Logger
}

// Dispatcher executes a batch of tool calls against a registry, possibly in
// parallel, and returns one ToolResult per call in input order regardless of
// completion timing. Failures are contained per call: an unknown tool name, a
// handler error or a handler panic all become structured error payloads in
// the corresponding result. Dispatch never returns an error and never panics.
type Dispatcher struct {
	cfg DispatcherConfig
}

// NewDispatcher constructs a dispatcher with the given config.
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	if cfg.Logger == nil {
		cfg.Logger = logging.NoOpLogger{}
	}
	return &Dispatcher{cfg: cfg}
}

// Execute runs the batch. Calls within one round are mutually independent, so
// they may run concurrently; results are re-ordered to match the input before
// returning because the backend pairs tool results by id and position, not by
// completion time.
func (d *Dispatcher) Execute(ctx context.Context, reg *tool.Registry, calls []chat.ToolCall) []chat.ToolResult {
	n := len(calls)
	if n == 0 {
		return nil
	}

	// Fast path: single call, execute inline.
	if n == 1 {
		return []chat.ToolResult{d.executeSingle(ctx, reg, calls[0])}
	}

	maxPar := d.cfg.MaxParallel
	if maxPar <= 0 || maxPar > n {
		maxPar = n
	}

	results := make([]chat.ToolResult, n)
	sem := make(chan struct{}, maxPar)
	var wg sync.WaitGroup

	batchStart := time.Now()
	for i := range calls {
		if ctx.Err() != nil {
			// Cancelled mid-batch: remaining calls still get a result so the
			// caller never appends a tool message without its payload.
			results[i] = errorResult(calls[i], nil, "Cancelled", ctx.Err().Error())
			continue
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int, fc chat.ToolCall) {
			defer wg.Done()
			defer func() { <-sem }()
			results[idx] = d.executeSingle(ctx, reg, fc)
		}(i, calls[i])
	}
	wg.Wait()

	d.cfg.Logger.Debug("dispatch.batch.complete",
		"count", n,
		"parallelism", maxPar,
		"duration_ms", time.Since(batchStart).Milliseconds(),
	)
	return results
}

func (d *Dispatcher) executeSingle(ctx context.Context, reg *tool.Registry, fc chat.ToolCall) chat.ToolResult {
	start := time.Now()

	impl, err := reg.Lookup(fc.Name)
	if err != nil {
		d.cfg.Logger.Warn("dispatch.lookup.failed", "tool", fc.Name, "tool_call_id", fc.ID)
		return errorResult(fc, nil, "UnknownToolError", err.Error())
	}

	args, err := decodeArguments(fc.Arguments)
	if err != nil {
		return errorResult(fc, nil, "InvalidArguments", err.Error())
	}

	var value any
	func() { // panic safety
		defer func() {
			if r := recover(); r != nil {
				d.cfg.Logger.Error("dispatch.panic", "tool", fc.Name, "recover", fmt.Sprintf("%v", r))
				err = panicError(r)
			}
		}()
		value, err = impl.Call(ctx, args)
	}()

	d.cfg.Logger.Info("dispatch.executed",
		"tool", fc.Name,
		"tool_call_id", fc.ID,
		"duration_ms", time.Since(start).Milliseconds(),
		"error", err != nil,
	)

	if err != nil {
		return errorResult(fc, args, "ToolExecutionError", err.Error())
	}
	return chat.ToolResult{ToolCallID: fc.ID, Name: fc.Name, Arguments: args, Value: value}
}

// decodeArguments parses the backend supplied JSON payload. An empty payload
// decodes to an empty argument map.
func decodeArguments(raw json.RawMessage) (map[string]any, error) {
	if len(raw) == 0 {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("failed to unmarshal args: %w", err)
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}

// errorResult builds the contained failure payload the backend sees as a
// normal tool response it can reason about.
func errorResult(fc chat.ToolCall, args map[string]any, kind, detail string) chat.ToolResult {
	return chat.ToolResult{
		ToolCallID: fc.ID,
		Name:       fc.Name,
		Arguments:  args,
		Value: map[string]any{
			"error":  kind,
			"name":   fc.Name,
			"detail": detail,
		},
	}
}

func panicError(r any) error { return &panicErr{val: r, stack: debug.Stack()} }

type panicErr struct {
	val   any
	stack []byte
}

func (p *panicErr) Error() string { return fmt.Sprintf("panic recovered: %v", p.val) }
