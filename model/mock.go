package model

import (
	"context"

	"github.com/swilltec/weather/chat"
	"github.com/swilltec/weather/tool"
)

// MockGateway is a lightweight scripted Gateway useful for tests and
// examples. Each Complete call pops the next scripted result; when the script
// is exhausted the last result repeats. A nil script yields empty results.
type MockGateway struct {
	script []*Result
	err    error
	calls  int

	// Requests records a copy of the message sequence passed to each
	// Complete call, letting tests assert on sanitized histories.
	Requests [][]chat.Message
}

// NewMockGateway constructs a MockGateway that replays the given results in order.
func NewMockGateway(script ...*Result) *MockGateway {
	return &MockGateway{script: script}
}

// FailWith makes every subsequent Complete call return err.
func (m *MockGateway) FailWith(err error) { m.err = err }

// Calls returns how many times Complete has been invoked.
func (m *MockGateway) Calls() int { return m.calls }

// Complete implements Gateway.
func (m *MockGateway) Complete(_ context.Context, messages []chat.Message, _ []tool.Definition) (*Result, error) {
	snapshot := make([]chat.Message, len(messages))
	copy(snapshot, messages)
	m.Requests = append(m.Requests, snapshot)
	m.calls++

	if m.err != nil {
		return nil, m.err
	}
	if len(m.script) == 0 {
		return &Result{}, nil
	}
	idx := m.calls - 1
	if idx >= len(m.script) {
		idx = len(m.script) - 1
	}
	return m.script[idx], nil
}

// Info implements Gateway.
func (m *MockGateway) Info() Info {
	return Info{Name: "mock", Provider: "mock", SupportsTools: true}
}
