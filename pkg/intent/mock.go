package intent

import (
	"context"
	"sync"

	"github.com/teslashibe/go-voiceorder/pkg/order"
)

// Mock implements Extractor for testing.
type Mock struct {
	// ExtractFunc is called when Extract is invoked.
	// If nil, Result is returned.
	ExtractFunc func(ctx context.Context, history []Turn, text string) (*Result, error)

	// Result is the default reply.
	Result *Result

	mu    sync.Mutex
	calls []MockCall
}

// MockCall records an Extract invocation.
type MockCall struct {
	History []Turn
	Text    string
}

// NewMock returns a mock that answers reply and selections.
func NewMock(reply string, selections ...order.ItemSelection) *Mock {
	if selections == nil {
		selections = []order.ItemSelection{}
	}
	return &Mock{Result: &Result{AssistantText: reply, Selections: selections}}
}

// Extract records the call and returns the configured result.
func (m *Mock) Extract(ctx context.Context, history []Turn, text string) (*Result, error) {
	m.mu.Lock()
	h := make([]Turn, len(history))
	copy(h, history)
	m.calls = append(m.calls, MockCall{History: h, Text: text})
	m.mu.Unlock()

	if m.ExtractFunc != nil {
		return m.ExtractFunc(ctx, history, text)
	}
	if err := ctx.Err(); err != nil {
		return nil, newError(ErrNetwork, "mock", 0, err)
	}
	if m.Result == nil {
		return nil, newError(ErrMalformedResponse, "mock", 0, nil)
	}
	out := *m.Result
	return &out, nil
}

// Calls returns all recorded calls.
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns the number of Extract calls.
func (m *Mock) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// FailWith returns a mock whose every call fails with kind.
func FailWith(kind error) *Mock {
	return &Mock{
		ExtractFunc: func(ctx context.Context, history []Turn, text string) (*Result, error) {
			return nil, newError(kind, "mock", 0, nil)
		},
	}
}

// BackendFunc adapts a function to Backend.
type BackendFunc func(ctx context.Context, history []Turn, text string) ([]byte, error)

// Complete calls f.
func (f BackendFunc) Complete(ctx context.Context, history []Turn, text string) ([]byte, error) {
	return f(ctx, history, text)
}

// Name returns "func".
func (f BackendFunc) Name() string { return "func" }

var _ Extractor = (*Mock)(nil)
