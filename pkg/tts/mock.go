package tts

import (
	"context"
	"sync"
	"time"
)

// Mock is an in-memory Provider. By default it answers 20ms of 24kHz PCM
// silence per character.
type Mock struct {
	SynthesizeFunc func(ctx context.Context, text string) (*AudioResult, error)
	HealthFunc     func(ctx context.Context) error

	mu    sync.Mutex
	calls []MockCall
}

// MockCall is one recorded method call.
type MockCall struct {
	Method string
	Text   string
}

// NewMock returns a mock producing silence.
func NewMock() *Mock {
	return &Mock{SynthesizeFunc: silence}
}

func silence(ctx context.Context, text string) (*AudioResult, error) {
	n := len(text)
	return &AudioResult{
		Audio:     make([]byte, n*960),
		Format:    AudioFormat{Encoding: EncodingPCM, SampleRate: 24000, Channels: 1},
		Duration:  time.Duration(n) * 20 * time.Millisecond,
		CharCount: n,
	}, nil
}

// WithError returns a mock whose every call fails with err.
func WithError(err error) *Mock {
	return &Mock{
		SynthesizeFunc: func(context.Context, string) (*AudioResult, error) { return nil, err },
		HealthFunc:     func(context.Context) error { return err },
	}
}

// WithLatency delays m's synthesis by d, or until the context ends.
func WithLatency(m *Mock, d time.Duration) *Mock {
	next := m.SynthesizeFunc
	m.SynthesizeFunc = func(ctx context.Context, text string) (*AudioResult, error) {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return next(ctx, text)
	}
	return m
}

func (m *Mock) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	m.record("Synthesize", text)
	if m.SynthesizeFunc == nil {
		return nil, ErrProviderUnavailable
	}
	return m.SynthesizeFunc(ctx, text)
}

func (m *Mock) Health(ctx context.Context) error {
	m.record("Health", "")
	if m.HealthFunc == nil {
		return nil
	}
	return m.HealthFunc(ctx)
}

func (m *Mock) Close() error {
	m.record("Close", "")
	return nil
}

func (m *Mock) record(method, text string) {
	m.mu.Lock()
	m.calls = append(m.calls, MockCall{Method: method, Text: text})
	m.mu.Unlock()
}

// Calls returns a copy of the recorded calls.
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockCall(nil), m.calls...)
}

// CallCount counts calls to method.
func (m *Mock) CallCount(method string) int {
	n := 0
	for _, c := range m.Calls() {
		if c.Method == method {
			n++
		}
	}
	return n
}

// Texts returns the text of every Synthesize call, oldest first.
func (m *Mock) Texts() []string {
	var out []string
	for _, c := range m.Calls() {
		if c.Method == "Synthesize" {
			out = append(out, c.Text)
		}
	}
	return out
}

// Reset forgets recorded calls.
func (m *Mock) Reset() {
	m.mu.Lock()
	m.calls = nil
	m.mu.Unlock()
}

var _ Provider = (*Mock)(nil)
