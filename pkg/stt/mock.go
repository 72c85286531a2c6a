package stt

import (
	"context"
	"sync"
	"time"
)

// Mock implements Recognizer for testing.
type Mock struct {
	// TranscribeFunc is called when Transcribe is invoked.
	// If nil, Transcript is returned (or ErrUnintelligible when empty).
	TranscribeFunc func(ctx context.Context, audio []byte) (string, error)

	// Transcript is the default result.
	Transcript string

	mu    sync.Mutex
	calls []MockCall
}

// MockCall records a Transcribe invocation.
type MockCall struct {
	Bytes int
	Time  time.Time
}

// NewMock returns a mock that always recognizes transcript.
func NewMock(transcript string) *Mock {
	return &Mock{Transcript: transcript}
}

// Transcribe records the call and returns the configured result.
func (m *Mock) Transcribe(ctx context.Context, audio []byte) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, MockCall{Bytes: len(audio), Time: time.Now()})
	m.mu.Unlock()

	if m.TranscribeFunc != nil {
		return m.TranscribeFunc(ctx, audio)
	}
	if err := ctx.Err(); err != nil {
		return "", newError(ErrNetwork, ProviderMock, 0, err)
	}
	text, ok := clean(m.Transcript)
	if !ok {
		return "", newError(ErrUnintelligible, ProviderMock, 0, nil)
	}
	return text, nil
}

// Calls returns all recorded calls.
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns the number of Transcribe calls.
func (m *Mock) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Name returns "mock".
func (m *Mock) Name() string { return "mock" }

// Close is a no-op.
func (m *Mock) Close() error { return nil }

// FailWith returns a mock whose every call fails with kind.
func FailWith(kind error) *Mock {
	return &Mock{
		TranscribeFunc: func(ctx context.Context, audio []byte) (string, error) {
			return "", newError(kind, ProviderMock, 0, nil)
		},
	}
}

var _ Recognizer = (*Mock)(nil)
