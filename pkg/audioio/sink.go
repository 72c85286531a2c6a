package audioio

import (
	"context"
	"io"
)

// Sink plays audio to a speaker.
type Sink interface {
	// Start prepares the output device.
	Start(ctx context.Context) error

	// Stop halts playback. It is safe to call Stop multiple times.
	Stop() error

	// Write queues a chunk for playback.
	Write(ctx context.Context, chunk AudioChunk) error

	// Flush waits until queued audio has been handed to the device.
	Flush(ctx context.Context) error

	// Config returns the audio configuration.
	Config() Config

	// Name returns the backend name.
	Name() string

	io.Closer
}

// Aborter is implemented by sinks that can drop queued audio immediately
// instead of letting it drain on Stop.
type Aborter interface {
	Abort() error
}

// Abort interrupts playback on s if it supports it.
func Abort(s Sink) error {
	if a, ok := s.(Aborter); ok {
		return a.Abort()
	}
	return nil
}
