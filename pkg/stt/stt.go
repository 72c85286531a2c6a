// Package stt turns one completed utterance into text.
//
// Every backend implements Recognizer. A Recognizer makes exactly one
// request per call; retry policy belongs to the caller. Failures are
// classified into kinds that callers test with errors.Is:
//
//	ErrNetwork         no usable response from the service
//	ErrUnintelligible  the service answered with an empty transcript
//	ErrAuth            credentials rejected, do not retry
//	ErrRateLimited     retryable after backoff
//	ErrPayloadTooLarge audio exceeds the configured limit, never sent
//
// Example usage:
//
//	rec, _ := stt.NewHTTP(stt.WithBaseURL("http://localhost:9000/transcribe"))
//	text, err := rec.Transcribe(ctx, wav)
//	if errors.Is(err, stt.ErrUnintelligible) {
//	    // ask the user to repeat
//	}
package stt

import (
	"context"
	"strings"
)

// Recognizer transcribes a single encoded utterance.
type Recognizer interface {
	// Transcribe returns the recognized text. An empty transcript is
	// reported as ErrUnintelligible, never as ("", nil).
	Transcribe(ctx context.Context, audio []byte) (string, error)

	// Name identifies the backend in logs.
	Name() string

	// Close releases any resources held by the recognizer.
	Close() error
}

// clean trims the transcript and reports whether anything was recognized.
func clean(text string) (string, bool) {
	text = strings.TrimSpace(text)
	return text, text != ""
}
