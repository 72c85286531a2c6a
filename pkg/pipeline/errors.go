package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/teslashibe/go-voiceorder/pkg/capture"
	"github.com/teslashibe/go-voiceorder/pkg/intent"
	"github.com/teslashibe/go-voiceorder/pkg/stt"
)

var (
	// ErrAlreadyRunning is returned when a run is in flight or awaiting Ack.
	ErrAlreadyRunning = errors.New("pipeline: a run is already in progress")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("pipeline: orchestrator closed")

	// ErrUnknownRun is returned by Ack and Wait for a run that is not current.
	ErrUnknownRun = errors.New("pipeline: unknown run")

	// ErrNotFinished is returned by Ack before the run is terminal.
	ErrNotFinished = errors.New("pipeline: run has not finished")

	// ErrEmptyMessage is returned by Submit for blank text.
	ErrEmptyMessage = errors.New("pipeline: empty message")

	// ErrNoCapture is returned by Press when no capture controller is set.
	ErrNoCapture = errors.New("pipeline: voice capture not configured")
)

// Stage names the pipeline step that failed.
type Stage string

const (
	StageCapture     Stage = "capture"
	StageRecognition Stage = "recognition"
	StageExtraction  Stage = "extraction"
)

// Failure is the typed cause attached to a Failed run.
type Failure struct {
	Stage   Stage  `json:"stage"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func newFailure(stage Stage, cause error) *Failure {
	kind := Kind(cause)
	return &Failure{Stage: stage, Kind: kind, Message: Message(kind), Cause: cause}
}

func (f *Failure) Error() string {
	return fmt.Sprintf("pipeline: %s failed (%s): %v", f.Stage, f.Kind, f.Cause)
}

func (f *Failure) Unwrap() error { return f.Cause }

// Kind maps an error to a stable string for clients.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""

	case errors.Is(err, ErrAlreadyRunning):
		return "already_running"
	case errors.Is(err, capture.ErrTooShort):
		return "too_short"
	case errors.Is(err, capture.ErrDevice):
		return "device"

	case errors.Is(err, stt.ErrPayloadTooLarge):
		return "payload_too_large"
	case errors.Is(err, stt.ErrUnintelligible):
		return "unintelligible"
	case errors.Is(err, stt.ErrAuth), intent.IsAuth(err):
		return "auth"
	case errors.Is(err, stt.ErrRateLimited), intent.IsRateLimited(err):
		return "rate_limited"
	case errors.Is(err, stt.ErrNetwork):
		return "recognition_network"

	case errors.Is(err, intent.ErrRefused):
		return "refused"
	case errors.Is(err, intent.ErrMalformedResponse):
		return "malformed_response"
	case errors.Is(err, intent.ErrNetwork):
		return "extraction_network"

	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"

	default:
		return "internal"
	}
}

// Message returns the human-readable text shown for kind.
func Message(kind string) string {
	switch kind {
	case "device":
		return "The microphone is unavailable. Check the device and permissions."
	case "too_short":
		return "Hold the button a little longer while speaking."
	case "already_running":
		return "Still working on the previous request."
	case "payload_too_large":
		return "That recording was too long. Please try a shorter request."
	case "unintelligible":
		return "Sorry, I didn't catch that. Please try again."
	case "auth":
		return "The assistant service rejected our credentials."
	case "rate_limited":
		return "The assistant is busy right now. Please try again shortly."
	case "recognition_network":
		return "Speech recognition is unreachable."
	case "extraction_network":
		return "The assistant is unreachable."
	case "malformed_response":
		return "The assistant returned something unexpected."
	case "refused":
		return "Sorry, I can only help with your order."
	case "timeout":
		return "The request timed out."
	case "canceled":
		return "The request was canceled."
	default:
		return "Something went wrong."
	}
}
