// Package pipeline sequences capture, recognition, extraction and cart merge.
//
// An Orchestrator owns one conversation and one cart. It runs at most one
// PipelineRun at a time; a gesture or message that arrives while a run is in
// flight, or while its terminal event has not been acknowledged, is rejected
// with ErrAlreadyRunning rather than queued.
//
//	Idle -> Capturing -> Transcribing -> Extracting -> Completed | Failed -> (Ack) -> Idle
//
// Text mode (Submit) enters at Extracting.
package pipeline

import (
	"fmt"
	"time"

	"github.com/teslashibe/go-voiceorder/pkg/capture"
	"github.com/teslashibe/go-voiceorder/pkg/order"
)

// Status is the visible state of the pipeline.
type Status int

const (
	StatusIdle Status = iota
	StatusCapturing
	StatusTranscribing
	StatusExtracting
	StatusCompleted
	StatusFailed
)

var statusNames = [...]string{"idle", "capturing", "transcribing", "extracting", "completed", "failed"}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return "unknown"
}

// MarshalText encodes the status by name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a status name.
func (s *Status) UnmarshalText(text []byte) error {
	for i, name := range statusNames {
		if name == string(text) {
			*s = Status(i)
			return nil
		}
	}
	return fmt.Errorf("pipeline: unknown status %q", text)
}

// Terminal reports whether s ends a run.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Source says how a run was started.
type Source string

const (
	SourceVoice Source = "voice"
	SourceText  Source = "text"
)

// Run is a snapshot of one end-to-end attempt.
type Run struct {
	ID            string                `json:"id"`
	Source        Source                `json:"source"`
	Status        Status                `json:"status"`
	Transcript    string                `json:"transcript,omitempty"`
	AssistantText string                `json:"assistantText,omitempty"`
	Selections    []order.ItemSelection `json:"selections,omitempty"`
	Failure       *Failure              `json:"failure,omitempty"`
	StartedAt     time.Time             `json:"startedAt"`
	FinishedAt    time.Time             `json:"finishedAt,omitzero"`
}

// clone returns a copy safe to hand to callers.
func (r *Run) clone() *Run {
	if r == nil {
		return nil
	}
	out := *r
	if r.Selections != nil {
		out.Selections = make([]order.ItemSelection, len(r.Selections))
		for i, s := range r.Selections {
			s.Options = s.Options.Clone()
			out.Selections[i] = s
		}
	}
	return &out
}

// runState is the orchestrator's private handle on the active run.
type runState struct {
	Run
	done chan struct{}

	// armed is set once the capture session exists. A stop that arrives
	// before then is recorded in stopPending and replayed by Press.
	armed       bool
	stopPending bool
	stopReason  capture.StopReason
}

func (rs *runState) finish(at time.Time) {
	rs.FinishedAt = at
	close(rs.done)
}
