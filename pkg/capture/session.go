package capture

import (
	"fmt"
	"time"
)

// State is the lifecycle state of a capture session.
type State int

const (
	StateIdle State = iota
	StateArmed
	StateRecording
	StateStopping
	StateDiscarded
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateArmed:
		return "armed"
	case StateRecording:
		return "recording"
	case StateStopping:
		return "stopping"
	case StateDiscarded:
		return "discarded"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Session is one recording attempt. It is owned by the Controller until its
// audio is handed off, after which it is terminal.
type Session struct {
	ID        string
	state     State
	startedAt time.Time
	stoppedAt time.Time
	recording Recording
}

// Elapsed returns the time spent in Recording.
func (s *Session) Elapsed() time.Duration {
	if s.startedAt.IsZero() || s.stoppedAt.IsZero() {
		return 0
	}
	return s.stoppedAt.Sub(s.startedAt)
}

// Capture is the audio handed off from a successful session.
type Capture struct {
	SessionID string
	Audio     []byte
	Duration  time.Duration
	Reason    StopReason
}
