package capture

import (
	"fmt"
	"strings"
)

// Signal is a normalized gesture event.
type Signal int

const (
	// SignalPress starts a gesture.
	SignalPress Signal = iota + 1
	// SignalRelease ends a gesture normally.
	SignalRelease
	// SignalCancel ends a gesture because the control lost the pointer,
	// focus or visibility. It stops recording exactly like a release.
	SignalCancel
)

func (s Signal) String() string {
	switch s {
	case SignalPress:
		return "press"
	case SignalRelease:
		return "release"
	case SignalCancel:
		return "cancel"
	default:
		return fmt.Sprintf("signal(%d)", int(s))
	}
}

// StopReason records which signal ended a recording.
type StopReason string

const (
	ReasonRelease  StopReason = "release"
	ReasonCancel   StopReason = "cancel"
	ReasonShutdown StopReason = "shutdown"
)

// Reason returns the stop reason for a stopping signal.
func (s Signal) Reason() StopReason {
	if s == SignalRelease {
		return ReasonRelease
	}
	return ReasonCancel
}

var rawSignals = map[string]Signal{
	"press":       SignalPress,
	"pointerdown": SignalPress,
	"mousedown":   SignalPress,
	"touchstart":  SignalPress,

	"release":   SignalRelease,
	"pointerup": SignalRelease,
	"mouseup":   SignalRelease,
	"touchend":  SignalRelease,

	"cancel":            SignalCancel,
	"pointerleave":      SignalCancel,
	"pointercancel":     SignalCancel,
	"mouseleave":        SignalCancel,
	"touchcancel":       SignalCancel,
	"blur":              SignalCancel,
	"focusout":          SignalCancel,
	"visibilitychange":  SignalCancel,
	"visibility-hidden": SignalCancel,
	"hidden":            SignalCancel,
	"unload":            SignalCancel,
}

// ParseSignal maps a raw UI event name to a Signal.
// Names are matched case-insensitively; unknown names return ErrUnknownSignal.
func ParseSignal(raw string) (Signal, error) {
	if s, ok := rawSignals[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return s, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownSignal, raw)
}
