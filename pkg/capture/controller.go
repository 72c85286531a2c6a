package capture

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultMinDuration is the shortest recording that is handed off.
const DefaultMinDuration = time.Second

// Controller owns the press/hold/release contract and the microphone.
// At most one session is Armed or Recording at a time.
type Controller struct {
	device      Device
	logger      *slog.Logger
	now         func() time.Time
	minDuration time.Duration
	onState     func(State)

	mu      sync.Mutex
	session *Session
	closed  bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// WithMinDuration sets the too-short threshold.
func WithMinDuration(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.minDuration = d
		}
	}
}

// WithStateHook registers a function called after every state change.
// It is called without the controller lock held.
func WithStateHook(fn func(State)) Option {
	return func(c *Controller) {
		c.onState = fn
	}
}

// NewController creates a controller for device.
func NewController(device Device, opts ...Option) *Controller {
	c := &Controller{
		device:      device,
		logger:      slog.Default(),
		now:         time.Now,
		minDuration: DefaultMinDuration,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "capture.controller")
	return c
}

// State returns the current controller state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return StateIdle
	}
	return c.session.state
}

// MinDuration returns the too-short threshold.
func (c *Controller) MinDuration() time.Duration { return c.minDuration }

// Press arms a new session and opens the device. It returns the session ID
// once the device is recording.
//
// Press returns ErrBusy if a session is already active, a *DeviceError if the
// microphone could not be opened, and ErrTooShort if the gesture was stopped
// before the device came up.
func (c *Controller) Press(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return "", ErrClosed
	}
	if c.session != nil {
		c.mu.Unlock()
		return "", ErrBusy
	}
	s := &Session{ID: uuid.NewString(), state: StateArmed}
	c.session = s
	c.mu.Unlock()
	c.notify(StateArmed)

	rec, err := c.device.Open(ctx)

	c.mu.Lock()
	if err != nil {
		s.state = StateDiscarded
		if c.session == s {
			c.session = nil
		}
		c.mu.Unlock()
		c.logger.Warn("microphone open failed", "session", s.ID, "error", err)
		c.notify(StateIdle)
		return "", &DeviceError{Op: "open", Err: err}
	}
	if c.session != s || s.state != StateArmed {
		// Stopped while the device was coming up.
		c.mu.Unlock()
		_ = rec.Close()
		c.logger.Info("gesture ended before recording started", "session", s.ID)
		return "", ErrTooShort
	}
	s.state = StateRecording
	s.startedAt = c.now()
	s.recording = rec
	c.mu.Unlock()

	c.logger.Debug("recording", "session", s.ID)
	c.notify(StateRecording)
	return s.ID, nil
}

// Stop ends the active session. It is the only stop path: releases,
// cancellations and shutdown all come through here.
//
// Stop returns (nil, nil) if nothing is recording, ErrTooShort if the
// recording was discarded, and a *DeviceError if the audio could not be read.
// The device is closed on every path.
func (c *Controller) Stop(reason StopReason) (*Capture, error) {
	c.mu.Lock()
	s := c.session
	if s == nil || s.state == StateStopping {
		c.mu.Unlock()
		return nil, nil
	}
	if s.state == StateArmed {
		s.state = StateDiscarded
		c.session = nil
		c.mu.Unlock()
		c.logger.Info("capture discarded", "session", s.ID, "reason", reason, "elapsed", time.Duration(0))
		c.notify(StateIdle)
		return nil, ErrTooShort
	}
	s.state = StateStopping
	s.stoppedAt = c.now()
	rec := s.recording
	c.mu.Unlock()
	c.notify(StateStopping)

	elapsed := s.Elapsed()
	var (
		audio []byte
		err   error
	)
	if elapsed >= c.minDuration {
		audio, err = rec.Finish()
	}
	_ = rec.Close()

	c.mu.Lock()
	if c.session == s {
		c.session = nil
	}
	s.recording = nil
	switch {
	case err != nil:
		s.state = StateDiscarded
	case elapsed < c.minDuration:
		s.state = StateDiscarded
	default:
		s.state = StateIdle
	}
	c.mu.Unlock()
	c.notify(StateIdle)

	if err != nil {
		c.logger.Warn("capture failed", "session", s.ID, "error", err)
		return nil, &DeviceError{Op: "read", Err: err}
	}
	if elapsed < c.minDuration {
		c.logger.Info("capture discarded", "session", s.ID, "reason", reason, "elapsed", elapsed)
		return nil, ErrTooShort
	}

	c.logger.Debug("captured", "session", s.ID, "reason", reason, "elapsed", elapsed, "bytes", len(audio))
	return &Capture{
		SessionID: s.ID,
		Audio:     audio,
		Duration:  elapsed,
		Reason:    reason,
	}, nil
}

// Close stops any active session and releases the device.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	_, _ = c.Stop(ReasonShutdown)
	if closer, ok := c.device.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func (c *Controller) notify(s State) {
	if c.onState != nil {
		c.onState(s)
	}
}
