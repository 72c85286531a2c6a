package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-voiceorder/pkg/capture"
	"github.com/teslashibe/go-voiceorder/pkg/intent"
	"github.com/teslashibe/go-voiceorder/pkg/order"
	"github.com/teslashibe/go-voiceorder/pkg/stt"
)

// Default rate-limit retry policy.
const (
	DefaultRateLimitRetries = 2
	DefaultRetryDelay       = 500 * time.Millisecond
)

// Confirmer speaks the assistant reply after a completed run.
type Confirmer interface {
	Confirm(text string)
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithCapture enables voice runs.
func WithCapture(c *capture.Controller) Option {
	return func(o *Orchestrator) { o.capture = c }
}

// WithRecognizer sets the speech recognizer.
func WithRecognizer(r stt.Recognizer) Option {
	return func(o *Orchestrator) { o.recognizer = r }
}

// WithConfirmer sets the confirmation speaker.
func WithConfirmer(c Confirmer) Option {
	return func(o *Orchestrator) { o.confirmer = c }
}

// WithRateLimitRetry sets how often rate-limited stages are retried and
// the base delay; attempt n waits n*delay.
func WithRateLimitRetry(retries int, delay time.Duration) Option {
	return func(o *Orchestrator) {
		if retries >= 0 {
			o.retries = retries
		}
		if delay >= 0 {
			o.retryDelay = delay
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// Orchestrator runs the capture, recognition, extraction and merge stages
// and owns the conversation and the cart.
type Orchestrator struct {
	extractor  intent.Extractor
	catalog    order.Catalog
	capture    *capture.Controller
	recognizer stt.Recognizer
	confirmer  Confirmer
	logger     *slog.Logger
	now        func() time.Time
	retries    int
	retryDelay time.Duration

	conv *Conversation

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	run       *runState
	cart      []order.CartLine
	closed    bool
	listeners map[int]Listener
	nextID    int

	// emitMu keeps listener delivery in the order changes were made.
	emitMu sync.Mutex
}

// New creates an orchestrator. Voice runs need WithCapture and
// WithRecognizer; text runs only need the extractor and catalog.
func New(extractor intent.Extractor, catalog order.Catalog, opts ...Option) *Orchestrator {
	ctx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		extractor:  extractor,
		catalog:    catalog,
		logger:     slog.Default(),
		now:        time.Now,
		retries:    DefaultRateLimitRetries,
		retryDelay: DefaultRetryDelay,
		conv:       NewConversation(),
		ctx:        ctx,
		cancel:     cancel,
		listeners:  make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = o.logger.With("component", "pipeline.orchestrator")
	return o
}

// Subscribe registers fn for every event and returns a function that
// removes it.
func (o *Orchestrator) Subscribe(fn Listener) func() {
	o.mu.Lock()
	id := o.nextID
	o.nextID++
	o.listeners[id] = fn
	o.mu.Unlock()

	return func() {
		o.mu.Lock()
		delete(o.listeners, id)
		o.mu.Unlock()
	}
}

// Press starts a voice run and opens the microphone. It returns the run ID
// once recording.
func (o *Orchestrator) Press(ctx context.Context) (string, error) {
	if o.capture == nil || o.recognizer == nil {
		return "", ErrNoCapture
	}
	rs, err := o.begin(SourceVoice, StatusCapturing)
	if err != nil {
		return "", err
	}

	if _, err := o.capture.Press(ctx); err != nil {
		o.captureFailed(rs, err)
		return "", err
	}

	// A release that arrived before the session existed is replayed now.
	o.mu.Lock()
	rs.armed = true
	pending, reason := rs.stopPending, rs.stopReason
	o.mu.Unlock()
	if pending {
		o.logger.Debug("gesture ended while arming", "run", rs.ID, "reason", reason)
		if err := o.stop(reason); err != nil {
			return "", err
		}
	}
	return rs.ID, nil
}

// Release ends the gesture normally.
func (o *Orchestrator) Release() error {
	return o.stop(capture.ReasonRelease)
}

// Cancel ends the gesture because the pointer left, focus was lost or the
// page was hidden. The recording is still processed if it is long enough.
func (o *Orchestrator) Cancel() error {
	return o.stop(capture.ReasonCancel)
}

// Signal dispatches a normalized gesture signal.
func (o *Orchestrator) Signal(ctx context.Context, sig capture.Signal) (string, error) {
	switch sig {
	case capture.SignalPress:
		return o.Press(ctx)
	default:
		o.mu.Lock()
		var id string
		if o.run != nil {
			id = o.run.ID
		}
		o.mu.Unlock()
		return id, o.stop(sig.Reason())
	}
}

// stop is the single path from a gesture end into the pipeline. A stop with
// nothing recording is a no-op, except that a stop for a run whose session is
// not yet armed is held on the run and replayed by Press.
func (o *Orchestrator) stop(reason capture.StopReason) error {
	return o.stopOnce(reason, true)
}

func (o *Orchestrator) stopOnce(reason capture.StopReason, again bool) error {
	if o.capture == nil {
		return nil
	}

	o.mu.Lock()
	rs := o.run
	o.mu.Unlock()

	c, err := o.capture.Stop(reason)
	if err != nil {
		if rs != nil {
			o.captureFailed(rs, err)
		}
		if errors.Is(err, capture.ErrTooShort) {
			return nil
		}
		return err
	}
	if rs == nil {
		return nil
	}
	if c == nil {
		o.mu.Lock()
		if !o.current(rs) || rs.Status != StatusCapturing {
			o.mu.Unlock()
			return nil
		}
		if !rs.armed {
			rs.stopPending, rs.stopReason = true, reason
			o.mu.Unlock()
			return nil
		}
		o.mu.Unlock()
		// Press armed the session between our Stop and the check above.
		if again {
			return o.stopOnce(reason, false)
		}
		return nil
	}

	o.mu.Lock()
	if !o.current(rs) || rs.Status != StatusCapturing {
		o.mu.Unlock()
		return nil
	}
	rs.Status = StatusTranscribing
	snap := rs.clone()
	o.mu.Unlock()
	o.emitStatus(snap)

	go o.transcribe(rs, c.Audio)
	return nil
}

// captureFailed ends a Capturing run after a capture error. TooShort goes
// back to Idle with a notice; a device error fails the run.
func (o *Orchestrator) captureFailed(rs *runState, err error) {
	o.mu.Lock()
	if !o.current(rs) || rs.Status != StatusCapturing {
		o.mu.Unlock()
		return
	}

	if errors.Is(err, capture.ErrTooShort) {
		o.run = nil
		rs.Status = StatusIdle
		rs.finish(o.now())
		o.mu.Unlock()
		o.logger.Info("capture too short", "run", rs.ID)
		o.emit(Event{Type: EventNotice, Status: StatusIdle, Notice: Kind(err)})
		o.emitStatus(nil)
		return
	}

	o.failLocked(rs, StageCapture, err)
	snap := rs.clone()
	o.mu.Unlock()
	o.emitStatus(snap)
}

// Submit starts a text-mode run and returns its ID. Processing continues in
// the background; use Wait to block for the outcome.
func (o *Orchestrator) Submit(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyMessage
	}
	rs, err := o.begin(SourceText, StatusExtracting)
	if err != nil {
		return "", err
	}
	go o.extract(rs, text)
	return rs.ID, nil
}

// Wait blocks until run id reaches a terminal status and returns it.
func (o *Orchestrator) Wait(ctx context.Context, id string) (*Run, error) {
	o.mu.Lock()
	rs := o.run
	o.mu.Unlock()
	if rs == nil || rs.ID != id {
		return nil, ErrUnknownRun
	}

	select {
	case <-rs.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	return rs.clone(), nil
}

// Ack acknowledges the terminal event of run id and returns to Idle.
func (o *Orchestrator) Ack(id string) error {
	o.mu.Lock()
	rs := o.run
	if rs == nil || rs.ID != id {
		o.mu.Unlock()
		return ErrUnknownRun
	}
	if !rs.Status.Terminal() {
		o.mu.Unlock()
		return ErrNotFinished
	}
	o.run = nil
	o.mu.Unlock()

	o.logger.Debug("run acknowledged", "run", id)
	o.emitStatus(nil)
	return nil
}

// Current returns a snapshot of the active run, or nil when Idle.
func (o *Orchestrator) Current() *Run {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.run == nil {
		return nil
	}
	return o.run.clone()
}

// Status returns the visible pipeline status.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.run == nil {
		return StatusIdle
	}
	return o.run.Status
}

// History returns the conversation so far.
func (o *Orchestrator) History() []intent.Turn {
	return o.conv.Turns()
}

// Cart returns a copy of the cart.
func (o *Orchestrator) Cart() []order.CartLine {
	o.mu.Lock()
	defer o.mu.Unlock()
	return cloneCart(o.cart)
}

// Remove deletes the line with identity key and reports whether it existed.
func (o *Orchestrator) Remove(key string) bool {
	o.mu.Lock()
	cart, ok := order.Remove(o.cart, key)
	o.cart = cart
	snap := cloneCart(cart)
	o.mu.Unlock()

	if ok {
		o.emitCart(snap)
	}
	return ok
}

// Clear empties the cart.
func (o *Orchestrator) Clear() {
	o.mu.Lock()
	o.cart = nil
	o.mu.Unlock()
	o.emitCart(nil)
}

// Close stops any recording, cancels in-flight stages and marks the active
// run canceled. Responses that arrive afterwards are discarded.
func (o *Orchestrator) Close() error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil
	}
	o.closed = true
	o.cancel()

	var snap *Run
	if rs := o.run; rs != nil && !rs.Status.Terminal() && rs.Status != StatusIdle {
		stage := stageFor(rs.Status)
		o.failLocked(rs, stage, context.Canceled)
		snap = rs.clone()
	}
	o.mu.Unlock()

	if snap != nil {
		o.emitStatus(snap)
	}
	if o.capture != nil {
		return o.capture.Close()
	}
	return nil
}

// begin claims the single run slot.
func (o *Orchestrator) begin(source Source, status Status) (*runState, error) {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil, ErrClosed
	}
	if o.run != nil {
		o.mu.Unlock()
		return nil, ErrAlreadyRunning
	}
	rs := &runState{
		Run: Run{
			ID:        uuid.NewString(),
			Source:    source,
			Status:    status,
			StartedAt: o.now(),
		},
		done: make(chan struct{}),
	}
	o.run = rs
	snap := rs.clone()
	o.mu.Unlock()

	o.logger.Debug("run started", "run", rs.ID, "source", source)
	o.emitStatus(snap)
	return rs, nil
}

func (o *Orchestrator) transcribe(rs *runState, audio []byte) {
	text, err := retry(o, "recognition", func() (string, error) {
		return o.recognizer.Transcribe(o.ctx, audio)
	})

	if err != nil {
		o.fail(rs, StageRecognition, err)
		return
	}
	o.extract(rs, text)
}

func (o *Orchestrator) extract(rs *runState, text string) {
	o.mu.Lock()
	if !o.live(rs) {
		o.mu.Unlock()
		o.logger.Info("discarding late transcript", "run", rs.ID)
		return
	}
	history := o.conv.Turns()
	o.conv.Append(intent.RoleUser, text, o.now())
	rs.Transcript = text
	rs.Status = StatusExtracting
	snap := rs.clone()
	o.mu.Unlock()
	o.emitStatus(snap)

	res, err := retry(o, "extraction", func() (*intent.Result, error) {
		return o.extractor.Extract(o.ctx, history, text)
	})
	if err != nil {
		o.fail(rs, StageExtraction, err)
		return
	}

	o.mu.Lock()
	if !o.live(rs) {
		o.mu.Unlock()
		o.logger.Info("discarding late extraction", "run", rs.ID)
		return
	}
	if res.AssistantText != "" {
		o.conv.Append(intent.RoleAssistant, res.AssistantText, o.now())
	}
	o.cart = order.Merge(o.cart, res.Selections, o.catalog)
	rs.AssistantText = res.AssistantText
	rs.Selections = res.Selections
	rs.Status = StatusCompleted
	rs.finish(o.now())
	snap = rs.clone()
	cart := cloneCart(o.cart)
	o.mu.Unlock()

	o.logger.Info("run completed",
		"run", rs.ID,
		"selections", len(res.Selections),
		"dropped", res.Dropped,
		"lines", len(cart),
	)
	o.emitStatus(snap)
	o.emitCart(cart)

	if o.confirmer != nil && res.AssistantText != "" {
		o.confirmer.Confirm(res.AssistantText)
	}
}

func (o *Orchestrator) fail(rs *runState, stage Stage, err error) {
	o.mu.Lock()
	if !o.live(rs) {
		o.mu.Unlock()
		o.logger.Info("discarding late failure", "run", rs.ID, "error", err)
		return
	}
	o.failLocked(rs, stage, err)
	snap := rs.clone()
	o.mu.Unlock()
	o.emitStatus(snap)
}

// failLocked moves rs to Failed. o.mu must be held.
func (o *Orchestrator) failLocked(rs *runState, stage Stage, err error) {
	rs.Failure = newFailure(stage, err)
	rs.Status = StatusFailed
	rs.finish(o.now())
	o.logger.Warn("run failed",
		"run", rs.ID,
		"stage", stage,
		"kind", rs.Failure.Kind,
		"error", err,
	)
}

// current reports whether rs still owns the run slot. o.mu must be held.
func (o *Orchestrator) current(rs *runState) bool {
	return !o.closed && o.run == rs
}

// live reports whether rs may still be mutated by a stage result.
func (o *Orchestrator) live(rs *runState) bool {
	return o.current(rs) && !rs.Status.Terminal()
}

// retry calls fn, retrying rate-limited failures with linear backoff.
func retry[T any](o *Orchestrator, stage string, fn func() (T, error)) (T, error) {
	for attempt := 0; ; attempt++ {
		v, err := fn()
		if err == nil || attempt >= o.retries || !rateLimited(err) {
			return v, err
		}

		delay := o.retryDelay * time.Duration(attempt+1)
		o.logger.Warn("rate limited, retrying",
			"stage", stage,
			"attempt", attempt+1,
			"delay", delay,
		)
		t := time.NewTimer(delay)
		select {
		case <-t.C:
		case <-o.ctx.Done():
			t.Stop()
			var zero T
			return zero, o.ctx.Err()
		}
	}
}

func rateLimited(err error) bool {
	return stt.IsRetryable(err) || intent.IsRateLimited(err)
}

func stageFor(s Status) Stage {
	switch s {
	case StatusCapturing:
		return StageCapture
	case StatusTranscribing:
		return StageRecognition
	default:
		return StageExtraction
	}
}

func cloneCart(cart []order.CartLine) []order.CartLine {
	if cart == nil {
		return nil
	}
	out := make([]order.CartLine, len(cart))
	for i, l := range cart {
		l.Options = l.Options.Clone()
		out[i] = l
	}
	return out
}

func (o *Orchestrator) emitStatus(run *Run) {
	status := StatusIdle
	if run != nil {
		status = run.Status
	}
	o.emit(Event{Type: EventStatus, Status: status, Run: run})
}

func (o *Orchestrator) emitCart(cart []order.CartLine) {
	o.emit(Event{Type: EventCart, Status: o.Status(), Cart: cart, Total: order.Total(cart)})
}

func (o *Orchestrator) emit(ev Event) {
	ev.At = o.now()

	o.emitMu.Lock()
	defer o.emitMu.Unlock()

	o.mu.Lock()
	ls := make([]Listener, 0, len(o.listeners))
	for _, l := range o.listeners {
		ls = append(ls, l)
	}
	o.mu.Unlock()

	for _, l := range ls {
		l(ev)
	}
}
