package audioio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
)

// recorderCommand returns the argv used to capture raw PCM16 from the default input.
func recorderCommand(cfg Config) ([]string, error) {
	rate, ch := strconv.Itoa(cfg.SampleRate), strconv.Itoa(cfg.Channels)
	if runtime.GOOS == "linux" {
		if _, err := exec.LookPath("arecord"); err == nil {
			args := []string{"arecord", "-q", "-t", "raw", "-f", "S16_LE", "-r", rate, "-c", ch}
			if cfg.Device != "" {
				args = append(args, "-D", cfg.Device)
			}
			return args, nil
		}
	}
	if _, err := exec.LookPath("rec"); err == nil {
		return []string{"rec", "-q", "-t", "raw", "-b", "16", "-e", "signed-integer", "-r", rate, "-c", ch, "-"}, nil
	}
	return nil, errors.New("audioio: no recorder found (need arecord or sox rec)")
}

// playerCommand returns the argv used to play raw PCM16 on the default output.
func playerCommand(cfg Config) ([]string, error) {
	rate, ch := strconv.Itoa(cfg.SampleRate), strconv.Itoa(cfg.Channels)
	if runtime.GOOS == "linux" {
		if _, err := exec.LookPath("aplay"); err == nil {
			args := []string{"aplay", "-q", "-t", "raw", "-f", "S16_LE", "-r", rate, "-c", ch}
			if cfg.Device != "" {
				args = append(args, "-D", cfg.Device)
			}
			return args, nil
		}
	}
	if _, err := exec.LookPath("play"); err == nil {
		return []string{"play", "-q", "-t", "raw", "-b", "16", "-e", "signed-integer", "-r", rate, "-c", ch, "-"}, nil
	}
	return nil, errors.New("audioio: no player found (need aplay or sox play)")
}

// ExecSource captures audio by reading raw PCM16 from a recorder process.
type ExecSource struct {
	cfg    Config
	logger *slog.Logger
	argv   []string

	mu      sync.Mutex
	cmd     *exec.Cmd
	stderr  bytes.Buffer
	chunks  chan AudioChunk
	running bool
	closed  bool
}

// NewExecSource creates a source backed by arecord or sox.
func NewExecSource(cfg Config, logger *slog.Logger) (*ExecSource, error) {
	argv, err := recorderCommand(cfg)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ExecSource{cfg: cfg, logger: logger, argv: argv}, nil
}

// Start launches the recorder and waits for the first buffer of audio.
func (s *ExecSource) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return io.ErrClosedPipe
	}
	if s.running {
		s.mu.Unlock()
		return nil
	}

	cmd := exec.Command(s.argv[0], s.argv[1:]...)
	s.stderr.Reset()
	cmd.Stderr = &s.stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("recorder pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("start %s: %w", s.argv[0], err)
	}

	s.cmd = cmd
	s.running = true
	s.chunks = make(chan AudioChunk, 256)
	first := make(chan error, 1)
	go s.readLoop(stdout, s.chunks, first)
	s.mu.Unlock()

	select {
	case err := <-first:
		if err != nil {
			_ = s.Stop()
			return fmt.Errorf("%s: %w: %s", s.argv[0], err, bytes.TrimSpace(s.stderr.Bytes()))
		}
	case <-ctx.Done():
		_ = s.Stop()
		return ctx.Err()
	}

	s.logger.Debug("recorder started", "cmd", s.argv[0], "pid", cmd.Process.Pid)
	return nil
}

func (s *ExecSource) readLoop(r io.Reader, out chan<- AudioChunk, first chan<- error) {
	defer close(out)
	buf := make([]byte, s.cfg.BufferBytes())
	started := false
	for {
		n, err := io.ReadFull(r, buf)
		if n > 0 {
			var chunk AudioChunk
			chunk.FromBytes(buf[:n-n%2], s.cfg.SampleRate, s.cfg.Channels)
			out <- chunk
			if !started {
				started = true
				first <- nil
			}
		}
		if err != nil {
			if !started {
				first <- fmt.Errorf("recorder exited: %w", err)
			}
			return
		}
	}
}

// Stop kills the recorder. Buffered chunks remain readable until io.EOF.
func (s *ExecSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false
	if s.cmd != nil && s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
		_ = s.cmd.Wait()
	}
	return nil
}

// Read returns the next captured chunk.
func (s *ExecSource) Read(ctx context.Context) (AudioChunk, error) {
	s.mu.Lock()
	ch := s.chunks
	s.mu.Unlock()
	if ch == nil {
		return AudioChunk{}, io.EOF
	}

	select {
	case <-ctx.Done():
		return AudioChunk{}, ctx.Err()
	case chunk, ok := <-ch:
		if !ok {
			return AudioChunk{}, io.EOF
		}
		return chunk, nil
	}
}

// Config returns the audio configuration.
func (s *ExecSource) Config() Config { return s.cfg }

// Name returns "exec".
func (s *ExecSource) Name() string { return "exec" }

// Close stops the recorder and marks the source unusable.
func (s *ExecSource) Close() error {
	err := s.Stop()
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return err
}

// ExecSink plays audio by writing raw PCM16 to a player process.
type ExecSink struct {
	cfg    Config
	logger *slog.Logger
	argv   []string

	mu     sync.Mutex
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	closed bool

	// proc and aborted are used without mu so Abort can interrupt a Write
	// blocked on the pipe or a Stop waiting for the player to drain.
	proc    atomic.Pointer[os.Process]
	aborted atomic.Bool
}

// NewExecSink creates a sink backed by aplay or sox.
func NewExecSink(cfg Config, logger *slog.Logger) (*ExecSink, error) {
	argv, err := playerCommand(cfg)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ExecSink{cfg: cfg, logger: logger, argv: argv}, nil
}

// Start launches the player process.
func (s *ExecSink) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return io.ErrClosedPipe
	}
	if s.cmd != nil {
		return nil
	}

	cmd := exec.Command(s.argv[0], s.argv[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("player pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", s.argv[0], err)
	}
	s.cmd, s.stdin = cmd, stdin
	s.aborted.Store(false)
	s.proc.Store(cmd.Process)
	return nil
}

// Write sends a chunk to the player.
func (s *ExecSink) Write(ctx context.Context, chunk AudioChunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stdin == nil {
		return io.ErrClosedPipe
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.stdin.Write(chunk.Bytes())
	return err
}

// Flush is a no-op: writes are handed to the player synchronously.
func (s *ExecSink) Flush(ctx context.Context) error { return nil }

// Stop closes the player input and waits for it to drain.
func (s *ExecSink) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cmd == nil {
		return nil
	}
	_ = s.stdin.Close()
	err := s.cmd.Wait()
	s.cmd, s.stdin = nil, nil
	s.proc.Store(nil)
	if s.aborted.Load() {
		return nil
	}
	return err
}

// Abort kills the player, discarding queued audio. A pending Write fails and
// the next Stop returns without draining.
func (s *ExecSink) Abort() error {
	p := s.proc.Load()
	if p == nil {
		return nil
	}
	s.aborted.Store(true)
	if err := p.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("kill %s: %w", s.argv[0], err)
	}
	s.logger.Debug("playback aborted", "player", s.argv[0])
	return nil
}

// Config returns the audio configuration.
func (s *ExecSink) Config() Config { return s.cfg }

// Name returns "exec".
func (s *ExecSink) Name() string { return "exec" }

// Close stops the player and marks the sink unusable.
func (s *ExecSink) Close() error {
	err := s.Stop()
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return err
}

var (
	_ Source  = (*ExecSource)(nil)
	_ Sink    = (*ExecSink)(nil)
	_ Aborter = (*ExecSink)(nil)
)
