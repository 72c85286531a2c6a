package tts

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/teslashibe/go-voiceorder/pkg/audioio"
)

// DefaultPlaybackTimeout bounds one synthesize-and-play cycle.
const DefaultPlaybackTimeout = 30 * time.Second

// Confirmer speaks assistant replies on a sink. Confirm returns
// immediately; a newer confirmation cancels the one still playing and
// starts the sink only after the older one has released it.
type Confirmer struct {
	provider Provider
	sink     audioio.Sink
	logger   *slog.Logger
	timeout  time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{} // closed when the latest playback returns
	wg     sync.WaitGroup
	closed bool
}

// NewConfirmer creates a confirmer. A nil sink makes it synthesize only,
// which keeps provider errors visible in logs on headless hosts.
func NewConfirmer(provider Provider, sink audioio.Sink, logger *slog.Logger) *Confirmer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Confirmer{
		provider: provider,
		sink:     sink,
		logger:   logger.With("component", "tts.confirmer"),
		timeout:  DefaultPlaybackTimeout,
	}
}

// Confirm starts speaking text in the background.
func (c *Confirmer) Confirm(text string) {
	if text == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if c.cancel != nil {
		c.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	prev, done := c.done, make(chan struct{})
	c.cancel, c.done = cancel, done
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer func() {
			// done also covers every earlier playback.
			if prev != nil {
				<-prev
			}
			close(done)
		}()
		defer cancel()
		if err := c.speak(ctx, text, prev); err != nil && ctx.Err() == nil {
			c.logger.Warn("confirmation playback failed", "error", err)
		}
	}()
}

func (c *Confirmer) speak(ctx context.Context, text string, prev <-chan struct{}) error {
	result, err := c.provider.Synthesize(ctx, text)
	if err != nil {
		return err
	}
	if c.sink == nil {
		c.logger.Debug("synthesized without sink", "bytes", len(result.Audio))
		return nil
	}

	chunk, err := toChunk(result)
	if err != nil {
		return err
	}
	chunk = conform(chunk, c.sink.Config())

	if prev != nil {
		select {
		case <-prev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if err := c.sink.Start(ctx); err != nil {
		return fmt.Errorf("start sink: %w", err)
	}
	stopped, watched := make(chan struct{}), make(chan struct{})
	go func() {
		defer close(watched)
		select {
		case <-ctx.Done():
			if err := audioio.Abort(c.sink); err != nil {
				c.logger.Debug("abort playback", "error", err)
			}
		case <-stopped:
		}
	}()
	defer func() {
		close(stopped)
		<-watched
	}()
	defer c.sink.Stop()

	if err := c.sink.Write(ctx, chunk); err != nil {
		return fmt.Errorf("write sink: %w", err)
	}
	if err := c.sink.Flush(ctx); err != nil {
		return fmt.Errorf("flush sink: %w", err)
	}

	c.logger.Debug("confirmation played",
		"chars", result.CharCount,
		"duration", result.Duration,
		"latency_ms", result.LatencyMs,
	)
	return nil
}

// Wait blocks until in-flight playback finishes.
func (c *Confirmer) Wait() {
	c.wg.Wait()
}

// Close cancels playback, waits for it, and closes the provider.
func (c *Confirmer) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	if c.cancel != nil {
		c.cancel()
	}
	c.mu.Unlock()

	c.wg.Wait()
	return c.provider.Close()
}

func toChunk(result *AudioResult) (audioio.AudioChunk, error) {
	switch result.Format.Encoding {
	case EncodingWAV:
		chunk, err := audioio.DecodeWAV(result.Audio)
		if err != nil {
			return audioio.AudioChunk{}, fmt.Errorf("%w: %v", ErrUnsupportedAudio, err)
		}
		return chunk, nil
	case EncodingPCM, "":
		var chunk audioio.AudioChunk
		channels := result.Format.Channels
		if channels == 0 {
			channels = 1
		}
		chunk.FromBytes(result.Audio, result.Format.SampleRate, channels)
		return chunk, nil
	default:
		return audioio.AudioChunk{}, fmt.Errorf("%w: %s", ErrUnsupportedAudio, result.Format.Encoding)
	}
}

// conform converts chunk to the sink's channel count and rate.
func conform(chunk audioio.AudioChunk, cfg audioio.Config) audioio.AudioChunk {
	if chunk.Channels == 2 && cfg.Channels == 1 {
		chunk.Samples = audioio.StereoToMono(chunk.Samples)
		chunk.Channels = 1
	}
	if cfg.SampleRate > 0 && chunk.SampleRate > 0 && chunk.SampleRate != cfg.SampleRate {
		chunk.Samples = audioio.Resample(chunk.Samples, chunk.SampleRate, cfg.SampleRate)
		chunk.SampleRate = cfg.SampleRate
	}
	return chunk
}
