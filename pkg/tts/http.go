package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/teslashibe/go-voiceorder/internal/httpc"
	"github.com/teslashibe/go-voiceorder/pkg/audioio"
)

const providerHTTP = "http"

// HTTP posts {"text": "...", "voice": "..."} to a speech endpoint that
// answers with WAV, or with raw PCM16 whose rate is given by the
// X-Sample-Rate header (default 16000).
type HTTP struct {
	config *Config
	client *http.Client
	logger *slog.Logger
}

// NewHTTP creates a provider for a generic speech endpoint.
func NewHTTP(opts ...Option) (*HTTP, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	if cfg.BaseURL == "" {
		return nil, errors.New("tts: base URL required")
	}

	client := cfg.HTTPClient
	if client == nil {
		client = httpc.NewClient(cfg.Timeout)
	}

	return &HTTP{
		config: cfg,
		client: client,
		logger: cfg.Logger.With("component", "tts.http"),
	}, nil
}

// Synthesize requests audio for text.
func (h *HTTP) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	if text == "" {
		return nil, ErrEmptyText
	}
	start := time.Now()

	body, err := json.Marshal(map[string]string{"text": text, "voice": h.config.VoiceID})
	if err != nil {
		return nil, WrapError(providerHTTP, fmt.Errorf("marshal payload: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.config.BaseURL, bytes.NewReader(body))
	if err != nil {
		return nil, WrapError(providerHTTP, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if h.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+h.config.APIKey)
	}

	resp, err := doWithRetry(ctx, h.client, h.config, h.logger, providerHTTP, req, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, parseError(providerHTTP, resp)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, WrapError(providerHTTP, fmt.Errorf("read response: %w", err))
	}

	format := AudioFormat{Encoding: EncodingPCM, SampleRate: 16000, Channels: 1}
	if ct := resp.Header.Get("Content-Type"); strings.Contains(ct, "wav") || bytes.HasPrefix(audio, []byte("RIFF")) {
		chunk, err := audioio.DecodeWAV(audio)
		if err != nil {
			return nil, WrapError(providerHTTP, fmt.Errorf("%w: %v", ErrUnsupportedAudio, err))
		}
		// Decoded to PCM so callers handle a single layout.
		format = AudioFormat{Encoding: EncodingPCM, SampleRate: chunk.SampleRate, Channels: chunk.Channels}
		audio = chunk.Bytes()
	} else if rate, err := strconv.Atoi(resp.Header.Get("X-Sample-Rate")); err == nil && rate > 0 {
		format.SampleRate = rate
	}

	latency := time.Since(start).Milliseconds()
	h.logger.Debug("synthesized audio", "chars", len(text), "bytes", len(audio), "latency_ms", latency)

	return &AudioResult{
		Audio:     audio,
		Format:    format,
		Duration:  pcmDuration(len(audio), format.SampleRate, format.Channels),
		CharCount: len(text),
		LatencyMs: latency,
	}, nil
}

// Health is a no-op.
func (h *HTTP) Health(ctx context.Context) error { return ctx.Err() }

// Close releases idle connections.
func (h *HTTP) Close() error {
	h.client.CloseIdleConnections()
	return nil
}

var _ Provider = (*HTTP)(nil)
