package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/teslashibe/go-voiceorder/internal/httpc"
)

// HTTP talks to a recognition endpoint that accepts a multipart upload
// ("audio" file field, optional "language") and answers
//
//	{"success": true, "text": "...", "error": "..."}
type HTTP struct {
	config *Config
	client *http.Client
	logger *slog.Logger
}

type httpResponse struct {
	Success bool   `json:"success"`
	Text    string `json:"text"`
	Error   string `json:"error"`
}

// NewHTTP creates a recognizer for a generic HTTP endpoint.
func NewHTTP(opts ...Option) (*HTTP, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("stt: base URL required")
	}

	client := cfg.HTTPClient
	if client == nil {
		client = httpc.NewClient(cfg.Timeout)
	}

	return &HTTP{
		config: cfg,
		client: client,
		logger: cfg.Logger.With("component", "stt.http"),
	}, nil
}

// Transcribe uploads audio and returns the transcript.
func (h *HTTP) Transcribe(ctx context.Context, audio []byte) (string, error) {
	if err := h.config.checkPayload(ProviderHTTP, audio); err != nil {
		return "", err
	}
	start := time.Now()

	body, contentType, err := h.encode(audio)
	if err != nil {
		return "", newError(ErrNetwork, ProviderHTTP, 0, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.config.BaseURL, body)
	if err != nil {
		return "", newError(ErrNetwork, ProviderHTTP, 0, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	if h.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+h.config.APIKey)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return "", newError(ErrNetwork, ProviderHTTP, 0, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", newError(ErrNetwork, ProviderHTTP, resp.StatusCode, fmt.Errorf("read response: %w", err))
	}

	var out httpResponse
	decodeErr := json.Unmarshal(raw, &out)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := string(bytes.TrimSpace(raw))
		if decodeErr == nil && out.Error != "" {
			msg = out.Error
		}
		return "", newError(kindForStatus(resp.StatusCode), ProviderHTTP, resp.StatusCode, fmt.Errorf("%s", msg))
	}
	if decodeErr != nil {
		return "", newError(ErrNetwork, ProviderHTTP, resp.StatusCode, fmt.Errorf("decode response: %w", decodeErr))
	}
	if !out.Success {
		return "", newError(ErrUnintelligible, ProviderHTTP, resp.StatusCode, fmt.Errorf("%s", out.Error))
	}

	text, ok := clean(out.Text)
	if !ok {
		return "", newError(ErrUnintelligible, ProviderHTTP, resp.StatusCode, nil)
	}

	h.logger.Debug("transcribed",
		"bytes", len(audio),
		"chars", len([]rune(text)),
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return text, nil
}

func (h *HTTP) encode(audio []byte) (io.Reader, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("audio", "audio.wav")
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(audio); err != nil {
		return nil, "", err
	}
	if h.config.Language != "" {
		if err := mw.WriteField("language", h.config.Language); err != nil {
			return nil, "", err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}

// Name returns "http".
func (h *HTTP) Name() string { return ProviderHTTP }

// Close releases idle connections.
func (h *HTTP) Close() error {
	h.client.CloseIdleConnections()
	return nil
}

var _ Recognizer = (*HTTP)(nil)
