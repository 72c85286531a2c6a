package intent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/teslashibe/go-voiceorder/internal/httpc"
)

// ProviderHTTP names the HTTP extraction backend.
const ProviderHTTP = "http"

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 1 << 20

// HTTPBackend posts {"history": [...], "newText": "..."} to an extraction
// endpoint and returns its JSON body unvalidated.
type HTTPBackend struct {
	config *Config
	client *http.Client
	logger *slog.Logger
}

type httpTurn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

type httpRequest struct {
	History []httpTurn `json:"history"`
	NewText string     `json:"newText"`
}

// NewHTTPBackend creates an HTTP extraction backend.
func NewHTTPBackend(opts ...Option) (*HTTPBackend, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	if cfg.BaseURL == "" {
		return nil, errors.New("intent: base URL required")
	}

	client := cfg.HTTPClient
	if client == nil {
		client = httpc.NewClient(cfg.Timeout)
	}

	return &HTTPBackend{
		config: cfg,
		client: client,
		logger: cfg.Logger.With("component", "intent.http"),
	}, nil
}

// Complete sends the conversation and returns the raw response body.
func (h *HTTPBackend) Complete(ctx context.Context, history []Turn, text string) ([]byte, error) {
	payload := httpRequest{History: make([]httpTurn, 0, len(history)), NewText: text}
	for _, t := range history {
		payload.History = append(payload.History, httpTurn{Role: string(t.Role), Text: t.Text})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, newError(ErrNetwork, ProviderHTTP, 0, fmt.Errorf("marshal payload: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.config.BaseURL, bytes.NewReader(body))
	if err != nil {
		return nil, newError(ErrNetwork, ProviderHTTP, 0, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if h.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+h.config.APIKey)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, newError(ErrNetwork, ProviderHTTP, 0, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, newError(ErrNetwork, ProviderHTTP, resp.StatusCode, fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newError(ErrNetwork, ProviderHTTP, resp.StatusCode, errors.New(string(bytes.TrimSpace(raw))))
	}
	return raw, nil
}

// Name returns "http".
func (h *HTTPBackend) Name() string { return ProviderHTTP }

var _ Backend = (*HTTPBackend)(nil)
