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
	"strings"
	"time"

	"github.com/teslashibe/go-voiceorder/internal/httpc"
)

// ProviderChat names the OpenAI-compatible chat backend.
const ProviderChat = "openai"

// Chat backend defaults. Any OpenAI-compatible server (Ollama, vLLM, Groq)
// works by base URL alone.
const (
	DefaultChatBaseURL = "https://api.openai.com/v1"
	DefaultChatModel   = "gpt-4o-mini"
)

// ChatBackend asks an OpenAI-compatible chat model for JSON output.
type ChatBackend struct {
	baseURL string
	config  *Config
	client  *http.Client
	logger  *slog.Logger
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	MaxTokens      int               `json:"max_tokens,omitempty"`
	Temperature    float64           `json:"temperature"`
	ResponseFormat map[string]string `json:"response_format"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
			Refusal string `json:"refusal"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

type chatError struct {
	Error struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error"`
}

// NewChatBackend creates a chat-completions backend.
func NewChatBackend(opts ...Option) *ChatBackend {
	cfg := DefaultConfig()
	cfg.Apply(opts...)
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultChatBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultChatModel
	}

	client := cfg.HTTPClient
	if client == nil {
		client = httpc.NewClient(cfg.Timeout)
	}

	return &ChatBackend{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		config:  cfg,
		client:  client,
		logger:  cfg.Logger.With("component", "intent.chat"),
	}
}

// Complete runs one chat completion in JSON mode and returns the message content.
func (c *ChatBackend) Complete(ctx context.Context, history []Turn, text string) ([]byte, error) {
	start := time.Now()

	body, err := json.Marshal(chatRequest{
		Model:          c.config.Model,
		Messages:       chatMessages(c.config.SystemPrompt, history, text),
		MaxTokens:      c.config.MaxTokens,
		ResponseFormat: map[string]string{"type": "json_object"},
	})
	if err != nil {
		return nil, newError(ErrNetwork, ProviderChat, 0, fmt.Errorf("marshal payload: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, newError(ErrNetwork, ProviderChat, 0, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, newError(ErrNetwork, ProviderChat, 0, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, newError(ErrNetwork, ProviderChat, resp.StatusCode, fmt.Errorf("read response: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		msg := string(bytes.TrimSpace(raw))
		var apiErr chatError
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error.Message != "" {
			msg = apiErr.Error.Message
		}
		return nil, newError(ErrNetwork, ProviderChat, resp.StatusCode, errors.New(msg))
	}

	var out chatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, newError(ErrMalformedResponse, ProviderChat, resp.StatusCode, fmt.Errorf("decode response: %w", err))
	}
	if len(out.Choices) == 0 {
		return nil, newError(ErrMalformedResponse, ProviderChat, resp.StatusCode, errors.New("no choices"))
	}

	choice := out.Choices[0]
	c.logger.Debug("chat completion",
		"model", out.Model,
		"finish_reason", choice.FinishReason,
		"tokens", out.Usage.TotalTokens,
		"latency_ms", time.Since(start).Milliseconds(),
	)

	switch {
	case choice.Message.Refusal != "":
		return nil, newError(ErrRefused, ProviderChat, 0, errors.New(choice.Message.Refusal))
	case choice.FinishReason == "content_filter":
		return nil, newError(ErrRefused, ProviderChat, 0, errors.New("content filter"))
	case strings.TrimSpace(choice.Message.Content) == "":
		return nil, newError(ErrMalformedResponse, ProviderChat, 0, errors.New("empty completion"))
	}
	return []byte(choice.Message.Content), nil
}

func chatMessages(system string, history []Turn, text string) []chatMessage {
	msgs := make([]chatMessage, 0, len(history)+2)
	msgs = append(msgs, chatMessage{Role: string(RoleSystem), Content: system})
	for _, t := range history {
		msgs = append(msgs, chatMessage{Role: string(t.Role), Content: t.Text})
	}
	return append(msgs, chatMessage{Role: string(RoleUser), Content: text})
}

// Name returns "openai".
func (c *ChatBackend) Name() string { return ProviderChat }

// Close releases idle connections.
func (c *ChatBackend) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

var _ Backend = (*ChatBackend)(nil)
