package intent

import (
	"context"
	"errors"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// ProviderAnthropic names the Anthropic Messages backend.
const ProviderAnthropic = "anthropic"

// DefaultAnthropicModel is used when no model is configured.
const DefaultAnthropicModel = "claude-3-5-haiku-latest"

// AnthropicBackend asks a Claude model for the extraction JSON.
type AnthropicBackend struct {
	api    *anthropic.Client
	config *Config
}

// NewAnthropicBackend creates a backend using the Anthropic Messages API.
func NewAnthropicBackend(opts ...Option) *AnthropicBackend {
	cfg := DefaultConfig()
	cfg.Apply(opts...)
	if cfg.Model == "" {
		cfg.Model = DefaultAnthropicModel
	}

	reqOpts := []option.RequestOption{option.WithMaxRetries(0)}
	if cfg.APIKey != "" {
		reqOpts = append(reqOpts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(cfg.HTTPClient))
	}
	if cfg.Timeout > 0 {
		reqOpts = append(reqOpts, option.WithRequestTimeout(cfg.Timeout))
	}

	client := anthropic.NewClient(reqOpts...)
	return &AnthropicBackend{api: &client, config: cfg}
}

// Complete sends the conversation as alternating user/assistant messages.
func (a *AnthropicBackend) Complete(ctx context.Context, history []Turn, text string) ([]byte, error) {
	system := []anthropic.TextBlockParam{{Text: a.config.SystemPrompt}}

	msgs := make([]anthropic.MessageParam, 0, len(history)+1)
	for _, t := range history {
		switch t.Role {
		case RoleUser:
			msgs = append(msgs, anthropic.NewUserMessage(anthropic.NewTextBlock(t.Text)))
		case RoleAssistant:
			msgs = append(msgs, anthropic.NewAssistantMessage(anthropic.NewTextBlock(t.Text)))
		case RoleSystem:
			system = append(system, anthropic.TextBlockParam{Text: t.Text})
		}
	}
	msgs = append(msgs, anthropic.NewUserMessage(anthropic.NewTextBlock(text)))

	msg, err := a.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.config.Model),
		MaxTokens: int64(a.config.MaxTokens),
		System:    system,
		Messages:  msgs,
	})
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return nil, newError(ErrNetwork, ProviderAnthropic, apiErr.StatusCode, err)
		}
		return nil, newError(ErrNetwork, ProviderAnthropic, 0, err)
	}

	if string(msg.StopReason) == "refusal" {
		return nil, newError(ErrRefused, ProviderAnthropic, 0, errors.New("model declined"))
	}

	// Extract text from response
	var reply string
	for _, block := range msg.Content {
		if block.Type == "text" {
			reply = block.Text
			break
		}
	}
	if reply == "" {
		return nil, newError(ErrMalformedResponse, ProviderAnthropic, 0, errors.New("no text content in API response"))
	}
	return []byte(reply), nil
}

// Name returns "anthropic".
func (a *AnthropicBackend) Name() string { return ProviderAnthropic }

var _ Backend = (*AnthropicBackend)(nil)
