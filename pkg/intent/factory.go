package intent

import (
	"fmt"
	"log/slog"
)

// ProviderMock names the canned extractor.
const ProviderMock = "mock"

// New creates the extractor named by provider.
func New(provider string, logger *slog.Logger, opts ...Option) (Extractor, error) {
	opts = append(opts, WithLogger(logger))

	switch provider {
	case ProviderHTTP:
		b, err := NewHTTPBackend(opts...)
		if err != nil {
			return nil, err
		}
		return NewClient(b, logger), nil
	case ProviderChat:
		return NewClient(NewChatBackend(opts...), logger), nil
	case ProviderAnthropic:
		return NewClient(NewAnthropicBackend(opts...), logger), nil
	case ProviderMock:
		return NewMock("好的"), nil
	default:
		return nil, fmt.Errorf("intent: unknown provider %q", provider)
	}
}
