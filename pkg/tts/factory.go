package tts

import (
	"fmt"
	"strings"
)

// Provider names accepted by New.
const (
	ProviderOpenAI = providerOpenAI
	ProviderHTTP   = providerHTTP
	ProviderMock   = "mock"
)

// New creates the named provider. A comma-separated list such as
// "openai,http" builds a Fallback over each name in order.
func New(provider string, opts ...Option) (Provider, error) {
	names := strings.Split(provider, ",")
	if len(names) == 1 {
		return newOne(strings.TrimSpace(provider), opts...)
	}

	cfg := DefaultConfig()
	cfg.Apply(opts...)

	providers := make([]Provider, 0, len(names))
	for _, name := range names {
		p, err := newOne(strings.TrimSpace(name), opts...)
		if err != nil {
			for _, built := range providers {
				built.Close()
			}
			return nil, err
		}
		providers = append(providers, p)
	}
	return NewFallback(cfg.Logger, providers...)
}

func newOne(provider string, opts ...Option) (Provider, error) {
	switch provider {
	case ProviderOpenAI:
		return NewOpenAI(opts...)
	case ProviderHTTP:
		return NewHTTP(opts...)
	case ProviderMock:
		return NewMock(), nil
	default:
		return nil, fmt.Errorf("tts: unknown provider %q", provider)
	}
}
