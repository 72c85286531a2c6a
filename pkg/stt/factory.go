package stt

import (
	"context"
	"fmt"
)

// Provider names accepted by New.
const (
	ProviderHTTP   = "http"
	ProviderGoogle = "google"
	ProviderMock   = "mock"
)

// New creates the recognizer named by provider.
func New(ctx context.Context, provider string, opts ...Option) (Recognizer, error) {
	switch provider {
	case ProviderHTTP:
		return NewHTTP(opts...)
	case ProviderGoogle:
		return NewGoogle(ctx, opts...)
	case ProviderMock:
		return NewMock("一杯大杯拿铁"), nil
	default:
		return nil, fmt.Errorf("stt: unknown provider %q", provider)
	}
}
