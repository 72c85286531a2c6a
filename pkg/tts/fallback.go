package tts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Fallback speaks with the first provider that succeeds.
type Fallback struct {
	providers []Provider
	logger    *slog.Logger
}

// NewFallback tries providers in the given order. A nil logger uses slog.Default.
func NewFallback(logger *slog.Logger, providers ...Provider) (*Fallback, error) {
	if len(providers) == 0 {
		return nil, ErrProviderUnavailable
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fallback{providers: providers, logger: logger.With("component", "tts.fallback")}, nil
}

// Synthesize returns the first successful result. A canceled context stops
// the walk immediately.
func (f *Fallback) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	var failed []error
	for i, p := range f.providers {
		res, err := p.Synthesize(ctx, text)
		if err == nil {
			if i > 0 {
				f.logger.Info("fallback provider used", "index", i, "chars", len([]rune(text)))
			}
			return res, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		f.logger.Warn("provider failed", "index", i, "error", err)
		failed = append(failed, err)
	}
	return nil, &ChainError{Errors: failed}
}

// Health succeeds while at least one provider is healthy.
func (f *Fallback) Health(ctx context.Context) error {
	var errs []error
	for _, p := range f.providers {
		err := p.Health(ctx)
		if err == nil {
			return nil
		}
		errs = append(errs, err)
	}
	return fmt.Errorf("tts: no healthy provider: %w", errors.Join(errs...))
}

// Close closes every provider.
func (f *Fallback) Close() error {
	var errs []error
	for _, p := range f.providers {
		errs = append(errs, p.Close())
	}
	return errors.Join(errs...)
}

// ChainError lists the failure of every provider in a Fallback.
type ChainError struct {
	Errors []error
}

func (e *ChainError) Error() string {
	if len(e.Errors) == 0 {
		return ErrAllProvidersFailed.Error()
	}
	return fmt.Sprintf("%v (%d tried): %v", ErrAllProvidersFailed, len(e.Errors), e.Errors[len(e.Errors)-1])
}

// Unwrap exposes ErrAllProvidersFailed and the last provider error.
func (e *ChainError) Unwrap() []error {
	if len(e.Errors) == 0 {
		return []error{ErrAllProvidersFailed}
	}
	return []error{ErrAllProvidersFailed, e.Errors[len(e.Errors)-1]}
}

var _ Provider = (*Fallback)(nil)
