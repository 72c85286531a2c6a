package tts

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNoAPIKey            = errors.New("tts: API key required")
	ErrEmptyText           = errors.New("tts: empty text")
	ErrUnsupportedAudio    = errors.New("tts: unsupported audio format")
	ErrProviderUnavailable = errors.New("tts: no providers available")
	ErrAllProvidersFailed  = errors.New("tts: all providers failed")
)

// APIError is a non-2xx answer from a speech service.
type APIError struct {
	Provider   string
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	code := ""
	if e.Code != "" {
		code = " (" + e.Code + ")"
	}
	return fmt.Sprintf("tts [%s]: status %d%s: %s", e.Provider, e.StatusCode, code, e.Message)
}

func (e *APIError) IsRateLimited() bool { return e.StatusCode == http.StatusTooManyRequests }

func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

func (e *APIError) IsServerError() bool { return e.StatusCode >= 500 && e.StatusCode < 600 }

// IsRetryable reports whether the same request may succeed later.
func (e *APIError) IsRetryable() bool { return retryableStatus(e.StatusCode) }

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

// ProviderError attributes a transport or decoding failure to a provider.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string { return "tts [" + e.Provider + "]: " + e.Err.Error() }

func (e *ProviderError) Unwrap() error { return e.Err }

// WrapError attributes err to provider. It returns nil for a nil err.
func WrapError(provider string, err error) error {
	if err == nil {
		return nil
	}
	return &ProviderError{Provider: provider, Err: err}
}
