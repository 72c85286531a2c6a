package stt

import (
	"errors"
	"fmt"
	"net/http"
)

// Error kinds. Match them with errors.Is.
var (
	ErrNetwork         = errors.New("stt: recognition service unreachable")
	ErrUnintelligible  = errors.New("stt: no speech recognized")
	ErrAuth            = errors.New("stt: credentials rejected")
	ErrRateLimited     = errors.New("stt: rate limited")
	ErrPayloadTooLarge = errors.New("stt: audio payload too large")
)

// ErrNoAPIKey is returned when a backend that needs credentials has none.
var ErrNoAPIKey = errors.New("stt: API key required")

// Error is a classified recognition failure.
type Error struct {
	// Kind is one of the Err* kinds above.
	Kind error

	// Provider identifies which backend failed.
	Provider string

	// StatusCode is the HTTP status, when there was one.
	StatusCode int

	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%v [%s]", e.Kind, e.Provider)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" status %d", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(kind error, provider string, status int, cause error) *Error {
	return &Error{Kind: kind, Provider: provider, StatusCode: status, Err: cause}
}

// kindForStatus classifies a non-2xx HTTP status.
func kindForStatus(status int) error {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrAuth
	case http.StatusTooManyRequests:
		return ErrRateLimited
	case http.StatusRequestEntityTooLarge:
		return ErrPayloadTooLarge
	default:
		return ErrNetwork
	}
}

// IsRetryable reports whether err is worth retrying after a backoff.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRateLimited)
}
