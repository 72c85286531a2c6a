package intent

import (
	"errors"
	"fmt"
	"net/http"
)

// Error kinds. Match them with errors.Is.
var (
	ErrNetwork           = errors.New("intent: extraction service unreachable")
	ErrMalformedResponse = errors.New("intent: malformed response")
	ErrRefused           = errors.New("intent: request refused")
)

// Error is a classified extraction failure.
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
	msg := e.Kind.Error()
	if e.Provider != "" {
		msg += " [" + e.Provider + "]"
	}
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

// IsRateLimited reports whether err is a network failure caused by HTTP 429.
func IsRateLimited(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.StatusCode == http.StatusTooManyRequests
}

// IsAuth reports whether err is a credential failure (HTTP 401/403).
func IsAuth(err error) bool {
	var e *Error
	return errors.As(err, &e) &&
		(e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden)
}
