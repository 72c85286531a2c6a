package intent

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"
)

// Client validates the output of a Backend.
type Client struct {
	backend Backend
	logger  *slog.Logger
}

// NewClient wraps backend with validation.
func NewClient(backend Backend, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		backend: backend,
		logger:  logger.With("component", "intent.extractor", "backend", backend.Name()),
	}
}

// Extract asks the backend about text and validates the reply.
func (c *Client) Extract(ctx context.Context, history []Turn, text string) (*Result, error) {
	start := time.Now()
	text = strings.TrimSpace(text)

	raw, err := c.backend.Complete(ctx, history, text)
	if err != nil {
		var e *Error
		if errors.As(err, &e) {
			return nil, err
		}
		return nil, newError(ErrNetwork, c.backend.Name(), 0, err)
	}

	res, rejected, err := Parse(raw)
	if err != nil {
		var e *Error
		if errors.As(err, &e) {
			e.Provider = c.backend.Name()
		}
		c.logger.Warn("extraction rejected", "error", err, "raw", truncate(string(raw), 500))
		return nil, err
	}

	for _, r := range rejected {
		c.logger.Info("dropped selection", "index", r.Index, "reason", r.Reason)
	}

	c.logger.Debug("extracted",
		"selections", len(res.Selections),
		"dropped", res.Dropped,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

// truncate shortens s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}

var _ Extractor = (*Client)(nil)
