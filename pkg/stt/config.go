package stt

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// DefaultMaxPayloadBytes bounds uploaded audio.
const DefaultMaxPayloadBytes = 5 << 20

// Config holds recognizer configuration.
// Use functional options (WithXxx) to set these values.
type Config struct {
	// Provider credentials
	APIKey  string
	BaseURL string

	// Recognition
	Language   string
	SampleRate int

	// MaxPayloadBytes rejects larger audio before any request is made.
	MaxPayloadBytes int

	Timeout    time.Duration
	HTTPClient *http.Client

	Logger *slog.Logger
}

// Option is a functional option for configuring recognizers.
type Option func(*Config)

// WithAPIKey sets the API key.
func WithAPIKey(key string) Option {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithBaseURL overrides the service endpoint.
func WithBaseURL(url string) Option {
	return func(c *Config) {
		c.BaseURL = url
	}
}

// WithLanguage sets the BCP-47 language hint.
func WithLanguage(lang string) Option {
	return func(c *Config) {
		c.Language = lang
	}
}

// WithSampleRate sets the sample rate of the uploaded audio.
func WithSampleRate(hz int) Option {
	return func(c *Config) {
		c.SampleRate = hz
	}
}

// WithMaxPayloadBytes sets the upload size limit.
func WithMaxPayloadBytes(n int) Option {
	return func(c *Config) {
		c.MaxPayloadBytes = n
	}
}

// WithTimeout sets the request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.Timeout = timeout
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Config) {
		c.HTTPClient = client
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() *Config {
	return &Config{
		Language:        "zh-CN",
		SampleRate:      16000,
		MaxPayloadBytes: DefaultMaxPayloadBytes,
		Timeout:         30 * time.Second,
		Logger:          slog.Default(),
	}
}

// Apply applies functional options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// checkPayload enforces MaxPayloadBytes.
func (c *Config) checkPayload(provider string, audio []byte) error {
	if c.MaxPayloadBytes > 0 && len(audio) > c.MaxPayloadBytes {
		return newError(ErrPayloadTooLarge, provider, 0,
			fmt.Errorf("%d bytes exceeds limit of %d", len(audio), c.MaxPayloadBytes))
	}
	return nil
}
