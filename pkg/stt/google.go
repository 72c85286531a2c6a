package stt

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	speech "google.golang.org/api/speech/v1"
)

// Google uses the Cloud Speech-to-Text v1 REST API (synchronous recognize).
// It authenticates with an API key when one is configured, and with
// application default credentials otherwise.
type Google struct {
	config  *Config
	service *speech.Service
	logger  *slog.Logger
}

// NewGoogle creates a Google Cloud Speech recognizer.
func NewGoogle(ctx context.Context, opts ...Option) (*Google, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	var clientOpts []option.ClientOption
	switch {
	case cfg.APIKey != "":
		clientOpts = append(clientOpts, option.WithAPIKey(cfg.APIKey))
	case cfg.HTTPClient == nil:
		ts, err := google.DefaultTokenSource(ctx, speech.CloudPlatformScope)
		if err != nil {
			return nil, fmt.Errorf("stt: google credentials: %w", err)
		}
		clientOpts = append(clientOpts, option.WithTokenSource(ts))
	}
	if cfg.HTTPClient != nil {
		clientOpts = append(clientOpts, option.WithHTTPClient(cfg.HTTPClient))
	}
	if cfg.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(cfg.BaseURL))
	}

	svc, err := speech.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("stt: google service: %w", err)
	}

	return &Google{
		config:  cfg,
		service: svc,
		logger:  cfg.Logger.With("component", "stt.google"),
	}, nil
}

// Transcribe sends LINEAR16 audio (a WAV header is accepted) and joins the
// top alternative of every result.
func (g *Google) Transcribe(ctx context.Context, audio []byte) (string, error) {
	if err := g.config.checkPayload(ProviderGoogle, audio); err != nil {
		return "", err
	}
	start := time.Now()

	if g.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.config.Timeout)
		defer cancel()
	}

	req := &speech.RecognizeRequest{
		Config: &speech.RecognitionConfig{
			Encoding:        "LINEAR16",
			SampleRateHertz: int64(g.config.SampleRate),
			LanguageCode:    g.config.Language,
		},
		Audio: &speech.RecognitionAudio{
			Content: base64.StdEncoding.EncodeToString(audio),
		},
	}

	resp, err := g.service.Speech.Recognize(req).Context(ctx).Do()
	if err != nil {
		return "", classifyGoogle(err)
	}

	var parts []string
	for _, r := range resp.Results {
		if len(r.Alternatives) > 0 {
			parts = append(parts, r.Alternatives[0].Transcript)
		}
	}

	text, ok := clean(strings.Join(parts, ""))
	if !ok {
		return "", newError(ErrUnintelligible, ProviderGoogle, 200, nil)
	}

	g.logger.Debug("transcribed",
		"bytes", len(audio),
		"results", len(resp.Results),
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return text, nil
}

func classifyGoogle(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return newError(kindForStatus(apiErr.Code), ProviderGoogle, apiErr.Code, errors.New(apiErr.Message))
	}
	return newError(ErrNetwork, ProviderGoogle, 0, err)
}

// Name returns "google".
func (g *Google) Name() string { return ProviderGoogle }

// Close is a no-op.
func (g *Google) Close() error { return nil }

var _ Recognizer = (*Google)(nil)
