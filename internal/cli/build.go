package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/teslashibe/go-voiceorder/internal/config"
	"github.com/teslashibe/go-voiceorder/pkg/audioio"
	"github.com/teslashibe/go-voiceorder/pkg/capture"
	"github.com/teslashibe/go-voiceorder/pkg/catalog"
	"github.com/teslashibe/go-voiceorder/pkg/intent"
	"github.com/teslashibe/go-voiceorder/pkg/order"
	"github.com/teslashibe/go-voiceorder/pkg/pipeline"
	"github.com/teslashibe/go-voiceorder/pkg/stt"
	"github.com/teslashibe/go-voiceorder/pkg/tts"
)

// app holds the wired pipeline and everything that must be closed with it.
type app struct {
	orch    *pipeline.Orchestrator
	menu    []order.ItemDefinition
	closers []func() error
}

func (a *app) Close() error {
	var errs []error
	if a.orch != nil {
		errs = append(errs, a.orch.Close())
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

// buildApp wires the pipeline from cfg. Voice capture, recognition and
// confirmation playback are only set up when voice is true.
func buildApp(ctx context.Context, cfg *config.Config, voice bool) (*app, error) {
	a := &app{}
	fail := func(err error) (*app, error) {
		_ = a.Close()
		return nil, err
	}

	items, cat, err := loadCatalog(ctx, cfg.Catalog)
	if err != nil {
		return fail(err)
	}
	a.menu = items

	extractor, err := intent.New(cfg.Intent.Provider, logger, intentOptions(cfg.Intent)...)
	if err != nil {
		return fail(fmt.Errorf("intent: %w", err))
	}

	opts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithRateLimitRetry(cfg.Pipeline.RateLimitRetries, cfg.Pipeline.RetryDelay),
	}

	if voice {
		rec, err := stt.New(ctx, cfg.STT.Provider, sttOptions(cfg)...)
		if err != nil {
			return fail(fmt.Errorf("stt: %w", err))
		}
		a.closers = append(a.closers, rec.Close)

		audioCfg := audioConfig(cfg.Capture)
		src, err := audioio.NewSource(audioCfg, logger)
		if err != nil {
			return fail(fmt.Errorf("microphone: %w", err))
		}
		ctrl := capture.NewController(
			capture.NewSourceDevice(src, logger),
			capture.WithLogger(logger),
			capture.WithMinDuration(cfg.Capture.MinDuration),
		)
		opts = append(opts, pipeline.WithCapture(ctrl), pipeline.WithRecognizer(rec))

		if cfg.TTS.Enabled {
			confirmer, err := buildConfirmer(cfg.TTS, audioCfg)
			if err != nil {
				return fail(err)
			}
			a.closers = append(a.closers, confirmer.Close)
			opts = append(opts, pipeline.WithConfirmer(confirmer))
		}
	}

	a.orch = pipeline.New(extractor, cat, opts...)
	return a, nil
}

func loadCatalog(ctx context.Context, cfg config.CatalogConfig) ([]order.ItemDefinition, order.Catalog, error) {
	if cfg.DB != "" {
		db, err := catalog.OpenSQLite(cfg.DB)
		if err != nil {
			return nil, nil, err
		}
		defer db.Close()

		items, err := db.List(ctx)
		if err != nil {
			return nil, nil, err
		}
		snap, err := db.Snapshot(ctx)
		if err != nil {
			return nil, nil, err
		}
		return items, snap, nil
	}

	items, err := catalog.LoadYAML(cfg.Path)
	if err != nil {
		return nil, nil, err
	}
	return items, order.NewMapCatalog(items...), nil
}

func intentOptions(c config.IntentConfig) []intent.Option {
	opts := []intent.Option{
		intent.WithAPIKey(c.APIKey),
		intent.WithTimeout(c.Timeout),
	}
	if c.URL != "" {
		opts = append(opts, intent.WithBaseURL(c.URL))
	}
	if c.Model != "" {
		opts = append(opts, intent.WithModel(c.Model))
	}
	if c.MaxTokens > 0 {
		opts = append(opts, intent.WithMaxTokens(c.MaxTokens))
	}
	return opts
}

func sttOptions(cfg *config.Config) []stt.Option {
	return []stt.Option{
		stt.WithAPIKey(cfg.STT.APIKey),
		stt.WithBaseURL(cfg.STT.URL),
		stt.WithLanguage(cfg.STT.Language),
		stt.WithSampleRate(cfg.Capture.SampleRate),
		stt.WithMaxPayloadBytes(cfg.STT.MaxPayloadBytes),
		stt.WithTimeout(cfg.STT.Timeout),
		stt.WithLogger(logger),
	}
}

func audioConfig(c config.CaptureConfig) audioio.Config {
	a := audioio.DefaultConfig()
	a.Backend = audioio.Backend(c.Backend)
	a.SampleRate = c.SampleRate
	a.Device = c.Device
	return a
}

func buildConfirmer(c config.TTSConfig, audioCfg audioio.Config) (*tts.Confirmer, error) {
	opts := []tts.Option{tts.WithAPIKey(c.APIKey), tts.WithLogger(logger)}
	if c.URL != "" {
		opts = append(opts, tts.WithBaseURL(c.URL))
	}
	if c.Voice != "" {
		opts = append(opts, tts.WithVoice(c.Voice))
	}
	provider, err := tts.New(c.Provider, opts...)
	if err != nil {
		return nil, fmt.Errorf("tts: %w", err)
	}

	// Playback uses the same device settings, minus the capture device name.
	sinkCfg := audioCfg
	sinkCfg.Device = ""
	sink, err := audioio.NewSink(sinkCfg, logger)
	if err != nil {
		provider.Close()
		return nil, fmt.Errorf("speaker: %w", err)
	}
	return tts.NewConfirmer(provider, sink, logger), nil
}
