package audioio

import (
	"fmt"
	"log/slog"
)

// NewSource creates an audio source for cfg.
// It does not open the device; call Start for that.
func NewSource(cfg Config, logger *slog.Logger) (Source, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	backend := resolveBackend(cfg.Backend, recorderCommand)
	logger.Debug("creating audio source",
		"backend", backend,
		"sample_rate", cfg.SampleRate,
		"channels", cfg.Channels,
	)

	switch backend {
	case BackendMock:
		return NewMockSource(cfg, logger), nil
	case BackendExec:
		return NewExecSource(cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported backend: %s", backend)
	}
}

// NewSink creates an audio sink for cfg.
func NewSink(cfg Config, logger *slog.Logger) (Sink, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	backend := resolveBackend(cfg.Backend, playerCommand)
	logger.Debug("creating audio sink", "backend", backend, "sample_rate", cfg.SampleRate)

	switch backend {
	case BackendMock:
		return NewMockSink(cfg, logger), nil
	case BackendExec:
		return NewExecSink(cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported backend: %s", backend)
	}
}

// resolveBackend turns BackendAuto into a concrete backend.
func resolveBackend(b Backend, lookup func(Config) ([]string, error)) Backend {
	if b != BackendAuto {
		return b
	}
	if _, err := lookup(Config{SampleRate: 16000, Channels: 1}); err == nil {
		return BackendExec
	}
	return BackendMock
}
