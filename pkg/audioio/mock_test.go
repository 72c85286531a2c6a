package audioio

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"
)

func TestMockSource_StartStop(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BufferDuration = 10 * time.Millisecond

	src := NewMockSource(cfg, nil)
	defer src.Close()

	ctx := context.Background()

	if err := src.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// Starting again should be a no-op
	if err := src.Start(ctx); err != nil {
		t.Fatalf("Second Start failed: %v", err)
	}

	if err := src.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	// Stopping again should be a no-op
	if err := src.Stop(); err != nil {
		t.Fatalf("Second Stop failed: %v", err)
	}
	if src.Running() {
		t.Error("Expected source to be stopped")
	}
}

func TestMockSource_Read(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BufferDuration = 10 * time.Millisecond

	src := NewMockSource(cfg, nil)
	defer src.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := src.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	chunk, err := src.Read(ctx)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	expectedSamples := cfg.BufferSize() * cfg.Channels
	if len(chunk.Samples) != expectedSamples {
		t.Errorf("Expected %d samples, got %d", expectedSamples, len(chunk.Samples))
	}
	if chunk.SampleRate != cfg.SampleRate {
		t.Errorf("Expected sample rate %d, got %d", cfg.SampleRate, chunk.SampleRate)
	}
	if chunk.Channels != cfg.Channels {
		t.Errorf("Expected %d channels, got %d", cfg.Channels, chunk.Channels)
	}
}

func TestMockSource_ReadAfterStop(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BufferDuration = 5 * time.Millisecond

	src := NewMockSource(cfg, nil)
	defer src.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := src.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	_ = src.Stop()

	// Drain whatever was buffered; the stream must end with EOF.
	for {
		_, err := src.Read(ctx)
		if err == io.EOF {
			return
		}
		if err != nil {
			t.Fatalf("Expected io.EOF, got %v", err)
		}
	}
}

func TestMockSource_SineWave(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BufferDuration = 10 * time.Millisecond

	src := NewMockSource(cfg, nil, WithSineWave(440, 0.5))
	defer src.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := src.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	chunk, err := src.Read(ctx)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	hasNonZero := false
	for _, s := range chunk.Samples {
		if s != 0 {
			hasNonZero = true
			break
		}
	}
	if !hasNonZero {
		t.Error("Expected non-zero samples for sine wave")
	}
}

func TestMockSource_StartError(t *testing.T) {
	denied := errors.New("permission denied")
	src := NewMockSource(DefaultConfig(), nil, WithStartError(denied))

	err := src.Start(context.Background())
	if !errors.Is(err, denied) {
		t.Fatalf("Expected start error, got %v", err)
	}
	if src.Running() {
		t.Error("Source should not be running after failed start")
	}
	if src.Starts() != 1 {
		t.Errorf("Expected 1 start, got %d", src.Starts())
	}
}

func TestMockSource_CloseIsFinal(t *testing.T) {
	src := NewMockSource(DefaultConfig(), nil)

	if err := src.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := src.Close(); err != nil {
		t.Fatalf("Second Close failed: %v", err)
	}
	if !src.Closed() {
		t.Error("Expected Closed() to be true")
	}
	if err := src.Start(context.Background()); err == nil {
		t.Error("Expected Start after Close to fail")
	}
	if src.Closes() != 2 {
		t.Errorf("Expected 2 closes, got %d", src.Closes())
	}
}

func TestMockSink_Write(t *testing.T) {
	sink := NewMockSink(DefaultConfig(), nil)
	defer sink.Close()

	ctx := context.Background()

	// Writes before Start are rejected
	if err := sink.Write(ctx, AudioChunk{Samples: []int16{1}}); err == nil {
		t.Error("Expected Write before Start to fail")
	}

	if err := sink.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := sink.Write(ctx, AudioChunk{Samples: []int16{1, 2}}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := sink.Write(ctx, AudioChunk{Samples: []int16{3}}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := sink.Flush(ctx); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	got := sink.Samples()
	if len(got) != 3 || got[0] != 1 || got[2] != 3 {
		t.Errorf("Unexpected samples: %v", got)
	}
	if sink.Writes() != 2 {
		t.Errorf("Expected 2 writes, got %d", sink.Writes())
	}
}

func TestFactory_Mock(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Backend = BackendMock

	src, err := NewSource(cfg, nil)
	if err != nil {
		t.Fatalf("NewSource failed: %v", err)
	}
	defer src.Close()
	if src.Name() != "mock" {
		t.Errorf("Expected mock source, got %s", src.Name())
	}

	sink, err := NewSink(cfg, nil)
	if err != nil {
		t.Fatalf("NewSink failed: %v", err)
	}
	defer sink.Close()
	if sink.Name() != "mock" {
		t.Errorf("Expected mock sink, got %s", sink.Name())
	}
}

func TestFactory_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Backend = "alsa"

	if _, err := NewSource(cfg, nil); err == nil {
		t.Error("Expected error for unsupported backend")
	}
}

func TestResolveBackend(t *testing.T) {
	found := func(Config) ([]string, error) { return []string{"arecord"}, nil }
	missing := func(Config) ([]string, error) { return nil, errors.New("not found") }

	if got := resolveBackend(BackendAuto, found); got != BackendExec {
		t.Errorf("Expected exec, got %s", got)
	}
	if got := resolveBackend(BackendAuto, missing); got != BackendMock {
		t.Errorf("Expected mock, got %s", got)
	}
	if got := resolveBackend(BackendMock, found); got != BackendMock {
		t.Errorf("Explicit backend should win, got %s", got)
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default config invalid: %v", err)
	}

	bad := cfg
	bad.SampleRate = 0
	if err := bad.Validate(); err == nil {
		t.Error("Expected error for zero sample rate")
	}

	if cfg.BufferSize() != 320 {
		t.Errorf("Expected 320 samples per buffer, got %d", cfg.BufferSize())
	}
	if cfg.BufferBytes() != 640 {
		t.Errorf("Expected 640 bytes per buffer, got %d", cfg.BufferBytes())
	}
}
