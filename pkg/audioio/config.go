// Package audioio provides microphone capture and speaker playback.
//
// Two backends are available:
//   - Exec - pipes raw PCM16 through arecord/aplay (Linux) or sox rec/play (macOS)
//   - Mock - synthetic audio for CI and tests
//
// The backend is selected from configuration; BackendAuto picks exec when a
// recorder binary is on PATH and falls back to mock otherwise.
package audioio

import (
	"fmt"
	"time"
)

// Backend represents the audio backend type.
type Backend string

const (
	// BackendAuto selects exec when available, mock otherwise.
	BackendAuto Backend = "auto"
	// BackendExec shells out to a platform recorder/player.
	BackendExec Backend = "exec"
	// BackendMock uses a mock implementation for testing.
	BackendMock Backend = "mock"
)

// Config holds audio configuration.
type Config struct {
	// Backend specifies which audio backend to use.
	Backend Backend `yaml:"backend" json:"backend" mapstructure:"backend"`

	// SampleRate is the audio sample rate in Hz.
	// Default: 16000 (what speech recognizers expect)
	SampleRate int `yaml:"sample_rate" json:"sample_rate" mapstructure:"sample_rate"`

	// Channels is the number of audio channels.
	// Default: 1 (mono)
	Channels int `yaml:"channels" json:"channels" mapstructure:"channels"`

	// BufferDuration is the size of audio buffers.
	// Default: 20ms (320 samples at 16kHz)
	BufferDuration time.Duration `yaml:"buffer_duration" json:"buffer_duration" mapstructure:"buffer_duration"`

	// Device is the platform-specific device identifier.
	// Examples:
	//   - arecord: "default", "plughw:1,0"
	//   - sox: ignored, uses the system default input
	//   - Mock: ignored
	Device string `yaml:"device" json:"device" mapstructure:"device"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Backend:        BackendAuto,
		SampleRate:     16000,
		Channels:       1,
		BufferDuration: 20 * time.Millisecond,
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendAuto, BackendExec, BackendMock:
	default:
		return fmt.Errorf("unsupported backend: %q", c.Backend)
	}
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive, got %d", c.SampleRate)
	}
	if c.Channels <= 0 {
		return fmt.Errorf("channels must be positive, got %d", c.Channels)
	}
	if c.BufferDuration <= 0 {
		return fmt.Errorf("buffer_duration must be positive, got %v", c.BufferDuration)
	}
	return nil
}

// BufferSize returns the number of samples per buffer.
func (c *Config) BufferSize() int {
	return int(float64(c.SampleRate) * c.BufferDuration.Seconds())
}

// BufferBytes returns the size of a buffer in bytes (assuming int16 samples).
func (c *Config) BufferBytes() int {
	return c.BufferSize() * c.Channels * 2
}
