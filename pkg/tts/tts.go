// Package tts speaks order confirmations.
//
// Providers synthesize text to audio; a Confirmer plays the result on an
// audioio.Sink without blocking the caller. Playback failures are logged and
// never affect order state.
//
// Example usage:
//
//	provider, _ := tts.NewOpenAI(tts.WithAPIKey(os.Getenv("OPENAI_API_KEY")))
//	confirmer := tts.NewConfirmer(provider, sink, logger)
//	defer confirmer.Close()
//
//	confirmer.Confirm("好的，一杯大杯拿铁")
package tts

import (
	"context"
	"time"
)

// Provider defines the TTS provider interface.
type Provider interface {
	// Synthesize converts text to audio, returning the complete audio buffer.
	Synthesize(ctx context.Context, text string) (*AudioResult, error)

	// Health checks provider connectivity and API key validity.
	Health(ctx context.Context) error

	// Close releases any resources held by the provider.
	Close() error
}

// AudioResult represents a complete audio synthesis result.
type AudioResult struct {
	// Audio contains the raw audio data in the specified format.
	Audio []byte

	// Format describes the audio encoding and sample rate.
	Format AudioFormat

	// Duration is the estimated audio playback duration.
	Duration time.Duration

	// CharCount is the number of characters synthesized.
	CharCount int

	// LatencyMs is the time to the complete response in milliseconds.
	LatencyMs int64
}

// AudioFormat describes the audio encoding parameters.
type AudioFormat struct {
	// Encoding specifies the audio container.
	Encoding Encoding

	// SampleRate in Hz (e.g., 24000, 16000).
	SampleRate int

	// Channels is 1 for mono, 2 for stereo.
	Channels int
}

// Encoding represents audio encoding types.
type Encoding string

const (
	// EncodingPCM is raw little-endian PCM16.
	EncodingPCM Encoding = "pcm"

	// EncodingWAV is PCM16 in a RIFF/WAVE container.
	EncodingWAV Encoding = "wav"
)

// pcmDuration estimates playback time of PCM16 audio.
func pcmDuration(bytes, sampleRate, channels int) time.Duration {
	if sampleRate <= 0 || channels <= 0 {
		return 0
	}
	samples := bytes / 2 / channels
	return time.Duration(samples) * time.Second / time.Duration(sampleRate)
}
