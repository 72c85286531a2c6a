package audioio

import (
	"context"
	"io"
)

// AudioChunk is a block of interleaved PCM16 samples.
type AudioChunk struct {
	Samples    []int16
	SampleRate int
	Channels   int
}

// Bytes returns the chunk as little-endian PCM16 bytes.
func (c *AudioChunk) Bytes() []byte {
	return SamplesToBytes(c.Samples)
}

// FromBytes populates the chunk from raw PCM16 bytes.
func (c *AudioChunk) FromBytes(data []byte, sampleRate, channels int) {
	c.SampleRate = sampleRate
	c.Channels = channels
	c.Samples = BytesToSamples(data)
}

// Duration returns the playback length of the chunk in seconds.
func (c *AudioChunk) Duration() float64 {
	if c.SampleRate == 0 || c.Channels == 0 {
		return 0
	}
	return float64(len(c.Samples)) / float64(c.SampleRate*c.Channels)
}

// Source captures audio from a microphone.
type Source interface {
	// Start opens the device and begins capture. It returns once the device
	// is delivering audio, or with an error if it could not be opened.
	Start(ctx context.Context) error

	// Stop halts capture. It is safe to call Stop multiple times.
	Stop() error

	// Read returns the next chunk, blocking if necessary.
	// Returns io.EOF once the source is stopped and drained.
	Read(ctx context.Context) (AudioChunk, error)

	// Config returns the audio configuration.
	Config() Config

	// Name returns the backend name ("exec", "mock").
	Name() string

	// Close releases the device. After Close the source cannot be restarted.
	io.Closer
}
