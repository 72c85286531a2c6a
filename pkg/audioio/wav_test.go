package audioio

import (
	"errors"
	"testing"
)

func TestWAV_RoundTrip(t *testing.T) {
	samples := []int16{0, 1000, -1000, 32767, -32768}
	data := EncodeWAV(samples, 16000, 1)

	if len(data) != 44+len(samples)*2 {
		t.Fatalf("Expected %d bytes, got %d", 44+len(samples)*2, len(data))
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		t.Fatal("Missing RIFF/WAVE header")
	}

	chunk, err := DecodeWAV(data)
	if err != nil {
		t.Fatalf("DecodeWAV failed: %v", err)
	}
	if chunk.SampleRate != 16000 || chunk.Channels != 1 {
		t.Errorf("Unexpected format: %d Hz, %d ch", chunk.SampleRate, chunk.Channels)
	}
	for i, s := range samples {
		if chunk.Samples[i] != s {
			t.Errorf("Sample %d: expected %d, got %d", i, s, chunk.Samples[i])
		}
	}
}

func TestWAV_Empty(t *testing.T) {
	chunk, err := DecodeWAV(EncodeWAV(nil, 16000, 1))
	if err != nil {
		t.Fatalf("DecodeWAV failed: %v", err)
	}
	if len(chunk.Samples) != 0 {
		t.Errorf("Expected no samples, got %d", len(chunk.Samples))
	}
	if chunk.Duration() != 0 {
		t.Errorf("Expected zero duration, got %f", chunk.Duration())
	}
}

func TestDecodeWAV_Rejects(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"not riff", []byte("hello world, this is not audio")},
		{"no data chunk", EncodeWAV(nil, 16000, 1)[:36]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeWAV(tt.data); !errors.Is(err, ErrNotWAV) {
				t.Errorf("Expected ErrNotWAV, got %v", err)
			}
		})
	}
}
