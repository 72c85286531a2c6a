package capture

import (
	"context"
	"log/slog"
	"sync"

	"github.com/teslashibe/go-voiceorder/pkg/audioio"
)

// Device opens the microphone for one recording.
type Device interface {
	// Open acquires the microphone and returns once it is capturing.
	Open(ctx context.Context) (Recording, error)
}

// Recording is an open microphone handle.
type Recording interface {
	// Finish stops capture and returns the encoded audio.
	Finish() ([]byte, error)

	// Close releases the device. It is safe to call more than once and
	// after Finish.
	Close() error
}

// SourceDevice records from an audioio.Source and encodes WAV.
// Only one Recording may be open at a time.
type SourceDevice struct {
	src    audioio.Source
	logger *slog.Logger
}

// NewSourceDevice wraps src. The caller keeps ownership of src and closes it.
func NewSourceDevice(src audioio.Source, logger *slog.Logger) *SourceDevice {
	if logger == nil {
		logger = slog.Default()
	}
	return &SourceDevice{src: src, logger: logger.With("component", "capture.device", "backend", src.Name())}
}

// Open starts the source and begins collecting samples.
func (d *SourceDevice) Open(ctx context.Context) (Recording, error) {
	if err := d.src.Start(ctx); err != nil {
		return nil, err
	}

	r := &sourceRecording{
		src:  d.src,
		cfg:  d.src.Config(),
		done: make(chan struct{}),
	}
	go r.collect()

	d.logger.Debug("microphone opened")
	return r, nil
}

// Close releases the underlying source.
func (d *SourceDevice) Close() error {
	return d.src.Close()
}

type sourceRecording struct {
	src audioio.Source
	cfg audioio.Config

	samples []int16
	done    chan struct{}
	stop    sync.Once
}

func (r *sourceRecording) collect() {
	defer close(r.done)
	for {
		chunk, err := r.src.Read(context.Background())
		if err != nil {
			return
		}
		r.samples = append(r.samples, chunk.Samples...)
	}
}

func (r *sourceRecording) halt() {
	r.stop.Do(func() {
		_ = r.src.Stop()
	})
	<-r.done
}

func (r *sourceRecording) Finish() ([]byte, error) {
	r.halt()
	return audioio.EncodeWAV(r.samples, r.cfg.SampleRate, r.cfg.Channels), nil
}

func (r *sourceRecording) Close() error {
	r.halt()
	return nil
}
