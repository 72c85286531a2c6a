package tts_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/teslashibe/go-voiceorder/pkg/audioio"
	"github.com/teslashibe/go-voiceorder/pkg/tts"
)

func TestMockProvider(t *testing.T) {
	mock := tts.NewMock()
	ctx := context.Background()

	t.Run("Synthesize returns audio", func(t *testing.T) {
		result, err := mock.Synthesize(ctx, "Hello world")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(result.Audio) == 0 {
			t.Error("expected audio data")
		}
		if result.CharCount != 11 {
			t.Errorf("expected 11 chars, got %d", result.CharCount)
		}
		if result.Format.SampleRate != 24000 {
			t.Errorf("expected 24000 sample rate, got %d", result.Format.SampleRate)
		}
		if result.Format.Encoding != tts.EncodingPCM {
			t.Errorf("expected pcm, got %s", result.Format.Encoding)
		}
	})

	t.Run("Health returns nil", func(t *testing.T) {
		if err := mock.Health(ctx); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("Calls are tracked", func(t *testing.T) {
		calls := mock.Calls()
		if len(calls) != 2 {
			t.Errorf("expected 2 calls, got %d", len(calls))
		}
		if mock.CallCount("Synthesize") != 1 {
			t.Errorf("expected 1 Synthesize call, got %d", mock.CallCount("Synthesize"))
		}
		if texts := mock.Texts(); len(texts) != 1 || texts[0] != "Hello world" {
			t.Errorf("unexpected texts %v", texts)
		}
	})

	t.Run("Reset clears calls", func(t *testing.T) {
		mock.Reset()
		if len(mock.Calls()) != 0 {
			t.Error("expected calls to be cleared")
		}
	})
}

func TestMockWithError(t *testing.T) {
	testErr := errors.New("test error")
	mock := tts.WithError(testErr)
	ctx := context.Background()

	if _, err := mock.Synthesize(ctx, "Hello"); !errors.Is(err, testErr) {
		t.Errorf("expected test error, got %v", err)
	}
	if err := mock.Health(ctx); err == nil {
		t.Error("expected error")
	}
}

func TestMockWithLatency(t *testing.T) {
	mock := tts.WithLatency(tts.NewMock(), 50*time.Millisecond)

	t.Run("Synthesize has latency", func(t *testing.T) {
		start := time.Now()
		_, err := mock.Synthesize(context.Background(), "Hello")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
			t.Errorf("expected at least 50ms latency, got %v", elapsed)
		}
	})

	t.Run("Context cancellation works", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		if _, err := mock.Synthesize(ctx, "Hello"); err == nil {
			t.Error("expected context deadline error")
		}
	})
}

func TestFunctionalOptions(t *testing.T) {
	cfg := tts.DefaultConfig()
	cfg.Apply(
		tts.WithAPIKey("key"),
		tts.WithVoice(tts.VoiceShimmer),
		tts.WithModel(tts.ModelTTS1HD),
		tts.WithSpeed(1.25),
		tts.WithRetry(5, time.Second),
	)

	if cfg.APIKey != "key" || cfg.VoiceID != tts.VoiceShimmer || cfg.ModelID != tts.ModelTTS1HD {
		t.Errorf("options not applied: %+v", cfg)
	}
	if cfg.Speed != 1.25 {
		t.Errorf("expected speed 1.25, got %v", cfg.Speed)
	}
	if cfg.MaxRetries != 5 || cfg.RetryDelay != time.Second {
		t.Errorf("unexpected retry config %d %v", cfg.MaxRetries, cfg.RetryDelay)
	}
}

func TestConfigValidation(t *testing.T) {
	cfg := tts.DefaultConfig()
	if err := cfg.Validate(); !errors.Is(err, tts.ErrNoAPIKey) {
		t.Errorf("expected ErrNoAPIKey, got %v", err)
	}
	cfg.Apply(tts.WithAPIKey("key"))
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAPIError(t *testing.T) {
	t.Run("IsRateLimited", func(t *testing.T) {
		err := &tts.APIError{StatusCode: 429, Message: "rate limited"}
		if !err.IsRateLimited() {
			t.Error("expected IsRateLimited true")
		}
		if err.IsUnauthorized() {
			t.Error("expected IsUnauthorized false")
		}
	})

	t.Run("IsServerError", func(t *testing.T) {
		for _, code := range []int{500, 502, 503, 504} {
			err := &tts.APIError{StatusCode: code}
			if !err.IsServerError() || !err.IsRetryable() {
				t.Errorf("expected retryable server error for %d", code)
			}
		}
	})

	t.Run("Error message format", func(t *testing.T) {
		err := &tts.APIError{
			StatusCode: 400,
			Message:    "bad request",
			Code:       "invalid_input",
			Provider:   "openai",
		}
		if msg := err.Error(); msg != "tts [openai]: status 400 (invalid_input): bad request" {
			t.Errorf("unexpected error message: %s", msg)
		}
	})
}

func TestOpenAISynthesize(t *testing.T) {
	var got map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("unexpected auth %q", auth)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write(make([]byte, 4800))
	}))
	defer server.Close()

	provider, err := tts.NewOpenAI(tts.WithAPIKey("test-key"), tts.WithBaseURL(server.URL))
	if err != nil {
		t.Fatalf("NewOpenAI failed: %v", err)
	}
	defer provider.Close()

	result, err := provider.Synthesize(context.Background(), "好的")
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if got["response_format"] != "pcm" {
		t.Errorf("expected pcm response_format, got %v", got["response_format"])
	}
	if got["voice"] != tts.VoiceNova || got["model"] != tts.ModelTTS1 {
		t.Errorf("unexpected voice/model %v %v", got["voice"], got["model"])
	}
	if result.Format.SampleRate != 24000 {
		t.Errorf("expected 24000, got %d", result.Format.SampleRate)
	}
	if result.Duration != 100*time.Millisecond {
		t.Errorf("expected 100ms, got %v", result.Duration)
	}
}

func TestOpenAISynthesize_RetriesServerError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write(make([]byte, 480))
	}))
	defer server.Close()

	provider, _ := tts.NewOpenAI(
		tts.WithAPIKey("k"),
		tts.WithBaseURL(server.URL),
		tts.WithRetry(2, time.Millisecond),
	)
	if _, err := provider.Synthesize(context.Background(), "hi"); err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 attempts, got %d", calls.Load())
	}
}

func TestOpenAISynthesize_ClientError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"bad key","code":"invalid_api_key"}}`))
	}))
	defer server.Close()

	provider, _ := tts.NewOpenAI(tts.WithAPIKey("k"), tts.WithBaseURL(server.URL))
	_, err := provider.Synthesize(context.Background(), "hi")

	var apiErr *tts.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if !apiErr.IsUnauthorized() || apiErr.Code != "invalid_api_key" {
		t.Errorf("unexpected error %+v", apiErr)
	}
}

func TestHTTPProvider_DecodesWAV(t *testing.T) {
	wav := audioio.EncodeWAV(make([]int16, 800), 8000, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["text"] != "好的" {
			t.Errorf("unexpected text %q", body["text"])
		}
		w.Header().Set("Content-Type", "audio/wav")
		w.Write(wav)
	}))
	defer server.Close()

	provider, err := tts.NewHTTP(tts.WithBaseURL(server.URL))
	if err != nil {
		t.Fatalf("NewHTTP failed: %v", err)
	}
	result, err := provider.Synthesize(context.Background(), "好的")
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if result.Format.SampleRate != 8000 || result.Format.Encoding != tts.EncodingPCM {
		t.Errorf("unexpected format %+v", result.Format)
	}
	if len(result.Audio) != 1600 {
		t.Errorf("expected 1600 bytes, got %d", len(result.Audio))
	}
}

func TestNew(t *testing.T) {
	if _, err := tts.New(tts.ProviderMock); err != nil {
		t.Errorf("mock: %v", err)
	}
	if _, err := tts.New(tts.ProviderOpenAI); !errors.Is(err, tts.ErrNoAPIKey) {
		t.Errorf("expected ErrNoAPIKey, got %v", err)
	}
	if _, err := tts.New("espeak"); err == nil {
		t.Error("expected unknown provider error")
	}

	p, err := tts.New("mock, mock")
	if err != nil {
		t.Fatalf("fallback list: %v", err)
	}
	if _, ok := p.(*tts.Fallback); !ok {
		t.Errorf("expected *tts.Fallback, got %T", p)
	}
	if _, err := tts.New("mock,espeak"); err == nil {
		t.Error("expected unknown provider error in list")
	}
}

func TestFallback(t *testing.T) {
	ctx := context.Background()

	t.Run("NewFallback requires providers", func(t *testing.T) {
		if _, err := tts.NewFallback(nil); err != tts.ErrProviderUnavailable {
			t.Errorf("expected ErrProviderUnavailable, got %v", err)
		}
	})

	t.Run("First provider succeeds", func(t *testing.T) {
		mock1 := tts.NewMock()
		mock2 := tts.NewMock()

		chain, err := tts.NewFallback(nil, mock1, mock2)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer chain.Close()

		if _, err := chain.Synthesize(ctx, "Hello"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if mock1.CallCount("Synthesize") != 1 {
			t.Error("expected first provider to be called")
		}
		if mock2.CallCount("Synthesize") != 0 {
			t.Error("expected second provider not to be called")
		}
	})

	t.Run("Fallback on failure", func(t *testing.T) {
		chain, _ := tts.NewFallback(nil, tts.WithError(errors.New("provider 1 failed")), tts.NewMock())
		result, err := chain.Synthesize(ctx, "Hello")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result == nil {
			t.Error("expected result from fallback provider")
		}
	})

	t.Run("All providers fail", func(t *testing.T) {
		chain, _ := tts.NewFallback(nil, tts.WithError(errors.New("fail 1")), tts.WithError(errors.New("fail 2")))
		_, err := chain.Synthesize(ctx, "Hello")
		if !errors.Is(err, tts.ErrAllProvidersFailed) {
			t.Errorf("expected ErrAllProvidersFailed, got %v", err)
		}
	})
}

func TestConfirmer(t *testing.T) {
	sinkCfg := audioio.DefaultConfig()
	sinkCfg.Backend = audioio.BackendMock

	t.Run("plays resampled audio", func(t *testing.T) {
		sink := audioio.NewMockSink(sinkCfg, nil)
		mock := tts.NewMock()
		c := tts.NewConfirmer(mock, sink, nil)

		c.Confirm("ok")
		c.Wait()

		// 2 chars -> 960 samples at 24kHz -> 640 at 16kHz
		if n := len(sink.Samples()); n != 640 {
			t.Errorf("expected 640 samples, got %d", n)
		}
		if err := c.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
		if mock.CallCount("Close") != 1 {
			t.Error("expected provider to be closed")
		}
	})

	t.Run("newer confirmation cancels older", func(t *testing.T) {
		sink := audioio.NewMockSink(sinkCfg, nil)
		mock := tts.WithLatency(tts.NewMock(), 200*time.Millisecond)
		c := tts.NewConfirmer(mock, sink, nil)
		defer c.Close()

		c.Confirm("first")
		c.Confirm("ok")
		c.Wait()

		if sink.Writes() != 1 {
			t.Errorf("expected a single playback, got %d", sink.Writes())
		}
	})

	t.Run("newer confirmation waits for older to release sink", func(t *testing.T) {
		sink := newPlayerSink(sinkCfg)
		c := tts.NewConfirmer(tts.NewMock(), sink, nil)
		defer c.Close()

		c.Confirm("first")
		select {
		case <-sink.playing:
		case <-time.After(2 * time.Second):
			t.Fatal("first confirmation never reached the sink")
		}
		c.Confirm("ok")
		c.Wait()

		// "first": 5 chars -> 1600 samples; "ok": 640 samples at 16kHz
		want := []string{"start", "write 1600", "abort", "stop", "start", "write 640", "stop"}
		if got := sink.Events(); fmt.Sprint(got) != fmt.Sprint(want) {
			t.Errorf("events = %v, want %v", got, want)
		}
	})

	t.Run("provider failure is swallowed", func(t *testing.T) {
		sink := audioio.NewMockSink(sinkCfg, nil)
		c := tts.NewConfirmer(tts.WithError(errors.New("down")), sink, nil)
		c.Confirm("ok")
		c.Wait()
		if sink.Writes() != 0 {
			t.Error("expected no playback")
		}
		c.Close()
	})

	t.Run("confirm after close is ignored", func(t *testing.T) {
		mock := tts.NewMock()
		c := tts.NewConfirmer(mock, nil, nil)
		c.Close()
		c.Confirm("ok")
		c.Wait()
		if mock.CallCount("Synthesize") != 0 {
			t.Error("expected no synthesis after close")
		}
	})
}

// playerSink behaves like a single player process: Start is a no-op while a
// player is running, and the first Write blocks until playback is aborted.
type playerSink struct {
	cfg     audioio.Config
	playing chan struct{}

	mu      sync.Mutex
	running bool
	blocked bool
	abort   chan struct{}
	events  []string
}

func newPlayerSink(cfg audioio.Config) *playerSink {
	return &playerSink{cfg: cfg, playing: make(chan struct{}), abort: make(chan struct{})}
}

func (p *playerSink) record(ev string) {
	p.mu.Lock()
	p.events = append(p.events, ev)
	p.mu.Unlock()
}

func (p *playerSink) Events() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}

func (p *playerSink) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return nil
	}
	p.running = true
	p.events = append(p.events, "start")
	return nil
}

func (p *playerSink) Write(ctx context.Context, chunk audioio.AudioChunk) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		p.record("write on stopped player")
		return io.ErrClosedPipe
	}
	p.events = append(p.events, fmt.Sprintf("write %d", len(chunk.Samples)))
	first := !p.blocked
	p.blocked = true
	p.mu.Unlock()

	if first {
		close(p.playing)
		<-p.abort
		return io.ErrClosedPipe
	}
	return nil
}

func (p *playerSink) Abort() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return nil
	}
	p.events = append(p.events, "abort")
	select {
	case <-p.abort:
	default:
		close(p.abort)
	}
	return nil
}

func (p *playerSink) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		p.running = false
		p.events = append(p.events, "stop")
	}
	return nil
}

func (p *playerSink) Flush(ctx context.Context) error { return nil }
func (p *playerSink) Config() audioio.Config          { return p.cfg }
func (p *playerSink) Name() string                    { return "player" }
func (p *playerSink) Close() error                    { return p.Stop() }
