package intent

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testHistory = []Turn{
	{ID: "1", Role: RoleUser, Text: "你好", At: time.Unix(0, 0)},
	{ID: "2", Role: RoleAssistant, Text: "欢迎光临", At: time.Unix(1, 0)},
}

func TestClient_Extract(t *testing.T) {
	var gotHistory []Turn
	var gotText string
	backend := BackendFunc(func(ctx context.Context, history []Turn, text string) ([]byte, error) {
		gotHistory, gotText = history, text
		return []byte(`{"assistantText":"好的","selections":[{"name":"拿铁","options":{"cup":"大杯"}},{"name":""}]}`), nil
	})

	c := NewClient(backend, nil)
	res, err := c.Extract(context.Background(), testHistory, " 一杯大杯拿铁 ")
	require.NoError(t, err)
	assert.Equal(t, "好的", res.AssistantText)
	require.Len(t, res.Selections, 1)
	assert.Equal(t, 1, res.Selections[0].Quantity)
	assert.Equal(t, 1, res.Dropped)

	assert.Equal(t, testHistory, gotHistory)
	assert.Equal(t, "一杯大杯拿铁", gotText)
}

func TestClient_ClassifiesErrors(t *testing.T) {
	plain := BackendFunc(func(ctx context.Context, history []Turn, text string) ([]byte, error) {
		return nil, errors.New("connection reset")
	})
	_, err := NewClient(plain, nil).Extract(context.Background(), nil, "hi")
	assert.ErrorIs(t, err, ErrNetwork)

	garbage := BackendFunc(func(ctx context.Context, history []Turn, text string) ([]byte, error) {
		return []byte("I'd be happy to help!"), nil
	})
	_, err = NewClient(garbage, nil).Extract(context.Background(), nil, "hi")
	assert.ErrorIs(t, err, ErrMalformedResponse)

	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, "func", e.Provider)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abc...", truncate("abcdef", 3))

	// Each of these runes is three bytes; a cut at 4 or 5 backs up to 3.
	for _, n := range []int{3, 4, 5} {
		got := truncate("拿铁咖啡", n)
		assert.Equal(t, "拿...", got)
		assert.True(t, utf8.ValidString(got))
	}
	assert.Equal(t, "...", truncate("拿铁", 2))
}

func TestHTTPBackend(t *testing.T) {
	var got httpRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"assistantText":"好的","selections":[{"name":"拿铁","quantity":2}]}`))
	}))
	defer server.Close()

	b, err := NewHTTPBackend(WithBaseURL(server.URL))
	require.NoError(t, err)

	res, err := NewClient(b, nil).Extract(context.Background(), testHistory, "两杯拿铁")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Selections[0].Quantity)

	assert.Equal(t, "两杯拿铁", got.NewText)
	require.Len(t, got.History, 2)
	assert.Equal(t, httpTurn{Role: "assistant", Text: "欢迎光临"}, got.History[1])
}

func TestHTTPBackend_StatusErrors(t *testing.T) {
	tests := []struct {
		status    int
		rateLimit bool
		auth      bool
	}{
		{http.StatusTooManyRequests, true, false},
		{http.StatusUnauthorized, false, true},
		{http.StatusInternalServerError, false, false},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			b, err := NewHTTPBackend(WithBaseURL(server.URL))
			require.NoError(t, err)

			_, err = NewClient(b, nil).Extract(context.Background(), nil, "hi")
			assert.ErrorIs(t, err, ErrNetwork)
			assert.Equal(t, tt.rateLimit, IsRateLimited(err))
			assert.Equal(t, tt.auth, IsAuth(err))
		})
	}
}

func chatServer(t *testing.T, status int, body string, got *map[string]any) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		if got != nil {
			_ = json.NewDecoder(r.Body).Decode(got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestChatBackend(t *testing.T) {
	var got map[string]any
	server := chatServer(t, http.StatusOK,
		`{"model":"gpt-4o-mini","choices":[{"message":{"content":"{\"assistantText\":\"好的\",\"selections\":[]}"},"finish_reason":"stop"}]}`,
		&got)

	b := NewChatBackend(WithBaseURL(server.URL+"/"), WithAPIKey("test-key"))
	res, err := NewClient(b, nil).Extract(context.Background(), testHistory, "就这些")
	require.NoError(t, err)
	assert.Equal(t, "好的", res.AssistantText)

	assert.Equal(t, DefaultChatModel, got["model"])
	assert.Equal(t, map[string]any{"type": "json_object"}, got["response_format"])
	msgs, _ := got["messages"].([]any)
	require.Len(t, msgs, 4)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "assistant", msgs[2].(map[string]any)["role"])
	assert.Equal(t, map[string]any{"role": "user", "content": "就这些"}, msgs[3])
}

func TestChatBackend_Refusal(t *testing.T) {
	server := chatServer(t, http.StatusOK,
		`{"choices":[{"message":{"content":"","refusal":"off topic"},"finish_reason":"stop"}]}`, nil)

	b := NewChatBackend(WithBaseURL(server.URL), WithAPIKey("test-key"))
	_, err := NewClient(b, nil).Extract(context.Background(), nil, "write me a poem")
	assert.ErrorIs(t, err, ErrRefused)
}

func TestChatBackend_NoChoices(t *testing.T) {
	server := chatServer(t, http.StatusOK, `{"choices":[]}`, nil)

	b := NewChatBackend(WithBaseURL(server.URL), WithAPIKey("test-key"))
	_, err := NewClient(b, nil).Extract(context.Background(), nil, "hi")
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestChatBackend_RateLimited(t *testing.T) {
	server := chatServer(t, http.StatusTooManyRequests,
		`{"error":{"message":"Rate limit exceeded","code":"rate_limit"}}`, nil)

	b := NewChatBackend(WithBaseURL(server.URL), WithAPIKey("test-key"))
	_, err := NewClient(b, nil).Extract(context.Background(), nil, "hi")
	assert.ErrorIs(t, err, ErrNetwork)
	assert.True(t, IsRateLimited(err))
	assert.Contains(t, err.Error(), "Rate limit exceeded")
}

func anthropicServer(t *testing.T, status int, body string, got *map[string]any) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		if got != nil {
			_ = json.NewDecoder(r.Body).Decode(got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestAnthropicBackend(t *testing.T) {
	var got map[string]any
	server := anthropicServer(t, http.StatusOK, `{
		"id": "msg_01",
		"type": "message",
		"role": "assistant",
		"model": "claude-3-5-haiku-latest",
		"content": [{"type": "text", "text": "{\"assistantText\":\"好的\",\"selections\":[{\"name\":\"拿铁\",\"options\":{\"cup\":\"大杯\"}}]}"}],
		"stop_reason": "end_turn",
		"stop_sequence": null,
		"usage": {"input_tokens": 12, "output_tokens": 30}
	}`, &got)

	b := NewAnthropicBackend(WithAPIKey("test-key"), WithBaseURL(server.URL))
	res, err := NewClient(b, nil).Extract(context.Background(), testHistory, "一杯大杯拿铁")
	require.NoError(t, err)
	require.Len(t, res.Selections, 1)
	assert.Equal(t, "拿铁", res.Selections[0].Name)

	msgs, _ := got["messages"].([]any)
	assert.Len(t, msgs, 3)
	assert.Equal(t, DefaultAnthropicModel, got["model"])
}

func TestAnthropicBackend_Errors(t *testing.T) {
	server := anthropicServer(t, http.StatusTooManyRequests,
		`{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`, nil)

	b := NewAnthropicBackend(WithAPIKey("test-key"), WithBaseURL(server.URL))
	_, err := NewClient(b, nil).Extract(context.Background(), nil, "hi")
	assert.ErrorIs(t, err, ErrNetwork)
	assert.True(t, IsRateLimited(err))

	refused := anthropicServer(t, http.StatusOK, `{
		"id": "msg_02", "type": "message", "role": "assistant", "model": "m",
		"content": [], "stop_reason": "refusal", "usage": {"input_tokens": 1, "output_tokens": 0}
	}`, nil)
	b = NewAnthropicBackend(WithAPIKey("test-key"), WithBaseURL(refused.URL))
	_, err = NewClient(b, nil).Extract(context.Background(), nil, "hi")
	assert.ErrorIs(t, err, ErrRefused)
}

func TestMockExtractor(t *testing.T) {
	m := NewMock("好的")
	res, err := m.Extract(context.Background(), testHistory, "hi")
	require.NoError(t, err)
	assert.Equal(t, "好的", res.AssistantText)
	assert.Equal(t, 1, m.CallCount())
	assert.Equal(t, "hi", m.Calls()[0].Text)

	_, err = FailWith(ErrRefused).Extract(context.Background(), nil, "hi")
	assert.ErrorIs(t, err, ErrRefused)
}

func TestNew(t *testing.T) {
	ex, err := New(ProviderMock, nil)
	require.NoError(t, err)
	assert.NotNil(t, ex)

	_, err = New(ProviderHTTP, nil)
	assert.Error(t, err, "http requires a base URL")

	_, err = New("gemini", nil)
	assert.Error(t, err)
}
