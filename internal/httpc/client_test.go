package httpc

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewClient_DefaultTimeout(t *testing.T) {
	c := NewClient(0)
	if c.Timeout != DefaultTimeout {
		t.Errorf("Expected %v, got %v", DefaultTimeout, c.Timeout)
	}
	if NewClient(5*time.Second).Timeout != 5*time.Second {
		t.Error("Explicit timeout not applied")
	}
}

func TestIsTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	c := NewClient(20 * time.Millisecond)
	req, _ := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL, nil)
	_, err := c.Do(req)
	if !IsTimeout(err) {
		t.Errorf("Expected timeout, got %v", err)
	}

	if IsTimeout(errors.New("boom")) {
		t.Error("Plain error reported as timeout")
	}
	if IsTimeout(nil) {
		t.Error("nil reported as timeout")
	}
}
