package hub

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func register(t *testing.T, h *Hub, c *Client) {
	t.Helper()
	h.register <- c
	require.Eventually(t, func() bool { return h.ClientCount() > 0 }, time.Second, time.Millisecond)
}

func TestHub_BroadcastReachesClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := New("test", nil)
	go h.Run(ctx)

	c := newClient(h, nil, NewJSONMessage([]byte(`{"hello":true}`)))
	register(t, h, c)

	require.NoError(t, h.BroadcastJSON(map[string]string{"status": "idle"}))

	first := <-c.send
	assert.JSONEq(t, `{"hello":true}`, string(first.Data))

	select {
	case msg := <-c.send:
		assert.JSONEq(t, `{"status":"idle"}`, string(msg.Data))
	case <-time.After(time.Second):
		t.Fatal("broadcast not delivered")
	}
}

func TestHub_UnregisterClosesSend(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := New("test", nil)
	go h.Run(ctx)

	c := newClient(h, nil)
	register(t, h, c)

	h.unregister <- c
	_, ok := <-c.send
	assert.False(t, ok)
	assert.Equal(t, 0, h.ClientCount())
}

func TestHub_StopClosesClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := New("test", nil)
	go h.Run(ctx)

	c := newClient(h, nil)
	register(t, h, c)

	cancel()
	<-h.Done()

	_, ok := <-c.send
	assert.False(t, ok)
	assert.Equal(t, 0, h.ClientCount())
}

func TestHub_DropsSlowClient(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := New("test", nil)
	go h.Run(ctx)

	c := newClient(h, nil)
	register(t, h, c)

	for i := 0; i < cap(c.send)+1; i++ {
		h.broadcast <- NewJSONMessage([]byte(`{}`))
	}
	assert.Eventually(t, func() bool { return h.ClientCount() == 0 }, time.Second, time.Millisecond)
}
