package websocket

import (
	"context"
	"testing"
	"time"

	"actually-colab-be/internal/pkg/logger"
	"actually-colab-be/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T, sendBuffer int) *Hub {
	t.Helper()
	hub := NewHub(nil, sendBuffer, logger.NewNopLogger())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func registerClient(t *testing.T, hub *Hub) *Client {
	t.Helper()
	client := &Client{
		Hub:    hub,
		ID:     uuid.NewString(),
		UserID: uuid.New(),
		Send:   make(chan []byte, hub.sendBuffer),
	}
	hub.register <- client
	require.Eventually(t, func() bool { return hub.connected(client.ID) }, time.Second, 5*time.Millisecond)
	return client
}

func TestPostToLocalConnection(t *testing.T) {
	hub := startHub(t, 4)
	client := registerClient(t, hub)

	require.NoError(t, hub.PostToConnection(context.Background(), client.ID, []byte(`{"action":"cell_locked"}`)))

	select {
	case got := <-client.Send:
		assert.JSONEq(t, `{"action":"cell_locked"}`, string(got))
	default:
		t.Fatal("frame was not queued")
	}
}

func TestPostToUnknownConnectionWithoutCluster(t *testing.T) {
	hub := startHub(t, 4)

	err := hub.PostToConnection(context.Background(), "nobody", []byte(`{}`))
	assert.ErrorIs(t, err, service.ErrConnectionGone)
}

func TestPostToFullBufferFails(t *testing.T) {
	hub := startHub(t, 1)
	client := registerClient(t, hub)

	require.NoError(t, hub.PostToConnection(context.Background(), client.ID, []byte(`1`)))
	err := hub.PostToConnection(context.Background(), client.ID, []byte(`2`))
	assert.ErrorIs(t, err, ErrSendBufferFull)
}

func TestUnregisterClosesSendChannel(t *testing.T) {
	hub := startHub(t, 4)
	client := registerClient(t, hub)

	hub.unregister <- client
	require.Eventually(t, func() bool { return !hub.connected(client.ID) }, time.Second, 5*time.Millisecond)

	_, open := <-client.Send
	assert.False(t, open)

	err := hub.PostToConnection(context.Background(), client.ID, []byte(`{}`))
	assert.ErrorIs(t, err, service.ErrConnectionGone)
}
