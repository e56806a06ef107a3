package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"actually-colab-be/internal/pkg/logger"
	"actually-colab-be/internal/service"

	"github.com/redis/go-redis/v9"
)

const clusterChannel = "cluster_events"

var ErrSendBufferFull = errors.New("send buffer full")

// MessageHandler receives the traffic of every socket served by the hub.
type MessageHandler interface {
	HandleMessage(ctx context.Context, connectionId string, raw []byte)
	HandleClose(connectionId string)
}

type clusterMessage struct {
	TargetConnectionId string          `json:"target_connection_id"`
	Message            json.RawMessage `json:"message"`
}

// Hub owns the sockets of this instance. Frames for connections held by
// another instance travel over the redis cluster channel.
type Hub struct {
	// Registered clients: connection id -> client
	clients map[string]*Client

	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex

	// Redis connection for cross-instance delivery, nil when running alone
	rdb *redis.Client

	sendBuffer int
	logger     logger.ILogger
}

func NewHub(rdb *redis.Client, sendBuffer int, log logger.ILogger) *Hub {
	if sendBuffer <= 0 {
		sendBuffer = 256
	}
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[string]*Client),
		rdb:        rdb,
		sendBuffer: sendBuffer,
		logger:     log,
	}
}

func (h *Hub) Run(ctx context.Context) {
	if h.rdb != nil {
		go h.subscribeToRedis(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			h.mu.Unlock()
			h.logger.Info("Hub", "Client registered", map[string]interface{}{
				"connection_id": client.ID,
				"user_id":       client.UserID,
			})

		case client := <-h.unregister:
			h.mu.Lock()
			if current, ok := h.clients[client.ID]; ok && current == client {
				delete(h.clients, client.ID)
				close(client.Send)
				h.logger.Info("Hub", "Client unregistered", map[string]interface{}{"connection_id": client.ID})
			}
			h.mu.Unlock()
		}
	}
}

// PostToConnection queues payload for the connection without blocking. A local
// client whose buffer is full is disconnected.
func (h *Hub) PostToConnection(ctx context.Context, connectionId string, payload []byte) error {
	delivered, client := h.sendLocal(connectionId, payload)
	if delivered {
		return nil
	}
	if client != nil {
		h.logger.Warn("Hub", "Client send buffer full, dropping connection", map[string]interface{}{"connection_id": connectionId})
		client.close()
		return ErrSendBufferFull
	}

	if h.rdb == nil {
		return service.ErrConnectionGone
	}
	data, err := json.Marshal(clusterMessage{TargetConnectionId: connectionId, Message: payload})
	if err != nil {
		return err
	}
	return h.rdb.Publish(ctx, clusterChannel, data).Err()
}

// sendLocal returns the client when it exists but could not take the frame.
// The send happens under the read lock so Run cannot close the channel mid-send.
func (h *Hub) sendLocal(connectionId string, payload []byte) (bool, *Client) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	client, ok := h.clients[connectionId]
	if !ok {
		return false, nil
	}
	select {
	case client.Send <- payload:
		return true, nil
	default:
		return false, client
	}
}

func (h *Hub) connected(connectionId string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[connectionId]
	return ok
}

// Every instance listens on one channel and keeps the frames addressed to
// connections it holds.
func (h *Hub) subscribeToRedis(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, clusterChannel)
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		var payload clusterMessage
		if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
			h.logger.Warn("Hub", "Dropping malformed cluster message", map[string]interface{}{"error": err.Error()})
			continue
		}

		delivered, client := h.sendLocal(payload.TargetConnectionId, payload.Message)
		if !delivered && client != nil {
			client.close()
		}
	}
}
