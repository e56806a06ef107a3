package websocket

import (
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// ServeWs registers the socket and blocks until it closes.
func ServeWs(hub *Hub, c *websocket.Conn, connectionId string, userID uuid.UUID, handler MessageHandler) {
	client := &Client{
		Hub:     hub,
		Conn:    c,
		ID:      connectionId,
		UserID:  userID,
		Send:    make(chan []byte, hub.sendBuffer),
		Handler: handler,
	}
	client.Hub.register <- client

	go client.writePump()
	client.readPump()
}
