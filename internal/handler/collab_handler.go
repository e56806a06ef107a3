package handler

import (
	"context"

	"actually-colab-be/internal/pkg/apperror"
	"actually-colab-be/internal/pkg/logger"
	"actually-colab-be/internal/pkg/serverutils"
	"actually-colab-be/internal/service"
	internalWS "actually-colab-be/internal/websocket"
	"actually-colab-be/pkg/protocol"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

type CollabHandler struct {
	collab    service.ICollabService
	hub       *internalWS.Hub
	jwtSecret string
	logger    logger.ILogger
}

func NewCollabHandler(collab service.ICollabService, hub *internalWS.Hub, jwtSecret string, log logger.ILogger) *CollabHandler {
	return &CollabHandler{
		collab:    collab,
		hub:       hub,
		jwtSecret: jwtSecret,
		logger:    log,
	}
}

// ServeWs authenticates the handshake, then upgrades. Browsers pass the token
// as a query parameter, other clients use the Authorization header.
func (h *CollabHandler) ServeWs(c *fiber.Ctx) error {
	tokenStr := serverutils.BearerToken(c)
	if tokenStr == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(fiber.StatusUnauthorized, "Missing token (Query 'token' or Header 'Authorization')"))
	}

	userID, err := serverutils.ParseToken(h.jwtSecret, tokenStr)
	if err != nil {
		h.logger.Warn("CollabHandler", "Invalid token in WS handshake", map[string]interface{}{"error": err.Error()})
		return c.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(fiber.StatusUnauthorized, "Invalid token"))
	}

	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	return websocket.New(func(conn *websocket.Conn) {
		connectionID := uuid.NewString()
		if err := h.collab.Connect(context.Background(), connectionID, userID); err != nil {
			h.rejectSocket(conn, err)
			return
		}

		h.logger.Info("CollabHandler", "Starting WebSocket session", map[string]interface{}{
			"connection_id": connectionID,
			"user_id":       userID,
		})
		internalWS.ServeWs(h.hub, conn, connectionID, userID, h.collab)
		h.logger.Info("CollabHandler", "WebSocket session ended", map[string]interface{}{"connection_id": connectionID})
	})(c)
}

func (h *CollabHandler) rejectSocket(conn *websocket.Conn, err error) {
	if apperror.KindOf(err) == apperror.KindInternal {
		h.logger.Error("CollabHandler", "Failed to register connection", map[string]interface{}{"error": err.Error()})
	}
	frame, encodeErr := protocol.Event{
		Action: protocol.ActionError,
		Data: protocol.ErrorReport{
			Code:    string(apperror.KindOf(err)),
			Message: apperror.MessageOf(err),
		},
	}.Encode()
	if encodeErr == nil {
		_ = conn.WriteMessage(websocket.TextMessage, frame)
	}
	_ = conn.Close()
}

func (h *CollabHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/ws", h.ServeWs)
}
