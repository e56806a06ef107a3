package service

import (
	"context"
	"errors"

	"actually-colab-be/internal/pkg/logger"
	"actually-colab-be/pkg/protocol"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ErrConnectionGone is returned by a gateway when the peer cannot be reached.
var ErrConnectionGone = errors.New("connection gone")

// ConnectionGateway posts a frame to one connection, wherever it lives.
// Implemented by the websocket hub.
type ConnectionGateway interface {
	PostToConnection(ctx context.Context, connectionId string, payload []byte) error
}

type IFanoutService interface {
	Broadcast(ctx context.Context, notebookId uuid.UUID, event protocol.Event) error
	EmitToOne(ctx context.Context, connectionId string, event protocol.Event) error
	EmitToMany(ctx context.Context, connectionIds []string, event protocol.Event)
}

type fanoutService struct {
	registry    ISessionRegistry
	gateway     ConnectionGateway
	parallelism int
	logger      logger.ILogger
}

func NewFanoutService(registry ISessionRegistry, gateway ConnectionGateway, parallelism int, log logger.ILogger) IFanoutService {
	if parallelism <= 0 {
		parallelism = 1
	}
	return &fanoutService{
		registry:    registry,
		gateway:     gateway,
		parallelism: parallelism,
		logger:      log,
	}
}

// Broadcast delivers to every connection bound to the notebook. Only a failure
// to read the registry is returned; unreachable peers are logged and skipped.
func (s *fanoutService) Broadcast(ctx context.Context, notebookId uuid.UUID, event protocol.Event) error {
	connections, err := s.registry.ActiveConnections(ctx, notebookId)
	if err != nil {
		return err
	}

	payload, err := event.Encode()
	if err != nil {
		return err
	}

	s.deliver(ctx, connections, event.Action, payload)
	return nil
}

func (s *fanoutService) EmitToOne(ctx context.Context, connectionId string, event protocol.Event) error {
	payload, err := event.Encode()
	if err != nil {
		return err
	}
	return s.gateway.PostToConnection(ctx, connectionId, payload)
}

func (s *fanoutService) EmitToMany(ctx context.Context, connectionIds []string, event protocol.Event) {
	payload, err := event.Encode()
	if err != nil {
		s.logger.Error("Fanout", "Failed to encode event", map[string]interface{}{
			"action": event.Action,
			"error":  err.Error(),
		})
		return
	}
	s.deliver(ctx, connectionIds, event.Action, payload)
}

func (s *fanoutService) deliver(ctx context.Context, connectionIds []string, action protocol.Action, payload []byte) {
	var g errgroup.Group
	g.SetLimit(s.parallelism)

	for _, id := range connectionIds {
		connectionId := id
		g.Go(func() error {
			if err := s.gateway.PostToConnection(ctx, connectionId, payload); err != nil {
				s.logger.Warn("Fanout", "Could not reach connection", map[string]interface{}{
					"connection_id": connectionId,
					"action":        action,
					"error":         err.Error(),
				})
			}
			return nil
		})
	}
	_ = g.Wait()
}
