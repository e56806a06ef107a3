package service

import (
	"context"
	"encoding/json"
	"time"

	"actually-colab-be/internal/mapper"
	"actually-colab-be/internal/pkg/logger"
	"actually-colab-be/pkg/protocol"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type connectionClosedMessage struct {
	ConnectionId string    `json:"connection_id"`
	ClosedAt     time.Time `json:"closed_at"`
}

// IReconcilerService cleans up after connections that went away. Closed
// connections are queued on a watermill topic so the read loop never blocks
// on storage, and failed reconciliations are redelivered.
type IReconcilerService interface {
	Enqueue(connectionId string, closedAt time.Time) error
	Reconcile(ctx context.Context, connectionId string, closedAt time.Time) error
	Consume(ctx context.Context) error
}

type reconcilerService struct {
	pubSub     *gochannel.GoChannel
	topicName  string
	retryDelay time.Duration
	registry   ISessionRegistry
	fanout     IFanoutService
	identity   IIdentityService
	logger     logger.ILogger
}

func NewReconcilerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	retryDelay time.Duration,
	registry ISessionRegistry,
	fanout IFanoutService,
	identity IIdentityService,
	log logger.ILogger,
) IReconcilerService {
	return &reconcilerService{
		pubSub:     pubSub,
		topicName:  topicName,
		retryDelay: retryDelay,
		registry:   registry,
		fanout:     fanout,
		identity:   identity,
		logger:     log,
	}
}

func (s *reconcilerService) Enqueue(connectionId string, closedAt time.Time) error {
	payload, err := json.Marshal(connectionClosedMessage{ConnectionId: connectionId, ClosedAt: closedAt})
	if err != nil {
		return err
	}
	return s.pubSub.Publish(s.topicName, message.NewMessage(watermill.NewUUID(), payload))
}

// Reconcile commits the registry mutation first and only then announces the
// released cells and the closed notebook. A repeated call finds the session
// terminal and broadcasts nothing.
func (s *reconcilerService) Reconcile(ctx context.Context, connectionId string, closedAt time.Time) error {
	result, err := s.registry.Disconnect(ctx, connectionId, closedAt)
	if err != nil {
		return err
	}
	s.identity.Forget(connectionId)

	session := result.Session
	if session == nil || session.NotebookId == nil {
		return nil
	}
	notebookId := *session.NotebookId

	for _, cell := range result.UnlockedCells {
		evt := protocol.NewEvent(protocol.ActionCellUnlocked, session.UserId, mapper.ToCellPayload(cell))
		if err := s.fanout.Broadcast(ctx, notebookId, evt); err != nil {
			s.logger.Warn("Reconciler", "Failed to announce released cell", map[string]interface{}{
				"cell_id": cell.Id.String(),
				"error":   err.Error(),
			})
		}
	}

	evt := protocol.NewEvent(protocol.ActionNotebookClosed, session.UserId, protocol.NotebookRef{NbId: notebookId})
	if err := s.fanout.Broadcast(ctx, notebookId, evt); err != nil {
		s.logger.Warn("Reconciler", "Failed to announce closed notebook", map[string]interface{}{
			"notebook_id": notebookId.String(),
			"error":       err.Error(),
		})
	}

	s.logger.Info("Reconciler", "Connection reconciled", map[string]interface{}{
		"connection_id":  connectionId,
		"notebook_id":    notebookId.String(),
		"unlocked_cells": len(result.UnlockedCells),
	})
	return nil
}

func (s *reconcilerService) Consume(ctx context.Context) error {
	messages, err := s.pubSub.Subscribe(ctx, s.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			s.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (s *reconcilerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload connectionClosedMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		s.logger.Error("Reconciler", "Dropping malformed message", map[string]interface{}{"error": err.Error()})
		msg.Ack()
		return
	}

	if err := s.Reconcile(ctx, payload.ConnectionId, payload.ClosedAt); err != nil {
		s.logger.Error("Reconciler", "Reconcile failed, will retry", map[string]interface{}{
			"connection_id": payload.ConnectionId,
			"error":         err.Error(),
		})
		select {
		case <-ctx.Done():
		case <-time.After(s.retryDelay):
		}
		msg.Nack()
		return
	}

	msg.Ack()
}
