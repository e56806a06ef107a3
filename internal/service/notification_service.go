package service

import (
	"context"
	"time"

	"actually-colab-be/internal/pkg/logger"
	"actually-colab-be/internal/pkg/mailer"
	"actually-colab-be/pkg/events"
	pktNats "actually-colab-be/pkg/nats"
)

const shareMailerDurable = "notebook-share-mailer"

type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type EventSubscriber interface {
	Subscribe(eventType string, durableName string, handler pktNats.EventHandler) error
}

// INotificationService emails invitees when a notebook is shared. Sharing
// never waits on it.
type INotificationService interface {
	NotebookShared(evt events.NotebookShared)
	Start() error
}

type NotificationService struct {
	publisher  EventPublisher
	subscriber EventSubscriber
	mailer     mailer.IEmailService
	logger     logger.ILogger
}

// NewNotificationService accepts nil publisher and subscriber; without a bus
// the email is sent in-process.
func NewNotificationService(publisher EventPublisher, subscriber EventSubscriber, mail mailer.IEmailService, log logger.ILogger) *NotificationService {
	return &NotificationService{
		publisher:  publisher,
		subscriber: subscriber,
		mailer:     mail,
		logger:     log,
	}
}

func (s *NotificationService) Start() error {
	if s.subscriber == nil {
		s.logger.Info("NotificationService", "No event bus, share emails are sent in-process", nil)
		return nil
	}
	if err := s.subscriber.Subscribe(events.TypeNotebookShared, shareMailerDurable, s.handleEvent); err != nil {
		return err
	}
	s.logger.Info("NotificationService", "Listening for shared notebooks", nil)
	return nil
}

func (s *NotificationService) NotebookShared(evt events.NotebookShared) {
	go func() {
		if s.publisher != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			err := s.publisher.Publish(ctx, evt)
			if err == nil {
				return
			}
			s.logger.Warn("NotificationService", "Publish failed, sending directly", map[string]interface{}{
				"notebook_id": evt.NotebookId,
				"error":       err.Error(),
			})
		}
		if err := s.deliver(evt); err != nil {
			s.logger.Error("NotificationService", "Failed to send share email", map[string]interface{}{
				"notebook_id": evt.NotebookId,
				"error":       err.Error(),
			})
		}
	}()
}

func (s *NotificationService) handleEvent(ctx context.Context, event events.Event) error {
	evt, err := events.NotebookSharedFrom(event)
	if err != nil {
		s.logger.Warn("NotificationService", "Skipping malformed event", map[string]interface{}{"error": err.Error()})
		return nil
	}
	return s.deliver(evt)
}

func (s *NotificationService) deliver(evt events.NotebookShared) error {
	if !s.mailer.Enabled() {
		s.logger.Debug("NotificationService", "Mailer disabled, skipping share email", map[string]interface{}{
			"notebook_id": evt.NotebookId,
		})
		return nil
	}
	if err := s.mailer.SendNotebookShared(evt.Emails, evt.SharerName, evt.NotebookName, evt.AccessLevel); err != nil {
		return err
	}
	s.logger.Info("NotificationService", "Share email sent", map[string]interface{}{
		"notebook_id": evt.NotebookId,
		"recipients":  len(evt.Emails),
	})
	return nil
}
