package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"actually-colab-be/pkg/events"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// EventHandler processes one event. A returned error redelivers the message.
type EventHandler func(ctx context.Context, event events.Event) error

type Subscriber struct {
	nc        *nats.Conn
	js        jetstream.JetStream
	consumers []jetstream.ConsumeContext
}

func NewSubscriber(url string) (*Subscriber, error) {
	nc, js, err := Connect(url)
	if err != nil {
		return nil, err
	}
	return &Subscriber{nc: nc, js: js}, nil
}

// Subscribe attaches a durable consumer for one event type.
func (s *Subscriber) Subscribe(eventType string, durableName string, handler EventHandler) error {
	ctx := context.Background()

	consumer, err := s.js.CreateOrUpdateConsumer(ctx, StreamName, jetstream.ConsumerConfig{
		Durable:       durableName,
		FilterSubject: Subject(eventType),
		AckPolicy:     jetstream.AckExplicitPolicy,
		MaxDeliver:    5,
		BackOff:       []time.Duration{time.Second, 5 * time.Second, 30 * time.Second},
	})
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		var payload map[string]interface{}
		if err := json.Unmarshal(msg.Data(), &payload); err != nil {
			// Poison message, redelivery would fail the same way.
			_ = msg.Term()
			return
		}

		occurredAt := time.Now()
		if raw := msg.Headers().Get("Occurred-At"); raw != "" {
			if t, err := time.Parse("2006-01-02T15:04:05.000Z07:00", raw); err == nil {
				occurredAt = t
			}
		}

		event := events.BaseEvent{
			Type:       eventType,
			Data:       payload,
			OccurredAt: occurredAt,
		}

		if err := handler(context.Background(), event); err != nil {
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	})
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	s.consumers = append(s.consumers, cc)
	return nil
}

func (s *Subscriber) Close() {
	for _, cc := range s.consumers {
		cc.Stop()
	}
	if s.nc != nil {
		s.nc.Close()
	}
}
