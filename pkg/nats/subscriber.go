package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"harmony-api/internal/pkg/logger"
	"harmony-api/pkg/events"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// EventHandler is a function that processes an event.
type EventHandler func(ctx context.Context, event events.Event) error

// Subscriber handles listening for events from NATS.
type Subscriber struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	logger logger.ILogger
	cc     []jetstream.ConsumeContext
}

func NewSubscriber(url string, log logger.ILogger) (*Subscriber, error) {
	nc, js, err := connect(url)
	if err != nil {
		return nil, err
	}
	return &Subscriber{nc: nc, js: js, logger: log}, nil
}

// Subscribe registers a handler for a subject pattern. An empty durableName creates an
// ephemeral consumer that only sees new messages.
func (s *Subscriber) Subscribe(ctx context.Context, subject string, durableName string, handler EventHandler) error {
	cfg := jetstream.ConsumerConfig{
		Durable:       durableName,
		FilterSubject: subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
	}
	if durableName == "" {
		cfg.DeliverPolicy = jetstream.DeliverNewPolicy
	}

	consumer, err := s.js.CreateOrUpdateConsumer(ctx, StreamName, cfg)
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		var payload map[string]interface{}
		if err := json.Unmarshal(msg.Data(), &payload); err != nil {
			s.logger.Error("NATS", "Error unmarshalling event data", map[string]interface{}{
				"subject": msg.Subject(), "error": err.Error(),
			})
			msg.Term()
			return
		}

		err := handler(ctx, decodeEvent(msg, payload))
		if err != nil {
			s.logger.Error("NATS", "Handler failed for event", map[string]interface{}{
				"subject": msg.Subject(), "error": err.Error(),
			})
			msg.Nak()
			return
		}

		msg.Ack()
	})
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}
	s.cc = append(s.cc, cc)

	s.logger.Info("NATS", "Subscribed", map[string]interface{}{
		"subject": subject, "durable": durableName,
	})
	return nil
}

func decodeEvent(msg jetstream.Msg, payload map[string]interface{}) events.Envelope {
	eventType := msg.Headers().Get(headerEventType)
	if eventType == "" {
		eventType = strings.TrimPrefix(msg.Subject(), SubjectPrefix+".")
	}
	occurredAt, err := time.Parse(time.RFC3339Nano, msg.Headers().Get(headerOccurredAt))
	if err != nil {
		occurredAt = time.Now()
	}
	return events.Envelope{
		Type:       eventType,
		Data:       payload,
		OccurredAt: occurredAt,
	}
}

// Close stops every consumer and closes the connection.
func (s *Subscriber) Close() {
	for _, cc := range s.cc {
		cc.Stop()
	}
	if s.nc != nil {
		s.nc.Close()
	}
}
