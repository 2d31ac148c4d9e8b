package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/campus-exams/exam-service/internal/config"
)

// kafkaPublisher publishes events to Kafka through watermill.
type kafkaPublisher struct {
	publisher message.Publisher
	topic     string
	logger    *slog.Logger
}

// NewKafkaPublisher connects to the configured brokers. Returns an error
// when no brokers are configured; callers should fall back to the noop
// publisher in that case.
func NewKafkaPublisher(cfg config.KafkaConfig, logger *slog.Logger) (EventPublisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("no kafka brokers configured")
	}

	publisher, err := kafka.NewPublisher(
		kafka.PublisherConfig{
			Brokers:   cfg.Brokers,
			Marshaler: kafka.DefaultMarshaler{},
		},
		watermill.NewSlogLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka publisher: %w", err)
	}

	return &kafkaPublisher{
		publisher: publisher,
		topic:     cfg.Topic,
		logger:    logger,
	}, nil
}

func (p *kafkaPublisher) Publish(ctx context.Context, event *Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(event.ID, payload)
	msg.Metadata.Set("event_type", event.Type)
	msg.Metadata.Set("source", event.Source)
	msg.SetContext(ctx)

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		return fmt.Errorf("failed to publish event %s: %w", event.Type, err)
	}

	p.logger.Debug("event published", "event_id", event.ID, "event_type", event.Type, "topic", p.topic)
	return nil
}

func (p *kafkaPublisher) Close() error {
	return p.publisher.Close()
}

// noopPublisher drops events. Used when no event bus is configured so the
// service keeps working in standalone deployments.
type noopPublisher struct{}

func NewNoopPublisher() EventPublisher { return noopPublisher{} }

func (noopPublisher) Publish(ctx context.Context, event *Event) error { return nil }
func (noopPublisher) Close() error                                    { return nil }
