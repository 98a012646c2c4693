// Package events publishes best-effort domain notifications. Delivery is
// fire-and-forget: the caller-facing response never waits on or fails
// because of the broker.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"
)

const (
	TopicUserRegistration = "user-registration-topic"
	TopicUserLogin        = "user-login-topic"
)

// UserEvent is the payload published on registration and login.
type UserEvent struct {
	UserID   uint   `json:"userId"`
	Username string `json:"username"`
}

type Publisher interface {
	Publish(ctx context.Context, topic string, payload interface{}) error
	Close() error
}

// KafkaPublisher writes through a single long-lived writer; connections are
// pooled by kafka-go rather than dialed per message.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.LeastBytes{},
			AllowAutoTopicCreation: true,
		},
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, topic string, payload interface{}) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Value: value,
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// LogPublisher stands in when no brokers are configured; events land in the
// structured log instead of a topic.
type LogPublisher struct{}

func (LogPublisher) Publish(_ context.Context, topic string, payload interface{}) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}
	slog.Info("event published", "topic", topic, "payload", string(value))
	return nil
}

func (LogPublisher) Close() error { return nil }
