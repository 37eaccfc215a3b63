package producers

import (
	"context"

	"github.com/segmentio/kafka-go"
)

// MessagePublisher writes finalized transaction events to the events topic, keyed by
// CheckoutRequestID so every event for one payment lands on the same partition
type MessagePublisher interface {
	Publish(ctx context.Context, key string, value interface{}) error
	Close() error
}

// DeadLetterPublisher parks callback bodies that could not be parsed
type DeadLetterPublisher interface {
	PublishToDLQ(ctx context.Context, key string, rawCallback []byte, reason string) error
	Close() error
}

// KafkaWriter is the slice of *kafka.Writer the producers use, swapped out in tests
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}
