package outbox_poller

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mpesa-stk-gateway/internal/domain/outbox"
	"github.com/mpesa-stk-gateway/internal/domain/shared"
	"github.com/mpesa-stk-gateway/internal/metrics"
	"github.com/mpesa-stk-gateway/internal/platform/messaging/producers"
)

// EventPublisher relays one outbox message to the event bus
type EventPublisher interface {
	PublishEvent(ctx context.Context, message *outbox.Message) error
}

// ErrUndeliverable marks a message that can never be published; it is already parked
type ErrUndeliverable struct {
	ID  int64
	Err error
}

func (e ErrUndeliverable) Error() string {
	return fmt.Sprintf("outbox message %d is undeliverable: %v", e.ID, e.Err)
}

func (e ErrUndeliverable) Unwrap() error {
	return e.Err
}

type EventPublisherImpl struct {
	outboxRepo outbox.Repository
	producer   producers.MessagePublisher
	logger     *slog.Logger
}

func NewEventPublisher(
	outboxRepo outbox.Repository,
	producer producers.MessagePublisher,
	logger *slog.Logger,
) EventPublisher {
	return &EventPublisherImpl{
		outboxRepo: outboxRepo,
		producer:   producer,
		logger:     logger,
	}
}

// PublishEvent sends the stored payload keyed by CheckoutRequestID, then marks the message
// PROCESSED. A payload that does not decode is marked FAILED_TO_PUBLISH straight away.
func (p *EventPublisherImpl) PublishEvent(ctx context.Context, message *outbox.Message) error {
	logger := p.logger.With(
		"outbox_id", message.ID,
		"checkout_request_id", message.CheckoutRequestID,
	)

	if _, err := message.GetEvent(); err != nil {
		logger.Error("Failed to decode outbox payload", "error", err)
		metrics.OutboxPublished.WithLabelValues("undeliverable").Inc()
		if updateErr := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusFailedToPublish); updateErr != nil {
			logger.Error("Also failed to mark outbox message FAILED_TO_PUBLISH", "update_error", updateErr)
		}
		return ErrUndeliverable{ID: message.ID, Err: err}
	}

	if err := p.producer.Publish(ctx, message.CheckoutRequestID, json.RawMessage(message.Payload)); err != nil {
		metrics.OutboxPublished.WithLabelValues("failed").Inc()
		return fmt.Errorf("failed to publish outbox message %d: %w", message.ID, err)
	}
	metrics.OutboxPublished.WithLabelValues("published").Inc()

	// A failure here means the event goes out again on the next tick; consumers dedupe on event_id
	if err := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusProcessed); err != nil {
		logger.Error("Event published but failed to mark outbox message PROCESSED", "error", err)
		return fmt.Errorf("event for %s published, but failed to mark outbox %d as PROCESSED: %w", message.CheckoutRequestID, message.ID, err)
	}

	logger.Info("Transaction event published", "event_id", message.EventID.String(), "event_type", message.EventType)
	return nil
}
