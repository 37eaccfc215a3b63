package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/mpesa-stk-gateway/internal/domain/shared"
)

// Message stores an event for reliable publishing after the database commit
type Message struct {
	ID                int64               `json:"id"`
	EventID           uuid.UUID           `json:"event_id"`
	CheckoutRequestID string              `json:"checkout_request_id"`
	BusinessID        string              `json:"business_id"`
	EventType         string              `json:"event_type"`
	Payload           json.RawMessage     `json:"payload"`
	Status            shared.OutboxStatus `json:"status"`
	Attempts          int                 `json:"attempts"`
	CreatedAt         time.Time           `json:"created_at"`
	LastAttemptAt     *time.Time          `json:"last_attempt_at,omitempty"`
}

func NewMessage(event *TransactionEvent) (*Message, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}

	return &Message{
		EventID:           event.EventID,
		CheckoutRequestID: event.Data.CheckoutRequestID,
		BusinessID:        event.Data.BusinessID,
		EventType:         event.Event,
		Payload:           payload,
		Status:            shared.OutboxStatusPending,
		CreatedAt:         time.Now(),
	}, nil
}

// GetEvent decodes the stored event
func (m *Message) GetEvent() (*TransactionEvent, error) {
	var event TransactionEvent
	if err := json.Unmarshal(m.Payload, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

// ExhaustedAfter reports whether one more failed attempt reaches maxAttempts
func (m *Message) ExhaustedAfter(maxAttempts int) bool {
	return m.Attempts+1 >= maxAttempts
}
