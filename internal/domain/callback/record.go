// Package callback describes the archive of raw provider callbacks kept for audit and replay.
package callback

import (
	"context"
	"time"
)

// Outcome records what the reconciler did with a callback
type Outcome string

const (
	OutcomeFinalized     Outcome = "finalized"
	OutcomeDuplicate     Outcome = "duplicate"
	OutcomeStorageFailed Outcome = "storage_failed"
	OutcomeMalformed     Outcome = "malformed"
)

// Source distinguishes pushed callbacks from results fetched by the status sweep
type Source string

const (
	SourceCallback    Source = "callback"
	SourceStatusQuery Source = "status_query"
)

// Record is one archived callback body
type Record struct {
	ID                string    `bson:"_id" json:"id"`
	CheckoutRequestID string    `bson:"checkout_request_id" json:"checkout_request_id"`
	MerchantRequestID string    `bson:"merchant_request_id,omitempty" json:"merchant_request_id,omitempty"`
	ResultCode        *int      `bson:"result_code,omitempty" json:"result_code,omitempty"`
	BusinessID        string    `bson:"business_id,omitempty" json:"business_id,omitempty"`
	Outcome           Outcome   `bson:"outcome" json:"outcome"`
	Source            Source    `bson:"source" json:"source"`
	Payload           string    `bson:"payload" json:"payload"`
	ReceivedAt        time.Time `bson:"received_at" json:"received_at"`
}

// Repository persists archived callbacks
type Repository interface {
	Save(ctx context.Context, record *Record) error
	ListByCheckoutRequestID(ctx context.Context, checkoutRequestID string, limit int) ([]*Record, error)
}
