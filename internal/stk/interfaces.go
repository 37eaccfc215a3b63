// Package stk is the payment request/callback correlation engine: the Initiator sends STK
// pushes and records them as pending, the Reconciler finalizes them from provider callbacks.
package stk

import (
	"context"

	"github.com/mpesa-stk-gateway/internal/domain/callback"
	"github.com/mpesa-stk-gateway/internal/domain/payment"
	"github.com/mpesa-stk-gateway/internal/platform/mpesa"
)

// Initiator validates a payment request and submits the push
type Initiator interface {
	Initiate(ctx context.Context, req *PaymentRequest) (*InitiateResult, error)
}

// Reconciler turns provider results into terminal transactions
type Reconciler interface {
	// Reconcile handles a raw callback body and always produces an acknowledgement
	Reconcile(ctx context.Context, raw []byte) AckResponse

	// Finalize applies an already parsed result, from a callback or a status query
	Finalize(ctx context.Context, cb *mpesa.Callback, raw []byte, source callback.Source) (*FinalizeResult, error)
}

// Provider is the subset of the Daraja client the Initiator needs
type Provider interface {
	AccessToken(ctx context.Context) (string, error)
	STKPush(ctx context.Context, token string, p mpesa.PushParams) (*mpesa.STKPushResponse, error)
}

// Finalizer persists a terminal transaction and its outbox event atomically
type Finalizer interface {
	Finalize(ctx context.Context, t *payment.Transaction) (bool, error)
}

// DeadLetterPublisher parks callbacks that cannot be processed
type DeadLetterPublisher interface {
	PublishToDLQ(ctx context.Context, key string, value []byte, reason string) error
}
