package payment

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

// Repository defines transaction persistence operations
type Repository interface {
	// CreatePending inserts a pending row; an existing row for the same id is left untouched
	CreatePending(ctx context.Context, t *Transaction) error

	GetByCheckoutRequestID(ctx context.Context, checkoutRequestID string) (*Transaction, error)
	GetPendingByCheckoutRequestID(ctx context.Context, checkoutRequestID string) (*Transaction, error)

	// ListStalePending returns pending rows created before olderThan, oldest first
	ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]*Transaction, error)

	// Finalize upserts the terminal record keyed by CheckoutRequestID.
	// It returns false when the stored row is already terminal and nothing changed.
	Finalize(ctx context.Context, t *Transaction) (bool, error)

	WithTx(tx pgx.Tx) Repository
}

// ErrTransactionNotFound indicates no row for the correlation id
type ErrTransactionNotFound struct {
	CheckoutRequestID string
}

func (e ErrTransactionNotFound) Error() string {
	return "transaction not found: " + e.CheckoutRequestID
}
