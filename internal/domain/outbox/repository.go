package outbox

import (
	"context"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/mpesa-stk-gateway/internal/domain/shared"
)

// Repository stores status events queued by finalization until the worker relays them
type Repository interface {
	// Create is called with a repository bound to the finalizing transaction
	Create(ctx context.Context, message *Message) error

	// GetPending returns PENDING messages oldest first
	GetPending(ctx context.Context, limit int) ([]*Message, error)

	UpdateStatus(ctx context.Context, id int64, status shared.OutboxStatus) error
	IncrementAttempts(ctx context.Context, id int64) error
	WithTx(tx pgx.Tx) Repository
}

// ErrMessageNotFound indicates missing outbox message
type ErrMessageNotFound struct {
	ID int64
}

func (e ErrMessageNotFound) Error() string {
	return "outbox message not found: " + strconv.FormatInt(e.ID, 10)
}
