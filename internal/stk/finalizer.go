package stk

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/mpesa-stk-gateway/internal/domain/outbox"
	"github.com/mpesa-stk-gateway/internal/domain/payment"
	"github.com/mpesa-stk-gateway/internal/platform/persistence"
)

type FinalizerImpl struct {
	db         persistence.TxRunner
	txRepo     payment.Repository
	outboxRepo outbox.Repository
	logger     *slog.Logger
}

func NewFinalizer(db persistence.TxRunner, txRepo payment.Repository, outboxRepo outbox.Repository, logger *slog.Logger) Finalizer {
	return &FinalizerImpl{
		db:         db,
		txRepo:     txRepo,
		outboxRepo: outboxRepo,
		logger:     logger,
	}
}

// Finalize upserts t and, when the row actually changed, queues a status event in the
// same database transaction. It returns false for a row that was already terminal.
func (f *FinalizerImpl) Finalize(ctx context.Context, t *payment.Transaction) (bool, error) {
	var applied bool

	err := f.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		changed, err := f.txRepo.WithTx(tx).Finalize(ctx, t)
		if err != nil {
			return err
		}
		if !changed {
			return nil
		}

		message, err := outbox.NewMessage(outbox.NewTransactionEvent(t))
		if err != nil {
			return fmt.Errorf("failed to build outbox message for %s: %w", t.CheckoutRequestID, err)
		}
		if err := f.outboxRepo.WithTx(tx).Create(ctx, message); err != nil {
			return err
		}

		applied = true
		f.logger.Debug("Outbox message queued",
			"checkout_request_id", t.CheckoutRequestID,
			"event_id", message.EventID.String(),
		)
		return nil
	})
	if err != nil {
		return false, &PersistenceError{Op: "finalize", Err: err}
	}

	return applied, nil
}
