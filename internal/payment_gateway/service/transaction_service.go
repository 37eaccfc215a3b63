package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mpesa-stk-gateway/internal/domain/callback"
	"github.com/mpesa-stk-gateway/internal/domain/payment"
)

// ErrArchiveDisabled is returned by ListCallbacks when no callback archive is configured
var ErrArchiveDisabled = errors.New("callback archive is not configured")

const maxCallbackListLimit = 100

type TransactionServiceImpl struct {
	txRepo  payment.Repository
	archive callback.Repository
	logger  *slog.Logger
}

// NewTransactionService creates the lookup service. archive may be nil.
func NewTransactionService(logger *slog.Logger, txRepo payment.Repository, archive callback.Repository) TransactionService {
	return &TransactionServiceImpl{
		txRepo:  txRepo,
		archive: archive,
		logger:  logger,
	}
}

func (s *TransactionServiceImpl) GetTransaction(ctx context.Context, checkoutRequestID string) (*payment.Transaction, error) {
	tx, err := s.txRepo.GetByCheckoutRequestID(ctx, checkoutRequestID)
	if err != nil {
		var notFound payment.ErrTransactionNotFound
		if !errors.As(err, &notFound) {
			s.logger.Error("Failed to get transaction", "checkout_request_id", checkoutRequestID, "error", err)
		}
		return nil, err
	}
	return tx, nil
}

func (s *TransactionServiceImpl) ListCallbacks(ctx context.Context, checkoutRequestID string, limit int) ([]*callback.Record, error) {
	if s.archive == nil {
		return nil, ErrArchiveDisabled
	}
	if limit <= 0 || limit > maxCallbackListLimit {
		limit = maxCallbackListLimit
	}

	records, err := s.archive.ListByCheckoutRequestID(ctx, checkoutRequestID, limit)
	if err != nil {
		s.logger.Error("Failed to list archived callbacks", "checkout_request_id", checkoutRequestID, "error", err)
		return nil, err
	}
	return records, nil
}
