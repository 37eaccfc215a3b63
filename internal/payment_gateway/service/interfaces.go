package service

import (
	"context"

	"github.com/mpesa-stk-gateway/internal/domain/callback"
	"github.com/mpesa-stk-gateway/internal/domain/payment"
)

// TransactionService exposes stored transactions to API clients
type TransactionService interface {
	// GetTransaction returns payment.ErrTransactionNotFound when nothing is stored under the id
	GetTransaction(ctx context.Context, checkoutRequestID string) (*payment.Transaction, error)

	// ListCallbacks returns archived provider results, newest first
	ListCallbacks(ctx context.Context, checkoutRequestID string, limit int) ([]*callback.Record, error)
}
