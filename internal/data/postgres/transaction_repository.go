// Package postgres provides PostgreSQL implementations of the domain repositories.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/mpesa-stk-gateway/internal/domain/payment"
	"github.com/mpesa-stk-gateway/internal/domain/shared"
	"github.com/mpesa-stk-gateway/internal/platform/persistence"
	"github.com/shopspring/decimal"
)

// TransactionRepository implements the payment.Repository interface for PostgreSQL
type TransactionRepository struct {
	querier persistence.Querier // *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewTransactionRepository creates a new PostgreSQL transaction repository
func NewTransactionRepository(logger *slog.Logger, db *persistence.PostgresDB) payment.Repository {
	return &TransactionRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx returns a repository bound to tx
func (r *TransactionRepository) WithTx(tx pgx.Tx) payment.Repository {
	return &TransactionRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// CreatePending inserts the pending row. A callback that raced ahead of us may already
// have finalized the same id, in which case the insert is a no-op.
func (r *TransactionRepository) CreatePending(ctx context.Context, t *payment.Transaction) error {
	query := `
		INSERT INTO transactions (checkout_request_id, merchant_request_id, business_id, account_reference,
			phone_number, amount, result_code, result_desc, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (checkout_request_id) DO NOTHING
	`

	result, err := r.querier.Exec(ctx, query,
		t.CheckoutRequestID,
		t.MerchantRequestID,
		t.BusinessID,
		t.AccountReference,
		t.PhoneNumber,
		amountArg(t.Amount),
		t.ResultCode,
		t.ResultDesc,
		t.Status,
		t.CreatedAt,
		t.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create pending transaction",
			"checkout_request_id", t.CheckoutRequestID,
			"error", err,
		)
		return fmt.Errorf("failed to create pending transaction: %w", err)
	}

	if result.RowsAffected() == 0 {
		r.logger.Warn("Pending transaction not inserted, row already exists",
			"checkout_request_id", t.CheckoutRequestID,
		)
	}
	return nil
}

// GetByCheckoutRequestID retrieves a transaction by its correlation id
func (r *TransactionRepository) GetByCheckoutRequestID(ctx context.Context, checkoutRequestID string) (*payment.Transaction, error) {
	query := `
		SELECT checkout_request_id, merchant_request_id, business_id, account_reference, phone_number, amount,
			result_code, result_desc, mpesa_receipt_number, transaction_date, callback_raw, status, created_at, updated_at
		FROM transactions
		WHERE checkout_request_id = $1
	`

	t, err := scanTransaction(r.querier.QueryRow(ctx, query, checkoutRequestID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, payment.ErrTransactionNotFound{CheckoutRequestID: checkoutRequestID}
		}
		r.logger.Error("Failed to get transaction", "checkout_request_id", checkoutRequestID, "error", err)
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return t, nil
}

// GetPendingByCheckoutRequestID retrieves the row only while it is still pending
func (r *TransactionRepository) GetPendingByCheckoutRequestID(ctx context.Context, checkoutRequestID string) (*payment.Transaction, error) {
	query := `
		SELECT checkout_request_id, merchant_request_id, business_id, account_reference, phone_number, amount,
			result_code, result_desc, mpesa_receipt_number, transaction_date, callback_raw, status, created_at, updated_at
		FROM transactions
		WHERE checkout_request_id = $1 AND status = $2
	`

	t, err := scanTransaction(r.querier.QueryRow(ctx, query, checkoutRequestID, shared.TransactionStatusPending))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, payment.ErrTransactionNotFound{CheckoutRequestID: checkoutRequestID}
		}
		r.logger.Error("Failed to get pending transaction", "checkout_request_id", checkoutRequestID, "error", err)
		return nil, fmt.Errorf("failed to get pending transaction: %w", err)
	}
	return t, nil
}

// ListStalePending returns the oldest pending rows created before olderThan
func (r *TransactionRepository) ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]*payment.Transaction, error) {
	query := `
		SELECT checkout_request_id, merchant_request_id, business_id, account_reference, phone_number, amount,
			result_code, result_desc, mpesa_receipt_number, transaction_date, callback_raw, status, created_at, updated_at
		FROM transactions
		WHERE status = $1 AND created_at < $2
		ORDER BY created_at ASC
		LIMIT $3
	`

	rows, err := r.querier.Query(ctx, query, shared.TransactionStatusPending, olderThan, limit)
	if err != nil {
		r.logger.Error("Failed to list stale pending transactions", "error", err)
		return nil, fmt.Errorf("failed to list stale pending transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*payment.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			r.logger.Error("Failed to scan pending transaction", "error", err)
			return nil, fmt.Errorf("failed to scan pending transaction: %w", err)
		}
		transactions = append(transactions, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over pending transactions: %w", err)
	}

	return transactions, nil
}

// Finalize inserts or completes the row for t.CheckoutRequestID. The WHERE guard keeps a
// terminal row untouched, so a redelivered callback affects zero rows. Empty phone and amount
// from a metadata-less callback keep the values stored at initiation, and a defaulted business
// never replaces the one recorded on the pending row.
func (r *TransactionRepository) Finalize(ctx context.Context, t *payment.Transaction) (bool, error) {
	query := `
		INSERT INTO transactions (checkout_request_id, merchant_request_id, business_id, account_reference,
			phone_number, amount, result_code, result_desc, mpesa_receipt_number, transaction_date, callback_raw,
			status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)
		ON CONFLICT (checkout_request_id) DO UPDATE SET
			merchant_request_id = EXCLUDED.merchant_request_id,
			business_id = CASE WHEN $14::boolean THEN transactions.business_id ELSE EXCLUDED.business_id END,
			account_reference = CASE WHEN $14::boolean AND transactions.account_reference <> ''
				THEN transactions.account_reference ELSE EXCLUDED.account_reference END,
			phone_number = COALESCE(NULLIF(EXCLUDED.phone_number, ''), transactions.phone_number),
			amount = COALESCE(EXCLUDED.amount, transactions.amount),
			result_code = EXCLUDED.result_code,
			result_desc = EXCLUDED.result_desc,
			mpesa_receipt_number = EXCLUDED.mpesa_receipt_number,
			transaction_date = EXCLUDED.transaction_date,
			callback_raw = EXCLUDED.callback_raw,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at
		WHERE transactions.status = 'pending'
	`

	result, err := r.querier.Exec(ctx, query,
		t.CheckoutRequestID,
		t.MerchantRequestID,
		t.BusinessID,
		t.AccountReference,
		t.PhoneNumber,
		amountArg(t.Amount),
		t.ResultCode,
		t.ResultDesc,
		t.MpesaReceiptNumber,
		t.TransactionDate,
		rawArg(t.CallbackRaw),
		t.Status,
		t.UpdatedAt,
		t.BusinessDefaulted,
	)
	if err != nil {
		r.logger.Error("Failed to finalize transaction",
			"checkout_request_id", t.CheckoutRequestID,
			"status", string(t.Status),
			"error", err,
		)
		return false, fmt.Errorf("failed to finalize transaction: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

func scanTransaction(row pgx.Row) (*payment.Transaction, error) {
	var (
		t      payment.Transaction
		amount decimal.NullDecimal
		raw    []byte
	)
	err := row.Scan(
		&t.CheckoutRequestID,
		&t.MerchantRequestID,
		&t.BusinessID,
		&t.AccountReference,
		&t.PhoneNumber,
		&amount,
		&t.ResultCode,
		&t.ResultDesc,
		&t.MpesaReceiptNumber,
		&t.TransactionDate,
		&raw,
		&t.Status,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if amount.Valid {
		t.Amount = amount.Decimal
	}
	if len(raw) > 0 {
		t.CallbackRaw = json.RawMessage(raw)
	}
	return &t, nil
}

// amountArg stores an unknown (zero) amount as NULL
func amountArg(amount decimal.Decimal) interface{} {
	if amount.IsZero() {
		return nil
	}
	return amount.String()
}

func rawArg(raw json.RawMessage) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
