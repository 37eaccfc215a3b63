package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/mpesa-stk-gateway/internal/domain/payment"
	"github.com/mpesa-stk-gateway/internal/domain/shared"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

var transactionColumns = []string{
	"checkout_request_id", "merchant_request_id", "business_id", "account_reference", "phone_number", "amount",
	"result_code", "result_desc", "mpesa_receipt_number", "transaction_date", "callback_raw", "status",
	"created_at", "updated_at",
}

func TestTransactionRepository_CreatePending(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &TransactionRepository{querier: mock, logger: newTestLogger()}
	txn := payment.NewPendingTransaction("ws_CO_1", "29115-1", "caan-developers", "INV-1", "254712345678", decimal.NewFromInt(100))

	query := `INSERT INTO transactions .* ON CONFLICT \(checkout_request_id\) DO NOTHING`
	args := []interface{}{
		txn.CheckoutRequestID, txn.MerchantRequestID, txn.BusinessID, txn.AccountReference, txn.PhoneNumber,
		"100", payment.PendingResultCode, "Awaiting callback", shared.TransactionStatusPending,
		txn.CreatedAt, txn.UpdatedAt,
	}

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).WithArgs(args...).WillReturnResult(pgxmock.NewResult("INSERT", 1))

		assert.NoError(t, repo.CreatePending(ctx, txn))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("row already exists", func(t *testing.T) {
		mock.ExpectExec(query).WithArgs(args...).WillReturnResult(pgxmock.NewResult("INSERT", 0))

		assert.NoError(t, repo.CreatePending(ctx, txn))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failure", func(t *testing.T) {
		dbErr := errors.New("connection reset")
		mock.ExpectExec(query).WithArgs(args...).WillReturnError(dbErr)

		err := repo.CreatePending(ctx, txn)
		assert.ErrorIs(t, err, dbErr)
		assert.Contains(t, err.Error(), "failed to create pending transaction")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTransactionRepository_GetByCheckoutRequestID(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &TransactionRepository{querier: mock, logger: newTestLogger()}
	now := time.Now().UTC()
	raw := []byte(`{"Body":{"stkCallback":{"ResultCode":0}}}`)

	query := `SELECT .* FROM transactions WHERE checkout_request_id = \$1$`

	t.Run("success", func(t *testing.T) {
		rows := pgxmock.NewRows(transactionColumns).AddRow(
			"ws_CO_1", "29115-1", "caan-developers", "INV-1", "254712345678", "100.5",
			0, "The service request is processed successfully.", "NLJ7RT61SV", "20191219102115", raw,
			shared.TransactionStatusCompleted, now, now,
		)
		mock.ExpectQuery(query).WithArgs("ws_CO_1").WillReturnRows(rows)

		txn, err := repo.GetByCheckoutRequestID(ctx, "ws_CO_1")
		require.NoError(t, err)
		assert.Equal(t, "caan-developers", txn.BusinessID)
		assert.True(t, decimal.RequireFromString("100.5").Equal(txn.Amount))
		assert.Equal(t, "NLJ7RT61SV", txn.MpesaReceiptNumber)
		assert.Equal(t, shared.TransactionStatusCompleted, txn.Status)
		assert.JSONEq(t, string(raw), string(txn.CallbackRaw))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("null amount and payload", func(t *testing.T) {
		rows := pgxmock.NewRows(transactionColumns).AddRow(
			"ws_CO_2", "", "caan-developers", "ws_CO_2", "", nil,
			1032, "Request cancelled by user", "", "", nil,
			shared.TransactionStatusCancelled, now, now,
		)
		mock.ExpectQuery(query).WithArgs("ws_CO_2").WillReturnRows(rows)

		txn, err := repo.GetByCheckoutRequestID(ctx, "ws_CO_2")
		require.NoError(t, err)
		assert.True(t, txn.Amount.IsZero())
		assert.Nil(t, txn.CallbackRaw)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs("ws_CO_missing").WillReturnError(pgx.ErrNoRows)

		txn, err := repo.GetByCheckoutRequestID(ctx, "ws_CO_missing")
		assert.Nil(t, txn)
		var notFound payment.ErrTransactionNotFound
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, "ws_CO_missing", notFound.CheckoutRequestID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("some db error")
		mock.ExpectQuery(query).WithArgs("ws_CO_1").WillReturnError(dbErr)

		txn, err := repo.GetByCheckoutRequestID(ctx, "ws_CO_1")
		assert.Nil(t, txn)
		assert.ErrorIs(t, err, dbErr)
		assert.Contains(t, err.Error(), "failed to get transaction")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTransactionRepository_GetPendingByCheckoutRequestID(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &TransactionRepository{querier: mock, logger: newTestLogger()}
	now := time.Now().UTC()
	query := `WHERE checkout_request_id = \$1 AND status = \$2`

	t.Run("pending row", func(t *testing.T) {
		rows := pgxmock.NewRows(transactionColumns).AddRow(
			"ws_CO_1", "29115-1", "acme", "INV-9", "254712345678", "10",
			payment.PendingResultCode, "Awaiting callback", "", "", nil,
			shared.TransactionStatusPending, now, now,
		)
		mock.ExpectQuery(query).WithArgs("ws_CO_1", shared.TransactionStatusPending).WillReturnRows(rows)

		txn, err := repo.GetPendingByCheckoutRequestID(ctx, "ws_CO_1")
		require.NoError(t, err)
		assert.True(t, txn.IsPending())
		assert.Equal(t, "acme", txn.BusinessID)
		assert.Equal(t, "INV-9", txn.AccountReference)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no pending row", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs("ws_CO_1", shared.TransactionStatusPending).WillReturnError(pgx.ErrNoRows)

		_, err := repo.GetPendingByCheckoutRequestID(ctx, "ws_CO_1")
		assert.ErrorAs(t, err, &payment.ErrTransactionNotFound{})
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTransactionRepository_ListStalePending(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &TransactionRepository{querier: mock, logger: newTestLogger()}
	cutoff := time.Now().Add(-3 * time.Minute)
	created := cutoff.Add(-time.Minute)
	query := `WHERE status = \$1 AND created_at < \$2 ORDER BY created_at ASC LIMIT \$3`

	t.Run("success", func(t *testing.T) {
		rows := pgxmock.NewRows(transactionColumns).
			AddRow("ws_CO_1", "m1", "acme", "INV-1", "254712345678", "1",
				payment.PendingResultCode, "Awaiting callback", "", "", nil,
				shared.TransactionStatusPending, created, created).
			AddRow("ws_CO_2", "m2", "acme", "INV-2", "254712345679", "2",
				payment.PendingResultCode, "Awaiting callback", "", "", nil,
				shared.TransactionStatusPending, created, created)
		mock.ExpectQuery(query).WithArgs(shared.TransactionStatusPending, cutoff, 50).WillReturnRows(rows)

		txns, err := repo.ListStalePending(ctx, cutoff, 50)
		require.NoError(t, err)
		require.Len(t, txns, 2)
		assert.Equal(t, "ws_CO_1", txns[0].CheckoutRequestID)
		assert.Equal(t, "ws_CO_2", txns[1].CheckoutRequestID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("query error", func(t *testing.T) {
		dbErr := errors.New("timeout")
		mock.ExpectQuery(query).WithArgs(shared.TransactionStatusPending, cutoff, 50).WillReturnError(dbErr)

		txns, err := repo.ListStalePending(ctx, cutoff, 50)
		assert.Nil(t, txns)
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTransactionRepository_Finalize(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &TransactionRepository{querier: mock, logger: newTestLogger()}
	now := time.Now().UTC()
	raw := json.RawMessage(`{"Body":{}}`)
	txn := &payment.Transaction{
		CheckoutRequestID:  "ws_CO_1",
		MerchantRequestID:  "29115-1",
		BusinessID:         "acme",
		AccountReference:   "INV-1",
		PhoneNumber:        "254712345678",
		Amount:             decimal.NewFromInt(1),
		ResultCode:         0,
		ResultDesc:         "The service request is processed successfully.",
		MpesaReceiptNumber: "NLJ7RT61SV",
		TransactionDate:    "20191219102115",
		CallbackRaw:        raw,
		Status:             shared.TransactionStatusCompleted,
		UpdatedAt:          now,
	}

	query := `ON CONFLICT \(checkout_request_id\) DO UPDATE SET .* WHERE transactions.status = 'pending'`
	args := []interface{}{
		"ws_CO_1", "29115-1", "acme", "INV-1", "254712345678", "1", 0,
		"The service request is processed successfully.", "NLJ7RT61SV", "20191219102115", string(raw),
		shared.TransactionStatusCompleted, now, false,
	}

	t.Run("applied", func(t *testing.T) {
		mock.ExpectExec(query).WithArgs(args...).WillReturnResult(pgxmock.NewResult("INSERT", 1))

		applied, err := repo.Finalize(ctx, txn)
		require.NoError(t, err)
		assert.True(t, applied)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already terminal", func(t *testing.T) {
		mock.ExpectExec(query).WithArgs(args...).WillReturnResult(pgxmock.NewResult("INSERT", 0))

		applied, err := repo.Finalize(ctx, txn)
		require.NoError(t, err)
		assert.False(t, applied)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown amount stored as null", func(t *testing.T) {
		cancelled := *txn
		cancelled.Amount = decimal.Zero
		cancelled.PhoneNumber = ""
		cancelled.CallbackRaw = nil
		cancelled.Status = shared.TransactionStatusCancelled

		mock.ExpectExec(query).
			WithArgs("ws_CO_1", "29115-1", "acme", "INV-1", "", nil, 0,
				"The service request is processed successfully.", "NLJ7RT61SV", "20191219102115", nil,
				shared.TransactionStatusCancelled, now, false).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		applied, err := repo.Finalize(ctx, &cancelled)
		require.NoError(t, err)
		assert.True(t, applied)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("defaulted business keeps the pending row's business", func(t *testing.T) {
		defaulted := *txn
		defaulted.BusinessID = "caan-developers"
		defaulted.AccountReference = "ws_CO_1"
		defaulted.BusinessDefaulted = true

		guardedQuery := `business_id = CASE WHEN \$14::boolean THEN transactions.business_id ELSE EXCLUDED.business_id END`
		mock.ExpectExec(guardedQuery).
			WithArgs("ws_CO_1", "29115-1", "caan-developers", "ws_CO_1", "254712345678", "1", 0,
				"The service request is processed successfully.", "NLJ7RT61SV", "20191219102115", string(raw),
				shared.TransactionStatusCompleted, now, true).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		applied, err := repo.Finalize(ctx, &defaulted)
		require.NoError(t, err)
		assert.True(t, applied)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failure", func(t *testing.T) {
		dbErr := errors.New("deadlock detected")
		mock.ExpectExec(query).WithArgs(args...).WillReturnError(dbErr)

		applied, err := repo.Finalize(ctx, txn)
		assert.False(t, applied)
		assert.ErrorIs(t, err, dbErr)
		assert.Contains(t, err.Error(), "failed to finalize transaction")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTransactionRepository_WithTx(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	repo := &TransactionRepository{querier: mock, logger: newTestLogger()}
	txRepo, ok := repo.WithTx(tx).(*TransactionRepository)
	require.True(t, ok)
	assert.Equal(t, tx, txRepo.querier)
	assert.Equal(t, repo.logger, txRepo.logger)
}
