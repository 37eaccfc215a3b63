package stk

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/mpesa-stk-gateway/internal/domain/callback"
	"github.com/mpesa-stk-gateway/internal/domain/payment"
	"github.com/mpesa-stk-gateway/internal/metrics"
	"github.com/mpesa-stk-gateway/internal/platform/mpesa"
	"github.com/shopspring/decimal"
)

// Acknowledgement texts returned to the provider
const (
	AckReceived      = "Callback received"
	AckStored        = "Callback received successfully"
	AckStorageFailed = "Callback received but database storage failed"
)

// AckResponse is the body the provider expects back. ResultCode is always 0 so the
// provider never retries a callback we already hold.
type AckResponse struct {
	ResultCode int    `json:"ResultCode"`
	ResultDesc string `json:"ResultDesc"`
}

// FinalizeResult describes what a Finalize call did
type FinalizeResult struct {
	Transaction *payment.Transaction
	Applied     bool
}

type ReconcilerImpl struct {
	txRepo            payment.Repository
	finalizer         Finalizer
	archive           callback.Repository
	dlq               DeadLetterPublisher
	defaultBusinessID string
	logger            *slog.Logger
	now               func() time.Time
}

// NewReconciler wires the callback path. archive and dlq are optional.
func NewReconciler(
	txRepo payment.Repository,
	finalizer Finalizer,
	archive callback.Repository,
	dlq DeadLetterPublisher,
	defaultBusinessID string,
	logger *slog.Logger,
) Reconciler {
	return &ReconcilerImpl{
		txRepo:            txRepo,
		finalizer:         finalizer,
		archive:           archive,
		dlq:               dlq,
		defaultBusinessID: defaultBusinessID,
		logger:            logger,
		now:               time.Now,
	}
}

func (r *ReconcilerImpl) Reconcile(ctx context.Context, raw []byte) AckResponse {
	cb, err := mpesa.ParseCallback(raw)
	if err != nil {
		r.handleMalformed(ctx, raw, err)
		return AckResponse{ResultCode: 0, ResultDesc: AckReceived}
	}

	if _, err := r.Finalize(ctx, cb, raw, callback.SourceCallback); err != nil {
		return AckResponse{ResultCode: 0, ResultDesc: AckStorageFailed}
	}
	return AckResponse{ResultCode: 0, ResultDesc: AckStored}
}

func (r *ReconcilerImpl) Finalize(ctx context.Context, cb *mpesa.Callback, raw []byte, source callback.Source) (*FinalizeResult, error) {
	logger := r.logger.With("checkout_request_id", cb.CheckoutRequestID, "source", string(source))

	businessID, accountReference, defaulted := r.resolveAccount(ctx, logger, cb)
	status := payment.StatusForResultCode(cb.ResultCode)
	metrics.Callbacks.WithLabelValues(string(status)).Inc()

	now := r.now().UTC()
	txn := &payment.Transaction{
		CheckoutRequestID:  cb.CheckoutRequestID,
		MerchantRequestID:  cb.MerchantRequestID,
		BusinessID:         businessID,
		AccountReference:   accountReference,
		PhoneNumber:        cb.Metadata["PhoneNumber"],
		Amount:             metadataAmount(cb.Metadata["Amount"]),
		ResultCode:         cb.ResultCode,
		ResultDesc:         cb.ResultDesc,
		MpesaReceiptNumber: cb.Metadata["MpesaReceiptNumber"],
		TransactionDate:    cb.Metadata["TransactionDate"],
		Status:             status,
		CreatedAt:          now,
		UpdatedAt:          now,
		BusinessDefaulted:  defaulted,
	}
	if json.Valid(raw) {
		txn.CallbackRaw = json.RawMessage(raw)
	}

	applied, err := r.finalizer.Finalize(ctx, txn)
	outcome := callback.OutcomeFinalized
	switch {
	case err != nil:
		outcome = callback.OutcomeStorageFailed
		metrics.FinalizeResults.WithLabelValues("failed").Inc()
		logger.Error("Failed to finalize transaction", "status", string(status), "error", err)
	case !applied:
		outcome = callback.OutcomeDuplicate
		metrics.FinalizeResults.WithLabelValues("duplicate").Inc()
		logger.Info("Transaction already finalized, callback ignored", "status", string(status))
	default:
		metrics.FinalizeResults.WithLabelValues("applied").Inc()
		logger.Info("Transaction finalized",
			"business_id", businessID,
			"status", string(status),
			"result_code", cb.ResultCode,
		)
	}

	code := cb.ResultCode
	r.archiveCallback(ctx, &callback.Record{
		CheckoutRequestID: cb.CheckoutRequestID,
		MerchantRequestID: cb.MerchantRequestID,
		ResultCode:        &code,
		BusinessID:        businessID,
		Outcome:           outcome,
		Source:            source,
		Payload:           string(raw),
		ReceivedAt:        now,
	})

	if err != nil {
		return nil, err
	}
	return &FinalizeResult{Transaction: txn, Applied: applied}, nil
}

// resolveAccount decodes the echoed account token. When it carries no business, the
// pending row written at initiation supplies it, then the configured default. The last
// result reports that the default was applied.
func (r *ReconcilerImpl) resolveAccount(ctx context.Context, logger *slog.Logger, cb *mpesa.Callback) (string, string, bool) {
	tokenValue, fromMetadata := cb.AccountReference()
	token, resolved := payment.DecodeAccountToken(tokenValue)
	if resolved {
		return token.BusinessID, token.AccountReference, false
	}

	pending, err := r.txRepo.GetPendingByCheckoutRequestID(ctx, cb.CheckoutRequestID)
	if err == nil && pending.BusinessID != "" {
		accountReference := token.AccountReference
		if !fromMetadata && pending.AccountReference != "" {
			accountReference = pending.AccountReference
		}
		logger.Info("Business resolved from pending transaction", "business_id", pending.BusinessID)
		return pending.BusinessID, accountReference, false
	}
	if err != nil {
		var notFound payment.ErrTransactionNotFound
		if !errors.As(err, &notFound) {
			logger.Warn("Pending transaction lookup failed", "error", err)
		}
	}

	logger.Warn("Business unresolved, applying default", "business_id", r.defaultBusinessID)
	return r.defaultBusinessID, token.AccountReference, true
}

func (r *ReconcilerImpl) handleMalformed(ctx context.Context, raw []byte, cause error) {
	r.logger.Warn("Malformed callback received", "error", cause, "size", len(raw))
	metrics.Callbacks.WithLabelValues(string(callback.OutcomeMalformed)).Inc()

	if r.dlq != nil {
		if err := r.dlq.PublishToDLQ(ctx, "", raw, cause.Error()); err != nil {
			r.logger.Error("Failed to dead-letter malformed callback", "error", err)
		}
	}

	r.archiveCallback(ctx, &callback.Record{
		Outcome:    callback.OutcomeMalformed,
		Source:     callback.SourceCallback,
		Payload:    string(raw),
		ReceivedAt: r.now().UTC(),
	})
}

func (r *ReconcilerImpl) archiveCallback(ctx context.Context, record *callback.Record) {
	if r.archive == nil {
		return
	}
	if err := r.archive.Save(ctx, record); err != nil {
		r.logger.Warn("Failed to archive callback",
			"checkout_request_id", record.CheckoutRequestID,
			"error", err,
		)
	}
}

func metadataAmount(v string) decimal.Decimal {
	if v == "" {
		return decimal.Zero
	}
	amount, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero
	}
	return amount
}
