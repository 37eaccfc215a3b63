package stk

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/mpesa-stk-gateway/internal/config"
	"github.com/mpesa-stk-gateway/internal/domain/business"
	"github.com/mpesa-stk-gateway/internal/domain/payment"
	"github.com/mpesa-stk-gateway/internal/metrics"
	"github.com/mpesa-stk-gateway/internal/platform/mpesa"
	"github.com/shopspring/decimal"
)

// PaymentRequest is the caller's push request. Amount is the textual form of the JSON
// number or string the caller sent.
type PaymentRequest struct {
	PhoneNumber      string
	Amount           string
	AccountReference string
	Description      string
	BusinessID       string
}

type InitiateResult struct {
	CheckoutRequestID   string
	MerchantRequestID   string
	BusinessID          string
	PhoneNumber         string
	Amount              decimal.Decimal
	ResponseDescription string
	CustomerMessage     string
}

type InitiatorImpl struct {
	cfg          config.MpesaConfig
	businessRepo business.Repository
	txRepo       payment.Repository
	provider     Provider
	logger       *slog.Logger
	now          func() time.Time
}

func NewInitiator(
	cfg config.MpesaConfig,
	businessRepo business.Repository,
	txRepo payment.Repository,
	provider Provider,
	logger *slog.Logger,
) Initiator {
	return &InitiatorImpl{
		cfg:          cfg,
		businessRepo: businessRepo,
		txRepo:       txRepo,
		provider:     provider,
		logger:       logger,
		now:          time.Now,
	}
}

// Initiate validates req, sends the push and records the pending transaction.
// Returned errors are *ValidationError, *ConfigError, *ProviderError or *PersistenceError
// (business lookup failure only).
func (s *InitiatorImpl) Initiate(ctx context.Context, req *PaymentRequest) (*InitiateResult, error) {
	result, err := s.initiate(ctx, req)
	metrics.PushRequests.WithLabelValues(outcomeLabel(err)).Inc()
	return result, err
}

func (s *InitiatorImpl) initiate(ctx context.Context, req *PaymentRequest) (*InitiateResult, error) {
	logger := s.logger.With("business_id", req.BusinessID, "account_reference", req.AccountReference)

	if err := checkRequired(req); err != nil {
		return nil, err
	}

	if err := s.checkBusiness(ctx, req.BusinessID); err != nil {
		return nil, err
	}

	phone, err := payment.NormalizePhoneNumber(req.PhoneNumber)
	if err != nil {
		return nil, &ValidationError{Field: "mpesa_number", Message: "Invalid phone number format. Use 07XXXXXXXX, 01XXXXXXXX or 254XXXXXXXXX"}
	}

	amount, err := payment.ParseAmount(req.Amount)
	if err != nil {
		return nil, &ValidationError{Field: "amount", Message: "Amount must be a positive number"}
	}

	if missing := s.cfg.MissingCredentials(); len(missing) > 0 {
		logger.Error("M-Pesa credentials are not configured", "missing", missing)
		return nil, &ConfigError{Missing: missing}
	}

	token, err := s.provider.AccessToken(ctx)
	if err != nil {
		logger.Error("Failed to obtain M-Pesa access token", "error", err)
		return nil, providerError(StageToken, err)
	}

	res, err := s.provider.STKPush(ctx, token, mpesa.PushParams{
		PhoneNumber:      phone,
		Amount:           json.Number(amount.String()),
		AccountReference: payment.EncodeAccountToken(req.BusinessID, req.AccountReference),
		Description:      req.Description,
	})
	if err != nil {
		logger.Error("STK push request failed", "error", err)
		return nil, providerError(StagePush, err)
	}
	if !res.Accepted() {
		logger.Warn("STK push rejected by provider",
			"response_code", res.ResponseCode,
			"response_description", res.ResponseDescription,
			"checkout_request_id", res.CheckoutRequestID,
		)
		return nil, &ProviderError{
			Stage:             StagePush,
			StatusCode:        200,
			ResponseCode:      res.ResponseCode,
			Description:       res.ResponseDescription,
			CheckoutRequestID: res.CheckoutRequestID,
		}
	}

	logger = logger.With("checkout_request_id", res.CheckoutRequestID)
	logger.Info("STK push accepted", "merchant_request_id", res.MerchantRequestID)

	// The customer already has the prompt on their phone, so a failed insert must not
	// turn into a failed response.
	pending := payment.NewPendingTransaction(res.CheckoutRequestID, res.MerchantRequestID, req.BusinessID, req.AccountReference, phone, amount)
	now := s.now().UTC()
	pending.CreatedAt, pending.UpdatedAt = now, now
	if err := s.txRepo.CreatePending(ctx, pending); err != nil {
		perr := &PersistenceError{Op: "create_pending", Err: err}
		logger.Error("Failed to record pending transaction", "error", perr)
	}

	return &InitiateResult{
		CheckoutRequestID:   res.CheckoutRequestID,
		MerchantRequestID:   res.MerchantRequestID,
		BusinessID:          req.BusinessID,
		PhoneNumber:         phone,
		Amount:              amount,
		ResponseDescription: res.ResponseDescription,
		CustomerMessage:     res.CustomerMessage,
	}, nil
}

func checkRequired(req *PaymentRequest) error {
	fields := []struct {
		name  string
		value string
	}{
		{"mpesa_number", req.PhoneNumber},
		{"amount", req.Amount},
		{"account_reference", req.AccountReference},
		{"transaction_desc", req.Description},
		{"business_id", req.BusinessID},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return &ValidationError{Field: f.name, Message: "Missing required field: " + f.name}
		}
	}
	return nil
}

func (s *InitiatorImpl) checkBusiness(ctx context.Context, businessID string) error {
	b, err := s.businessRepo.GetByID(ctx, businessID)
	if err != nil {
		var notFound business.ErrBusinessNotFound
		if errors.As(err, &notFound) {
			return &ValidationError{Field: "business_id", Message: "Invalid or inactive business_id"}
		}
		s.logger.Error("Failed to look up business", "business_id", businessID, "error", err)
		return &PersistenceError{Op: "lookup_business", Err: err}
	}
	if !b.IsActive() {
		return &ValidationError{Field: "business_id", Message: "Invalid or inactive business_id"}
	}
	return nil
}

func providerError(stage string, err error) *ProviderError {
	perr := &ProviderError{Stage: stage, Err: err}
	var apiErr *mpesa.APIError
	if errors.As(err, &apiErr) {
		perr.StatusCode = apiErr.StatusCode
		perr.ResponseCode = apiErr.Code
		perr.Description = apiErr.Message
	}
	return perr
}

func outcomeLabel(err error) string {
	var (
		validationErr *ValidationError
		configErr     *ConfigError
		providerErr   *ProviderError
	)
	switch {
	case err == nil:
		return "success"
	case errors.As(err, &validationErr):
		return "validation_error"
	case errors.As(err, &configErr):
		return "config_error"
	case errors.As(err, &providerErr):
		return "provider_error"
	default:
		return "internal_error"
	}
}
