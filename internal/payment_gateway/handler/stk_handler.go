package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mpesa-stk-gateway/internal/payment_gateway/middleware"
	"github.com/mpesa-stk-gateway/internal/stk"
)

// STKHandler serves push initiation
type STKHandler struct {
	initiator stk.Initiator
	logger    *slog.Logger
}

func NewSTKHandler(logger *slog.Logger, initiator stk.Initiator) *STKHandler {
	return &STKHandler{
		initiator: initiator,
		logger:    logger,
	}
}

// Push validates the request and sends an STK push to the customer's phone
func (h *STKHandler) Push(c *gin.Context) {
	logger := h.logger.With("correlation_id", middleware.GetCorrelationID(c))

	var req STKPushRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid push request body", "error", err)
		RespondBadRequest(c, "Invalid request body")
		return
	}

	result, err := h.initiator.Initiate(c.Request.Context(), &stk.PaymentRequest{
		PhoneNumber:      req.MpesaNumber,
		Amount:           req.AmountText(),
		AccountReference: req.AccountReference,
		Description:      req.TransactionDesc,
		BusinessID:       req.BusinessID,
	})
	if err != nil {
		h.respondInitiateError(c, logger, err)
		return
	}

	RespondOK(c, STKPushResponse{
		Success:           true,
		Message:           "STK Push initiated successfully",
		CheckoutRequestID: result.CheckoutRequestID,
		RequestID:         result.MerchantRequestID,
		BusinessID:        result.BusinessID,
	})
}

func (h *STKHandler) respondInitiateError(c *gin.Context, logger *slog.Logger, err error) {
	var (
		validationErr *stk.ValidationError
		configErr     *stk.ConfigError
		providerErr   *stk.ProviderError
	)

	switch {
	case errors.As(err, &validationErr):
		logger.Info("Push request rejected", "field", validationErr.Field, "reason", validationErr.Message)
		RespondValidationError(c, validationErr.Field, validationErr.Message)

	case errors.As(err, &configErr):
		RespondInternalError(c, "Server configuration error", configErr.Error())

	case errors.As(err, &providerErr) && providerErr.Rejected():
		c.JSON(http.StatusBadRequest, STKPushRejectedResponse{
			Success:           false,
			Error:             "STK push rejected by M-Pesa",
			Message:           providerErr.Description,
			CheckoutRequestID: providerErr.CheckoutRequestID,
		})

	case errors.As(err, &providerErr):
		message := "Failed to initiate STK push"
		if providerErr.Stage == stk.StageToken {
			message = "Failed to obtain M-Pesa access token"
		}
		RespondInternalError(c, message, providerErr.Error())

	default:
		logger.Error("Push request failed", "error", err)
		RespondInternalError(c, "", "")
	}
}
