package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mpesa-stk-gateway/internal/domain/payment"
	"github.com/mpesa-stk-gateway/internal/payment_gateway/service"
)

// TransactionHandler handles HTTP requests for transaction lookups
type TransactionHandler struct {
	transactionService service.TransactionService
	logger             *slog.Logger
}

// NewTransactionHandler creates a new transaction handler
func NewTransactionHandler(logger *slog.Logger, transactionService service.TransactionService) *TransactionHandler {
	return &TransactionHandler{
		transactionService: transactionService,
		logger:             logger,
	}
}

// GetByID returns the stored state of one push
func (h *TransactionHandler) GetByID(c *gin.Context) {
	checkoutRequestID := c.Param("checkoutRequestID")

	tx, err := h.transactionService.GetTransaction(c.Request.Context(), checkoutRequestID)
	if err != nil {
		var notFound payment.ErrTransactionNotFound
		if errors.As(err, &notFound) {
			RespondNotFound(c, "Transaction not found")
			return
		}
		RespondInternalError(c, "", "")
		return
	}

	RespondOK(c, mapTransactionToResponse(tx))
}

// GetCallbacks lists archived provider results for one push
func (h *TransactionHandler) GetCallbacks(c *gin.Context) {
	checkoutRequestID := c.Param("checkoutRequestID")

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			RespondValidationError(c, "limit", "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	records, err := h.transactionService.ListCallbacks(c.Request.Context(), checkoutRequestID, limit)
	if err != nil {
		if errors.Is(err, service.ErrArchiveDisabled) {
			RespondError(c, http.StatusServiceUnavailable, "Callback archive is not enabled")
			return
		}
		RespondInternalError(c, "", "")
		return
	}

	resp := CallbackListResponse{
		CheckoutRequestID: checkoutRequestID,
		Callbacks:         make([]CallbackRecordResponse, 0, len(records)),
	}
	for _, r := range records {
		resp.Callbacks = append(resp.Callbacks, mapCallbackRecordToResponse(r))
	}
	RespondOK(c, resp)
}
