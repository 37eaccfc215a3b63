package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mpesa-stk-gateway/internal/payment_gateway/middleware"
	"github.com/mpesa-stk-gateway/internal/stk"
)

// maxCallbackBytes bounds a callback body; real STK callbacks are a few KB
const maxCallbackBytes = 256 << 10

// CallbackHandler receives provider result notifications
type CallbackHandler struct {
	reconciler stk.Reconciler
	logger     *slog.Logger
}

func NewCallbackHandler(logger *slog.Logger, reconciler stk.Reconciler) *CallbackHandler {
	return &CallbackHandler{
		reconciler: reconciler,
		logger:     logger,
	}
}

// Receive acknowledges every JSON body with 200 so the provider stops retrying
func (h *CallbackHandler) Receive(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxCallbackBytes)
	body, err := c.GetRawData()
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		h.logger.Warn("Callback body exceeds size limit",
			"correlation_id", middleware.GetCorrelationID(c),
			"limit", tooLarge.Limit,
		)
		RespondError(c, http.StatusRequestEntityTooLarge, "Callback payload too large")
		return
	}
	if err != nil || !json.Valid(body) {
		h.logger.Warn("Callback body is not JSON",
			"correlation_id", middleware.GetCorrelationID(c),
			"size", len(body),
		)
		RespondBadRequest(c, "Invalid callback payload")
		return
	}

	// A provider disconnect must not abort a half-done finalize
	ctx := context.WithoutCancel(c.Request.Context())
	ack := h.reconciler.Reconcile(ctx, body)

	c.JSON(http.StatusOK, ack)
}
