package outbox

import (
	"time"

	"github.com/google/uuid"
	"github.com/mpesa-stk-gateway/internal/domain/payment"
	"github.com/mpesa-stk-gateway/internal/domain/shared"
)

// TransactionEvent is published once a transaction reaches a terminal status
type TransactionEvent struct {
	EventID   uuid.UUID            `json:"event_id"`
	Event     string               `json:"event"`
	Timestamp time.Time            `json:"timestamp"`
	Data      TransactionEventData `json:"data"`
}

// TransactionEventData is the finalized transaction as seen by downstream consumers
type TransactionEventData struct {
	CheckoutRequestID  string `json:"checkout_request_id"`
	MerchantRequestID  string `json:"merchant_request_id"`
	BusinessID         string `json:"business_id"`
	AccountReference   string `json:"account_reference"`
	Status             string `json:"status"`
	Amount             string `json:"amount,omitempty"`
	PhoneNumber        string `json:"phone_number,omitempty"`
	MpesaReceiptNumber string `json:"mpesa_receipt_number,omitempty"`
	TransactionDate    string `json:"transaction_date,omitempty"`
	ResultCode         int    `json:"result_code"`
	ResultDesc         string `json:"result_desc"`
}

// NewTransactionEvent snapshots a finalized transaction
func NewTransactionEvent(t *payment.Transaction) *TransactionEvent {
	data := TransactionEventData{
		CheckoutRequestID:  t.CheckoutRequestID,
		MerchantRequestID:  t.MerchantRequestID,
		BusinessID:         t.BusinessID,
		AccountReference:   t.AccountReference,
		Status:             string(t.Status),
		PhoneNumber:        t.PhoneNumber,
		MpesaReceiptNumber: t.MpesaReceiptNumber,
		TransactionDate:    t.TransactionDate,
		ResultCode:         t.ResultCode,
		ResultDesc:         t.ResultDesc,
	}
	if !t.Amount.IsZero() {
		data.Amount = t.Amount.String()
	}

	return &TransactionEvent{
		EventID:   uuid.New(),
		Event:     shared.EventTypeTransactionStatusUpdated,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}
