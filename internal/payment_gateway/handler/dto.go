package handler

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/mpesa-stk-gateway/internal/domain/callback"
	"github.com/mpesa-stk-gateway/internal/domain/payment"
)

// STKPushRequest is the push request body. Amount accepts a JSON number or a string.
type STKPushRequest struct {
	MpesaNumber      string          `json:"mpesa_number"`
	Amount           json.RawMessage `json:"amount"`
	AccountReference string          `json:"account_reference"`
	TransactionDesc  string          `json:"transaction_desc"`
	BusinessID       string          `json:"business_id"`
}

// AmountText returns the amount as written by the caller, or "" when absent or null
func (r *STKPushRequest) AmountText() string {
	raw := bytes.TrimSpace(r.Amount)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return s
	}
	return string(raw)
}

type STKPushResponse struct {
	Success           bool   `json:"success"`
	Message           string `json:"message"`
	CheckoutRequestID string `json:"checkoutRequestID"`
	RequestID         string `json:"requestID"`
	BusinessID        string `json:"businessId"`
}

// STKPushRejectedResponse is returned when the provider declined the push
type STKPushRejectedResponse struct {
	Success           bool   `json:"success"`
	Error             string `json:"error"`
	Message           string `json:"message"`
	CheckoutRequestID string `json:"checkoutRequestID,omitempty"`
}

// TransactionResponse represents a transaction in API responses
type TransactionResponse struct {
	CheckoutRequestID  string `json:"checkout_request_id"`
	MerchantRequestID  string `json:"merchant_request_id"`
	BusinessID         string `json:"business_id"`
	AccountReference   string `json:"account_reference"`
	PhoneNumber        string `json:"phone_number,omitempty"`
	Amount             string `json:"amount,omitempty"`
	Status             string `json:"status"`
	ResultCode         int    `json:"result_code"`
	ResultDesc         string `json:"result_desc"`
	MpesaReceiptNumber string `json:"mpesa_receipt_number,omitempty"`
	TransactionDate    string `json:"transaction_date,omitempty"`
	CreatedAt          string `json:"created_at"`
	UpdatedAt          string `json:"updated_at"`
}

// CallbackRecordResponse is one archived provider result
type CallbackRecordResponse struct {
	ID         string          `json:"id"`
	Outcome    string          `json:"outcome"`
	Source     string          `json:"source"`
	ResultCode *int            `json:"result_code,omitempty"`
	BusinessID string          `json:"business_id,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	ReceivedAt string          `json:"received_at"`
}

type CallbackListResponse struct {
	CheckoutRequestID string                   `json:"checkout_request_id"`
	Callbacks         []CallbackRecordResponse `json:"callbacks"`
}

func mapTransactionToResponse(t *payment.Transaction) TransactionResponse {
	resp := TransactionResponse{
		CheckoutRequestID:  t.CheckoutRequestID,
		MerchantRequestID:  t.MerchantRequestID,
		BusinessID:         t.BusinessID,
		AccountReference:   t.AccountReference,
		PhoneNumber:        t.PhoneNumber,
		Status:             string(t.Status),
		ResultCode:         t.ResultCode,
		ResultDesc:         t.ResultDesc,
		MpesaReceiptNumber: t.MpesaReceiptNumber,
		TransactionDate:    t.TransactionDate,
		CreatedAt:          t.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:          t.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if !t.Amount.IsZero() {
		resp.Amount = t.Amount.String()
	}
	return resp
}

func mapCallbackRecordToResponse(r *callback.Record) CallbackRecordResponse {
	resp := CallbackRecordResponse{
		ID:         r.ID,
		Outcome:    string(r.Outcome),
		Source:     string(r.Source),
		ResultCode: r.ResultCode,
		BusinessID: r.BusinessID,
		ReceivedAt: r.ReceivedAt.UTC().Format(time.RFC3339),
	}
	// Malformed bodies are kept in the archive but only valid JSON is echoed back
	if json.Valid([]byte(r.Payload)) {
		resp.Payload = json.RawMessage(r.Payload)
	}
	return resp
}
