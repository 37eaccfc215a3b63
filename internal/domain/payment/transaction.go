// Package payment holds the STK push transaction aggregate and the rules that correlate a
// push request with its asynchronous callback.
package payment

import (
	"encoding/json"
	"time"

	"github.com/mpesa-stk-gateway/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Transaction is one STK push, keyed by the provider's CheckoutRequestID
type Transaction struct {
	CheckoutRequestID  string
	MerchantRequestID  string
	BusinessID         string
	AccountReference   string
	PhoneNumber        string
	Amount             decimal.Decimal
	ResultCode         int
	ResultDesc         string
	MpesaReceiptNumber string
	TransactionDate    string
	CallbackRaw        json.RawMessage
	Status             shared.TransactionStatus
	CreatedAt          time.Time
	UpdatedAt          time.Time

	// BusinessDefaulted marks a business id taken from configuration because neither the
	// account token nor the pending row supplied one. It is not stored; finalization keeps
	// an existing row's business and account reference when it is set.
	BusinessDefaulted bool
}

// NewPendingTransaction builds the record written right after the provider accepted a push.
func NewPendingTransaction(checkoutRequestID, merchantRequestID, businessID, accountReference, phoneNumber string, amount decimal.Decimal) *Transaction {
	now := time.Now().UTC()
	return &Transaction{
		CheckoutRequestID: checkoutRequestID,
		MerchantRequestID: merchantRequestID,
		BusinessID:        businessID,
		AccountReference:  accountReference,
		PhoneNumber:       phoneNumber,
		Amount:            amount,
		ResultCode:        PendingResultCode,
		ResultDesc:        "Awaiting callback",
		Status:            shared.TransactionStatusPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// IsPending reports whether the transaction is still waiting for its callback
func (t *Transaction) IsPending() bool {
	return t.Status == shared.TransactionStatusPending
}
