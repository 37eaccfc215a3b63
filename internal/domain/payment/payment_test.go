package payment

import (
	"testing"

	"github.com/mpesa-stk-gateway/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePhoneNumber(t *testing.T) {
	t.Run("AllAcceptedFormsNormalizeIdentically", func(t *testing.T) {
		for _, subscriber := range []string{"712345678", "722000111", "110123456"} {
			forms := []string{"0" + subscriber, "254" + subscriber, "+254" + subscriber, "  0" + subscriber + " "}
			for _, form := range forms {
				normalized, err := NormalizePhoneNumber(form)
				require.NoError(t, err, form)
				assert.Equal(t, "254"+subscriber, normalized, form)
			}
		}
	})

	t.Run("RejectsOutsideNumberingPlan", func(t *testing.T) {
		invalid := []string{
			"",
			"0812345678",    // bad trunk digit
			"071234567",     // too short
			"07123456789",   // too long
			"255712345678",  // other country
			"++254712345678",
			"0712 345 678",
			"07123abc78",
		}
		for _, raw := range invalid {
			_, err := NormalizePhoneNumber(raw)
			require.Error(t, err, raw)
			var phoneErr ErrInvalidPhoneNumber
			assert.ErrorAs(t, err, &phoneErr)
			assert.Equal(t, raw, phoneErr.PhoneNumber)
		}
	})
}

func TestAccountToken(t *testing.T) {
	t.Run("EncodeDecodeRoundTrip", func(t *testing.T) {
		token := EncodeAccountToken("caan-developers", "INV123")
		assert.Equal(t, "caan-developers:INV123", token)

		decoded, resolved := DecodeAccountToken(token)
		assert.True(t, resolved)
		assert.Equal(t, "caan-developers", decoded.BusinessID)
		assert.Equal(t, "INV123", decoded.AccountReference)
	})

	t.Run("SplitsOnFirstDelimiterOnly", func(t *testing.T) {
		decoded, resolved := DecodeAccountToken("taji-ai:order:42")
		assert.True(t, resolved)
		assert.Equal(t, "taji-ai", decoded.BusinessID)
		assert.Equal(t, "order:42", decoded.AccountReference)
	})

	t.Run("UnresolvedKeepsWholeToken", func(t *testing.T) {
		for _, token := range []string{"INV123", ":INV123", "taji-ai:", ":", "ws_CO_191220191020363925"} {
			decoded, resolved := DecodeAccountToken(token)
			assert.False(t, resolved, token)
			assert.Empty(t, decoded.BusinessID, token)
			assert.Equal(t, token, decoded.AccountReference, token)
		}
	})
}

func TestStatusForResultCode(t *testing.T) {
	testCases := []struct {
		code     int
		expected shared.TransactionStatus
	}{
		{0, shared.TransactionStatusCompleted},
		{1, shared.TransactionStatusInsufficientFunds},
		{2, shared.TransactionStatusInsufficientAmount},
		{17, shared.TransactionStatusCancelled},
		{99, shared.TransactionStatusFailed},
		{1032, shared.TransactionStatusFailed},
		{PendingResultCode, shared.TransactionStatusFailed},
	}
	for _, tc := range testCases {
		status := StatusForResultCode(tc.code)
		assert.Equal(t, tc.expected, status, "code %d", tc.code)
		assert.True(t, status.IsTerminal())
	}
}

func TestParseAmount(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		for raw, expected := range map[string]string{"1": "1", "100": "100", "99.50": "99.5", " 10 ": "10"} {
			amount, err := ParseAmount(raw)
			require.NoError(t, err, raw)
			assert.True(t, decimal.RequireFromString(expected).Equal(amount), raw)
		}
	})

	t.Run("Invalid", func(t *testing.T) {
		for _, raw := range []string{"", "0", "-5", "0.00", "abc", "10KES", "null"} {
			_, err := ParseAmount(raw)
			var amountErr ErrInvalidAmount
			assert.ErrorAs(t, err, &amountErr, raw)
		}
	})
}

func TestNewPendingTransaction(t *testing.T) {
	tx := NewPendingTransaction("ws_CO_1", "29115-34620561-1", "taji-ai", "INV9", "254712345678", decimal.NewFromInt(150))

	assert.Equal(t, shared.TransactionStatusPending, tx.Status)
	assert.Equal(t, PendingResultCode, tx.ResultCode)
	assert.Empty(t, tx.MpesaReceiptNumber)
	assert.Empty(t, tx.TransactionDate)
	assert.Nil(t, tx.CallbackRaw)
	assert.True(t, tx.IsPending())
	assert.False(t, tx.Status.IsTerminal())
	assert.False(t, tx.CreatedAt.IsZero())
}
