package payment

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidAmount indicates a missing, non-numeric or non-positive amount
type ErrInvalidAmount struct {
	Value string
}

func (e ErrInvalidAmount) Error() string {
	return "amount must be a positive number, got " + quoteOrEmpty(e.Value)
}

// ParseAmount accepts the textual form of a JSON number or numeric string
func ParseAmount(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil || !amount.IsPositive() {
		return decimal.Zero, ErrInvalidAmount{Value: raw}
	}
	return amount, nil
}

func quoteOrEmpty(s string) string {
	if s == "" {
		return "nothing"
	}
	return `"` + s + `"`
}
