package payment

import (
	"regexp"
	"strings"
)

// Kenyan mobile numbers: 07XXXXXXXX / 01XXXXXXXX, 2547XXXXXXXX / 2541XXXXXXXX, optionally "+"-prefixed.
var mobileNumberPattern = regexp.MustCompile(`^(?:\+?254|0)([17]\d{8})$`)

// CountryCode is prepended to the subscriber number in the canonical form
const CountryCode = "254"

// ErrInvalidPhoneNumber indicates a number outside the supported numbering plan
type ErrInvalidPhoneNumber struct {
	PhoneNumber string
}

func (e ErrInvalidPhoneNumber) Error() string {
	return "invalid mobile number: " + e.PhoneNumber
}

// NormalizePhoneNumber returns the canonical 254XXXXXXXXX form
func NormalizePhoneNumber(raw string) (string, error) {
	matches := mobileNumberPattern.FindStringSubmatch(strings.TrimSpace(raw))
	if matches == nil {
		return "", ErrInvalidPhoneNumber{PhoneNumber: raw}
	}
	return CountryCode + matches[1], nil
}
