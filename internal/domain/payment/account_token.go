package payment

import "strings"

// AccountTokenDelimiter separates the business id from the caller's account reference
// inside the provider's AccountReference field.
const AccountTokenDelimiter = ":"

// AccountToken is the business/account pair carried through the provider and echoed back
// in the callback. It is the only correlation the provider relays for us.
type AccountToken struct {
	BusinessID       string
	AccountReference string
}

// EncodeAccountToken renders "<business_id>:<account_reference>"
func EncodeAccountToken(businessID, accountReference string) string {
	return businessID + AccountTokenDelimiter + accountReference
}

// DecodeAccountToken splits on the first delimiter. The business is resolved only when both
// halves are non-empty; otherwise the whole token is returned as the account reference and
// the second return value is false.
func DecodeAccountToken(token string) (AccountToken, bool) {
	businessID, accountReference, found := strings.Cut(token, AccountTokenDelimiter)
	if !found || businessID == "" || accountReference == "" {
		return AccountToken{AccountReference: token}, false
	}
	return AccountToken{BusinessID: businessID, AccountReference: accountReference}, true
}
