package mpesa

import (
	"errors"
	"fmt"
)

// ErrMalformedCallback marks a callback body without the stkCallback envelope,
// a CheckoutRequestID or a ResultCode.
var ErrMalformedCallback = errors.New("malformed stk callback")

// APIError is a non-200 answer from a Daraja endpoint
type APIError struct {
	Endpoint   string
	StatusCode int
	Code       string
	Message    string
	RequestID  string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("mpesa %s request failed with status %d: %s (%s)", e.Endpoint, e.StatusCode, e.Message, e.Code)
	}
	return fmt.Sprintf("mpesa %s request failed with status %d: %s", e.Endpoint, e.StatusCode, e.Message)
}
