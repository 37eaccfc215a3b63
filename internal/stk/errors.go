package stk

import (
	"fmt"
	"strings"
)

// ValidationError is bad caller input, identified by the request field at fault
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ConfigError means the gateway cannot reach the provider until an operator fixes its settings
type ConfigError struct {
	Missing []string
}

func (e *ConfigError) Error() string {
	return "missing M-Pesa configuration: " + strings.Join(e.Missing, ", ")
}

// ProviderError is a failed or rejected provider call. Stage is "token" or "push".
type ProviderError struct {
	Stage             string
	StatusCode        int
	ResponseCode      string
	Description       string
	CheckoutRequestID string
	Err               error
}

func (e *ProviderError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("mpesa %s failed: %s", e.Stage, e.Description)
	}
	if e.Err != nil {
		return fmt.Sprintf("mpesa %s failed: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("mpesa %s failed", e.Stage)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Rejected reports whether the provider answered the push and declined it, as opposed to
// the call never completing or the token step failing.
func (e *ProviderError) Rejected() bool {
	return e.Stage == StagePush && (e.StatusCode != 0 || e.ResponseCode != "")
}

const (
	StageToken = "token"
	StagePush  = "push"
)

// PersistenceError is a store failure after an irreversible provider event. It is logged,
// never surfaced to whoever already got their answer.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
