package payment

import "github.com/mpesa-stk-gateway/internal/domain/shared"

// PendingResultCode marks a transaction whose callback has not arrived yet
const PendingResultCode = -1

// resultCodeStatuses maps Daraja STK result codes to terminal statuses.
// Codes missing from the table finalize as failed.
var resultCodeStatuses = map[int]shared.TransactionStatus{
	0:  shared.TransactionStatusCompleted,
	1:  shared.TransactionStatusInsufficientFunds,
	2:  shared.TransactionStatusInsufficientAmount,
	17: shared.TransactionStatusCancelled,
}

// StatusForResultCode returns the terminal status for a provider result code
func StatusForResultCode(code int) shared.TransactionStatus {
	if status, ok := resultCodeStatuses[code]; ok {
		return status
	}
	return shared.TransactionStatusFailed
}
