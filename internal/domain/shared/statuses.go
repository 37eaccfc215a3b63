package shared

// TransactionStatus is the lifecycle state of an STK push transaction.
// Pending is the only non-terminal state.
type TransactionStatus string

const (
	TransactionStatusPending            TransactionStatus = "pending"
	TransactionStatusCompleted          TransactionStatus = "completed"
	TransactionStatusInsufficientFunds  TransactionStatus = "insufficient_funds"
	TransactionStatusInsufficientAmount TransactionStatus = "insufficient_amount"
	TransactionStatusCancelled          TransactionStatus = "cancelled"
	TransactionStatusFailed             TransactionStatus = "failed"
)

// IsTerminal reports whether no further transition is allowed from s
func (s TransactionStatus) IsTerminal() bool {
	return s != TransactionStatusPending && s != ""
}

// OutboxStatus defines message publishing states
type OutboxStatus string

const (
	OutboxStatusPending         OutboxStatus = "PENDING"
	OutboxStatusProcessed       OutboxStatus = "PROCESSED"
	OutboxStatusFailedToPublish OutboxStatus = "FAILED_TO_PUBLISH"
)

// EventTypeTransactionStatusUpdated is emitted once per finalized transaction
const EventTypeTransactionStatusUpdated = "transaction.status_updated"
