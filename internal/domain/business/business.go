package business

import (
	"context"
	"strings"
	"time"
)

// StatusActive is the only status allowed to initiate payments (matched case-insensitively)
const StatusActive = "active"

// Business is a merchant allowed to request STK pushes through the gateway
type Business struct {
	ID         string
	Name       string
	Status     string
	WebhookURL string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// IsActive reports whether the business may initiate payments
func (b *Business) IsActive() bool {
	return strings.EqualFold(strings.TrimSpace(b.Status), StatusActive)
}

// Repository defines business lookups
type Repository interface {
	GetByID(ctx context.Context, id string) (*Business, error)
}

// ErrBusinessNotFound indicates an unknown business id
type ErrBusinessNotFound struct {
	BusinessID string
}

func (e ErrBusinessNotFound) Error() string {
	return "business not found: " + e.BusinessID
}
