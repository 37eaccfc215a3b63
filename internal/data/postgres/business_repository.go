package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/mpesa-stk-gateway/internal/domain/business"
	"github.com/mpesa-stk-gateway/internal/platform/persistence"
)

// BusinessRepository implements the business.Repository interface for PostgreSQL
type BusinessRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewBusinessRepository creates a new PostgreSQL business repository
func NewBusinessRepository(logger *slog.Logger, db *persistence.PostgresDB) business.Repository {
	return &BusinessRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// GetByID retrieves a business by id
func (r *BusinessRepository) GetByID(ctx context.Context, id string) (*business.Business, error) {
	query := `
		SELECT business_id, name, status, webhook_url, created_at, updated_at
		FROM businesses
		WHERE business_id = $1
	`

	var (
		b          business.Business
		webhookURL *string
	)
	err := r.querier.QueryRow(ctx, query, id).Scan(
		&b.ID,
		&b.Name,
		&b.Status,
		&webhookURL,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, business.ErrBusinessNotFound{BusinessID: id}
		}
		r.logger.Error("Failed to get business", "business_id", id, "error", err)
		return nil, fmt.Errorf("failed to get business: %w", err)
	}
	if webhookURL != nil {
		b.WebhookURL = *webhookURL
	}

	return &b, nil
}
