// Package mongo provides MongoDB implementations of the domain repositories.
package mongo

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mpesa-stk-gateway/internal/domain/callback"
)

const (
	// CallbackCollectionName is the name of the callback archive collection in MongoDB
	CallbackCollectionName = "stk_callbacks"

	defaultListLimit = 50
)

// CallbackRepository implements the callback.Repository interface for MongoDB
type CallbackRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewCallbackRepository creates a new MongoDB callback archive repository
func NewCallbackRepository(logger *slog.Logger, db *mongo.Database) callback.Repository {
	return &CallbackRepository{
		db:     db,
		logger: logger,
	}
}

// Save appends a callback to the archive. Every delivery is kept, duplicates included.
func (r *CallbackRepository) Save(ctx context.Context, record *callback.Record) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}

	_, err := r.db.Collection(CallbackCollectionName).InsertOne(ctx, record)
	if err != nil {
		r.logger.Error("Failed to archive callback",
			"checkout_request_id", record.CheckoutRequestID,
			"outcome", string(record.Outcome),
			"error", err)
		return fmt.Errorf("failed to archive callback: %w", err)
	}

	return nil
}

// ListByCheckoutRequestID returns archived callbacks for one push, newest first
func (r *CallbackRepository) ListByCheckoutRequestID(ctx context.Context, checkoutRequestID string, limit int) ([]*callback.Record, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	filter := bson.M{"checkout_request_id": checkoutRequestID}
	opts := options.Find().
		SetSort(bson.M{"received_at": -1}).
		SetLimit(int64(limit))

	cursor, err := r.db.Collection(CallbackCollectionName).Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to list archived callbacks",
			"checkout_request_id", checkoutRequestID,
			"error", err)
		return nil, fmt.Errorf("failed to list archived callbacks: %w", err)
	}
	defer cursor.Close(ctx)

	records := []*callback.Record{}
	if err := cursor.All(ctx, &records); err != nil {
		r.logger.Error("Failed to decode archived callbacks",
			"checkout_request_id", checkoutRequestID,
			"error", err)
		return nil, fmt.Errorf("failed to decode archived callbacks: %w", err)
	}

	return records, nil
}
