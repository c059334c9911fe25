package mongo

import (
	"context"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vastra-munim/internal/domain/convlog"
)

const (
	// ConvLogCollectionName is the name of the conversation log collection in MongoDB
	ConvLogCollectionName = "conversation_log"
)

// ConvLogRepository implements the convlog.Repository interface for MongoDB
type ConvLogRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewConvLogRepository creates a new MongoDB conversation log repository
func NewConvLogRepository(logger *slog.Logger, db *mongo.Database) convlog.Repository {
	return &ConvLogRepository{
		db:     db,
		logger: logger,
	}
}

// Append stores one conversation turn
func (r *ConvLogRepository) Append(ctx context.Context, message *convlog.Message) error {
	collection := r.db.Collection(ConvLogCollectionName)

	if _, err := collection.InsertOne(ctx, message); err != nil {
		r.logger.Error("Failed to append conversation log message",
			"wa_id", message.WaID,
			"error", err)
		return fmt.Errorf("failed to append conversation log message: %w", err)
	}

	return nil
}

// ListByWaID retrieves paginated conversation turns for a contact.
// Results are sorted by creation time in descending order (newest first).
func (r *ConvLogRepository) ListByWaID(ctx context.Context, waID string, limit, offset int) ([]*convlog.Message, error) {
	collection := r.db.Collection(ConvLogCollectionName)

	filter := bson.M{"wa_id": waID}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(int64(offset))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to list conversation log messages",
			"wa_id", waID,
			"error", err)
		return nil, fmt.Errorf("failed to list conversation log messages: %w", err)
	}
	defer cursor.Close(ctx)

	var messages []*convlog.Message
	if err := cursor.All(ctx, &messages); err != nil {
		r.logger.Error("Failed to decode conversation log messages",
			"wa_id", waID,
			"error", err)
		return nil, fmt.Errorf("failed to decode conversation log messages: %w", err)
	}

	return messages, nil
}
