// Package mongo provides MongoDB implementations of the ledger repositories.
// The udhaar ledger is append-only history; the balance of record lives on
// the customer row in PostgreSQL.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vastra-munim/internal/domain/udhaar"
)

const (
	// UdhaarCollectionName is the name of the udhaar ledger collection in MongoDB
	UdhaarCollectionName = "udhaar_entries"
)

// UdhaarRepository implements the udhaar.Repository interface for MongoDB
type UdhaarRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewUdhaarRepository creates a new MongoDB udhaar ledger repository
func NewUdhaarRepository(logger *slog.Logger, db *mongo.Database) udhaar.Repository {
	return &UdhaarRepository{
		db:     db,
		logger: logger,
	}
}

// Create stores a new ledger entry after checking for duplicates.
// Returns ErrDuplicateEntry if an entry with the same entry ID exists, which
// keeps outbox republishing idempotent.
func (r *UdhaarRepository) Create(ctx context.Context, entry *udhaar.Entry) error {
	collection := r.db.Collection(UdhaarCollectionName)

	existingEntry, err := r.GetByEntryID(ctx, entry.EntryID)
	if err != nil && !errors.Is(err, udhaar.ErrEntryNotFound{}) {
		r.logger.Error("Failed to check for existing udhaar entry",
			"entry_id", entry.EntryID.String(),
			"error", err)
		return fmt.Errorf("failed to check for existing udhaar entry: %w", err)
	}

	if existingEntry != nil {
		return udhaar.ErrDuplicateEntry{EntryID: entry.EntryID}
	}

	_, err = collection.InsertOne(ctx, entry)
	if err != nil {
		r.logger.Error("Failed to create udhaar entry",
			"entry_id", entry.EntryID.String(),
			"error", err)
		return fmt.Errorf("failed to create udhaar entry: %w", err)
	}

	return nil
}

// GetByEntryID retrieves a ledger entry by its entry ID.
// Returns ErrEntryNotFound if no entry exists.
func (r *UdhaarRepository) GetByEntryID(ctx context.Context, entryID uuid.UUID) (*udhaar.Entry, error) {
	collection := r.db.Collection(UdhaarCollectionName)

	filter := bson.M{"entry_id": entryID}
	var entry udhaar.Entry
	err := collection.FindOne(ctx, filter).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, udhaar.ErrEntryNotFound{EntryID: entryID}
		}
		r.logger.Error("Failed to get udhaar entry",
			"entry_id", entryID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get udhaar entry: %w", err)
	}

	return &entry, nil
}

// GetByCustomerID retrieves paginated ledger entries for a customer.
// Results are sorted by creation time in descending order (newest first).
func (r *UdhaarRepository) GetByCustomerID(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]*udhaar.Entry, error) {
	collection := r.db.Collection(UdhaarCollectionName)

	filter := bson.M{"customer_id": customerID}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(int64(offset))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to get udhaar entries by customer",
			"customer_id", customerID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get udhaar entries by customer: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []*udhaar.Entry
	if err := cursor.All(ctx, &entries); err != nil {
		r.logger.Error("Failed to decode udhaar entries",
			"customer_id", customerID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to decode udhaar entries: %w", err)
	}

	return entries, nil
}

// CountByCustomerID returns the number of ledger entries for a customer
func (r *UdhaarRepository) CountByCustomerID(ctx context.Context, customerID uuid.UUID) (int64, error) {
	collection := r.db.Collection(UdhaarCollectionName)

	count, err := collection.CountDocuments(ctx, bson.M{"customer_id": customerID})
	if err != nil {
		r.logger.Error("Failed to count udhaar entries",
			"customer_id", customerID.String(),
			"error", err)
		return 0, fmt.Errorf("failed to count udhaar entries: %w", err)
	}

	return count, nil
}

// GetByTimeRange retrieves paginated ledger entries created within a window.
// Results are sorted by creation time in descending order (newest first).
func (r *UdhaarRepository) GetByTimeRange(ctx context.Context, startTime, endTime time.Time, limit, offset int) ([]*udhaar.Entry, error) {
	collection := r.db.Collection(UdhaarCollectionName)

	filter := bson.M{
		"created_at": bson.M{
			"$gte": startTime,
			"$lte": endTime,
		},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(int64(offset))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to get udhaar entries by time range", "error", err)
		return nil, fmt.Errorf("failed to get udhaar entries by time range: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []*udhaar.Entry
	if err := cursor.All(ctx, &entries); err != nil {
		r.logger.Error("Failed to decode udhaar entries", "error", err)
		return nil, fmt.Errorf("failed to decode udhaar entries: %w", err)
	}

	return entries, nil
}
