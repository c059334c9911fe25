package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/vastra-munim/internal/domain/inbox"
	"github.com/vastra-munim/internal/platform/persistence"
)

// InboxRepository implements the inbox.Repository interface for PostgreSQL
type InboxRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewInboxRepository creates a new PostgreSQL inbox repository
func NewInboxRepository(logger *slog.Logger, db *persistence.PostgresDB) inbox.Repository {
	return &InboxRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction
func (r *InboxRepository) WithTx(tx pgx.Tx) inbox.Repository {
	return &InboxRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Admit claims the message id via the primary key. ON CONFLICT DO NOTHING
// makes the claim race-free: exactly one caller sees claimed=true no matter
// how many webhook deliveries arrive concurrently.
func (r *InboxRepository) Admit(ctx context.Context, record *inbox.Record) (bool, error) {
	query := `
		INSERT INTO processed_messages (message_id, sender, received_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (message_id) DO NOTHING
	`

	result, err := r.querier.Exec(ctx, query, record.MessageID, record.From, record.ReceivedAt)
	if err != nil {
		r.logger.Error("Failed to admit message", "message_id", record.MessageID, "error", err)
		return false, fmt.Errorf("failed to admit message: %w", err)
	}

	return result.RowsAffected() == 1, nil
}

// Get retrieves the admission record for a message id
func (r *InboxRepository) Get(ctx context.Context, messageID string) (*inbox.Record, error) {
	query := `
		SELECT message_id, sender, received_at, processed_at
		FROM processed_messages
		WHERE message_id = $1
	`

	var record inbox.Record
	err := r.querier.QueryRow(ctx, query, messageID).Scan(
		&record.MessageID,
		&record.From,
		&record.ReceivedAt,
		&record.ProcessedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, inbox.ErrRecordNotFound{MessageID: messageID}
		}
		r.logger.Error("Failed to get inbox record", "message_id", messageID, "error", err)
		return nil, fmt.Errorf("failed to get inbox record: %w", err)
	}

	return &record, nil
}

// MarkProcessed stamps processed_at once. A second call, from a redelivered
// Kafka event, affects zero rows and reports already-processed.
func (r *InboxRepository) MarkProcessed(ctx context.Context, messageID string) (bool, error) {
	query := `
		UPDATE processed_messages
		SET processed_at = NOW()
		WHERE message_id = $1 AND processed_at IS NULL
	`

	result, err := r.querier.Exec(ctx, query, messageID)
	if err != nil {
		r.logger.Error("Failed to mark message processed", "message_id", messageID, "error", err)
		return false, fmt.Errorf("failed to mark message processed: %w", err)
	}

	return result.RowsAffected() == 1, nil
}
