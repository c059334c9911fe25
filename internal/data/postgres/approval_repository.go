package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/vastra-munim/internal/domain/approval"
	"github.com/vastra-munim/internal/platform/persistence"
)

const approvalColumns = `id, command_id, command, reason, status, summary, decided_by, decided_at, expires_at, version, created_at, updated_at`

// ApprovalRepository implements the approval.Repository interface for PostgreSQL
type ApprovalRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewApprovalRepository creates a new PostgreSQL approval repository
func NewApprovalRepository(logger *slog.Logger, db *persistence.PostgresDB) approval.Repository {
	return &ApprovalRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction
func (r *ApprovalRepository) WithTx(tx pgx.Tx) approval.Repository {
	return &ApprovalRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new approval request
func (r *ApprovalRepository) Create(ctx context.Context, req *approval.Request) error {
	query := `
		INSERT INTO approval_requests (id, command_id, command, reason, status, summary, decided_by, decided_at, expires_at, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.querier.Exec(ctx, query,
		req.ID,
		req.CommandID,
		req.Command,
		req.Reason,
		req.Status,
		req.Summary,
		req.DecidedBy,
		req.DecidedAt,
		req.ExpiresAt,
		req.Version,
		req.CreatedAt,
		req.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create approval request", "error", err)
		return fmt.Errorf("failed to create approval request: %w", err)
	}

	return nil
}

// GetByID retrieves an approval request by its ID
func (r *ApprovalRepository) GetByID(ctx context.Context, id uuid.UUID) (*approval.Request, error) {
	query := `SELECT ` + approvalColumns + ` FROM approval_requests WHERE id = $1`

	req, err := r.scanOne(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, approval.ErrRequestNotFound{RequestID: id}
		}
		r.logger.Error("Failed to get approval request", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get approval request: %w", err)
	}

	return req, nil
}

// GetByCommandID retrieves an approval request by the parked command's id
func (r *ApprovalRepository) GetByCommandID(ctx context.Context, commandID uuid.UUID) (*approval.Request, error) {
	query := `SELECT ` + approvalColumns + ` FROM approval_requests WHERE command_id = $1`

	req, err := r.scanOne(r.querier.QueryRow(ctx, query, commandID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, approval.ErrRequestNotFound{}
		}
		r.logger.Error("Failed to get approval request by command", "command_id", commandID.String(), "error", err)
		return nil, fmt.Errorf("failed to get approval request by command: %w", err)
	}

	return req, nil
}

// Update persists a decision using optimistic locking. Two concurrent
// decisions on the same pending request cannot both win.
func (r *ApprovalRepository) Update(ctx context.Context, req *approval.Request) error {
	query := `
		UPDATE approval_requests
		SET status = $1, decided_by = $2, decided_at = $3, version = $4, updated_at = $5
		WHERE id = $6 AND version = $7
	`

	result, err := r.querier.Exec(ctx, query,
		req.Status,
		req.DecidedBy,
		req.DecidedAt,
		req.Version,
		req.UpdatedAt,
		req.ID,
		req.Version-1, // Check previous version for optimistic locking
	)
	if err != nil {
		r.logger.Error("Failed to update approval request", "id", req.ID.String(), "error", err)
		return fmt.Errorf("failed to update approval request: %w", err)
	}

	if result.RowsAffected() == 0 {
		return approval.ErrConcurrentModification{RequestID: req.ID}
	}

	return nil
}

// ListPending returns pending requests, oldest first
func (r *ApprovalRepository) ListPending(ctx context.Context, limit int) ([]*approval.Request, error) {
	query := `
		SELECT ` + approvalColumns + `
		FROM approval_requests
		WHERE status = 'PENDING'
		ORDER BY created_at
		LIMIT $1
	`

	rows, err := r.querier.Query(ctx, query, limit)
	if err != nil {
		r.logger.Error("Failed to list pending approval requests", "error", err)
		return nil, fmt.Errorf("failed to list pending approval requests: %w", err)
	}
	defer rows.Close()

	return r.scanAll(rows)
}

// ListPendingExpiredBefore returns pending requests whose TTL elapsed
func (r *ApprovalRepository) ListPendingExpiredBefore(ctx context.Context, cutoff time.Time) ([]*approval.Request, error) {
	query := `
		SELECT ` + approvalColumns + `
		FROM approval_requests
		WHERE status = 'PENDING' AND expires_at < $1
		ORDER BY expires_at
	`

	rows, err := r.querier.Query(ctx, query, cutoff)
	if err != nil {
		r.logger.Error("Failed to list expired approval requests", "error", err)
		return nil, fmt.Errorf("failed to list expired approval requests: %w", err)
	}
	defer rows.Close()

	return r.scanAll(rows)
}

func (r *ApprovalRepository) scanOne(row pgx.Row) (*approval.Request, error) {
	var req approval.Request
	err := row.Scan(
		&req.ID,
		&req.CommandID,
		&req.Command,
		&req.Reason,
		&req.Status,
		&req.Summary,
		&req.DecidedBy,
		&req.DecidedAt,
		&req.ExpiresAt,
		&req.Version,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *ApprovalRepository) scanAll(rows pgx.Rows) ([]*approval.Request, error) {
	var requests []*approval.Request
	for rows.Next() {
		req, err := r.scanOne(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan approval request row: %w", err)
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate approval request rows: %w", err)
	}
	return requests, nil
}
