// Package postgres provides PostgreSQL implementations of the domain repositories.
// It handles all database operations while maintaining transaction safety and
// proper error handling for the shop assistant backend.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vastra-munim/internal/domain/customer"
	"github.com/vastra-munim/internal/platform/persistence"
)

const customerColumns = `id, name, phone, credit_limit, credit_balance, is_bulk_buyer, status, version, last_transacted_at, created_at, updated_at`

// CustomerRepository implements the customer.Repository interface for PostgreSQL
type CustomerRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewCustomerRepository creates a new PostgreSQL customer repository.
// It expects db.Pool() to satisfy persistence.Querier.
func NewCustomerRepository(logger *slog.Logger, db *persistence.PostgresDB) customer.Repository {
	return &CustomerRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction, allowing for atomic operations
// across multiple repository calls
func (r *CustomerRepository) WithTx(tx pgx.Tx) customer.Repository {
	return &CustomerRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new customer. A duplicate phone surfaces as ErrDuplicatePhone.
func (r *CustomerRepository) Create(ctx context.Context, c *customer.Customer) error {
	query := `
		INSERT INTO customers (id, name, phone, credit_limit, credit_balance, is_bulk_buyer, status, version, last_transacted_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.querier.Exec(ctx, query,
		c.ID,
		c.Name,
		c.Phone,
		c.CreditLimit,
		c.CreditBalance,
		c.IsBulkBuyer,
		c.Status,
		c.Version,
		c.LastTransactedAt,
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return customer.ErrDuplicatePhone{Phone: c.Phone}
		}
		r.logger.Error("Failed to create customer", "error", err)
		return fmt.Errorf("failed to create customer: %w", err)
	}

	return nil
}

// GetByID retrieves a customer by its ID
func (r *CustomerRepository) GetByID(ctx context.Context, id uuid.UUID) (*customer.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE id = $1`

	c, err := r.scanOne(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, customer.ErrCustomerNotFound{CustomerID: id}
		}
		r.logger.Error("Failed to get customer", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}

	return c, nil
}

// GetByPhone retrieves a customer by phone. Returns nil, nil when no
// customer has the given phone.
func (r *CustomerRepository) GetByPhone(ctx context.Context, phone string) (*customer.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE phone = $1`

	c, err := r.scanOne(r.querier.QueryRow(ctx, query, phone))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get customer by phone", "phone", phone, "error", err)
		return nil, fmt.Errorf("failed to get customer by phone: %w", err)
	}

	return c, nil
}

// Update updates an existing customer using optimistic locking
func (r *CustomerRepository) Update(ctx context.Context, c *customer.Customer) error {
	query := `
		UPDATE customers
		SET name = $1, phone = $2, credit_limit = $3, credit_balance = $4, is_bulk_buyer = $5, status = $6, version = $7, last_transacted_at = $8, updated_at = $9
		WHERE id = $10 AND version = $11
	`

	result, err := r.querier.Exec(ctx, query,
		c.Name,
		c.Phone,
		c.CreditLimit,
		c.CreditBalance,
		c.IsBulkBuyer,
		c.Status,
		c.Version,
		c.LastTransactedAt,
		c.UpdatedAt,
		c.ID,
		c.Version-1, // Check previous version for optimistic locking
	)
	if err != nil {
		r.logger.Error("Failed to update customer", "id", c.ID.String(), "error", err)
		return fmt.Errorf("failed to update customer: %w", err)
	}

	if result.RowsAffected() == 0 {
		return customer.ErrConcurrentModification{CustomerID: c.ID}
	}

	return nil
}

// SearchByName returns active customers whose name resembles the prefix.
// The ILIKE filter narrows the pool; real scoring happens in the resolver.
func (r *CustomerRepository) SearchByName(ctx context.Context, namePrefix string, limit int) ([]*customer.Customer, error) {
	query := `
		SELECT ` + customerColumns + `
		FROM customers
		WHERE status = 'ACTIVE' AND name ILIKE '%' || $1 || '%'
		ORDER BY last_transacted_at DESC NULLS LAST
		LIMIT $2
	`

	rows, err := r.querier.Query(ctx, query, namePrefix, limit)
	if err != nil {
		r.logger.Error("Failed to search customers by name", "prefix", namePrefix, "error", err)
		return nil, fmt.Errorf("failed to search customers by name: %w", err)
	}
	defer rows.Close()

	return r.scanAll(rows)
}

// ListWithBalance returns active customers owing more than minBalance paise
func (r *CustomerRepository) ListWithBalance(ctx context.Context, minBalance int64) ([]*customer.Customer, error) {
	query := `
		SELECT ` + customerColumns + `
		FROM customers
		WHERE status = 'ACTIVE' AND credit_balance > $1
		ORDER BY credit_balance DESC
	`

	rows, err := r.querier.Query(ctx, query, minBalance)
	if err != nil {
		r.logger.Error("Failed to list customers with balance", "error", err)
		return nil, fmt.Errorf("failed to list customers with balance: %w", err)
	}
	defer rows.Close()

	return r.scanAll(rows)
}

// UpdateBalance atomically adjusts the credit balance using optimistic locking.
// Returns ErrConcurrentModification if the customer was modified between read and update.
func (r *CustomerRepository) UpdateBalance(ctx context.Context, id uuid.UUID, delta int64, version int) error {
	query := `
		UPDATE customers
		SET credit_balance = credit_balance + $1, version = version + 1, last_transacted_at = NOW(), updated_at = NOW()
		WHERE id = $2 AND version = $3
	`

	result, err := r.querier.Exec(ctx, query, delta, id, version)
	if err != nil {
		r.logger.Error("Failed to update customer balance", "id", id.String(), "error", err)
		return fmt.Errorf("failed to update customer balance: %w", err)
	}

	if result.RowsAffected() == 0 {
		return customer.ErrConcurrentModification{CustomerID: id}
	}

	return nil
}

// LockForUpdate obtains a pessimistic lock on the customer and returns its current state.
// This should be used within a transaction when strong consistency is required.
func (r *CustomerRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*customer.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE id = $1 FOR UPDATE`

	c, err := r.scanOne(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, customer.ErrCustomerNotFound{CustomerID: id}
		}
		r.logger.Error("Failed to lock customer for update", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to lock customer for update: %w", err)
	}

	return c, nil
}

func (r *CustomerRepository) scanOne(row pgx.Row) (*customer.Customer, error) {
	var c customer.Customer
	err := row.Scan(
		&c.ID,
		&c.Name,
		&c.Phone,
		&c.CreditLimit,
		&c.CreditBalance,
		&c.IsBulkBuyer,
		&c.Status,
		&c.Version,
		&c.LastTransactedAt,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CustomerRepository) scanAll(rows pgx.Rows) ([]*customer.Customer, error) {
	var customers []*customer.Customer
	for rows.Next() {
		c, err := r.scanOne(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan customer row: %w", err)
		}
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate customer rows: %w", err)
	}
	return customers, nil
}
