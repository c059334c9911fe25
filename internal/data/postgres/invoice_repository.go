package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/vastra-munim/internal/domain/invoice"
	"github.com/vastra-munim/internal/platform/persistence"
)

const invoiceColumns = `id, number, customer_id, type, status, subtotal, cgst_amount, sgst_amount, total, amount_paid, issued_at, due_at, version, created_at, updated_at`

// InvoiceRepository implements the invoice.Repository interface for PostgreSQL
type InvoiceRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewInvoiceRepository creates a new PostgreSQL invoice repository
func NewInvoiceRepository(logger *slog.Logger, db *persistence.PostgresDB) invoice.Repository {
	return &InvoiceRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction
func (r *InvoiceRepository) WithTx(tx pgx.Tx) invoice.Repository {
	return &InvoiceRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// NextNumber allocates the next invoice number for the given day using the
// daily counter table. Must run inside the transaction that creates the
// invoice so numbers stay gapless per day.
func (r *InvoiceRepository) NextNumber(ctx context.Context, issuedAt time.Time) (string, error) {
	day := issuedAt.Format("20060102")

	query := `
		INSERT INTO invoice_counters (day, counter)
		VALUES ($1, 1)
		ON CONFLICT (day) DO UPDATE SET counter = invoice_counters.counter + 1
		RETURNING counter
	`

	var counter int64
	if err := r.querier.QueryRow(ctx, query, day).Scan(&counter); err != nil {
		r.logger.Error("Failed to allocate invoice number", "day", day, "error", err)
		return "", fmt.Errorf("failed to allocate invoice number: %w", err)
	}

	return fmt.Sprintf("KT/%s/%d", day, counter), nil
}

// Create persists the invoice and its lines
func (r *InvoiceRepository) Create(ctx context.Context, inv *invoice.Invoice) error {
	query := `
		INSERT INTO invoices (id, number, customer_id, type, status, subtotal, cgst_amount, sgst_amount, total, amount_paid, issued_at, due_at, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := r.querier.Exec(ctx, query,
		inv.ID,
		inv.Number,
		inv.CustomerID,
		inv.Type,
		inv.Status,
		inv.Subtotal,
		inv.CGSTAmount,
		inv.SGSTAmount,
		inv.Total,
		inv.AmountPaid,
		inv.IssuedAt,
		inv.DueAt,
		inv.Version,
		inv.CreatedAt,
		inv.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create invoice", "error", err)
		return fmt.Errorf("failed to create invoice: %w", err)
	}

	lineQuery := `
		INSERT INTO invoice_lines (id, invoice_id, item_id, description, hsn_code, quantity, unit, unit_rate, amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	for _, line := range inv.Lines {
		_, err := r.querier.Exec(ctx, lineQuery,
			line.ID,
			line.InvoiceID,
			line.ItemID,
			line.Description,
			line.HSNCode,
			line.Quantity,
			line.Unit,
			line.UnitRate,
			line.Amount,
		)
		if err != nil {
			r.logger.Error("Failed to create invoice line", "invoice_id", inv.ID.String(), "error", err)
			return fmt.Errorf("failed to create invoice line: %w", err)
		}
	}

	return nil
}

// GetByID retrieves an invoice and its lines by ID
func (r *InvoiceRepository) GetByID(ctx context.Context, id uuid.UUID) (*invoice.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1`

	inv, err := r.scanOne(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, invoice.ErrInvoiceNotFound{InvoiceID: id}
		}
		r.logger.Error("Failed to get invoice", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}

	if err := r.loadLines(ctx, inv); err != nil {
		return nil, err
	}

	return inv, nil
}

// GetByNumber retrieves an invoice and its lines by invoice number
func (r *InvoiceRepository) GetByNumber(ctx context.Context, number string) (*invoice.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE number = $1`

	inv, err := r.scanOne(r.querier.QueryRow(ctx, query, number))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, invoice.ErrInvoiceNotFound{}
		}
		r.logger.Error("Failed to get invoice by number", "number", number, "error", err)
		return nil, fmt.Errorf("failed to get invoice by number: %w", err)
	}

	if err := r.loadLines(ctx, inv); err != nil {
		return nil, err
	}

	return inv, nil
}

// Update updates an existing invoice using optimistic locking. Lines are
// immutable once created and are never updated.
func (r *InvoiceRepository) Update(ctx context.Context, inv *invoice.Invoice) error {
	query := `
		UPDATE invoices
		SET status = $1, amount_paid = $2, version = $3, updated_at = $4
		WHERE id = $5 AND version = $6
	`

	result, err := r.querier.Exec(ctx, query,
		inv.Status,
		inv.AmountPaid,
		inv.Version,
		inv.UpdatedAt,
		inv.ID,
		inv.Version-1, // Check previous version for optimistic locking
	)
	if err != nil {
		r.logger.Error("Failed to update invoice", "id", inv.ID.String(), "error", err)
		return fmt.Errorf("failed to update invoice: %w", err)
	}

	if result.RowsAffected() == 0 {
		return invoice.ErrConcurrentModification{InvoiceID: inv.ID}
	}

	return nil
}

// ListByCustomer returns the customer's invoices, newest first, without lines
func (r *InvoiceRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID, limit int) ([]*invoice.Invoice, error) {
	query := `
		SELECT ` + invoiceColumns + `
		FROM invoices
		WHERE customer_id = $1
		ORDER BY issued_at DESC
		LIMIT $2
	`

	rows, err := r.querier.Query(ctx, query, customerID, limit)
	if err != nil {
		r.logger.Error("Failed to list invoices by customer", "customer_id", customerID.String(), "error", err)
		return nil, fmt.Errorf("failed to list invoices by customer: %w", err)
	}
	defer rows.Close()

	return r.scanAll(rows)
}

// ListUnpaidOlderThan returns pending or partial invoices due before cutoff
func (r *InvoiceRepository) ListUnpaidOlderThan(ctx context.Context, cutoff time.Time) ([]*invoice.Invoice, error) {
	query := `
		SELECT ` + invoiceColumns + `
		FROM invoices
		WHERE status IN ('PENDING', 'PARTIAL') AND due_at < $1
		ORDER BY due_at
	`

	rows, err := r.querier.Query(ctx, query, cutoff)
	if err != nil {
		r.logger.Error("Failed to list unpaid invoices", "error", err)
		return nil, fmt.Errorf("failed to list unpaid invoices: %w", err)
	}
	defer rows.Close()

	return r.scanAll(rows)
}

// OldestUnpaidForCustomer returns the invoice a payment settles against first
func (r *InvoiceRepository) OldestUnpaidForCustomer(ctx context.Context, customerID uuid.UUID) (*invoice.Invoice, error) {
	query := `
		SELECT ` + invoiceColumns + `
		FROM invoices
		WHERE customer_id = $1 AND status IN ('PENDING', 'PARTIAL', 'OVERDUE')
		ORDER BY issued_at
		LIMIT 1
	`

	inv, err := r.scanOne(r.querier.QueryRow(ctx, query, customerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, invoice.ErrInvoiceNotFound{}
		}
		r.logger.Error("Failed to get oldest unpaid invoice", "customer_id", customerID.String(), "error", err)
		return nil, fmt.Errorf("failed to get oldest unpaid invoice: %w", err)
	}

	return inv, nil
}

// SummarizeDay aggregates totals for invoices issued within a day
func (r *InvoiceRepository) SummarizeDay(ctx context.Context, day time.Time) (*invoice.DaySummary, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.Add(24 * time.Hour)

	query := `
		SELECT COUNT(*), COALESCE(SUM(total), 0), COALESCE(SUM(amount_paid), 0)
		FROM invoices
		WHERE issued_at >= $1 AND issued_at < $2 AND status <> 'VOID'
	`

	summary := &invoice.DaySummary{Day: start}
	err := r.querier.QueryRow(ctx, query, start, end).Scan(
		&summary.InvoiceCount,
		&summary.TotalBilled,
		&summary.TotalCollected,
	)
	if err != nil {
		r.logger.Error("Failed to summarize day", "error", err)
		return nil, fmt.Errorf("failed to summarize day: %w", err)
	}

	return summary, nil
}

// LockForUpdate obtains a pessimistic lock on the invoice and returns its
// current state with lines loaded
func (r *InvoiceRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*invoice.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1 FOR UPDATE`

	inv, err := r.scanOne(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, invoice.ErrInvoiceNotFound{InvoiceID: id}
		}
		r.logger.Error("Failed to lock invoice for update", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to lock invoice for update: %w", err)
	}

	if err := r.loadLines(ctx, inv); err != nil {
		return nil, err
	}

	return inv, nil
}

func (r *InvoiceRepository) loadLines(ctx context.Context, inv *invoice.Invoice) error {
	query := `
		SELECT id, invoice_id, item_id, description, hsn_code, quantity, unit, unit_rate, amount
		FROM invoice_lines
		WHERE invoice_id = $1
		ORDER BY id
	`

	rows, err := r.querier.Query(ctx, query, inv.ID)
	if err != nil {
		r.logger.Error("Failed to load invoice lines", "invoice_id", inv.ID.String(), "error", err)
		return fmt.Errorf("failed to load invoice lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var line invoice.LineItem
		err := rows.Scan(
			&line.ID,
			&line.InvoiceID,
			&line.ItemID,
			&line.Description,
			&line.HSNCode,
			&line.Quantity,
			&line.Unit,
			&line.UnitRate,
			&line.Amount,
		)
		if err != nil {
			return fmt.Errorf("failed to scan invoice line: %w", err)
		}
		inv.Lines = append(inv.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate invoice lines: %w", err)
	}

	return nil
}

func (r *InvoiceRepository) scanOne(row pgx.Row) (*invoice.Invoice, error) {
	var inv invoice.Invoice
	err := row.Scan(
		&inv.ID,
		&inv.Number,
		&inv.CustomerID,
		&inv.Type,
		&inv.Status,
		&inv.Subtotal,
		&inv.CGSTAmount,
		&inv.SGSTAmount,
		&inv.Total,
		&inv.AmountPaid,
		&inv.IssuedAt,
		&inv.DueAt,
		&inv.Version,
		&inv.CreatedAt,
		&inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *InvoiceRepository) scanAll(rows pgx.Rows) ([]*invoice.Invoice, error) {
	var invoices []*invoice.Invoice
	for rows.Next() {
		inv, err := r.scanOne(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice row: %w", err)
		}
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate invoice rows: %w", err)
	}
	return invoices, nil
}
