package invoice

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines invoice persistence operations
type Repository interface {
	// Create persists the invoice and its lines. The invoice number is
	// drawn from the daily sequence inside the caller's transaction.
	Create(ctx context.Context, invoice *Invoice) error
	GetByID(ctx context.Context, id uuid.UUID) (*Invoice, error)
	GetByNumber(ctx context.Context, number string) (*Invoice, error)
	Update(ctx context.Context, invoice *Invoice) error

	// NextNumber allocates the next invoice number for the given day
	NextNumber(ctx context.Context, issuedAt time.Time) (string, error)

	// ListByCustomer returns the customer's invoices, newest first
	ListByCustomer(ctx context.Context, customerID uuid.UUID, limit int) ([]*Invoice, error)

	// ListUnpaidOlderThan returns pending or partial invoices due before cutoff
	ListUnpaidOlderThan(ctx context.Context, cutoff time.Time) ([]*Invoice, error)

	// OldestUnpaidForCustomer returns the unpaid invoice payments settle
	// against first, or ErrInvoiceNotFound when the customer owes nothing
	OldestUnpaidForCustomer(ctx context.Context, customerID uuid.UUID) (*Invoice, error)

	// SummarizeDay aggregates totals for invoices issued within a day
	SummarizeDay(ctx context.Context, day time.Time) (*DaySummary, error)

	// LockForUpdate acquires a pessimistic lock for payment processing
	LockForUpdate(ctx context.Context, id uuid.UUID) (*Invoice, error)
	WithTx(tx pgx.Tx) Repository
}

// DaySummary aggregates one day of billing for the owner's summary message
type DaySummary struct {
	Day            time.Time `json:"day"`
	InvoiceCount   int       `json:"invoice_count"`
	TotalBilled    int64     `json:"total_billed"`    // Paise
	TotalCollected int64     `json:"total_collected"` // Paise
}

// ErrConcurrentModification indicates optimistic lock failure
type ErrConcurrentModification struct {
	InvoiceID uuid.UUID
}

func (e ErrConcurrentModification) Error() string {
	return "concurrent modification detected for invoice: " + e.InvoiceID.String()
}

// Is implements the errors.Is interface for ErrConcurrentModification
func (e ErrConcurrentModification) Is(target error) bool {
	t, ok := target.(ErrConcurrentModification)
	if !ok {
		return false
	}
	if t.InvoiceID == uuid.Nil {
		return true
	}
	return e.InvoiceID == t.InvoiceID
}

// ErrInvoiceNotFound indicates missing invoice
type ErrInvoiceNotFound struct {
	InvoiceID uuid.UUID
}

func (e ErrInvoiceNotFound) Error() string {
	return "invoice not found: " + e.InvoiceID.String()
}

// Is implements the errors.Is interface for ErrInvoiceNotFound
func (e ErrInvoiceNotFound) Is(target error) bool {
	t, ok := target.(ErrInvoiceNotFound)
	if !ok {
		return false
	}
	if t.InvoiceID == uuid.Nil {
		return true
	}
	return e.InvoiceID == t.InvoiceID
}
