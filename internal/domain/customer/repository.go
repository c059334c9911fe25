package customer

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines customer persistence operations
type Repository interface {
	Create(ctx context.Context, customer *Customer) error
	GetByID(ctx context.Context, id uuid.UUID) (*Customer, error)
	GetByPhone(ctx context.Context, phone string) (*Customer, error)
	Update(ctx context.Context, customer *Customer) error

	// SearchByName returns the active candidate pool for fuzzy name
	// resolution. Matching happens in the resolver, not in SQL.
	SearchByName(ctx context.Context, namePrefix string, limit int) ([]*Customer, error)

	// ListWithBalance returns active customers owing more than minBalance paise
	ListWithBalance(ctx context.Context, minBalance int64) ([]*Customer, error)

	// UpdateBalance uses optimistic locking to adjust the credit balance
	UpdateBalance(ctx context.Context, id uuid.UUID, delta int64, version int) error

	// LockForUpdate acquires a pessimistic lock for command execution
	LockForUpdate(ctx context.Context, id uuid.UUID) (*Customer, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrConcurrentModification indicates optimistic lock failure
type ErrConcurrentModification struct {
	CustomerID uuid.UUID
}

func (e ErrConcurrentModification) Error() string {
	return "concurrent modification detected for customer: " + e.CustomerID.String()
}

// Is implements the errors.Is interface for ErrConcurrentModification
func (e ErrConcurrentModification) Is(target error) bool {
	t, ok := target.(ErrConcurrentModification)
	if !ok {
		return false
	}
	if t.CustomerID == uuid.Nil {
		return true
	}
	return e.CustomerID == t.CustomerID
}

// ErrCustomerNotFound indicates missing customer
type ErrCustomerNotFound struct {
	CustomerID uuid.UUID
}

func (e ErrCustomerNotFound) Error() string {
	return "customer not found: " + e.CustomerID.String()
}

// Is implements the errors.Is interface for ErrCustomerNotFound
func (e ErrCustomerNotFound) Is(target error) bool {
	t, ok := target.(ErrCustomerNotFound)
	if !ok {
		return false
	}
	if t.CustomerID == uuid.Nil {
		return true
	}
	return e.CustomerID == t.CustomerID
}

// ErrDuplicatePhone indicates phone uniqueness violation
type ErrDuplicatePhone struct {
	Phone string
}

func (e ErrDuplicatePhone) Error() string {
	return "customer with phone already exists: " + e.Phone
}

// Is implements the errors.Is interface for ErrDuplicatePhone
func (e ErrDuplicatePhone) Is(target error) bool {
	t, ok := target.(ErrDuplicatePhone)
	if !ok {
		return false
	}
	if t.Phone == "" {
		return true
	}
	return e.Phone == t.Phone
}
