package approval

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines approval request persistence operations
type Repository interface {
	Create(ctx context.Context, request *Request) error
	GetByID(ctx context.Context, id uuid.UUID) (*Request, error)
	GetByCommandID(ctx context.Context, commandID uuid.UUID) (*Request, error)

	// Update persists a decision using optimistic locking; a concurrent
	// decision surfaces as ErrConcurrentModification
	Update(ctx context.Context, request *Request) error

	// ListPending returns pending requests, oldest first
	ListPending(ctx context.Context, limit int) ([]*Request, error)

	// ListPendingExpiredBefore returns pending requests whose TTL elapsed
	ListPendingExpiredBefore(ctx context.Context, cutoff time.Time) ([]*Request, error)

	WithTx(tx pgx.Tx) Repository
}

// ErrConcurrentModification indicates optimistic lock failure
type ErrConcurrentModification struct {
	RequestID uuid.UUID
}

func (e ErrConcurrentModification) Error() string {
	return "concurrent modification detected for approval request: " + e.RequestID.String()
}

// Is implements the errors.Is interface for ErrConcurrentModification
func (e ErrConcurrentModification) Is(target error) bool {
	t, ok := target.(ErrConcurrentModification)
	if !ok {
		return false
	}
	if t.RequestID == uuid.Nil {
		return true
	}
	return e.RequestID == t.RequestID
}

// ErrRequestNotFound indicates missing approval request
type ErrRequestNotFound struct {
	RequestID uuid.UUID
}

func (e ErrRequestNotFound) Error() string {
	return "approval request not found: " + e.RequestID.String()
}

// Is implements the errors.Is interface for ErrRequestNotFound
func (e ErrRequestNotFound) Is(target error) bool {
	t, ok := target.(ErrRequestNotFound)
	if !ok {
		return false
	}
	if t.RequestID == uuid.Nil {
		return true
	}
	return e.RequestID == t.RequestID
}
