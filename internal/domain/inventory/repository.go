package inventory

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines inventory persistence operations
type Repository interface {
	Create(ctx context.Context, item *Item) error
	GetByID(ctx context.Context, id uuid.UUID) (*Item, error)
	Update(ctx context.Context, item *Item) error

	// SearchByAttributes returns the candidate pool for fuzzy variant
	// resolution. Empty filters match everything.
	SearchByAttributes(ctx context.Context, fabricType, color string, limit int) ([]*Item, error)

	// ListAll returns every item, ordered by fabric type then color
	ListAll(ctx context.Context) ([]*Item, error)

	// ListLowStock returns items at or below their reorder level
	ListLowStock(ctx context.Context) ([]*Item, error)

	// AdjustQuantity uses optimistic locking to change stock by delta
	AdjustQuantity(ctx context.Context, id uuid.UUID, delta int64, version int) error

	// LockForUpdate acquires a pessimistic lock for command execution
	LockForUpdate(ctx context.Context, id uuid.UUID) (*Item, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrConcurrentModification indicates optimistic lock failure
type ErrConcurrentModification struct {
	ItemID uuid.UUID
}

func (e ErrConcurrentModification) Error() string {
	return "concurrent modification detected for item: " + e.ItemID.String()
}

// Is implements the errors.Is interface for ErrConcurrentModification
func (e ErrConcurrentModification) Is(target error) bool {
	t, ok := target.(ErrConcurrentModification)
	if !ok {
		return false
	}
	if t.ItemID == uuid.Nil {
		return true
	}
	return e.ItemID == t.ItemID
}

// ErrItemNotFound indicates missing inventory item
type ErrItemNotFound struct {
	ItemID uuid.UUID
}

func (e ErrItemNotFound) Error() string {
	return "inventory item not found: " + e.ItemID.String()
}

// Is implements the errors.Is interface for ErrItemNotFound
func (e ErrItemNotFound) Is(target error) bool {
	t, ok := target.(ErrItemNotFound)
	if !ok {
		return false
	}
	if t.ItemID == uuid.Nil {
		return true
	}
	return e.ItemID == t.ItemID
}

// ErrDuplicateVariant indicates fabric/color/width uniqueness violation
type ErrDuplicateVariant struct {
	FabricType string
	Color      string
	Width      int
}

func (e ErrDuplicateVariant) Error() string {
	return "inventory variant already exists: " + e.FabricType + "/" + e.Color
}

// Is implements the errors.Is interface for ErrDuplicateVariant
func (e ErrDuplicateVariant) Is(target error) bool {
	t, ok := target.(ErrDuplicateVariant)
	if !ok {
		return false
	}
	if t.FabricType == "" && t.Color == "" && t.Width == 0 {
		return true
	}
	return e == t
}
