package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vastra-munim/internal/domain/inventory"
	"github.com/vastra-munim/internal/platform/persistence"
)

const itemColumns = `id, name, fabric_type, color, width, quantity, unit, rate_per_unit, reorder_level, hsn_code, version, created_at, updated_at`

// InventoryRepository implements the inventory.Repository interface for PostgreSQL
type InventoryRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewInventoryRepository creates a new PostgreSQL inventory repository
func NewInventoryRepository(logger *slog.Logger, db *persistence.PostgresDB) inventory.Repository {
	return &InventoryRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction
func (r *InventoryRepository) WithTx(tx pgx.Tx) inventory.Repository {
	return &InventoryRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new inventory item. A duplicate fabric/color/width triple
// surfaces as ErrDuplicateVariant.
func (r *InventoryRepository) Create(ctx context.Context, item *inventory.Item) error {
	query := `
		INSERT INTO inventory_items (id, name, fabric_type, color, width, quantity, unit, rate_per_unit, reorder_level, hsn_code, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.querier.Exec(ctx, query,
		item.ID,
		item.Name,
		item.FabricType,
		item.Color,
		item.Width,
		item.Quantity,
		item.Unit,
		item.RatePerUnit,
		item.ReorderLevel,
		item.HSNCode,
		item.Version,
		item.CreatedAt,
		item.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return inventory.ErrDuplicateVariant{FabricType: item.FabricType, Color: item.Color, Width: item.Width}
		}
		r.logger.Error("Failed to create inventory item", "error", err)
		return fmt.Errorf("failed to create inventory item: %w", err)
	}

	return nil
}

// GetByID retrieves an item by its ID
func (r *InventoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*inventory.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM inventory_items WHERE id = $1`

	item, err := r.scanOne(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, inventory.ErrItemNotFound{ItemID: id}
		}
		r.logger.Error("Failed to get inventory item", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get inventory item: %w", err)
	}

	return item, nil
}

// Update updates an existing item using optimistic locking
func (r *InventoryRepository) Update(ctx context.Context, item *inventory.Item) error {
	query := `
		UPDATE inventory_items
		SET name = $1, fabric_type = $2, color = $3, width = $4, quantity = $5, unit = $6, rate_per_unit = $7, reorder_level = $8, hsn_code = $9, version = $10, updated_at = $11
		WHERE id = $12 AND version = $13
	`

	result, err := r.querier.Exec(ctx, query,
		item.Name,
		item.FabricType,
		item.Color,
		item.Width,
		item.Quantity,
		item.Unit,
		item.RatePerUnit,
		item.ReorderLevel,
		item.HSNCode,
		item.Version,
		item.UpdatedAt,
		item.ID,
		item.Version-1, // Check previous version for optimistic locking
	)
	if err != nil {
		r.logger.Error("Failed to update inventory item", "id", item.ID.String(), "error", err)
		return fmt.Errorf("failed to update inventory item: %w", err)
	}

	if result.RowsAffected() == 0 {
		return inventory.ErrConcurrentModification{ItemID: item.ID}
	}

	return nil
}

// SearchByAttributes returns items matching the given fabric and color
// filters. Empty filters match everything; scoring happens in the resolver.
func (r *InventoryRepository) SearchByAttributes(ctx context.Context, fabricType, color string, limit int) ([]*inventory.Item, error) {
	query := `
		SELECT ` + itemColumns + `
		FROM inventory_items
		WHERE ($1 = '' OR fabric_type ILIKE '%' || $1 || '%')
		  AND ($2 = '' OR color ILIKE '%' || $2 || '%')
		ORDER BY fabric_type, color
		LIMIT $3
	`

	rows, err := r.querier.Query(ctx, query, fabricType, color, limit)
	if err != nil {
		r.logger.Error("Failed to search inventory items", "fabric_type", fabricType, "color", color, "error", err)
		return nil, fmt.Errorf("failed to search inventory items: %w", err)
	}
	defer rows.Close()

	return r.scanAll(rows)
}

// ListAll returns every item, ordered by fabric type then color
func (r *InventoryRepository) ListAll(ctx context.Context) ([]*inventory.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM inventory_items ORDER BY fabric_type, color`

	rows, err := r.querier.Query(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list inventory items", "error", err)
		return nil, fmt.Errorf("failed to list inventory items: %w", err)
	}
	defer rows.Close()

	return r.scanAll(rows)
}

// ListLowStock returns items at or below their reorder level
func (r *InventoryRepository) ListLowStock(ctx context.Context) ([]*inventory.Item, error) {
	query := `
		SELECT ` + itemColumns + `
		FROM inventory_items
		WHERE reorder_level > 0 AND quantity <= reorder_level
		ORDER BY quantity
	`

	rows, err := r.querier.Query(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list low stock items", "error", err)
		return nil, fmt.Errorf("failed to list low stock items: %w", err)
	}
	defer rows.Close()

	return r.scanAll(rows)
}

// AdjustQuantity atomically changes stock by delta using optimistic locking.
// The quantity CHECK constraint keeps stock from going negative even under
// a lost-update race.
func (r *InventoryRepository) AdjustQuantity(ctx context.Context, id uuid.UUID, delta int64, version int) error {
	query := `
		UPDATE inventory_items
		SET quantity = quantity + $1, version = version + 1, updated_at = NOW()
		WHERE id = $2 AND version = $3
	`

	result, err := r.querier.Exec(ctx, query, delta, id, version)
	if err != nil {
		r.logger.Error("Failed to adjust inventory quantity", "id", id.String(), "error", err)
		return fmt.Errorf("failed to adjust inventory quantity: %w", err)
	}

	if result.RowsAffected() == 0 {
		return inventory.ErrConcurrentModification{ItemID: id}
	}

	return nil
}

// LockForUpdate obtains a pessimistic lock on the item and returns its current state.
// This should be used within a transaction when strong consistency is required.
func (r *InventoryRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*inventory.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM inventory_items WHERE id = $1 FOR UPDATE`

	item, err := r.scanOne(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, inventory.ErrItemNotFound{ItemID: id}
		}
		r.logger.Error("Failed to lock inventory item for update", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to lock inventory item for update: %w", err)
	}

	return item, nil
}

func (r *InventoryRepository) scanOne(row pgx.Row) (*inventory.Item, error) {
	var item inventory.Item
	err := row.Scan(
		&item.ID,
		&item.Name,
		&item.FabricType,
		&item.Color,
		&item.Width,
		&item.Quantity,
		&item.Unit,
		&item.RatePerUnit,
		&item.ReorderLevel,
		&item.HSNCode,
		&item.Version,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *InventoryRepository) scanAll(rows pgx.Rows) ([]*inventory.Item, error) {
	var items []*inventory.Item
	for rows.Next() {
		item, err := r.scanOne(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan inventory row: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate inventory rows: %w", err)
	}
	return items, nil
}
