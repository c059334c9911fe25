package inventory

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrEmptyName         = errors.New("item name cannot be empty")
	ErrInvalidQuantity   = errors.New("quantity must be positive")
	ErrInvalidRate       = errors.New("rate must be positive")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// Item represents one fabric variant in stock. Variants are keyed by the
// fabric/color/width triple; the same fabric in two colors is two items.
type Item struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	FabricType   string    `json:"fabric_type"`
	Color        string    `json:"color"`
	Width        int       `json:"width"` // Inches, 0 when not applicable
	Quantity     int64     `json:"quantity"`
	Unit         string    `json:"unit"`          // "meter", "piece", "than"
	RatePerUnit  int64     `json:"rate_per_unit"` // Paise
	ReorderLevel int64     `json:"reorder_level"`
	HSNCode      string    `json:"hsn_code"`
	Version      int       `json:"version"` // For optimistic locking
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewItem creates a new inventory item
func NewItem(name, fabricType, color string, width int, quantity int64, unit string, ratePerUnit int64, reorderLevel int64, hsnCode string) (*Item, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	if quantity < 0 {
		return nil, ErrInvalidQuantity
	}
	if ratePerUnit <= 0 {
		return nil, ErrInvalidRate
	}

	return &Item{
		ID:           uuid.New(),
		Name:         name,
		FabricType:   fabricType,
		Color:        color,
		Width:        width,
		Quantity:     quantity,
		Unit:         unit,
		RatePerUnit:  ratePerUnit,
		ReorderLevel: reorderLevel,
		HSNCode:      hsnCode,
		Version:      1,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}, nil
}

// Reserve subtracts quantity for a sale. Stock never goes negative.
func (i *Item) Reserve(quantity int64) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if i.Quantity < quantity {
		return ErrInsufficientStock
	}

	i.Quantity -= quantity
	i.UpdatedAt = time.Now()
	i.Version++
	return nil
}

// Restock adds quantity back to stock
func (i *Item) Restock(quantity int64) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	i.Quantity += quantity
	i.UpdatedAt = time.Now()
	i.Version++
	return nil
}

// IsLowStock reports whether the item has fallen to its reorder level
func (i *Item) IsLowStock() bool {
	return i.ReorderLevel > 0 && i.Quantity <= i.ReorderLevel
}

// DisplayName renders the variant the way it reads in a reply,
// e.g. `Cotton Red 44"`
func (i *Item) DisplayName() string {
	name := i.FabricType
	if name == "" {
		name = i.Name
	}
	if i.Color != "" {
		name += " " + i.Color
	}
	if i.Width > 0 {
		name = fmt.Sprintf("%s %d\"", name, i.Width)
	}
	return name
}
