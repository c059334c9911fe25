package invoice

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/vastra-munim/internal/domain/shared"
)

// Common errors
var (
	ErrNoLines          = errors.New("invoice must have at least one line item")
	ErrInvalidAmount    = errors.New("amount must be positive")
	ErrAlreadyVoid      = errors.New("invoice is void")
	ErrAlreadyPaid      = errors.New("invoice is already fully paid")
	ErrOverpayment      = errors.New("payment exceeds outstanding invoice amount")
	ErrInvalidLine      = errors.New("line item quantity and rate must be positive")
	ErrVoidAfterPayment = errors.New("cannot void an invoice with recorded payments")
)

// GST rate halves applied to pucca invoices, in basis points
const (
	CGSTRateBps = 250
	SGSTRateBps = 250
)

// Status defines invoice payment states
type Status string

const (
	StatusPending Status = "PENDING"
	StatusPartial Status = "PARTIAL"
	StatusPaid    Status = "PAID"
	StatusOverdue Status = "OVERDUE"
	StatusVoid    Status = "VOID"
)

// LineItem is one billed row on an invoice. Rate and amount are frozen at
// creation time; later rate changes on the item never touch issued invoices.
type LineItem struct {
	ID          uuid.UUID  `json:"id"`
	InvoiceID   uuid.UUID  `json:"invoice_id"`
	ItemID      *uuid.UUID `json:"item_id,omitempty"` // Nil on ad-hoc amount lines
	Description string     `json:"description"`
	HSNCode     string     `json:"hsn_code,omitempty"`
	Quantity    int64      `json:"quantity"`
	Unit        string     `json:"unit"`
	UnitRate    int64      `json:"unit_rate"` // Paise
	Amount      int64      `json:"amount"`    // Paise, Quantity * UnitRate
}

// Invoice represents a bill issued to a customer. Monetary fields are paise.
type Invoice struct {
	ID          uuid.UUID          `json:"id"`
	Number      string             `json:"number"` // e.g. KT/20260830/42
	CustomerID  uuid.UUID          `json:"customer_id"`
	Type        shared.InvoiceType `json:"type"`
	Status      Status             `json:"status"`
	Lines       []LineItem         `json:"lines"`
	Subtotal    int64              `json:"subtotal"`
	CGSTAmount  int64              `json:"cgst_amount"` // 0 on kacha invoices
	SGSTAmount  int64              `json:"sgst_amount"`
	Total       int64              `json:"total"`
	AmountPaid  int64              `json:"amount_paid"`
	IssuedAt    time.Time          `json:"issued_at"`
	DueAt       time.Time          `json:"due_at"`
	Version     int                `json:"version"` // For optimistic locking
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// NewInvoice builds an invoice from resolved line requests. The caller
// assigns Number from the monotonic sequence inside the same transaction.
func NewInvoice(customerID uuid.UUID, invoiceType shared.InvoiceType, dueIn time.Duration) *Invoice {
	now := time.Now()
	return &Invoice{
		ID:         uuid.New(),
		CustomerID: customerID,
		Type:       invoiceType,
		Status:     StatusPending,
		IssuedAt:   now,
		DueAt:      now.Add(dueIn),
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// AddLine appends a billed row and recomputes totals. itemID is nil for
// ad-hoc amount lines that are not backed by an inventory item.
func (inv *Invoice) AddLine(itemID *uuid.UUID, description, hsnCode string, quantity int64, unit string, unitRate int64) error {
	if quantity <= 0 || unitRate <= 0 {
		return ErrInvalidLine
	}

	inv.Lines = append(inv.Lines, LineItem{
		ID:          uuid.New(),
		InvoiceID:   inv.ID,
		ItemID:      itemID,
		Description: description,
		HSNCode:     hsnCode,
		Quantity:    quantity,
		Unit:        unit,
		UnitRate:    unitRate,
		Amount:      quantity * unitRate,
	})
	inv.recalculate()
	return nil
}

// Finalize validates the invoice is billable
func (inv *Invoice) Finalize() error {
	if len(inv.Lines) == 0 {
		return ErrNoLines
	}
	inv.recalculate()
	return nil
}

// RecordPayment applies a payment and moves the status forward.
// Fully settling an overdue invoice clears the overdue flag.
func (inv *Invoice) RecordPayment(amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if inv.Status == StatusVoid {
		return ErrAlreadyVoid
	}
	if inv.Status == StatusPaid {
		return ErrAlreadyPaid
	}
	if inv.AmountPaid+amount > inv.Total {
		return ErrOverpayment
	}

	inv.AmountPaid += amount
	if inv.AmountPaid == inv.Total {
		inv.Status = StatusPaid
	} else {
		inv.Status = StatusPartial
	}
	inv.UpdatedAt = time.Now()
	inv.Version++
	return nil
}

// Outstanding returns the unpaid remainder in paise
func (inv *Invoice) Outstanding() int64 {
	return inv.Total - inv.AmountPaid
}

// MarkOverdue flags an unpaid invoice past its due date
func (inv *Invoice) MarkOverdue() error {
	if inv.Status == StatusVoid {
		return ErrAlreadyVoid
	}
	if inv.Status == StatusPaid {
		return ErrAlreadyPaid
	}

	inv.Status = StatusOverdue
	inv.UpdatedAt = time.Now()
	inv.Version++
	return nil
}

// Void cancels an unpaid invoice. Paid or partially paid invoices are
// immutable; corrections go through a fresh credit adjustment.
func (inv *Invoice) Void() error {
	if inv.Status == StatusVoid {
		return ErrAlreadyVoid
	}
	if inv.AmountPaid > 0 {
		return ErrVoidAfterPayment
	}

	inv.Status = StatusVoid
	inv.UpdatedAt = time.Now()
	inv.Version++
	return nil
}

func (inv *Invoice) recalculate() {
	var subtotal int64
	for _, line := range inv.Lines {
		subtotal += line.Amount
	}
	inv.Subtotal = subtotal
	if inv.Type == shared.InvoiceTypePucca {
		inv.CGSTAmount = subtotal * CGSTRateBps / 10000
		inv.SGSTAmount = subtotal * SGSTRateBps / 10000
	} else {
		inv.CGSTAmount = 0
		inv.SGSTAmount = 0
	}
	inv.Total = inv.Subtotal + inv.CGSTAmount + inv.SGSTAmount
	inv.UpdatedAt = time.Now()
}
