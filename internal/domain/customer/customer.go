package customer

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrEmptyName          = errors.New("customer name cannot be empty")
	ErrInvalidPhone       = errors.New("customer phone must be a non-empty digit string")
	ErrInvalidAmount      = errors.New("amount must be positive")
	ErrNegativeLimit      = errors.New("credit limit cannot be negative")
	ErrCreditLimitReached = errors.New("credit limit exceeded")
	ErrInactive           = errors.New("customer is not active")
)

// Status defines the customer lifecycle. Customers are never hard-deleted;
// invoices and udhaar entries keep referencing deactivated records.
type Status string

const (
	StatusActive      Status = "ACTIVE"
	StatusDeactivated Status = "DEACTIVATED"
)

// Customer represents a shop customer with a running udhaar balance
type Customer struct {
	ID               uuid.UUID  `json:"id"`
	Name             string     `json:"name"`
	Phone            string     `json:"phone"`
	CreditLimit      int64      `json:"credit_limit"`   // Paise, 0 means no limit
	CreditBalance    int64      `json:"credit_balance"` // Paise currently owed to the shop
	IsBulkBuyer      bool       `json:"is_bulk_buyer"`
	Status           Status     `json:"status"`
	Version          int        `json:"version"` // For optimistic locking
	LastTransactedAt *time.Time `json:"last_transacted_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// NewCustomer creates a new active customer with a zero balance
func NewCustomer(name string, phone string, creditLimit int64) (*Customer, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	if phone == "" {
		return nil, ErrInvalidPhone
	}
	if creditLimit < 0 {
		return nil, ErrNegativeLimit
	}

	return &Customer{
		ID:          uuid.New(),
		Name:        name,
		Phone:       phone,
		CreditLimit: creditLimit,
		Status:      StatusActive,
		Version:     1,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}, nil
}

// ExtendCredit increases the customer's outstanding balance, enforcing the
// credit limit when one is set. An approved override skips the limit check:
// crossing the limit is exactly what the owner's approval authorizes.
func (c *Customer) ExtendCredit(amount int64, approved bool) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if c.Status != StatusActive {
		return ErrInactive
	}
	if !approved && c.CreditLimit > 0 && c.CreditBalance+amount > c.CreditLimit {
		return ErrCreditLimitReached
	}

	c.CreditBalance += amount
	c.touch()
	return nil
}

// SettleCredit reduces the outstanding balance by a payment. Overpayment is
// allowed and leaves a negative balance, meaning the shop owes the customer.
func (c *Customer) SettleCredit(amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	c.CreditBalance -= amount
	c.touch()
	return nil
}

// Deactivate soft-deletes the customer
func (c *Customer) Deactivate() {
	c.Status = StatusDeactivated
	c.UpdatedAt = time.Now()
	c.Version++
}

// MarkBulkBuyer flags customers who regularly place bulk orders
func (c *Customer) MarkBulkBuyer() {
	c.IsBulkBuyer = true
	c.UpdatedAt = time.Now()
	c.Version++
}

func (c *Customer) touch() {
	now := time.Now()
	c.LastTransactedAt = &now
	c.UpdatedAt = now
	c.Version++
}
