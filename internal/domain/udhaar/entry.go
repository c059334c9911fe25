package udhaar

import (
	"time"

	"github.com/google/uuid"

	"github.com/vastra-munim/internal/domain/shared"
)

// EntryKind defines how a credit entry arose
type EntryKind string

const (
	EntryKindInvoiceCredit    EntryKind = "INVOICE_CREDIT"
	EntryKindPayment          EntryKind = "PAYMENT"
	EntryKindManualAdjustment EntryKind = "MANUAL_ADJUSTMENT"
)

// Entry represents one append-only movement in a customer's udhaar ledger.
// Entries are never updated or deleted; the customer's balance column is the
// running total and the ledger is the audit trail behind it.
type Entry struct {
	EntryID       uuid.UUID            `json:"entry_id" bson:"entry_id"`
	CustomerID    uuid.UUID            `json:"customer_id" bson:"customer_id"`
	Kind          EntryKind            `json:"kind" bson:"kind"`
	Amount        int64                `json:"amount" bson:"amount"` // Paise, positive extends credit, negative settles it
	InvoiceID     *uuid.UUID           `json:"invoice_id,omitempty" bson:"invoice_id,omitempty"`
	InvoiceNumber string               `json:"invoice_number,omitempty" bson:"invoice_number,omitempty"`
	Method        shared.PaymentMethod `json:"method,omitempty" bson:"method,omitempty"`
	CommandID     uuid.UUID            `json:"command_id" bson:"command_id"`
	CorrelationID string               `json:"correlation_id,omitempty" bson:"correlation_id,omitempty"`
	Note          string               `json:"note,omitempty" bson:"note,omitempty"`
	BalanceAfter  int64                `json:"balance_after" bson:"balance_after"` // Paise, snapshot at entry time
	CreatedAt     time.Time            `json:"created_at" bson:"created_at"`
}
