package shared

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrUnknownCommandKind = errors.New("unknown command kind")
	ErrMissingPayload     = errors.New("command payload missing for kind")
)

// CommandKind defines the closed set of business actions the executor can apply.
// Adding a kind means adding a payload struct, a validation arm and an
// executor arm; the compiler finds the places.
type CommandKind string

const (
	CommandCreateInvoice  CommandKind = "CREATE_INVOICE"
	CommandRecordPayment  CommandKind = "RECORD_PAYMENT"
	CommandAddCustomer    CommandKind = "ADD_CUSTOMER"
	CommandAddInventory   CommandKind = "ADD_INVENTORY"
	CommandRestockItem    CommandKind = "RESTOCK_ITEM"
	CommandSendReminder   CommandKind = "SEND_REMINDER"
	CommandCheckInventory CommandKind = "CHECK_INVENTORY"
	CommandCheckUdhaar    CommandKind = "CHECK_UDHAAR"
	CommandLowStockReport CommandKind = "LOW_STOCK_REPORT"
)

// InvoiceType distinguishes GST-compliant invoices from informal receipts
type InvoiceType string

const (
	InvoiceTypePucca InvoiceType = "pucca" // GST invoice
	InvoiceTypeKacha InvoiceType = "kacha" // Informal receipt
)

// PaymentMethod defines how a customer payment arrived
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "cash"
	PaymentMethodUPI          PaymentMethod = "upi"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodCheque       PaymentMethod = "cheque"
)

// Command is a fully resolved, validated business action. All entity
// references are typed ids, never raw strings; amounts are paise. Exactly one
// payload field is set, selected by Kind. Commands are serialized as-is into
// pending approval requests, so every field must round-trip through JSON.
type Command struct {
	CommandID     uuid.UUID   `json:"command_id"`
	Kind          CommandKind `json:"kind"`
	Sensitive     bool        `json:"sensitive"`
	SensitiveNote string      `json:"sensitive_note,omitempty"` // Why the command was flagged
	Approved      bool        `json:"-"`                        // Set by the gate after the owner approved; never persisted
	IssuedBy      string      `json:"issued_by"`                // wa_id of the requester
	CorrelationID string      `json:"correlation_id,omitempty"`
	IssuedAt      time.Time   `json:"issued_at"`

	Invoice        *InvoicePayload        `json:"invoice,omitempty"`
	Payment        *PaymentPayload        `json:"payment,omitempty"`
	NewCustomer    *NewCustomerPayload    `json:"new_customer,omitempty"`
	NewItem        *NewItemPayload        `json:"new_item,omitempty"`
	Restock        *RestockPayload        `json:"restock,omitempty"`
	Reminder       *ReminderPayload       `json:"reminder,omitempty"`
	InventoryQuery *InventoryQueryPayload `json:"inventory_query,omitempty"`
	UdhaarQuery    *UdhaarQueryPayload    `json:"udhaar_query,omitempty"`
}

// LineItemRequest is one resolved order line inside an invoice command
type LineItemRequest struct {
	ItemID   uuid.UUID `json:"item_id"`
	Quantity int64     `json:"quantity"`  // In the item's native unit
	UnitRate int64     `json:"unit_rate"` // Paise per unit, frozen at resolution time
}

// InvoicePayload creates an invoice with its line items, decrements inventory
// and appends the customer's invoice credit atomically. An amount-only bill
// ("bill Ramesh for 5000") carries AdhocAmount and no lines; no inventory
// moves in that case.
type InvoicePayload struct {
	CustomerID  uuid.UUID         `json:"customer_id"`
	Lines       []LineItemRequest `json:"lines,omitempty"`
	AdhocAmount int64             `json:"adhoc_amount,omitempty"` // Paise
	InvoiceType InvoiceType       `json:"invoice_type"`
}

// PaymentPayload records a customer payment, optionally against one invoice
type PaymentPayload struct {
	CustomerID uuid.UUID     `json:"customer_id"`
	Amount     int64         `json:"amount"` // Paise
	Method     PaymentMethod `json:"method"`
	InvoiceID  *uuid.UUID    `json:"invoice_id,omitempty"`
}

// NewCustomerPayload registers a customer record
type NewCustomerPayload struct {
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	CreditLimit int64  `json:"credit_limit"` // Paise
}

// NewItemPayload adds a new inventory variant
type NewItemPayload struct {
	Name         string `json:"name"`
	FabricType   string `json:"fabric_type"`
	Color        string `json:"color"`
	Width        int    `json:"width"` // Inches
	Quantity     int64  `json:"quantity"`
	Unit         string `json:"unit"`
	RatePerUnit  int64  `json:"rate_per_unit"` // Paise
	ReorderLevel int64  `json:"reorder_level"`
	HSNCode      string `json:"hsn_code"`
}

// RestockPayload increments stock for an existing item
type RestockPayload struct {
	ItemID   uuid.UUID `json:"item_id"`
	Quantity int64     `json:"quantity"`
}

// ReminderPayload sends a payment reminder to an overdue customer.
// Always sensitive: outbound dunning messages need owner sign-off.
type ReminderPayload struct {
	CustomerID    uuid.UUID `json:"customer_id"`
	CustomerPhone string    `json:"customer_phone"`
	CustomerName  string    `json:"customer_name"`
	OverdueAmount int64     `json:"overdue_amount"` // Paise
}

// InventoryQueryPayload reads stock levels, optionally filtered by variant
type InventoryQueryPayload struct {
	ItemID     *uuid.UUID `json:"item_id,omitempty"`
	FabricType string     `json:"fabric_type,omitempty"`
	Color      string     `json:"color,omitempty"`
}

// UdhaarQueryPayload reads a customer's credit standing, or all pending
// balances when CustomerID is nil
type UdhaarQueryPayload struct {
	CustomerID *uuid.UUID `json:"customer_id,omitempty"`
}

// Validate checks that the payload matching Kind is present
func (c *Command) Validate() error {
	switch c.Kind {
	case CommandCreateInvoice:
		if c.Invoice == nil || (len(c.Invoice.Lines) == 0 && c.Invoice.AdhocAmount <= 0) {
			return ErrMissingPayload
		}
	case CommandRecordPayment:
		if c.Payment == nil {
			return ErrMissingPayload
		}
	case CommandAddCustomer:
		if c.NewCustomer == nil {
			return ErrMissingPayload
		}
	case CommandAddInventory:
		if c.NewItem == nil {
			return ErrMissingPayload
		}
	case CommandRestockItem:
		if c.Restock == nil {
			return ErrMissingPayload
		}
	case CommandSendReminder:
		if c.Reminder == nil {
			return ErrMissingPayload
		}
	case CommandCheckInventory:
		if c.InventoryQuery == nil {
			return ErrMissingPayload
		}
	case CommandCheckUdhaar:
		if c.UdhaarQuery == nil {
			return ErrMissingPayload
		}
	case CommandLowStockReport:
		// No payload
	default:
		return ErrUnknownCommandKind
	}
	return nil
}

// Mutating reports whether executing the command writes business state.
// Query kinds never need approval gating regardless of policy.
func (c *Command) Mutating() bool {
	switch c.Kind {
	case CommandCheckInventory, CommandCheckUdhaar, CommandLowStockReport:
		return false
	}
	return true
}
