package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/vastra-munim/internal/command"
	"github.com/vastra-munim/internal/domain/approval"
	"github.com/vastra-munim/internal/domain/convlog"
	"github.com/vastra-munim/internal/domain/customer"
	"github.com/vastra-munim/internal/domain/inventory"
	"github.com/vastra-munim/internal/domain/invoice"
	"github.com/vastra-munim/internal/domain/shared"
	"github.com/vastra-munim/internal/domain/udhaar"
)

// IngestService admits inbound WhatsApp messages and hands them to the
// processing pipeline
type IngestService interface {
	// Ingest dedups and publishes the given messages, returning how many
	// were handed to the pipeline. Already-processed messages are skipped
	// silently.
	Ingest(ctx context.Context, messages []*shared.InboundMessage) (int, error)
}

// QueryService serves read-only lookups over shop state
type QueryService interface {
	SearchCustomers(ctx context.Context, query string, limit int) ([]*customer.Customer, error)
	GetCustomer(ctx context.Context, id uuid.UUID) (*customer.Customer, error)

	// GetCustomerLedger returns paginated udhaar entries, newest first,
	// plus the total entry count
	GetCustomerLedger(ctx context.Context, customerID uuid.UUID, page, perPage int) ([]*udhaar.Entry, int64, error)

	ListInventory(ctx context.Context, lowStockOnly bool) ([]*inventory.Item, error)
	GetInvoiceByNumber(ctx context.Context, number string) (*invoice.Invoice, error)

	// GetConversation returns a contact's logged WhatsApp turns, newest first
	GetConversation(ctx context.Context, waID string, limit, offset int) ([]*convlog.Message, error)
}

// ApprovalService decides parked sensitive commands. The hitl gate
// satisfies this.
type ApprovalService interface {
	ListPending(ctx context.Context, limit int) ([]*approval.Request, error)
	Approve(ctx context.Context, requestID uuid.UUID, decidedBy string) (*approval.Request, *command.Outcome, error)
	Reject(ctx context.Context, requestID uuid.UUID, decidedBy string) (*approval.Request, error)
}
