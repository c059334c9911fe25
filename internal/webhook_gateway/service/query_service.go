package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/vastra-munim/internal/domain/convlog"
	"github.com/vastra-munim/internal/domain/customer"
	"github.com/vastra-munim/internal/domain/inventory"
	"github.com/vastra-munim/internal/domain/invoice"
	"github.com/vastra-munim/internal/domain/udhaar"
)

// QueryServiceImpl implements the QueryService interface
type QueryServiceImpl struct {
	customerRepo  customer.Repository
	inventoryRepo inventory.Repository
	invoiceRepo   invoice.Repository
	ledgerRepo    udhaar.Repository
	convLogRepo   convlog.Repository
	logger        *slog.Logger
}

// NewQueryService creates a new query service
func NewQueryService(
	logger *slog.Logger,
	customerRepo customer.Repository,
	inventoryRepo inventory.Repository,
	invoiceRepo invoice.Repository,
	ledgerRepo udhaar.Repository,
	convLogRepo convlog.Repository,
) QueryService {
	return &QueryServiceImpl{
		customerRepo:  customerRepo,
		inventoryRepo: inventoryRepo,
		invoiceRepo:   invoiceRepo,
		ledgerRepo:    ledgerRepo,
		convLogRepo:   convLogRepo,
		logger:        logger,
	}
}

// SearchCustomers returns active customers whose name matches the query
// prefix. An empty query lists customers with an outstanding balance.
func (s *QueryServiceImpl) SearchCustomers(ctx context.Context, query string, limit int) ([]*customer.Customer, error) {
	if query == "" {
		return s.customerRepo.ListWithBalance(ctx, 1)
	}
	return s.customerRepo.SearchByName(ctx, query, limit)
}

// GetCustomer retrieves a customer by id. Returns nil if not found.
func (s *QueryServiceImpl) GetCustomer(ctx context.Context, id uuid.UUID) (*customer.Customer, error) {
	c, err := s.customerRepo.GetByID(ctx, id)
	if err != nil {
		var notFound customer.ErrCustomerNotFound
		if errors.As(err, &notFound) {
			return nil, nil
		}
		s.logger.Error("Failed to get customer", "customer_id", id.String(), "error", err)
		return nil, err
	}
	return c, nil
}

// GetCustomerLedger retrieves paginated udhaar entries for a customer.
// Returns entries, total count, and any error.
func (s *QueryServiceImpl) GetCustomerLedger(ctx context.Context, customerID uuid.UUID, page, perPage int) ([]*udhaar.Entry, int64, error) {
	offset := (page - 1) * perPage

	entries, err := s.ledgerRepo.GetByCustomerID(ctx, customerID, perPage, offset)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.ledgerRepo.CountByCustomerID(ctx, customerID)
	if err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}

// ListInventory returns all items, or only those at their reorder level
func (s *QueryServiceImpl) ListInventory(ctx context.Context, lowStockOnly bool) ([]*inventory.Item, error) {
	if lowStockOnly {
		return s.inventoryRepo.ListLowStock(ctx)
	}
	return s.inventoryRepo.ListAll(ctx)
}

// GetConversation retrieves a contact's logged WhatsApp turns, newest first
func (s *QueryServiceImpl) GetConversation(ctx context.Context, waID string, limit, offset int) ([]*convlog.Message, error) {
	return s.convLogRepo.ListByWaID(ctx, waID, limit, offset)
}

// GetInvoiceByNumber retrieves an invoice by its number. Returns nil if not found.
func (s *QueryServiceImpl) GetInvoiceByNumber(ctx context.Context, number string) (*invoice.Invoice, error) {
	inv, err := s.invoiceRepo.GetByNumber(ctx, number)
	if err != nil {
		var notFound invoice.ErrInvoiceNotFound
		if errors.As(err, &notFound) {
			return nil, nil
		}
		s.logger.Error("Failed to get invoice", "number", number, "error", err)
		return nil, err
	}
	return inv, nil
}
