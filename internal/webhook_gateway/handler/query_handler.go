package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vastra-munim/internal/domain/convlog"
	"github.com/vastra-munim/internal/domain/customer"
	"github.com/vastra-munim/internal/domain/inventory"
	"github.com/vastra-munim/internal/domain/invoice"
	"github.com/vastra-munim/internal/domain/udhaar"
	"github.com/vastra-munim/internal/webhook_gateway/service"
)

const customerSearchLimit = 25

// QueryHandler handles read-only HTTP requests over shop state
type QueryHandler struct {
	queryService service.QueryService
	logger       *slog.Logger
}

// NewQueryHandler creates a new query handler
func NewQueryHandler(logger *slog.Logger, queryService service.QueryService) *QueryHandler {
	return &QueryHandler{
		queryService: queryService,
		logger:       logger,
	}
}

// SearchCustomers lists customers matching an optional name query. Without a
// query it lists customers carrying an outstanding balance.
func (h *QueryHandler) SearchCustomers(c *gin.Context) {
	customers, err := h.queryService.SearchCustomers(c.Request.Context(), c.Query("q"), customerSearchLimit)
	if err != nil {
		h.logger.Error("Failed to search customers", "error", err)
		RespondInternalError(c)
		return
	}

	responses := make([]CustomerResponse, 0, len(customers))
	for _, cust := range customers {
		responses = append(responses, mapCustomerToResponse(cust))
	}
	RespondOK(c, responses)
}

// GetCustomer retrieves customer details by ID, returns 404 if not found
func (h *QueryHandler) GetCustomer(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	cust, err := h.queryService.GetCustomer(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("Failed to get customer", "customer_id", id.String(), "error", err)
		RespondInternalError(c)
		return
	}
	if cust == nil {
		RespondNotFound(c, "Customer not found")
		return
	}

	RespondOK(c, mapCustomerToResponse(cust))
}

// GetCustomerLedger retrieves paginated udhaar history for a customer
func (h *QueryHandler) GetCustomerLedger(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		h.logger.Error("Invalid pagination parameters", "error", err)
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	entries, total, err := h.queryService.GetCustomerLedger(c.Request.Context(), id, pagination.Page, pagination.PerPage)
	if err != nil {
		h.logger.Error("Failed to get customer ledger", "customer_id", id.String(), "error", err)
		RespondInternalError(c)
		return
	}

	responses := make([]LedgerEntryResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, mapLedgerEntryToResponse(entry))
	}
	RespondWithPaginatedData(c, http.StatusOK, responses, pagination.Page, pagination.PerPage, int(total))
}

// ListInventory lists all items, or only low-stock items when low_stock=true
func (h *QueryHandler) ListInventory(c *gin.Context) {
	lowStockOnly := c.Query("low_stock") == "true"

	items, err := h.queryService.ListInventory(c.Request.Context(), lowStockOnly)
	if err != nil {
		h.logger.Error("Failed to list inventory", "error", err)
		RespondInternalError(c)
		return
	}

	responses := make([]ItemResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, mapItemToResponse(item))
	}
	RespondOK(c, responses)
}

// GetConversation retrieves a contact's logged WhatsApp turns, newest first
func (h *QueryHandler) GetConversation(c *gin.Context) {
	waID := c.Param("wa_id")
	if waID == "" {
		RespondBadRequest(c, "Contact phone required")
		return
	}

	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		h.logger.Error("Invalid pagination parameters", "error", err)
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	turns, err := h.queryService.GetConversation(c.Request.Context(), waID,
		pagination.PerPage, (pagination.Page-1)*pagination.PerPage)
	if err != nil {
		h.logger.Error("Failed to get conversation", "wa_id", waID, "error", err)
		RespondInternalError(c)
		return
	}

	responses := make([]ConversationTurnResponse, 0, len(turns))
	for _, turn := range turns {
		responses = append(responses, mapConversationTurnToResponse(turn))
	}
	RespondOK(c, responses)
}

// GetInvoice retrieves an invoice by its number, returns 404 if not found.
// The number arrives as a catch-all path segment because invoice numbers
// contain slashes.
func (h *QueryHandler) GetInvoice(c *gin.Context) {
	number := strings.TrimPrefix(c.Param("number"), "/")
	if number == "" {
		RespondBadRequest(c, "Invoice number required")
		return
	}

	inv, err := h.queryService.GetInvoiceByNumber(c.Request.Context(), number)
	if err != nil {
		h.logger.Error("Failed to get invoice", "number", number, "error", err)
		RespondInternalError(c)
		return
	}
	if inv == nil {
		RespondNotFound(c, "Invoice not found")
		return
	}

	RespondOK(c, mapInvoiceToResponse(inv))
}

func (h *QueryHandler) parseID(c *gin.Context) (uuid.UUID, bool) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Error("Invalid customer ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid customer ID")
		return uuid.Nil, false
	}
	return id, true
}

func mapCustomerToResponse(cust *customer.Customer) CustomerResponse {
	return CustomerResponse{
		ID:            cust.ID.String(),
		Name:          cust.Name,
		Phone:         cust.Phone,
		CreditLimit:   cust.CreditLimit,
		CreditBalance: cust.CreditBalance,
		IsBulkBuyer:   cust.IsBulkBuyer,
		Status:        string(cust.Status),
		CreatedAt:     cust.CreatedAt.Format(time.RFC3339),
	}
}

func mapLedgerEntryToResponse(entry *udhaar.Entry) LedgerEntryResponse {
	return LedgerEntryResponse{
		EntryID:       entry.EntryID.String(),
		CustomerID:    entry.CustomerID.String(),
		Kind:          string(entry.Kind),
		Amount:        entry.Amount,
		InvoiceNumber: entry.InvoiceNumber,
		Method:        string(entry.Method),
		Note:          entry.Note,
		BalanceAfter:  entry.BalanceAfter,
		CreatedAt:     entry.CreatedAt.Format(time.RFC3339),
	}
}

func mapConversationTurnToResponse(turn *convlog.Message) ConversationTurnResponse {
	return ConversationTurnResponse{
		ID:            turn.ID.String(),
		Direction:     string(turn.Direction),
		Kind:          string(turn.Kind),
		Text:          turn.Text,
		MessageID:     turn.MessageID,
		CorrelationID: turn.CorrelationID,
		CreatedAt:     turn.CreatedAt.Format(time.RFC3339),
	}
}

func mapItemToResponse(item *inventory.Item) ItemResponse {
	return ItemResponse{
		ID:           item.ID.String(),
		Name:         item.Name,
		FabricType:   item.FabricType,
		Color:        item.Color,
		Width:        item.Width,
		Quantity:     item.Quantity,
		Unit:         item.Unit,
		RatePerUnit:  item.RatePerUnit,
		ReorderLevel: item.ReorderLevel,
		HSNCode:      item.HSNCode,
	}
}

func mapInvoiceToResponse(inv *invoice.Invoice) InvoiceResponse {
	response := InvoiceResponse{
		ID:         inv.ID.String(),
		Number:     inv.Number,
		CustomerID: inv.CustomerID.String(),
		Type:       string(inv.Type),
		Status:     string(inv.Status),
		Subtotal:   inv.Subtotal,
		CGSTAmount: inv.CGSTAmount,
		SGSTAmount: inv.SGSTAmount,
		Total:      inv.Total,
		AmountPaid: inv.AmountPaid,
		IssuedAt:   inv.IssuedAt.Format(time.RFC3339),
		DueAt:      inv.DueAt.Format(time.RFC3339),
	}
	for _, line := range inv.Lines {
		response.Lines = append(response.Lines, InvoiceLineResponse{
			Description: line.Description,
			Quantity:    line.Quantity,
			Unit:        line.Unit,
			UnitRate:    line.UnitRate,
			LineTotal:   line.Amount,
		})
	}
	return response
}
