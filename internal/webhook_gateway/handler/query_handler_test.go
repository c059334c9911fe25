package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vastra-munim/internal/domain/convlog"
	"github.com/vastra-munim/internal/domain/customer"
	"github.com/vastra-munim/internal/domain/inventory"
	"github.com/vastra-munim/internal/domain/invoice"
	"github.com/vastra-munim/internal/domain/udhaar"
)

type MockQueryService struct {
	mock.Mock
}

func (m *MockQueryService) SearchCustomers(ctx context.Context, query string, limit int) ([]*customer.Customer, error) {
	args := m.Called(ctx, query, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*customer.Customer), args.Error(1)
}

func (m *MockQueryService) GetCustomer(ctx context.Context, id uuid.UUID) (*customer.Customer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*customer.Customer), args.Error(1)
}

func (m *MockQueryService) GetCustomerLedger(ctx context.Context, customerID uuid.UUID, page, perPage int) ([]*udhaar.Entry, int64, error) {
	args := m.Called(ctx, customerID, page, perPage)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*udhaar.Entry), args.Get(1).(int64), args.Error(2)
}

func (m *MockQueryService) ListInventory(ctx context.Context, lowStockOnly bool) ([]*inventory.Item, error) {
	args := m.Called(ctx, lowStockOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*inventory.Item), args.Error(1)
}

func (m *MockQueryService) GetInvoiceByNumber(ctx context.Context, number string) (*invoice.Invoice, error) {
	args := m.Called(ctx, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*invoice.Invoice), args.Error(1)
}

func (m *MockQueryService) GetConversation(ctx context.Context, waID string, limit, offset int) ([]*convlog.Message, error) {
	args := m.Called(ctx, waID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*convlog.Message), args.Error(1)
}

func testCustomer(t *testing.T, name string) *customer.Customer {
	t.Helper()
	cust, err := customer.NewCustomer(name, "919876500000", 5_000_000)
	require.NoError(t, err)
	return cust
}

func TestQueryHandler_SearchCustomers(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	t.Run("PassesQueryThrough", func(t *testing.T) {
		mockService := new(MockQueryService)
		handler := NewQueryHandler(logger, mockService)

		mockService.On("SearchCustomers", mock.Anything, "Ramesh", customerSearchLimit).
			Return([]*customer.Customer{testCustomer(t, "Ramesh Kumar")}, nil)

		router := setupTestRouter()
		router.GET("/customers", handler.SearchCustomers)

		req, _ := http.NewRequest(http.MethodGet, "/customers?q=Ramesh", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "Ramesh Kumar")
		mockService.AssertExpectations(t)
	})
}

func TestQueryHandler_GetCustomer(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	t.Run("UnknownCustomerReturns404", func(t *testing.T) {
		mockService := new(MockQueryService)
		handler := NewQueryHandler(logger, mockService)

		id := uuid.New()
		mockService.On("GetCustomer", mock.Anything, id).Return(nil, nil)

		router := setupTestRouter()
		router.GET("/customers/:id", handler.GetCustomer)

		req, _ := http.NewRequest(http.MethodGet, "/customers/"+id.String(), nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestQueryHandler_GetCustomerLedger(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	t.Run("ReturnsPaginatedEntries", func(t *testing.T) {
		mockService := new(MockQueryService)
		handler := NewQueryHandler(logger, mockService)

		customerID := uuid.New()
		entries := []*udhaar.Entry{{
			EntryID:      uuid.New(),
			CustomerID:   customerID,
			Kind:         udhaar.EntryKindInvoiceCredit,
			Amount:       500_000,
			BalanceAfter: 500_000,
			CreatedAt:    time.Now(),
		}}
		mockService.On("GetCustomerLedger", mock.Anything, customerID, 1, 20).
			Return(entries, int64(41), nil)

		router := setupTestRouter()
		router.GET("/customers/:id/udhaar", handler.GetCustomerLedger)

		req, _ := http.NewRequest(http.MethodGet, "/customers/"+customerID.String()+"/udhaar", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var topLevelResponse Response
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &topLevelResponse))
		require.NotNil(t, topLevelResponse.Meta)
		assert.Equal(t, 41, topLevelResponse.Meta.TotalItems)
		assert.Equal(t, 3, topLevelResponse.Meta.TotalPages)
	})
}

func TestQueryHandler_ListInventory(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	t.Run("LowStockFlagFiltersItems", func(t *testing.T) {
		mockService := new(MockQueryService)
		handler := NewQueryHandler(logger, mockService)

		item, err := inventory.NewItem("Cotton Red 44", "cotton", "red", 44, 12, "meter", 15_000, 20, "5208")
		require.NoError(t, err)
		mockService.On("ListInventory", mock.Anything, true).
			Return([]*inventory.Item{item}, nil)

		router := setupTestRouter()
		router.GET("/inventory", handler.ListInventory)

		req, _ := http.NewRequest(http.MethodGet, "/inventory?low_stock=true", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "cotton")
		mockService.AssertExpectations(t)
	})
}

func TestQueryHandler_GetConversation(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	t.Run("ReturnsTurnsForContact", func(t *testing.T) {
		mockService := new(MockQueryService)
		handler := NewQueryHandler(logger, mockService)

		turns := []*convlog.Message{
			convlog.NewOutbound("919876500000", "Payment mil gayi", uuid.NewString()),
		}
		mockService.On("GetConversation", mock.Anything, "919876500000", 20, 0).
			Return(turns, nil)

		router := setupTestRouter()
		router.GET("/conversations/:wa_id", handler.GetConversation)

		req, _ := http.NewRequest(http.MethodGet, "/conversations/919876500000", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "Payment mil gayi")
		assert.Contains(t, rr.Body.String(), `"direction":"OUT"`)
		mockService.AssertExpectations(t)
	})
}

func TestQueryHandler_GetInvoice(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	t.Run("UnknownNumberReturns404", func(t *testing.T) {
		mockService := new(MockQueryService)
		handler := NewQueryHandler(logger, mockService)

		mockService.On("GetInvoiceByNumber", mock.Anything, "KT/20260830/99").
			Return(nil, nil)

		router := setupTestRouter()
		router.GET("/invoices/*number", handler.GetInvoice)

		req, _ := http.NewRequest(http.MethodGet, "/invoices/KT/20260830/99", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}
