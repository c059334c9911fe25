package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vastra-munim/internal/domain/convlog"
	"github.com/vastra-munim/internal/domain/customer"
	"github.com/vastra-munim/internal/domain/inventory"
	"github.com/vastra-munim/internal/domain/invoice"
	"github.com/vastra-munim/internal/domain/udhaar"
)

type MockCustomerRepo struct {
	mock.Mock
}

func (m *MockCustomerRepo) Create(ctx context.Context, c *customer.Customer) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockCustomerRepo) GetByID(ctx context.Context, id uuid.UUID) (*customer.Customer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*customer.Customer), args.Error(1)
}

func (m *MockCustomerRepo) GetByPhone(ctx context.Context, phone string) (*customer.Customer, error) {
	args := m.Called(ctx, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*customer.Customer), args.Error(1)
}

func (m *MockCustomerRepo) Update(ctx context.Context, c *customer.Customer) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockCustomerRepo) SearchByName(ctx context.Context, namePrefix string, limit int) ([]*customer.Customer, error) {
	args := m.Called(ctx, namePrefix, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*customer.Customer), args.Error(1)
}

func (m *MockCustomerRepo) ListWithBalance(ctx context.Context, minBalance int64) ([]*customer.Customer, error) {
	args := m.Called(ctx, minBalance)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*customer.Customer), args.Error(1)
}

func (m *MockCustomerRepo) UpdateBalance(ctx context.Context, id uuid.UUID, delta int64, version int) error {
	args := m.Called(ctx, id, delta, version)
	return args.Error(0)
}

func (m *MockCustomerRepo) LockForUpdate(ctx context.Context, id uuid.UUID) (*customer.Customer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*customer.Customer), args.Error(1)
}

func (m *MockCustomerRepo) WithTx(tx pgx.Tx) customer.Repository {
	m.Called(tx)
	return m
}

type MockInventoryRepo struct {
	mock.Mock
}

func (m *MockInventoryRepo) Create(ctx context.Context, item *inventory.Item) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockInventoryRepo) GetByID(ctx context.Context, id uuid.UUID) (*inventory.Item, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventory.Item), args.Error(1)
}

func (m *MockInventoryRepo) Update(ctx context.Context, item *inventory.Item) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockInventoryRepo) SearchByAttributes(ctx context.Context, fabricType, color string, limit int) ([]*inventory.Item, error) {
	args := m.Called(ctx, fabricType, color, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*inventory.Item), args.Error(1)
}

func (m *MockInventoryRepo) ListAll(ctx context.Context) ([]*inventory.Item, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*inventory.Item), args.Error(1)
}

func (m *MockInventoryRepo) ListLowStock(ctx context.Context) ([]*inventory.Item, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*inventory.Item), args.Error(1)
}

func (m *MockInventoryRepo) AdjustQuantity(ctx context.Context, id uuid.UUID, delta int64, version int) error {
	args := m.Called(ctx, id, delta, version)
	return args.Error(0)
}

func (m *MockInventoryRepo) LockForUpdate(ctx context.Context, id uuid.UUID) (*inventory.Item, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventory.Item), args.Error(1)
}

func (m *MockInventoryRepo) WithTx(tx pgx.Tx) inventory.Repository {
	m.Called(tx)
	return m
}

type MockInvoiceRepo struct {
	mock.Mock
}

func (m *MockInvoiceRepo) Create(ctx context.Context, inv *invoice.Invoice) error {
	args := m.Called(ctx, inv)
	return args.Error(0)
}

func (m *MockInvoiceRepo) GetByID(ctx context.Context, id uuid.UUID) (*invoice.Invoice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*invoice.Invoice), args.Error(1)
}

func (m *MockInvoiceRepo) GetByNumber(ctx context.Context, number string) (*invoice.Invoice, error) {
	args := m.Called(ctx, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*invoice.Invoice), args.Error(1)
}

func (m *MockInvoiceRepo) Update(ctx context.Context, inv *invoice.Invoice) error {
	args := m.Called(ctx, inv)
	return args.Error(0)
}

func (m *MockInvoiceRepo) NextNumber(ctx context.Context, issuedAt time.Time) (string, error) {
	args := m.Called(ctx, issuedAt)
	return args.String(0), args.Error(1)
}

func (m *MockInvoiceRepo) ListByCustomer(ctx context.Context, customerID uuid.UUID, limit int) ([]*invoice.Invoice, error) {
	args := m.Called(ctx, customerID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*invoice.Invoice), args.Error(1)
}

func (m *MockInvoiceRepo) ListUnpaidOlderThan(ctx context.Context, cutoff time.Time) ([]*invoice.Invoice, error) {
	args := m.Called(ctx, cutoff)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*invoice.Invoice), args.Error(1)
}

func (m *MockInvoiceRepo) OldestUnpaidForCustomer(ctx context.Context, customerID uuid.UUID) (*invoice.Invoice, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*invoice.Invoice), args.Error(1)
}

func (m *MockInvoiceRepo) SummarizeDay(ctx context.Context, day time.Time) (*invoice.DaySummary, error) {
	args := m.Called(ctx, day)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*invoice.DaySummary), args.Error(1)
}

func (m *MockInvoiceRepo) LockForUpdate(ctx context.Context, id uuid.UUID) (*invoice.Invoice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*invoice.Invoice), args.Error(1)
}

func (m *MockInvoiceRepo) WithTx(tx pgx.Tx) invoice.Repository {
	m.Called(tx)
	return m
}

type MockLedgerRepo struct {
	mock.Mock
}

func (m *MockLedgerRepo) Create(ctx context.Context, entry *udhaar.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockLedgerRepo) GetByEntryID(ctx context.Context, entryID uuid.UUID) (*udhaar.Entry, error) {
	args := m.Called(ctx, entryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*udhaar.Entry), args.Error(1)
}

func (m *MockLedgerRepo) GetByCustomerID(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]*udhaar.Entry, error) {
	args := m.Called(ctx, customerID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*udhaar.Entry), args.Error(1)
}

func (m *MockLedgerRepo) CountByCustomerID(ctx context.Context, customerID uuid.UUID) (int64, error) {
	args := m.Called(ctx, customerID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedgerRepo) GetByTimeRange(ctx context.Context, startTime, endTime time.Time, limit, offset int) ([]*udhaar.Entry, error) {
	args := m.Called(ctx, startTime, endTime, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*udhaar.Entry), args.Error(1)
}

type MockConvLogRepo struct {
	mock.Mock
}

func (m *MockConvLogRepo) Append(ctx context.Context, message *convlog.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *MockConvLogRepo) ListByWaID(ctx context.Context, waID string, limit, offset int) ([]*convlog.Message, error) {
	args := m.Called(ctx, waID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*convlog.Message), args.Error(1)
}

type queryFixture struct {
	customers *MockCustomerRepo
	items     *MockInventoryRepo
	invoices  *MockInvoiceRepo
	ledger    *MockLedgerRepo
	convLog   *MockConvLogRepo
	service   QueryService
}

func newQueryFixture() *queryFixture {
	f := &queryFixture{
		customers: new(MockCustomerRepo),
		items:     new(MockInventoryRepo),
		invoices:  new(MockInvoiceRepo),
		ledger:    new(MockLedgerRepo),
		convLog:   new(MockConvLogRepo),
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	f.service = NewQueryService(logger, f.customers, f.items, f.invoices, f.ledger, f.convLog)
	return f
}

func TestQueryService_SearchCustomers(t *testing.T) {
	ctx := context.Background()

	t.Run("EmptyQueryListsCustomersWithBalance", func(t *testing.T) {
		f := newQueryFixture()
		cust, err := customer.NewCustomer("Ramesh Kumar", "919876500000", 5_000_000)
		require.NoError(t, err)

		f.customers.On("ListWithBalance", mock.Anything, int64(1)).
			Return([]*customer.Customer{cust}, nil)

		result, err := f.service.SearchCustomers(ctx, "", 25)
		require.NoError(t, err)
		assert.Len(t, result, 1)
		f.customers.AssertNotCalled(t, "SearchByName", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("QueryGoesToNameSearch", func(t *testing.T) {
		f := newQueryFixture()

		f.customers.On("SearchByName", mock.Anything, "Sharma", 25).
			Return([]*customer.Customer{}, nil)

		result, err := f.service.SearchCustomers(ctx, "Sharma", 25)
		require.NoError(t, err)
		assert.Empty(t, result)
		f.customers.AssertExpectations(t)
	})
}

func TestQueryService_GetCustomer(t *testing.T) {
	ctx := context.Background()

	t.Run("NotFoundMapsToNil", func(t *testing.T) {
		f := newQueryFixture()
		id := uuid.New()

		f.customers.On("GetByID", mock.Anything, id).
			Return(nil, customer.ErrCustomerNotFound{CustomerID: id})

		result, err := f.service.GetCustomer(ctx, id)
		require.NoError(t, err)
		assert.Nil(t, result)
	})

	t.Run("InfraErrorPropagates", func(t *testing.T) {
		f := newQueryFixture()
		id := uuid.New()

		f.customers.On("GetByID", mock.Anything, id).
			Return(nil, errors.New("connection refused"))

		_, err := f.service.GetCustomer(ctx, id)
		require.Error(t, err)
	})
}

func TestQueryService_GetCustomerLedger(t *testing.T) {
	ctx := context.Background()

	t.Run("TranslatesPageToOffset", func(t *testing.T) {
		f := newQueryFixture()
		customerID := uuid.New()

		f.ledger.On("GetByCustomerID", mock.Anything, customerID, 20, 40).
			Return([]*udhaar.Entry{}, nil)
		f.ledger.On("CountByCustomerID", mock.Anything, customerID).
			Return(int64(41), nil)

		entries, total, err := f.service.GetCustomerLedger(ctx, customerID, 3, 20)
		require.NoError(t, err)
		assert.Empty(t, entries)
		assert.Equal(t, int64(41), total)
		f.ledger.AssertExpectations(t)
	})
}

func TestQueryService_ListInventory(t *testing.T) {
	ctx := context.Background()

	f := newQueryFixture()
	item, err := inventory.NewItem("Silk Blue 44", "silk", "blue", 44, 8, "meter", 45_000, 10, "5007")
	require.NoError(t, err)

	f.items.On("ListLowStock", mock.Anything).Return([]*inventory.Item{item}, nil)

	result, err := f.service.ListInventory(ctx, true)
	require.NoError(t, err)
	assert.Len(t, result, 1)
	f.items.AssertNotCalled(t, "ListAll", mock.Anything)
}

func TestQueryService_GetInvoiceByNumber(t *testing.T) {
	ctx := context.Background()

	f := newQueryFixture()
	f.invoices.On("GetByNumber", mock.Anything, "KT/20260830/99").
		Return(nil, invoice.ErrInvoiceNotFound{})

	result, err := f.service.GetInvoiceByNumber(ctx, "KT/20260830/99")
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestQueryService_GetConversation(t *testing.T) {
	ctx := context.Background()

	f := newQueryFixture()
	turns := []*convlog.Message{
		convlog.NewOutbound("919876500000", "Payment mil gayi", uuid.NewString()),
	}

	f.convLog.On("ListByWaID", mock.Anything, "919876500000", 20, 0).Return(turns, nil)

	result, err := f.service.GetConversation(ctx, "919876500000", 20, 0)
	require.NoError(t, err)
	assert.Len(t, result, 1)
	assert.Equal(t, convlog.DirectionOutbound, result[0].Direction)
}
