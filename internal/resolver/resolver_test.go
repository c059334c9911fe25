package resolver

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vastra-munim/internal/bulkorder"
	"github.com/vastra-munim/internal/config"
	"github.com/vastra-munim/internal/domain/customer"
	"github.com/vastra-munim/internal/domain/inventory"
	"github.com/vastra-munim/internal/domain/shared"
	"github.com/vastra-munim/internal/session"
	"github.com/vastra-munim/internal/similarity"
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
	args := m.Called(tx)
	return args.Get(0).(customer.Repository)
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
	args := m.Called(tx)
	return args.Get(0).(inventory.Repository)
}

func testPolicy() *config.PolicyConfig {
	return &config.PolicyConfig{
		LargeCreditThreshold: 1_000_000, // ₹10,000
		BulkOrderThreshold:   2_000_000, // ₹20,000
		BulkSumTolerance:     10,
		SimilarityFloor:      0.72,
		ApprovalTTL:          time.Hour,
		OverdueDays:          30,
	}
}

func newTestResolver(customers *MockCustomerRepo, items *MockInventoryRepo) *Resolver {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	policy := testPolicy()
	return NewResolver(
		logger,
		customers,
		items,
		similarity.NewLevenshteinScorer(),
		bulkorder.NewParser(policy.BulkSumTolerance),
		policy,
		&config.NLUConfig{MinConfidence: 0.6},
	)
}

func inboundText(text string) *shared.InboundMessage {
	return &shared.InboundMessage{
		MessageID:     "wamid." + uuid.NewString(),
		From:          "919876500000",
		Kind:          shared.MessageKindText,
		Text:          text,
		CorrelationID: uuid.NewString(),
		ReceivedAt:    time.Now(),
	}
}

func hypothesis(intent shared.IntentLabel, confidence float64, slots map[string]string) []shared.Hypothesis {
	return []shared.Hypothesis{{Intent: intent, Slots: slots, Confidence: confidence}}
}

func TestResolver_ConfidenceThreshold(t *testing.T) {
	r := newTestResolver(new(MockCustomerRepo), new(MockInventoryRepo))
	ctx := context.Background()

	t.Run("BelowThresholdIsUnrecognized", func(t *testing.T) {
		result, err := r.Resolve(ctx, inboundText("kuch bhi"), hypothesis(shared.IntentCheckUdhaar, 0.4, nil), nil)
		require.NoError(t, err)
		assert.Equal(t, KindUnrecognized, result.Kind)
	})

	t.Run("UnknownIntentIsUnrecognized", func(t *testing.T) {
		result, err := r.Resolve(ctx, inboundText("good morning ji"), hypothesis(shared.IntentUnknown, 0.95, nil), nil)
		require.NoError(t, err)
		assert.Equal(t, KindUnrecognized, result.Kind)
	})

	t.Run("NoHypothesesIsUnrecognized", func(t *testing.T) {
		result, err := r.Resolve(ctx, inboundText("..."), nil, nil)
		require.NoError(t, err)
		assert.Equal(t, KindUnrecognized, result.Kind)
	})
}

func TestResolver_AmountOnlyInvoice(t *testing.T) {
	customers := new(MockCustomerRepo)
	items := new(MockInventoryRepo)
	r := newTestResolver(customers, items)
	ctx := context.Background()

	ramesh := &customer.Customer{ID: uuid.New(), Name: "Ramesh Kumar", Phone: "919876512345", Status: customer.StatusActive}
	customers.On("SearchByName", mock.Anything, "ramesh", candidatePoolSize).Return([]*customer.Customer{ramesh}, nil)

	result, err := r.Resolve(ctx,
		inboundText("Ramesh ko 5000 ka bill banao"),
		hypothesis(shared.IntentGenerateInvoice, 0.92, map[string]string{
			shared.SlotCustomerName: "Ramesh",
			shared.SlotAmount:       "5000",
		}),
		nil)

	require.NoError(t, err)
	require.Equal(t, KindCommand, result.Kind)

	cmd := result.Command
	assert.Equal(t, shared.CommandCreateInvoice, cmd.Kind)
	require.NotNil(t, cmd.Invoice)
	assert.Equal(t, ramesh.ID, cmd.Invoice.CustomerID)
	assert.Empty(t, cmd.Invoice.Lines)
	assert.Equal(t, int64(500_000), cmd.Invoice.AdhocAmount)
	assert.False(t, cmd.Sensitive)
}

func TestResolver_InvoiceSensitivity(t *testing.T) {
	ctx := context.Background()

	t.Run("LargeAmountNeedsApproval", func(t *testing.T) {
		customers := new(MockCustomerRepo)
		r := newTestResolver(customers, new(MockInventoryRepo))

		ramesh := &customer.Customer{ID: uuid.New(), Name: "Ramesh Kumar", Status: customer.StatusActive}
		customers.On("SearchByName", mock.Anything, "ramesh", candidatePoolSize).Return([]*customer.Customer{ramesh}, nil)

		result, err := r.Resolve(ctx,
			inboundText("Ramesh ko 15000 ka bill"),
			hypothesis(shared.IntentGenerateInvoice, 0.9, map[string]string{
				shared.SlotCustomerName: "Ramesh",
				shared.SlotAmount:       "15000",
			}),
			nil)

		require.NoError(t, err)
		require.Equal(t, KindCommand, result.Kind)
		assert.True(t, result.Command.Sensitive)
		assert.NotEmpty(t, result.Command.SensitiveNote)
	})

	t.Run("CreditLimitBreachNeedsApproval", func(t *testing.T) {
		customers := new(MockCustomerRepo)
		r := newTestResolver(customers, new(MockInventoryRepo))

		suresh := &customer.Customer{
			ID:            uuid.New(),
			Name:          "Suresh Traders",
			Status:        customer.StatusActive,
			CreditLimit:   400_000, // ₹4,000
			CreditBalance: 300_000, // ₹3,000 already owed
		}
		customers.On("SearchByName", mock.Anything, "suresh", candidatePoolSize).Return([]*customer.Customer{suresh}, nil)

		result, err := r.Resolve(ctx,
			inboundText("Suresh ko 2000 ka bill banao"),
			hypothesis(shared.IntentGenerateInvoice, 0.9, map[string]string{
				shared.SlotCustomerName: "Suresh",
				shared.SlotAmount:       "2000",
			}),
			nil)

		require.NoError(t, err)
		require.Equal(t, KindCommand, result.Kind)
		assert.True(t, result.Command.Sensitive)
		assert.Contains(t, result.Command.SensitiveNote, "limit")
	})
}

func TestResolver_AmbiguousCustomer(t *testing.T) {
	customers := new(MockCustomerRepo)
	r := newTestResolver(customers, new(MockInventoryRepo))
	ctx := context.Background()

	pool := []*customer.Customer{
		{ID: uuid.New(), Name: "Ramesh Kumar", Status: customer.StatusActive},
		{ID: uuid.New(), Name: "Ramesh Textiles", Status: customer.StatusActive},
	}
	customers.On("SearchByName", mock.Anything, "ramesh", candidatePoolSize).Return(pool, nil)

	result, err := r.Resolve(ctx,
		inboundText("Ramesh ko 500 ka bill"),
		hypothesis(shared.IntentGenerateInvoice, 0.9, map[string]string{
			shared.SlotCustomerName: "Ramesh",
			shared.SlotAmount:       "500",
		}),
		nil)

	require.NoError(t, err)
	require.Equal(t, KindClarification, result.Kind)
	require.Len(t, result.Clarification.Candidates, 2)
	assert.Equal(t, "Ramesh Kumar", result.Clarification.Candidates[0].Label)
	assert.Equal(t, "Ramesh Textiles", result.Clarification.Candidates[1].Label)
}

func TestResolver_UnknownCustomer(t *testing.T) {
	customers := new(MockCustomerRepo)
	r := newTestResolver(customers, new(MockInventoryRepo))
	ctx := context.Background()

	// ILIKE narrowing misses, then the full pool has nothing close either
	customers.On("SearchByName", mock.Anything, "xyz", candidatePoolSize).Return([]*customer.Customer{}, nil)
	customers.On("SearchByName", mock.Anything, "", candidatePoolSize).Return([]*customer.Customer{
		{ID: uuid.New(), Name: "Mahesh Traders", Status: customer.StatusActive},
	}, nil)

	result, err := r.Resolve(ctx,
		inboundText("xyz ko 500 ka bill"),
		hypothesis(shared.IntentGenerateInvoice, 0.9, map[string]string{
			shared.SlotCustomerName: "xyz",
			shared.SlotAmount:       "500",
		}),
		nil)

	require.NoError(t, err)
	require.Equal(t, KindClarification, result.Kind)
	assert.Empty(t, result.Clarification.Candidates)
	assert.Contains(t, result.Clarification.Prompt, "nahi mila")
}

func TestResolver_PaymentWithSessionCustomer(t *testing.T) {
	customers := new(MockCustomerRepo)
	r := newTestResolver(customers, new(MockInventoryRepo))
	ctx := context.Background()

	ramesh := &customer.Customer{ID: uuid.New(), Name: "Ramesh Kumar", Status: customer.StatusActive}
	customers.On("GetByID", mock.Anything, ramesh.ID).Return(ramesh, nil)

	sess := &session.Context{WaID: "919876500000", RecentCustomerID: &ramesh.ID}

	result, err := r.Resolve(ctx,
		inboundText("usne 2000 upi se diye"),
		hypothesis(shared.IntentRecordPayment, 0.88, map[string]string{
			shared.SlotAmount:        "2000",
			shared.SlotPaymentMethod: "upi",
		}),
		sess)

	require.NoError(t, err)
	require.Equal(t, KindCommand, result.Kind)

	cmd := result.Command
	assert.Equal(t, shared.CommandRecordPayment, cmd.Kind)
	require.NotNil(t, cmd.Payment)
	assert.Equal(t, ramesh.ID, cmd.Payment.CustomerID)
	assert.Equal(t, int64(200_000), cmd.Payment.Amount)
	assert.Equal(t, shared.PaymentMethodUPI, cmd.Payment.Method)
	assert.False(t, cmd.Sensitive)
}

func TestResolver_ReminderAlwaysSensitive(t *testing.T) {
	customers := new(MockCustomerRepo)
	r := newTestResolver(customers, new(MockInventoryRepo))
	ctx := context.Background()

	suresh := &customer.Customer{
		ID:            uuid.New(),
		Name:          "Suresh Traders",
		Phone:         "919812312345",
		CreditBalance: 250_000,
		Status:        customer.StatusActive,
	}
	customers.On("SearchByName", mock.Anything, "suresh", candidatePoolSize).Return([]*customer.Customer{suresh}, nil)

	result, err := r.Resolve(ctx,
		inboundText("Suresh ko payment reminder bhejo"),
		hypothesis(shared.IntentSendReminder, 0.9, map[string]string{
			shared.SlotCustomerName: "Suresh",
		}),
		nil)

	require.NoError(t, err)
	require.Equal(t, KindCommand, result.Kind)

	cmd := result.Command
	assert.Equal(t, shared.CommandSendReminder, cmd.Kind)
	assert.True(t, cmd.Sensitive)
	require.NotNil(t, cmd.Reminder)
	assert.Equal(t, suresh.Phone, cmd.Reminder.CustomerPhone)
	assert.Equal(t, int64(250_000), cmd.Reminder.OverdueAmount)
}

func TestResolver_AddInventoryRestocksExistingVariant(t *testing.T) {
	customers := new(MockCustomerRepo)
	items := new(MockInventoryRepo)
	r := newTestResolver(customers, items)
	ctx := context.Background()

	existing := &inventory.Item{
		ID: uuid.New(), Name: "Cotton Red", FabricType: "cotton", Color: "red",
		Width: 44, Quantity: 120, Unit: "meter", RatePerUnit: 5_000,
	}
	items.On("SearchByAttributes", mock.Anything, "cotton", "red", candidatePoolSize).Return([]*inventory.Item{existing}, nil)

	result, err := r.Resolve(ctx,
		inboundText("100 meter red cotton aaya hai"),
		hypothesis(shared.IntentAddInventory, 0.85, map[string]string{
			shared.SlotFabricType: "cotton",
			shared.SlotColor:      "red",
			shared.SlotQuantity:   "100",
		}),
		nil)

	require.NoError(t, err)
	require.Equal(t, KindCommand, result.Kind)

	cmd := result.Command
	assert.Equal(t, shared.CommandRestockItem, cmd.Kind)
	require.NotNil(t, cmd.Restock)
	assert.Equal(t, existing.ID, cmd.Restock.ItemID)
	assert.Equal(t, int64(100), cmd.Restock.Quantity)
}

func TestResolver_BulkOrder(t *testing.T) {
	ctx := context.Background()

	redSilk := &inventory.Item{ID: uuid.New(), FabricType: "silk", Color: "red", Unit: "meter", RatePerUnit: 10_000}
	blueCotton := &inventory.Item{ID: uuid.New(), FabricType: "cotton", Color: "blue", Unit: "meter", RatePerUnit: 5_000}
	greenPoly := &inventory.Item{ID: uuid.New(), FabricType: "polyester", Color: "green", Unit: "meter", RatePerUnit: 4_000}

	t.Run("FullyResolvedAboveThreshold", func(t *testing.T) {
		customers := new(MockCustomerRepo)
		items := new(MockInventoryRepo)
		r := newTestResolver(customers, items)

		sharma := &customer.Customer{ID: uuid.New(), Name: "Sharma Textiles", IsBulkBuyer: true, Status: customer.StatusActive}
		customers.On("SearchByName", mock.Anything, "sharma", candidatePoolSize).Return([]*customer.Customer{sharma}, nil)
		items.On("SearchByAttributes", mock.Anything, "silk", "red", candidatePoolSize).Return([]*inventory.Item{redSilk}, nil)
		items.On("SearchByAttributes", mock.Anything, "cotton", "blue", candidatePoolSize).Return([]*inventory.Item{blueCotton}, nil)
		items.On("SearchByAttributes", mock.Anything, "polyester", "green", candidatePoolSize).Return([]*inventory.Item{greenPoly}, nil)

		result, err := r.Resolve(ctx,
			inboundText("Sharma ka order: 1000 meter chahiye - 400 red silk, 300 blue cotton, 300 green polyester"),
			hypothesis(shared.IntentBulkOrder, 0.9, map[string]string{
				shared.SlotCustomerName: "Sharma",
			}),
			nil)

		require.NoError(t, err)
		require.Equal(t, KindCommand, result.Kind)

		cmd := result.Command
		assert.Equal(t, shared.CommandCreateInvoice, cmd.Kind)
		require.NotNil(t, cmd.Invoice)
		assert.Equal(t, sharma.ID, cmd.Invoice.CustomerID)
		require.Len(t, cmd.Invoice.Lines, 3)
		assert.Equal(t, int64(400), cmd.Invoice.Lines[0].Quantity)
		assert.Equal(t, redSilk.ID, cmd.Invoice.Lines[0].ItemID)

		// 400*100 + 300*50 + 300*40 rupees is well past the bulk threshold
		assert.True(t, cmd.Sensitive)
	})

	t.Run("UnmatchedGroupYieldsPartial", func(t *testing.T) {
		customers := new(MockCustomerRepo)
		items := new(MockInventoryRepo)
		r := newTestResolver(customers, items)

		sharma := &customer.Customer{ID: uuid.New(), Name: "Sharma Textiles", Status: customer.StatusActive}
		customers.On("SearchByName", mock.Anything, "sharma", candidatePoolSize).Return([]*customer.Customer{sharma}, nil)
		items.On("SearchByAttributes", mock.Anything, "silk", "red", candidatePoolSize).Return([]*inventory.Item{redSilk}, nil)
		items.On("SearchByAttributes", mock.Anything, "cotton", "blue", candidatePoolSize).Return([]*inventory.Item{blueCotton}, nil)
		// Nothing like green polyester anywhere in stock
		items.On("SearchByAttributes", mock.Anything, "polyester", "green", candidatePoolSize).Return([]*inventory.Item{}, nil)
		items.On("SearchByAttributes", mock.Anything, "", "", candidatePoolSize).Return([]*inventory.Item{redSilk, blueCotton}, nil)

		result, err := r.Resolve(ctx,
			inboundText("Sharma: 1000 meter chahiye - 400 red silk, 300 blue cotton, 300 green polyester"),
			hypothesis(shared.IntentBulkOrder, 0.9, map[string]string{
				shared.SlotCustomerName: "Sharma",
			}),
			nil)

		require.NoError(t, err)
		require.Equal(t, KindPartial, result.Kind)
		assert.Len(t, result.Partial.Resolved, 2)
		require.Len(t, result.Partial.Unresolved, 1)
		assert.Contains(t, result.Partial.Unresolved[0], "green polyester")
	})

	t.Run("TotalMismatchYieldsPartial", func(t *testing.T) {
		customers := new(MockCustomerRepo)
		items := new(MockInventoryRepo)
		r := newTestResolver(customers, items)

		sharma := &customer.Customer{ID: uuid.New(), Name: "Sharma Textiles", Status: customer.StatusActive}
		customers.On("SearchByName", mock.Anything, "sharma", candidatePoolSize).Return([]*customer.Customer{sharma}, nil)
		items.On("SearchByAttributes", mock.Anything, "silk", "red", candidatePoolSize).Return([]*inventory.Item{redSilk}, nil)
		items.On("SearchByAttributes", mock.Anything, "cotton", "blue", candidatePoolSize).Return([]*inventory.Item{blueCotton}, nil)
		items.On("SearchByAttributes", mock.Anything, "polyester", "green", candidatePoolSize).Return([]*inventory.Item{greenPoly}, nil)

		// Groups sum to 900 against a declared 1000, beyond tolerance.
		// The sender's numbers never get adjusted silently.
		result, err := r.Resolve(ctx,
			inboundText("Sharma: 1000 meter chahiye - 400 red silk, 300 blue cotton, 200 green polyester"),
			hypothesis(shared.IntentBulkOrder, 0.9, map[string]string{
				shared.SlotCustomerName: "Sharma",
			}),
			nil)

		require.NoError(t, err)
		require.Equal(t, KindPartial, result.Kind)
		assert.Nil(t, result.Command)
		assert.Len(t, result.Partial.Resolved, 3)
		assert.Empty(t, result.Partial.Unresolved)
		assert.Contains(t, result.Partial.Note, "1000")
		assert.Contains(t, result.Partial.Note, "900")
	})
}

func TestParseRupees(t *testing.T) {
	tests := []struct {
		input    string
		expected int64
		wantErr  bool
	}{
		{"5000", 500_000, false},
		{"₹5,000", 500_000, false},
		{"rs 1200.50", 120_050, false},
		{"2000 rupaye", 200_000, false},
		{"5000/-", 500_000, false},
		{"-100", 0, true},
		{"abc", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseRupees(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}
