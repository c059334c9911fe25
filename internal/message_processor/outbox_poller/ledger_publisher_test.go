package outbox_poller

import (
	"context"
	"errors"
	"testing"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vastra-munim/internal/domain/outbox"
	"github.com/vastra-munim/internal/domain/shared"
	"github.com/vastra-munim/internal/domain/udhaar"
)

// MockOutboxRepo for testing
type MockOutboxRepo struct {
	mock.Mock
}

func (m *MockOutboxRepo) Create(ctx context.Context, message *outbox.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *MockOutboxRepo) GetPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*outbox.Message), args.Error(1)
}

func (m *MockOutboxRepo) UpdateStatus(ctx context.Context, id int64, status shared.OutboxStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockOutboxRepo) IncrementAttempts(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOutboxRepo) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOutboxRepo) GetByEntryID(ctx context.Context, entryID uuid.UUID) (*outbox.Message, error) {
	args := m.Called(ctx, entryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*outbox.Message), args.Error(1)
}

func (m *MockOutboxRepo) WithTx(tx pgx.Tx) outbox.Repository {
	args := m.Called(tx)
	return args.Get(0).(outbox.Repository)
}

// MockLedgerRepo for testing
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

func testOutboxMessage(t *testing.T) (*outbox.Message, *udhaar.Entry) {
	t.Helper()
	entry := &udhaar.Entry{
		EntryID:       uuid.New(),
		CustomerID:    uuid.New(),
		Kind:          udhaar.EntryKindInvoiceCredit,
		Amount:        262_500,
		CommandID:     uuid.New(),
		CorrelationID: "corr-123",
		BalanceAfter:  262_500,
		CreatedAt:     time.Now(),
	}
	msg, err := outbox.NewMessage(entry)
	require.NoError(t, err)
	msg.ID = 42
	return msg, entry
}

func TestLedgerPublisher_PublishToLedger(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()

	t.Run("CreatesEntryAndMarksProcessed", func(t *testing.T) {
		outboxRepo := new(MockOutboxRepo)
		ledgerRepo := new(MockLedgerRepo)
		publisher := NewLedgerPublisher(outboxRepo, ledgerRepo, logger)

		msg, entry := testOutboxMessage(t)

		ledgerRepo.On("Create", mock.Anything, mock.MatchedBy(func(e *udhaar.Entry) bool {
			return e.EntryID == entry.EntryID && e.Amount == entry.Amount
		})).Return(nil)
		outboxRepo.On("UpdateStatus", mock.Anything, msg.ID, shared.OutboxStatusProcessed).Return(nil)

		err := publisher.PublishToLedger(ctx, msg)
		assert.NoError(t, err)
		ledgerRepo.AssertExpectations(t)
		outboxRepo.AssertExpectations(t)
	})

	t.Run("DuplicateEntryStillMarksProcessed", func(t *testing.T) {
		outboxRepo := new(MockOutboxRepo)
		ledgerRepo := new(MockLedgerRepo)
		publisher := NewLedgerPublisher(outboxRepo, ledgerRepo, logger)

		msg, entry := testOutboxMessage(t)

		ledgerRepo.On("Create", mock.Anything, mock.Anything).Return(udhaar.ErrDuplicateEntry{EntryID: entry.EntryID})
		outboxRepo.On("UpdateStatus", mock.Anything, msg.ID, shared.OutboxStatusProcessed).Return(nil)

		err := publisher.PublishToLedger(ctx, msg)
		assert.NoError(t, err)
		outboxRepo.AssertExpectations(t)
	})

	t.Run("MongoFailurePropagatesForRetry", func(t *testing.T) {
		outboxRepo := new(MockOutboxRepo)
		ledgerRepo := new(MockLedgerRepo)
		publisher := NewLedgerPublisher(outboxRepo, ledgerRepo, logger)

		msg, _ := testOutboxMessage(t)

		ledgerRepo.On("Create", mock.Anything, mock.Anything).Return(errors.New("mongo unavailable"))

		err := publisher.PublishToLedger(ctx, msg)
		assert.Error(t, err)
		outboxRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("CorruptPayloadMarksFailed", func(t *testing.T) {
		outboxRepo := new(MockOutboxRepo)
		ledgerRepo := new(MockLedgerRepo)
		publisher := NewLedgerPublisher(outboxRepo, ledgerRepo, logger)

		msg, _ := testOutboxMessage(t)
		msg.Payload = []byte("{not json")

		outboxRepo.On("UpdateStatus", mock.Anything, msg.ID, shared.OutboxStatusFailedToPublish).Return(nil)

		err := publisher.PublishToLedger(ctx, msg)
		assert.Error(t, err)
		ledgerRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		outboxRepo.AssertExpectations(t)
	})
}
