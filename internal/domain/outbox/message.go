package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/vastra-munim/internal/domain/shared"
	"github.com/vastra-munim/internal/domain/udhaar"
)

// Message stores an udhaar ledger entry for reliable publishing. The command
// executor writes the row in the same Postgres transaction as the business
// mutation; the poller moves it to the Mongo ledger afterwards.
type Message struct {
	ID            int64               `json:"id"`
	EntryID       uuid.UUID           `json:"entry_id"`
	CustomerID    uuid.UUID           `json:"customer_id"`
	Payload       json.RawMessage     `json:"payload"`
	Status        shared.OutboxStatus `json:"status"`
	Attempts      int                 `json:"attempts"`
	CreatedAt     time.Time           `json:"created_at"`
	LastAttemptAt *time.Time          `json:"last_attempt_at,omitempty"`
}

func NewMessage(entry *udhaar.Entry) (*Message, error) {
	payload, err := json.Marshal(entry)
	if err != nil {
		return nil, err
	}

	return &Message{
		EntryID:    entry.EntryID,
		CustomerID: entry.CustomerID,
		Payload:    payload,
		Status:     shared.OutboxStatusPending,
		Attempts:   0,
		CreatedAt:  time.Now(),
	}, nil
}

func (m *Message) IncrementAttempts() {
	m.Attempts++
	now := time.Now()
	m.LastAttemptAt = &now
}

func (m *Message) MarkAsProcessed() {
	m.Status = shared.OutboxStatusProcessed
	now := time.Now()
	m.LastAttemptAt = &now
}

func (m *Message) MarkAsFailed() {
	m.Status = shared.OutboxStatusFailedToPublish
	now := time.Now()
	m.LastAttemptAt = &now
}

// GetEntry extracts the udhaar entry from the payload
func (m *Message) GetEntry() (*udhaar.Entry, error) {
	var entry udhaar.Entry
	if err := json.Unmarshal(m.Payload, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}
