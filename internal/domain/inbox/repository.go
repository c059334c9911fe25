package inbox

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Repository defines inbound message dedup operations
type Repository interface {
	// Admit claims the message id. It returns true when this call claimed
	// it and false when the id was already admitted.
	Admit(ctx context.Context, record *Record) (bool, error)

	Get(ctx context.Context, messageID string) (*Record, error)

	// MarkProcessed stamps ProcessedAt. It returns false when the message
	// was already processed, which lets a redelivered Kafka event skip
	// execution.
	MarkProcessed(ctx context.Context, messageID string) (bool, error)

	WithTx(tx pgx.Tx) Repository
}

// ErrRecordNotFound indicates a message id that was never admitted
type ErrRecordNotFound struct {
	MessageID string
}

func (e ErrRecordNotFound) Error() string {
	return "inbox record not found: " + e.MessageID
}

// Is implements the errors.Is interface for ErrRecordNotFound
func (e ErrRecordNotFound) Is(target error) bool {
	t, ok := target.(ErrRecordNotFound)
	if !ok {
		return false
	}
	if t.MessageID == "" {
		return true
	}
	return e.MessageID == t.MessageID
}
