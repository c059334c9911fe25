package outbox_poller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/vastra-munim/internal/domain/outbox"
	"github.com/vastra-munim/internal/domain/shared"
	"github.com/vastra-munim/internal/domain/udhaar"
)

// LedgerPublisher publishes outbox messages to the udhaar ledger
type LedgerPublisher interface {
	PublishToLedger(ctx context.Context, message *outbox.Message) error
}

// LedgerPublisherImpl implements LedgerPublisher
type LedgerPublisherImpl struct {
	outboxRepo outbox.Repository
	ledgerRepo udhaar.Repository
	logger     *slog.Logger
}

// NewLedgerPublisher creates a new publisher
func NewLedgerPublisher(
	outboxRepo outbox.Repository,
	ledgerRepo udhaar.Repository,
	logger *slog.Logger,
) LedgerPublisher {
	return &LedgerPublisherImpl{
		outboxRepo: outboxRepo,
		ledgerRepo: ledgerRepo,
		logger:     logger,
	}
}

// PublishToLedger moves one outbox row into the Mongo ledger. Entries are
// append-only; a duplicate entry id means an earlier attempt landed and the
// outbox row just needs its status fixed.
func (p *LedgerPublisherImpl) PublishToLedger(ctx context.Context, message *outbox.Message) error {
	var entry udhaar.Entry
	if err := json.Unmarshal(message.Payload, &entry); err != nil {
		p.logger.Error("Failed to unmarshal udhaar entry from outbox payload",
			"outbox_id", message.ID, "entry_id", message.EntryID.String(), "error", err,
		)
		if updateErr := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusFailedToPublish); updateErr != nil {
			p.logger.Error("Also failed to update outbox status to FAILED_TO_PUBLISH after unmarshal error", "outbox_id", message.ID, "update_error", updateErr)
		}
		return fmt.Errorf("unmarshal payload for outbox %d failed: %w", message.ID, err)
	}

	// Add correlation ID to logger
	logger := p.logger
	if entry.CorrelationID != "" {
		logger = p.logger.With("correlation_id", entry.CorrelationID)
	}

	logger.Info("Attempting to publish outbox message to udhaar ledger",
		"outbox_id", message.ID, "entry_id", entry.EntryID.String(), "customer_id", entry.CustomerID.String())

	if err := p.ledgerRepo.Create(ctx, &entry); err != nil {
		if errors.Is(err, udhaar.ErrDuplicateEntry{EntryID: entry.EntryID}) {
			logger.Info("Udhaar entry already in ledger", "entry_id", entry.EntryID.String())
		} else {
			logger.Error("Failed to create udhaar entry in MongoDB", "entry_id", entry.EntryID.String(), "error", err)
			return fmt.Errorf("failed to create udhaar entry %s: %w", entry.EntryID.String(), err)
		}
	} else {
		logger.Info("Successfully created udhaar entry in MongoDB", "entry_id", entry.EntryID.String())
	}

	// Mark outbox message as processed
	if err := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusProcessed); err != nil {
		logger.Error("Failed to update outbox message status to PROCESSED",
			"outbox_id", message.ID, "entry_id", entry.EntryID.String(), "error", err,
		)
		return fmt.Errorf("ledger write for %s OK, but failed to mark outbox %d as PROCESSED: %w", entry.EntryID.String(), message.ID, err)
	}

	logger.Info("Outbox message successfully processed and marked as PROCESSED", "outbox_id", message.ID, "entry_id", entry.EntryID.String())
	return nil
}
