package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/vastra-munim/internal/domain/inbox"
	"github.com/vastra-munim/internal/domain/shared"
	"github.com/vastra-munim/internal/platform/messaging/producers"
)

// IngestServiceImpl implements the IngestService interface
type IngestServiceImpl struct {
	inboxRepo inbox.Repository
	producer  producers.MessagePublisher
	logger    *slog.Logger
}

// NewIngestService creates a new ingest service
func NewIngestService(logger *slog.Logger, inboxRepo inbox.Repository, producer producers.MessagePublisher) IngestService {
	return &IngestServiceImpl{
		inboxRepo: inboxRepo,
		producer:  producer,
		logger:    logger,
	}
}

// Ingest admits each message into the inbox and publishes it keyed by the
// provider message id, so redeliveries of the same message land on the same
// partition. A message whose inbox record is already stamped processed is
// skipped; a record that exists but is unprocessed is republished, which
// covers a gateway crash between admit and publish.
func (s *IngestServiceImpl) Ingest(ctx context.Context, messages []*shared.InboundMessage) (int, error) {
	published := 0
	for _, msg := range messages {
		rec, err := s.inboxRepo.Get(ctx, msg.MessageID)
		switch {
		case err == nil:
			if rec.ProcessedAt != nil {
				s.logger.Info("Duplicate webhook delivery for processed message",
					"message_id", msg.MessageID,
				)
				continue
			}
		default:
			var notFound inbox.ErrRecordNotFound
			if !errors.As(err, &notFound) {
				s.logger.Error("Failed to check inbox", "message_id", msg.MessageID, "error", err)
				return published, err
			}
			record := &inbox.Record{
				MessageID:  msg.MessageID,
				From:       msg.From,
				ReceivedAt: msg.ReceivedAt,
			}
			if _, err := s.inboxRepo.Admit(ctx, record); err != nil {
				s.logger.Error("Failed to admit message", "message_id", msg.MessageID, "error", err)
				return published, err
			}
		}

		if err := s.producer.Publish(ctx, msg.MessageID, msg); err != nil {
			s.logger.Error("Failed to publish inbound message",
				"message_id", msg.MessageID,
				"from", msg.From,
				"error", err,
			)
			return published, err
		}

		s.logger.Info("Inbound message published",
			"message_id", msg.MessageID,
			"from", msg.From,
			"kind", string(msg.Kind),
		)
		published++
	}
	return published, nil
}
