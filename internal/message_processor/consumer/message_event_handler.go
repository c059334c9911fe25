package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/vastra-munim/internal/domain/shared"
	"github.com/vastra-munim/internal/message_processor/service"
	"github.com/vastra-munim/internal/platform/messaging/producers"
)

// MessageEventHandler handles incoming inbound message events from Kafka
type MessageEventHandler struct {
	processingService service.ProcessingService
	producer          producers.DeadLetterPublisher
	logger            *slog.Logger
}

// NewMessageEventHandler creates a new handler
func NewMessageEventHandler(
	logger *slog.Logger,
	processingService service.ProcessingService,
	producer producers.DeadLetterPublisher,
) *MessageEventHandler {
	return &MessageEventHandler{
		processingService: processingService,
		producer:          producer,
		logger:            logger,
	}
}

// HandleMessage processes Kafka messages
func (h *MessageEventHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var msg shared.InboundMessage
	if err := json.Unmarshal(value, &msg); err != nil {
		unmarshalErrorMsg := "Failed to unmarshal inbound message from Kafka message"
		h.logger.Error(unmarshalErrorMsg,
			"error", err,
			"message_key", string(key),
		)

		// Send to DLQ if available
		if h.producer != nil {
			dlqReason := fmt.Sprintf("%s: %s", unmarshalErrorMsg, err.Error())
			if dlqErr := h.producer.PublishToDLQ(ctx, string(key), value, dlqReason); dlqErr != nil {
				h.logger.Error("Failed to publish message to DLQ after unmarshal error",
					"dlq_error", dlqErr,
					"original_error", err,
					"message_key", string(key),
				)
			} else {
				h.logger.Info("Successfully published unprocessable message to DLQ", "message_key", string(key), "reason", dlqReason)
				// Message handled, commit offset
				return nil
			}
		}
		// Allow Kafka retries
		return fmt.Errorf("failed to unmarshal message value: %w", err)
	}

	// Add correlation ID to logger
	logger := h.logger
	if msg.CorrelationID != "" {
		logger = h.logger.With("correlation_id", msg.CorrelationID)
	}

	logger.Info("Received inbound message for processing",
		"message_id", msg.MessageID,
		"from", msg.From,
		"kind", msg.Kind,
	)

	if err := h.processingService.ProcessMessage(ctx, &msg); err != nil {
		logger.Error("Failed to process inbound message",
			"message_id", msg.MessageID,
			"from", msg.From,
			"error", err,
		)
		return fmt.Errorf("processing message %s failed: %w", msg.MessageID, err)
	}

	logger.Info("Successfully processed inbound message", "message_id", msg.MessageID)
	return nil // Success, commit offset
}
