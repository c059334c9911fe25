package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/vastra-munim/internal/config"
)

type InboundMessageProducer struct {
	logger *slog.Logger
	writer KafkaWriter // Interface for testability
	topic  string
}

// Creates the webhook gateway producer and ensures the inbound topic exists
func NewInboundMessageProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*InboundMessageProducer, error) {
	if cfg.InboundTopic == "" {
		return nil, fmt.Errorf("kafka inbound topic is not configured")
	}

	conn, err := kafka.Dial("tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka for webhook gateway producer: %w", err)
	}
	defer conn.Close()

	err = ensureTopic(conn, cfg.InboundTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure inbound topic %s exists for webhook gateway producer: %w", cfg.InboundTopic, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.InboundTopic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		Async:        true, // Using async for high throughput
		WriteTimeout: cfg.MaxWait,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Error("Failed to write messages asynchronously", "topic", cfg.InboundTopic, "error", err, "count", len(messages))
			} else {
				logger.Debug("Successfully wrote messages asynchronously", "topic", cfg.InboundTopic, "count", len(messages))
			}
		},
	}

	return &InboundMessageProducer{
		logger: logger,
		writer: writer,
		topic:  cfg.InboundTopic,
	}, nil
}

func (p *InboundMessageProducer) Publish(ctx context.Context, key string, value interface{}) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal message value for webhook gateway producer: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: jsonValue,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish message via webhook gateway producer",
			"topic", p.topic,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to publish message to %s via webhook gateway producer: %w", p.topic, err)
	}

	p.logger.Debug("Published message via webhook gateway producer",
		"topic", p.topic,
		"key", key,
	)
	return nil
}

func (p *InboundMessageProducer) Close() error {
	p.logger.Info("Closing webhook gateway Kafka message producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close webhook gateway kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
