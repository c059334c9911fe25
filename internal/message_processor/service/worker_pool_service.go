package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/vastra-munim/internal/domain/shared"
)

// WorkerPoolProcessingService implements the ProcessingService interface
type WorkerPoolProcessingService struct {
	baseService ProcessingService
	pool        *ants.Pool
	logger      *slog.Logger
	// Use a mutex to protect access to the results map
	mu      sync.Mutex
	results map[string]chan error
}

type WorkerPoolConfig struct {
	Size int
}

func NewWorkerPoolProcessingService(
	baseService ProcessingService,
	config WorkerPoolConfig,
	logger *slog.Logger,
) (*WorkerPoolProcessingService, error) {
	pool, err := ants.NewPool(config.Size)
	if err != nil {
		return nil, err
	}

	return &WorkerPoolProcessingService{
		baseService: baseService,
		pool:        pool,
		logger:      logger,
		results:     make(map[string]chan error),
	}, nil
}

// ProcessMessage submits a message to the worker pool for processing.
func (s *WorkerPoolProcessingService) ProcessMessage(ctx context.Context, msg *shared.InboundMessage) error {
	logger := s.logger
	if msg.CorrelationID != "" {
		logger = s.logger.With("correlation_id", msg.CorrelationID)
	}

	logger.Info("Submitting message to worker pool",
		"message_id", msg.MessageID,
		"from", msg.From,
	)

	// Create a channel to receive the result of the message processing
	resultChan := make(chan error, 1)

	messageID := msg.MessageID
	s.mu.Lock()
	s.results[messageID] = resultChan
	s.mu.Unlock()

	// Create a copy of the message to avoid data races
	msgCopy := *msg

	err := s.pool.Submit(func() {
		err := s.baseService.ProcessMessage(ctx, &msgCopy)

		resultChan <- err

		s.mu.Lock()
		delete(s.results, messageID)
		close(resultChan)
		s.mu.Unlock()
	})

	if err != nil {
		// If we couldn't submit the task to the pool, remove the result channel
		s.mu.Lock()
		delete(s.results, messageID)
		close(resultChan)
		s.mu.Unlock()

		logger.Error("Failed to submit message to worker pool",
			"message_id", msg.MessageID,
			"error", err,
		)
		return err
	}

	// Wait for the result from the worker
	return <-resultChan
}

// Shutdown gracefully shuts down the worker pool.
func (s *WorkerPoolProcessingService) Shutdown() {
	s.logger.Info("Shutting down worker pool", "running_workers", s.pool.Running())
	s.pool.Release()
}

// Running returns the number of running workers in the pool.
func (s *WorkerPoolProcessingService) Running() int {
	return s.pool.Running()
}

// Capacity returns the capacity of the worker pool.
func (s *WorkerPoolProcessingService) Capacity() int {
	return s.pool.Cap()
}
