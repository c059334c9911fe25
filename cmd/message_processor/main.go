package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/vastra-munim/internal/config"
	"github.com/vastra-munim/internal/data/mongo"
	"github.com/vastra-munim/internal/data/postgres"
	"github.com/vastra-munim/internal/logger"
	"github.com/vastra-munim/internal/message_processor/components"
	"github.com/vastra-munim/internal/message_processor/consumer"
	"github.com/vastra-munim/internal/message_processor/outbox_poller"
	"github.com/vastra-munim/internal/message_processor/service"
	"github.com/vastra-munim/internal/messenger"
	"github.com/vastra-munim/internal/nlu"
	"github.com/vastra-munim/internal/platform/messaging/consumers"
	"github.com/vastra-munim/internal/platform/messaging/producers"
	"github.com/vastra-munim/internal/platform/persistence"
	"github.com/vastra-munim/internal/scheduler"
	"github.com/vastra-munim/internal/session"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("message_processor")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	log.Info("Starting Message Processor",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

	// Initialize databases with app context
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	redisDB, err := persistence.NewRedisDB(appCtx, log, &cfg.Redis)
	if err != nil {
		log.Error("Failed to initialize Redis", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	repos := components.Repositories{
		Customers: postgres.NewCustomerRepository(log, postgresDB),
		Items:     postgres.NewInventoryRepository(log, postgresDB),
		Invoices:  postgres.NewInvoiceRepository(log, postgresDB),
		Approvals: postgres.NewApprovalRepository(log, postgresDB),
		Outboxes:  postgres.NewOutboxRepository(log, postgresDB),
		Inbox:     postgres.NewInboxRepository(log, postgresDB),
		Ledger:    mongo.NewUdhaarRepository(log, mongoDB.Database()),
		ConvLog:   mongo.NewConvLogRepository(log, mongoDB.Database()),
	}

	// Initialize outbound WhatsApp client, NLU client and session store
	sender := messenger.NewWhatsAppClient(log, &cfg.WhatsApp)
	interpreter := nlu.NewFallbackInterpreter(log, nlu.NewSarvamClient(log, &cfg.NLU))
	sessions := session.NewRedisStore(log, redisDB.Client(), cfg.Redis.SessionTTL)

	// Initialize Kafka consumer
	kafkaConsumer := consumers.NewKafkaConsumer(appCtx, log, &cfg.Kafka)

	// Initialize Kafka DLQ producer
	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}
	// dlqProducer might be nil if DLQTopic is not configured. Handler should be nil-safe.

	// Initialize processing service with separated concerns
	processingService, gate := components.CreateProcessingService(
		postgresDB,
		repos,
		interpreter,
		sender,
		sessions,
		log,
		cfg,
	)

	// Initialize message event handler
	messageEventHandler := consumer.NewMessageEventHandler(
		log,
		processingService,
		dlqProducer,
	)

	// Initialize outbox poller
	ledgerPublisher := outbox_poller.NewLedgerPublisher(
		repos.Outboxes,
		repos.Ledger,
		log,
	)
	poller := outbox_poller.NewPoller(
		&cfg.Outbox,
		repos.Outboxes,
		ledgerPublisher,
		log,
	)

	// Initialize background scheduler for approval expiry, overdue invoices
	// and the owner's daily digests
	jobScheduler, err := scheduler.NewScheduler(
		log,
		gate,
		repos.Invoices,
		repos.Customers,
		repos.Items,
		sender,
		&cfg.WhatsApp,
		&cfg.Scheduler,
	)
	if err != nil {
		log.Error("Failed to initialize scheduler", "error", err)
		os.Exit(1)
	}

	// Create error channel for service errors
	errChan := make(chan error, 2)

	// Create wait group for graceful shutdown
	var wg sync.WaitGroup

	// Start Kafka consumer in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting Kafka consumer",
			"topic", cfg.Kafka.InboundTopic,
			"group", cfg.Kafka.ConsumerGroup,
		)
		if err := kafkaConsumer.Subscribe(appCtx, cfg.Kafka.InboundTopic, cfg.Kafka.ConsumerGroup, messageEventHandler.HandleMessage); err != nil {
			errChan <- fmt.Errorf("kafka consumer error: %w", err)
		}
	}()

	// Start outbox poller in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting Outbox Poller",
			"interval", cfg.Outbox.PollingInterval.String(),
			"batch_size", cfg.Outbox.BatchSize,
		)
		poller.Start(appCtx)
	}()

	// Start scheduled jobs
	jobScheduler.Start()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serviceErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Service error occurred", "error", err)
		serviceErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Stop scheduled jobs
	if err := jobScheduler.Stop(); err != nil {
		log.Error("Error stopping scheduler", "error", err)
	}

	// Shutdown the worker pool if it's a WorkerPoolProcessingService
	if wpService, ok := processingService.(*service.WorkerPoolProcessingService); ok {
		log.Info("Shutting down worker pool", "running_workers", wpService.Running())
		wpService.Shutdown()
	}

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Wait for all goroutines to finish
	log.Info("Waiting for services to stop...")
	wgChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(wgChan)
	}()

	select {
	case <-wgChan:
		log.Info("All services stopped successfully")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	// Close DLQ Kafka producer
	if dlqProducer != nil { // dlqProducer can be nil if DLQTopic was not configured
		if err = dlqProducer.Close(); err != nil {
			log.Error("Error closing DLQ Kafka producer", "error", err)
		}
	}

	// Close Kafka consumer
	if err = kafkaConsumer.Close(); err != nil {
		log.Error("Error closing Kafka consumer", "error", err)
	}

	// Shutdown postgres connection pool
	postgresDB.Close()

	if err = redisDB.Close(); err != nil {
		log.Error("Error closing Redis connection", "error", err)
	}

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if serviceErr != nil {
		log.Error("Message Processor shutdown with errors", "error", serviceErr)
	}
	if err != nil {
		log.Error("Message Processor shutdown completed with errors")
	} else {
		log.Info("Message Processor shutdown completed successfully")
	}
}
