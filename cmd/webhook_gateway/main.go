package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/vastra-munim/internal/command"
	"github.com/vastra-munim/internal/config"
	"github.com/vastra-munim/internal/data/mongo"
	"github.com/vastra-munim/internal/data/postgres"
	"github.com/vastra-munim/internal/hitl"
	"github.com/vastra-munim/internal/logger"
	"github.com/vastra-munim/internal/messenger"
	"github.com/vastra-munim/internal/platform/messaging/producers"
	"github.com/vastra-munim/internal/platform/persistence"
	"github.com/vastra-munim/internal/webhook_gateway"
	"github.com/vastra-munim/internal/webhook_gateway/service"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("webhook_gateway")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	log.Info("Starting Webhook Gateway",
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

	// Initialize Kafka producer for admitted inbound messages
	kafkaProducer, err := producers.NewInboundMessageProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize Kafka producer", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	customerRepo := postgres.NewCustomerRepository(log, postgresDB)
	inventoryRepo := postgres.NewInventoryRepository(log, postgresDB)
	invoiceRepo := postgres.NewInvoiceRepository(log, postgresDB)
	approvalRepo := postgres.NewApprovalRepository(log, postgresDB)
	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)
	inboxRepo := postgres.NewInboxRepository(log, postgresDB)
	ledgerRepo := mongo.NewUdhaarRepository(log, mongoDB.Database())
	convLogRepo := mongo.NewConvLogRepository(log, mongoDB.Database())

	// The approval endpoints execute parked commands, so the gateway carries
	// its own executor and gate over the same stores the processor uses
	sender := messenger.NewWhatsAppClient(log, &cfg.WhatsApp)
	executor := command.NewExecutor(
		log,
		postgresDB,
		customerRepo,
		inventoryRepo,
		invoiceRepo,
		outboxRepo,
		ledgerRepo,
		sender,
		&cfg.Policy,
		&cfg.Application,
	)
	gate := hitl.NewGate(log, approvalRepo, executor, &cfg.Policy)

	// Initialize services
	ingestService := service.NewIngestService(log, inboxRepo, kafkaProducer)
	queryService := service.NewQueryService(log, customerRepo, inventoryRepo, invoiceRepo, ledgerRepo, convLogRepo)

	// Initialize REST server
	server := webhook_gateway.NewServer(log, cfg, ingestService, queryService, gate)
	log.Info("REST server initialized")

	// Create error channel for server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Shutdown HTTP server
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	if err = kafkaProducer.Close(); err != nil {
		log.Error("Error closing Kafka producer", "error", err)
	}

	// Shutdown postgres connection pool
	postgresDB.Close()

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if err != nil {
		log.Error("Server shutdown completed with errors")
	} else {
		log.Info("Server shutdown completed successfully")
	}
}
