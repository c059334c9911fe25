package components

import (
	"log/slog"

	"github.com/vastra-munim/internal/bulkorder"
	"github.com/vastra-munim/internal/command"
	"github.com/vastra-munim/internal/config"
	"github.com/vastra-munim/internal/domain/approval"
	"github.com/vastra-munim/internal/domain/convlog"
	"github.com/vastra-munim/internal/domain/customer"
	"github.com/vastra-munim/internal/domain/inbox"
	"github.com/vastra-munim/internal/domain/inventory"
	"github.com/vastra-munim/internal/domain/invoice"
	"github.com/vastra-munim/internal/domain/outbox"
	"github.com/vastra-munim/internal/domain/udhaar"
	"github.com/vastra-munim/internal/hitl"
	"github.com/vastra-munim/internal/message_processor/service"
	"github.com/vastra-munim/internal/messenger"
	"github.com/vastra-munim/internal/nlu"
	"github.com/vastra-munim/internal/platform/persistence"
	"github.com/vastra-munim/internal/resolver"
	"github.com/vastra-munim/internal/session"
	"github.com/vastra-munim/internal/similarity"
)

// Repositories bundles the stores the processing pipeline reads and writes
type Repositories struct {
	Customers customer.Repository
	Items     inventory.Repository
	Invoices  invoice.Repository
	Approvals approval.Repository
	Outboxes  outbox.Repository
	Inbox     inbox.Repository
	Ledger    udhaar.Repository
	ConvLog   convlog.Repository
}

// CreateProcessingService creates a new ProcessingService with all its
// dependencies. The approval gate is returned alongside so the scheduler can
// share it for expiry sweeps.
func CreateProcessingService(
	pgDB *persistence.PostgresDB,
	repos Repositories,
	interpreter nlu.Interpreter,
	sender messenger.Sender,
	sessions session.Store,
	logger *slog.Logger,
	cfg *config.Config,
) (service.ProcessingService, *hitl.Gate) {
	msgResolver := resolver.NewResolver(
		logger,
		repos.Customers,
		repos.Items,
		similarity.NewLevenshteinScorer(),
		bulkorder.NewParser(cfg.Policy.BulkSumTolerance),
		&cfg.Policy,
		&cfg.NLU,
	)

	executor := command.NewExecutor(
		logger,
		pgDB,
		repos.Customers,
		repos.Items,
		repos.Invoices,
		repos.Outboxes,
		repos.Ledger,
		sender,
		&cfg.Policy,
		&cfg.Application,
	)

	gate := hitl.NewGate(logger, repos.Approvals, executor, &cfg.Policy)

	baseService := service.NewProcessingService(
		logger,
		repos.Inbox,
		interpreter,
		msgResolver,
		executor,
		gate,
		sessions,
		sender,
		repos.ConvLog,
		cfg.WhatsApp.OwnerPhone,
	)

	workerPoolService, err := service.NewWorkerPoolProcessingService(
		baseService,
		service.WorkerPoolConfig{
			Size: cfg.WorkerPool.Size,
		},
		logger.With("component", "worker_pool"),
	)

	if err != nil {
		logger.Error("Failed to create worker pool service, falling back to base service", "error", err)
		return baseService, gate
	}

	logger.Info("Created worker pool processing service", "pool_size", cfg.WorkerPool.Size)
	return workerPoolService, gate
}
