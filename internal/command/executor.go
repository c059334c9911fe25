// Package command executes resolved commands against business state. Every
// mutating command runs inside a single database transaction: either the
// invoice, the stock movement, the balance change and the ledger outbox row
// all land, or none of them do. Business failures come back as failed
// Outcomes with a nil error; a non-nil error means infrastructure trouble
// and the caller may retry.
package command

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vastra-munim/internal/config"
	"github.com/vastra-munim/internal/domain/customer"
	"github.com/vastra-munim/internal/domain/inventory"
	"github.com/vastra-munim/internal/domain/invoice"
	"github.com/vastra-munim/internal/domain/outbox"
	"github.com/vastra-munim/internal/domain/shared"
	"github.com/vastra-munim/internal/domain/udhaar"
	"github.com/vastra-munim/internal/messenger"
	"github.com/vastra-munim/internal/platform/persistence"
)

// Executor runs commands. Read-only commands go straight to the
// repositories; mutating ones get a transaction and pessimistic locks.
type Executor struct {
	pgDB      *persistence.PostgresDB
	customers customer.Repository
	items     inventory.Repository
	invoices  invoice.Repository
	outboxes  outbox.Repository
	ledger    udhaar.Repository
	sender    messenger.Sender
	policy    *config.PolicyConfig
	shopName  string
	logger    *slog.Logger
}

func NewExecutor(
	logger *slog.Logger,
	pgDB *persistence.PostgresDB,
	customers customer.Repository,
	items inventory.Repository,
	invoices invoice.Repository,
	outboxes outbox.Repository,
	ledger udhaar.Repository,
	sender messenger.Sender,
	policy *config.PolicyConfig,
	appCfg *config.ApplicationConfig,
) *Executor {
	return &Executor{
		pgDB:      pgDB,
		customers: customers,
		items:     items,
		invoices:  invoices,
		outboxes:  outboxes,
		ledger:    ledger,
		sender:    sender,
		policy:    policy,
		shopName:  appCfg.Name,
		logger:    logger,
	}
}

// Execute runs one command to completion
func (e *Executor) Execute(ctx context.Context, cmd *shared.Command) (*Outcome, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("refusing malformed command %s: %w", cmd.CommandID.String(), err)
	}

	logger := e.logger
	if cmd.CorrelationID != "" {
		logger = e.logger.With("correlation_id", cmd.CorrelationID)
	}
	logger.Info("Executing command", "command_id", cmd.CommandID.String(), "kind", cmd.Kind)

	switch cmd.Kind {
	case shared.CommandCheckInventory:
		return e.checkInventory(ctx, cmd)
	case shared.CommandCheckUdhaar:
		return e.checkUdhaar(ctx, cmd, logger)
	case shared.CommandLowStockReport:
		return e.lowStockReport(ctx, cmd)
	case shared.CommandSendReminder:
		return e.sendReminder(ctx, cmd, logger)
	}

	tx, err := e.pgDB.Pool().Begin(ctx)
	if err != nil {
		logger.Error("Failed to begin database transaction", "command_id", cmd.CommandID.String(), "error", err)
		return nil, fmt.Errorf("failed to begin DB transaction for %s: %w", cmd.CommandID.String(), err)
	}
	defer func() {
		if p := recover(); p != nil {
			logger.Error("Panic recovered, rolling back transaction", "panic", p, "command_id", cmd.CommandID.String())
			_ = tx.Rollback(ctx)
			panic(p) // Re-panic
		} else if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				logger.Error("Failed to rollback transaction after error", "rollback_error", rbErr, "original_error", err, "command_id", cmd.CommandID.String())
			}
		}
	}()

	var outcome *Outcome
	switch cmd.Kind {
	case shared.CommandCreateInvoice:
		outcome, err = e.executeInvoice(ctx, tx, cmd, logger)
	case shared.CommandRecordPayment:
		outcome, err = e.executePayment(ctx, tx, cmd, logger)
	case shared.CommandAddCustomer:
		outcome, err = e.executeAddCustomer(ctx, tx, cmd, logger)
	case shared.CommandAddInventory:
		outcome, err = e.executeAddInventory(ctx, tx, cmd, logger)
	case shared.CommandRestockItem:
		outcome, err = e.executeRestock(ctx, tx, cmd, logger)
	default:
		err = fmt.Errorf("no executor for command kind %s", cmd.Kind)
	}
	if err != nil {
		return nil, err
	}

	if !outcome.OK {
		// Business failure: nothing may survive, including partial stock moves
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			logger.Error("Failed to rollback after business failure", "rollback_error", rbErr, "command_id", cmd.CommandID.String(), "reason", outcome.Reason)
		}
		logger.Warn("Command failed", "command_id", cmd.CommandID.String(), "reason", outcome.Reason)
		return outcome, nil
	}

	if err = tx.Commit(ctx); err != nil {
		logger.Error("Failed to commit database transaction", "command_id", cmd.CommandID.String(), "error", err)
		return nil, fmt.Errorf("failed to commit DB transaction for %s: %w", cmd.CommandID.String(), err)
	}

	logger.Info("Command executed", "command_id", cmd.CommandID.String(), "kind", cmd.Kind)
	return outcome, nil
}
