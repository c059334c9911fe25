// Package scheduler runs the background jobs that keep the shop's state
// current without an inbound message driving them: expiring stale approval
// requests, flagging overdue invoices, and sending the owner's daily summary
// and low stock alerts over WhatsApp.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/vastra-munim/internal/config"
	"github.com/vastra-munim/internal/domain/customer"
	"github.com/vastra-munim/internal/domain/inventory"
	"github.com/vastra-munim/internal/domain/invoice"
	"github.com/vastra-munim/internal/domain/shared"
	"github.com/vastra-munim/internal/messenger"
)

// ApprovalSweeper expires pending approval requests past their TTL
type ApprovalSweeper interface {
	ExpireStale(ctx context.Context, now time.Time) (int, error)
}

// Scheduler owns the gocron instance and its registered jobs
type Scheduler struct {
	scheduler  gocron.Scheduler
	sweeper    ApprovalSweeper
	invoices   invoice.Repository
	customers  customer.Repository
	items      inventory.Repository
	sender     messenger.Sender
	ownerPhone string
	cfg        *config.SchedulerConfig
	logger     *slog.Logger
}

func NewScheduler(
	logger *slog.Logger,
	sweeper ApprovalSweeper,
	invoices invoice.Repository,
	customers customer.Repository,
	items inventory.Repository,
	sender messenger.Sender,
	whatsappCfg *config.WhatsAppConfig,
	cfg *config.SchedulerConfig,
) (*Scheduler, error) {
	gs, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	s := &Scheduler{
		scheduler:  gs,
		sweeper:    sweeper,
		invoices:   invoices,
		customers:  customers,
		items:      items,
		sender:     sender,
		ownerPhone: whatsappCfg.OwnerPhone,
		cfg:        cfg,
		logger:     logger,
	}

	if err := s.registerJobs(); err != nil {
		return nil, err
	}
	return s, nil
}

// Start begins running the registered jobs
func (s *Scheduler) Start() {
	s.logger.Info("Starting background job scheduler")
	s.scheduler.Start()
}

// Stop shuts the scheduler down, waiting for running jobs to finish
func (s *Scheduler) Stop() error {
	s.logger.Info("Stopping background job scheduler")
	return s.scheduler.Shutdown()
}

func (s *Scheduler) registerJobs() error {
	if _, err := s.scheduler.NewJob(
		gocron.DurationJob(s.cfg.ExpirySweepInterval),
		gocron.NewTask(s.sweepExpiredApprovals, context.Background()),
		gocron.WithName("approval-expiry-sweep"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	); err != nil {
		return fmt.Errorf("failed to register approval expiry job: %w", err)
	}

	if _, err := s.scheduler.NewJob(
		gocron.DurationJob(time.Hour),
		gocron.NewTask(s.flagOverdueInvoices, context.Background()),
		gocron.WithName("overdue-invoice-sweep"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	); err != nil {
		return fmt.Errorf("failed to register overdue invoice job: %w", err)
	}

	if _, err := s.scheduler.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(uint(s.cfg.DailySummaryHour), 0, 0))),
		gocron.NewTask(s.sendDailySummary, context.Background()),
		gocron.WithName("owner-daily-summary"),
	); err != nil {
		return fmt.Errorf("failed to register daily summary job: %w", err)
	}

	if _, err := s.scheduler.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(uint(s.cfg.LowStockHour), 0, 0))),
		gocron.NewTask(s.sendLowStockAlert, context.Background()),
		gocron.WithName("low-stock-alert"),
	); err != nil {
		return fmt.Errorf("failed to register low stock job: %w", err)
	}

	s.logger.Info("Registered background jobs",
		"expiry_sweep_interval", s.cfg.ExpirySweepInterval.String(),
		"daily_summary_hour", s.cfg.DailySummaryHour,
		"low_stock_hour", s.cfg.LowStockHour,
	)
	return nil
}

func (s *Scheduler) sweepExpiredApprovals(ctx context.Context) {
	expired, err := s.sweeper.ExpireStale(ctx, time.Now())
	if err != nil {
		s.logger.Error("Approval expiry sweep failed", "error", err)
		return
	}
	if expired > 0 {
		s.logger.Info("Approval expiry sweep done", "expired", expired)
	}
}

// flagOverdueInvoices moves unpaid invoices past their due date to OVERDUE.
// Version conflicts are skipped; the next sweep picks the invoice up again.
func (s *Scheduler) flagOverdueInvoices(ctx context.Context) {
	overdue, err := s.invoices.ListUnpaidOlderThan(ctx, time.Now())
	if err != nil {
		s.logger.Error("Failed to list unpaid invoices", "error", err)
		return
	}

	flagged := 0
	for _, inv := range overdue {
		if inv.Status == invoice.StatusOverdue {
			continue
		}
		if err := inv.MarkOverdue(); err != nil {
			continue
		}
		if err := s.invoices.Update(ctx, inv); err != nil {
			s.logger.Warn("Failed to flag invoice overdue", "invoice_id", inv.ID.String(), "error", err)
			continue
		}
		flagged++
	}

	if flagged > 0 {
		s.logger.Info("Flagged overdue invoices", "count", flagged)
	}
}

func (s *Scheduler) sendDailySummary(ctx context.Context) {
	summary, err := s.invoices.SummarizeDay(ctx, time.Now())
	if err != nil {
		s.logger.Error("Failed to summarize the day", "error", err)
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Aaj ka hisaab (%s):\n", time.Now().Format("02 Jan"))
	fmt.Fprintf(&b, "Bills: %d, total %s\n", summary.InvoiceCount, shared.FormatRupees(summary.TotalBilled))
	fmt.Fprintf(&b, "Collection: %s", shared.FormatRupees(summary.TotalCollected))

	debtors, err := s.customers.ListWithBalance(ctx, 1)
	if err != nil {
		s.logger.Warn("Failed to list udhaar balances for summary", "error", err)
	} else {
		var totalUdhaar int64
		for _, c := range debtors {
			totalUdhaar += c.CreditBalance
		}
		fmt.Fprintf(&b, "\nUdhaar baki: %s (%d customers)", shared.FormatRupees(totalUdhaar), len(debtors))
	}

	if err := s.sender.SendText(ctx, s.ownerPhone, b.String()); err != nil {
		s.logger.Error("Failed to send daily summary", "error", err)
		return
	}
	s.logger.Info("Daily summary sent", "invoice_count", summary.InvoiceCount)
}

func (s *Scheduler) sendLowStockAlert(ctx context.Context) {
	low, err := s.items.ListLowStock(ctx)
	if err != nil {
		s.logger.Error("Failed to list low stock items", "error", err)
		return
	}
	if len(low) == 0 {
		s.logger.Debug("No low stock items, skipping alert")
		return
	}

	var b strings.Builder
	b.WriteString("Stock kam ho raha hai, reorder karna hai:")
	for _, item := range low {
		fmt.Fprintf(&b, "\n- %s: %d %s bacha (level %d)", item.DisplayName(), item.Quantity, item.Unit, item.ReorderLevel)
	}

	if err := s.sender.SendText(ctx, s.ownerPhone, b.String()); err != nil {
		s.logger.Error("Failed to send low stock alert", "error", err)
		return
	}
	s.logger.Info("Low stock alert sent", "items", len(low))
}
