package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/vastra-munim/internal/domain/customer"
	"github.com/vastra-munim/internal/domain/inventory"
	"github.com/vastra-munim/internal/domain/invoice"
	"github.com/vastra-munim/internal/domain/outbox"
	"github.com/vastra-munim/internal/domain/shared"
	"github.com/vastra-munim/internal/domain/udhaar"
)

// maxInvoicesPerPayment bounds how many open invoices one payment can sweep
const maxInvoicesPerPayment = 20

// executeInvoice creates the invoice, moves stock, extends the customer's
// credit and queues the ledger entry, all inside the caller's transaction
func (e *Executor) executeInvoice(ctx context.Context, tx pgx.Tx, cmd *shared.Command, logger *slog.Logger) (*Outcome, error) {
	p := cmd.Invoice
	custRepo := e.customers.WithTx(tx)

	cust, err := custRepo.LockForUpdate(ctx, p.CustomerID)
	if err != nil {
		if errors.Is(err, customer.ErrCustomerNotFound{CustomerID: p.CustomerID}) {
			return failure(cmd, shared.FailureReasonCustomerNotFound, "Customer ka record nahi mila, shayad hata diya gaya hai."), nil
		}
		return nil, fmt.Errorf("failed to lock customer %s: %w", p.CustomerID.String(), err)
	}

	inv := invoice.NewInvoice(cust.ID, p.InvoiceType, time.Duration(e.policy.OverdueDays)*24*time.Hour)

	itemRepo := e.items.WithTx(tx)
	for _, line := range p.Lines {
		item, err := itemRepo.LockForUpdate(ctx, line.ItemID)
		if err != nil {
			if errors.Is(err, inventory.ErrItemNotFound{ItemID: line.ItemID}) {
				return failure(cmd, shared.FailureReasonStaleState, "Item ab stock list mein nahi hai, dobara try karein."), nil
			}
			return nil, fmt.Errorf("failed to lock item %s: %w", line.ItemID.String(), err)
		}

		if err := item.Reserve(line.Quantity); err != nil {
			if errors.Is(err, inventory.ErrInsufficientStock) {
				summary := fmt.Sprintf("%s ka stock kam hai: sirf %d %s bacha hai, %d maanga tha.",
					item.DisplayName(), item.Quantity, item.Unit, line.Quantity)
				return failure(cmd, shared.FailureReasonInsufficientStock, summary), nil
			}
			return failure(cmd, shared.FailureReasonInvalidAmount, "Quantity sahi nahi hai."), nil
		}
		if err := itemRepo.Update(ctx, item); err != nil {
			return nil, fmt.Errorf("failed to update stock for item %s: %w", item.ID.String(), err)
		}

		itemID := line.ItemID
		if err := inv.AddLine(&itemID, item.DisplayName(), item.HSNCode, line.Quantity, item.Unit, line.UnitRate); err != nil {
			return failure(cmd, shared.FailureReasonInvalidAmount, "Line amount sahi nahi hai."), nil
		}
	}

	if p.AdhocAmount > 0 {
		if err := inv.AddLine(nil, "Goods", "", 1, "lot", p.AdhocAmount); err != nil {
			return failure(cmd, shared.FailureReasonInvalidAmount, "Amount sahi nahi hai."), nil
		}
	}

	if err := inv.Finalize(); err != nil {
		return failure(cmd, shared.FailureReasonInvalidAmount, "Bill mein koi line nahi bani."), nil
	}

	invRepo := e.invoices.WithTx(tx)
	number, err := invRepo.NextNumber(ctx, inv.IssuedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate invoice number: %w", err)
	}
	inv.Number = number

	if err := cust.ExtendCredit(inv.Total, cmd.Approved); err != nil {
		switch {
		case errors.Is(err, customer.ErrCreditLimitReached):
			summary := fmt.Sprintf("%s ki credit limit %s hai, ye bill balance %s kar dega. Invoice nahi bana.",
				cust.Name, shared.FormatRupees(cust.CreditLimit), shared.FormatRupees(cust.CreditBalance+inv.Total))
			return failure(cmd, shared.FailureReasonCreditLimitExceeded, summary), nil
		case errors.Is(err, customer.ErrInactive):
			return failure(cmd, shared.FailureReasonStaleState, cust.Name+" ka account band hai."), nil
		default:
			return failure(cmd, shared.FailureReasonInvalidAmount, "Bill amount sahi nahi hai."), nil
		}
	}
	if err := custRepo.Update(ctx, cust); err != nil {
		return nil, fmt.Errorf("failed to update customer %s: %w", cust.ID.String(), err)
	}

	if err := invRepo.Create(ctx, inv); err != nil {
		return nil, fmt.Errorf("failed to create invoice %s: %w", inv.Number, err)
	}

	if err := e.queueLedgerEntry(ctx, tx, &udhaar.Entry{
		EntryID:       uuid.New(),
		CustomerID:    cust.ID,
		Kind:          udhaar.EntryKindInvoiceCredit,
		Amount:        inv.Total,
		InvoiceID:     &inv.ID,
		InvoiceNumber: inv.Number,
		CommandID:     cmd.CommandID,
		CorrelationID: cmd.CorrelationID,
		BalanceAfter:  cust.CreditBalance,
		CreatedAt:     time.Now(),
	}); err != nil {
		return nil, err
	}

	logger.Info("Invoice created",
		"invoice_number", inv.Number,
		"customer_id", cust.ID.String(),
		"total", inv.Total)

	summary := fmt.Sprintf("Invoice %s ban gaya: %s ke naam %s ka bill. Naya udhaar balance %s.",
		inv.Number, cust.Name, shared.FormatRupees(inv.Total), shared.FormatRupees(cust.CreditBalance))
	return success(cmd, summary), nil
}

// executePayment settles the customer's balance and sweeps the payment
// across open invoices, oldest first
func (e *Executor) executePayment(ctx context.Context, tx pgx.Tx, cmd *shared.Command, logger *slog.Logger) (*Outcome, error) {
	p := cmd.Payment
	custRepo := e.customers.WithTx(tx)

	cust, err := custRepo.LockForUpdate(ctx, p.CustomerID)
	if err != nil {
		if errors.Is(err, customer.ErrCustomerNotFound{CustomerID: p.CustomerID}) {
			return failure(cmd, shared.FailureReasonCustomerNotFound, "Customer ka record nahi mila."), nil
		}
		return nil, fmt.Errorf("failed to lock customer %s: %w", p.CustomerID.String(), err)
	}

	if err := cust.SettleCredit(p.Amount); err != nil {
		return failure(cmd, shared.FailureReasonInvalidAmount, "Payment amount sahi nahi hai."), nil
	}
	if err := custRepo.Update(ctx, cust); err != nil {
		return nil, fmt.Errorf("failed to update customer %s: %w", cust.ID.String(), err)
	}

	invRepo := e.invoices.WithTx(tx)
	remaining := p.Amount
	settled := 0
	for remaining > 0 && settled < maxInvoicesPerPayment {
		var target *invoice.Invoice
		if p.InvoiceID != nil && settled == 0 {
			target, err = invRepo.LockForUpdate(ctx, *p.InvoiceID)
		} else {
			target, err = invRepo.OldestUnpaidForCustomer(ctx, cust.ID)
		}
		if err != nil {
			if errors.Is(err, invoice.ErrInvoiceNotFound{}) {
				break // Advance payment, balance already moved
			}
			return nil, fmt.Errorf("failed to load open invoice for %s: %w", cust.ID.String(), err)
		}

		pay := target.Outstanding()
		if pay > remaining {
			pay = remaining
		}
		if pay <= 0 {
			break
		}
		if err := target.RecordPayment(pay); err != nil {
			return nil, fmt.Errorf("failed to apply payment to invoice %s: %w", target.Number, err)
		}
		if err := invRepo.Update(ctx, target); err != nil {
			return nil, fmt.Errorf("failed to update invoice %s: %w", target.Number, err)
		}
		remaining -= pay
		settled++
	}

	if err := e.queueLedgerEntry(ctx, tx, &udhaar.Entry{
		EntryID:       uuid.New(),
		CustomerID:    cust.ID,
		Kind:          udhaar.EntryKindPayment,
		Amount:        -p.Amount,
		Method:        p.Method,
		CommandID:     cmd.CommandID,
		CorrelationID: cmd.CorrelationID,
		BalanceAfter:  cust.CreditBalance,
		CreatedAt:     time.Now(),
	}); err != nil {
		return nil, err
	}

	logger.Info("Payment recorded",
		"customer_id", cust.ID.String(),
		"amount", p.Amount,
		"method", p.Method,
		"invoices_settled", settled)

	summary := fmt.Sprintf("%s ka %s payment (%s) record ho gaya. Naya balance %s.",
		cust.Name, shared.FormatRupees(p.Amount), p.Method, shared.FormatRupees(cust.CreditBalance))
	if cust.CreditBalance < 0 {
		summary += " Advance chal raha hai."
	}
	return success(cmd, summary), nil
}

// queueLedgerEntry writes the udhaar entry into the transactional outbox;
// the poller ships it to the document ledger after commit
func (e *Executor) queueLedgerEntry(ctx context.Context, tx pgx.Tx, entry *udhaar.Entry) error {
	msg, err := outbox.NewMessage(entry)
	if err != nil {
		return fmt.Errorf("failed to build outbox message for entry %s: %w", entry.EntryID.String(), err)
	}
	if err := e.outboxes.WithTx(tx).Create(ctx, msg); err != nil {
		return fmt.Errorf("failed to enqueue ledger entry %s: %w", entry.EntryID.String(), err)
	}
	return nil
}
