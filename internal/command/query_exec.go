package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/vastra-munim/internal/domain/customer"
	"github.com/vastra-munim/internal/domain/inventory"
	"github.com/vastra-munim/internal/domain/shared"
	"github.com/vastra-munim/internal/domain/udhaar"
)

// Caps keep WhatsApp replies scannable on a phone screen
const (
	maxStockLines  = 15
	maxUdhaarLines = 10
	ledgerTailSize = 3
)

func (e *Executor) checkInventory(ctx context.Context, cmd *shared.Command) (*Outcome, error) {
	q := cmd.InventoryQuery

	if q.ItemID != nil {
		item, err := e.items.GetByID(ctx, *q.ItemID)
		if err != nil {
			if errors.Is(err, inventory.ErrItemNotFound{ItemID: *q.ItemID}) {
				return failure(cmd, shared.FailureReasonItemNotFound, "Ye item stock list mein nahi mila."), nil
			}
			return nil, fmt.Errorf("failed to load item %s: %w", q.ItemID.String(), err)
		}
		return success(cmd, stockLine(item)), nil
	}

	var (
		items []*inventory.Item
		err   error
	)
	if q.FabricType != "" || q.Color != "" {
		items, err = e.items.SearchByAttributes(ctx, q.FabricType, q.Color, maxStockLines)
	} else {
		items, err = e.items.ListAll(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list inventory: %w", err)
	}
	if len(items) == 0 {
		return success(cmd, "Is naam ka kuch stock mein nahi hai."), nil
	}

	var b strings.Builder
	b.WriteString("Stock:\n")
	for i, item := range items {
		if i == maxStockLines {
			b.WriteString(fmt.Sprintf("... aur %d items\n", len(items)-maxStockLines))
			break
		}
		b.WriteString(stockLine(item))
		b.WriteString("\n")
	}
	return success(cmd, strings.TrimRight(b.String(), "\n")), nil
}

func stockLine(item *inventory.Item) string {
	line := fmt.Sprintf("%s: %d %s @ %s", item.DisplayName(), item.Quantity, item.Unit, shared.FormatRupees(item.RatePerUnit))
	if item.IsLowStock() {
		line += " (kam hai!)"
	}
	return line
}

func (e *Executor) checkUdhaar(ctx context.Context, cmd *shared.Command, logger *slog.Logger) (*Outcome, error) {
	q := cmd.UdhaarQuery

	if q.CustomerID != nil {
		cust, err := e.customers.GetByID(ctx, *q.CustomerID)
		if err != nil {
			if errors.Is(err, customer.ErrCustomerNotFound{CustomerID: *q.CustomerID}) {
				return failure(cmd, shared.FailureReasonCustomerNotFound, "Customer ka record nahi mila."), nil
			}
			return nil, fmt.Errorf("failed to load customer %s: %w", q.CustomerID.String(), err)
		}

		var b strings.Builder
		b.WriteString(fmt.Sprintf("%s ka udhaar: %s", cust.Name, shared.FormatRupees(cust.CreditBalance)))
		if cust.CreditLimit > 0 {
			b.WriteString(fmt.Sprintf(" (limit %s)", shared.FormatRupees(cust.CreditLimit)))
		}

		// The ledger tail is best effort; the balance above is authoritative
		entries, err := e.ledger.GetByCustomerID(ctx, cust.ID, ledgerTailSize, 0)
		if err != nil {
			logger.Warn("Failed to load ledger tail", "customer_id", cust.ID.String(), "error", err)
		}
		for _, entry := range entries {
			b.WriteString("\n")
			b.WriteString(ledgerLine(entry))
		}
		return success(cmd, b.String()), nil
	}

	debtors, err := e.customers.ListWithBalance(ctx, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to list balances: %w", err)
	}
	if len(debtors) == 0 {
		return success(cmd, "Kisi ka udhaar baaki nahi hai."), nil
	}

	var total int64
	var b strings.Builder
	for i, cust := range debtors {
		total += cust.CreditBalance
		if i < maxUdhaarLines {
			b.WriteString(fmt.Sprintf("%s: %s\n", cust.Name, shared.FormatRupees(cust.CreditBalance)))
		}
	}
	if len(debtors) > maxUdhaarLines {
		b.WriteString(fmt.Sprintf("... aur %d customers\n", len(debtors)-maxUdhaarLines))
	}
	b.WriteString(fmt.Sprintf("Total udhaar: %s (%d customers)", shared.FormatRupees(total), len(debtors)))
	return success(cmd, b.String()), nil
}

func ledgerLine(entry *udhaar.Entry) string {
	when := entry.CreatedAt.Format("02 Jan")
	switch entry.Kind {
	case udhaar.EntryKindPayment:
		return fmt.Sprintf("%s: payment %s", when, shared.FormatRupees(-entry.Amount))
	case udhaar.EntryKindInvoiceCredit:
		return fmt.Sprintf("%s: bill %s (%s)", when, shared.FormatRupees(entry.Amount), entry.InvoiceNumber)
	default:
		return fmt.Sprintf("%s: adjustment %s", when, shared.FormatRupees(entry.Amount))
	}
}

func (e *Executor) lowStockReport(ctx context.Context, cmd *shared.Command) (*Outcome, error) {
	items, err := e.items.ListLowStock(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list low stock: %w", err)
	}
	if len(items) == 0 {
		return success(cmd, "Sab stock reorder level se upar hai."), nil
	}

	var b strings.Builder
	b.WriteString("Reorder karna hai:\n")
	for _, item := range items {
		b.WriteString(fmt.Sprintf("%s: %d %s bacha (reorder level %d)\n", item.DisplayName(), item.Quantity, item.Unit, item.ReorderLevel))
	}
	return success(cmd, strings.TrimRight(b.String(), "\n")), nil
}

// sendReminder messages the customer directly. It runs only after the owner
// approved the command.
func (e *Executor) sendReminder(ctx context.Context, cmd *shared.Command, logger *slog.Logger) (*Outcome, error) {
	p := cmd.Reminder

	text := fmt.Sprintf("Namaste %s ji, %s se yaad dilana tha ki aapka %s ka payment baaki hai. Kripya jald settle kar dein. Dhanyavaad!",
		p.CustomerName, e.shopName, shared.FormatRupees(p.OverdueAmount))
	if err := e.sender.SendText(ctx, p.CustomerPhone, text); err != nil {
		return nil, fmt.Errorf("failed to send reminder to %s: %w", p.CustomerPhone, err)
	}

	logger.Info("Reminder sent", "customer_id", p.CustomerID.String(), "amount", p.OverdueAmount)

	summary := fmt.Sprintf("%s ko reminder bhej diya (%s due).", p.CustomerName, shared.FormatRupees(p.OverdueAmount))
	return success(cmd, summary), nil
}
