package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/vastra-munim/internal/domain/customer"
	"github.com/vastra-munim/internal/domain/inventory"
	"github.com/vastra-munim/internal/domain/shared"
)

func (e *Executor) executeAddCustomer(ctx context.Context, tx pgx.Tx, cmd *shared.Command, logger *slog.Logger) (*Outcome, error) {
	p := cmd.NewCustomer

	cust, err := customer.NewCustomer(p.Name, p.Phone, p.CreditLimit)
	if err != nil {
		return failure(cmd, shared.FailureReasonInvalidAmount, "Customer details sahi nahi hain: "+err.Error()), nil
	}

	if err := e.customers.WithTx(tx).Create(ctx, cust); err != nil {
		if errors.Is(err, customer.ErrDuplicatePhone{Phone: p.Phone}) {
			return failure(cmd, shared.FailureReasonDuplicateCustomer,
				fmt.Sprintf("Is number (%s) se customer pehle se hai.", p.Phone)), nil
		}
		return nil, fmt.Errorf("failed to create customer %s: %w", p.Name, err)
	}

	logger.Info("Customer added", "customer_id", cust.ID.String(), "name", cust.Name)

	summary := fmt.Sprintf("Customer %s add ho gaya (%s).", cust.Name, cust.Phone)
	if cust.CreditLimit > 0 {
		summary += fmt.Sprintf(" Credit limit %s.", shared.FormatRupees(cust.CreditLimit))
	}
	return success(cmd, summary), nil
}

func (e *Executor) executeAddInventory(ctx context.Context, tx pgx.Tx, cmd *shared.Command, logger *slog.Logger) (*Outcome, error) {
	p := cmd.NewItem

	item, err := inventory.NewItem(p.Name, p.FabricType, p.Color, p.Width, p.Quantity, p.Unit, p.RatePerUnit, p.ReorderLevel, p.HSNCode)
	if err != nil {
		return failure(cmd, shared.FailureReasonInvalidAmount, "Item details sahi nahi hain: "+err.Error()), nil
	}

	if err := e.items.WithTx(tx).Create(ctx, item); err != nil {
		if errors.Is(err, inventory.ErrDuplicateVariant{FabricType: p.FabricType, Color: p.Color, Width: p.Width}) {
			return failure(cmd, shared.FailureReasonDuplicateItem,
				fmt.Sprintf("%s pehle se stock list mein hai, restock karein.", item.DisplayName())), nil
		}
		return nil, fmt.Errorf("failed to create item %s: %w", item.Name, err)
	}

	logger.Info("Inventory item added", "item_id", item.ID.String(), "name", item.DisplayName())

	summary := fmt.Sprintf("%s add ho gaya: %d %s @ %s per %s.",
		item.DisplayName(), item.Quantity, item.Unit, shared.FormatRupees(item.RatePerUnit), item.Unit)
	return success(cmd, summary), nil
}

func (e *Executor) executeRestock(ctx context.Context, tx pgx.Tx, cmd *shared.Command, logger *slog.Logger) (*Outcome, error) {
	p := cmd.Restock
	itemRepo := e.items.WithTx(tx)

	item, err := itemRepo.LockForUpdate(ctx, p.ItemID)
	if err != nil {
		if errors.Is(err, inventory.ErrItemNotFound{ItemID: p.ItemID}) {
			return failure(cmd, shared.FailureReasonItemNotFound, "Ye item stock list mein nahi mila."), nil
		}
		return nil, fmt.Errorf("failed to lock item %s: %w", p.ItemID.String(), err)
	}

	if err := item.Restock(p.Quantity); err != nil {
		return failure(cmd, shared.FailureReasonInvalidAmount, "Restock quantity sahi nahi hai."), nil
	}
	if err := itemRepo.Update(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to update item %s: %w", item.ID.String(), err)
	}

	logger.Info("Item restocked", "item_id", item.ID.String(), "added", p.Quantity, "quantity", item.Quantity)

	summary := fmt.Sprintf("%s restock ho gaya: +%d %s, ab total %d %s.",
		item.DisplayName(), p.Quantity, item.Unit, item.Quantity, item.Unit)
	return success(cmd, summary), nil
}
