package resolver

import (
	"context"
	"fmt"
	"strings"

	"github.com/vastra-munim/internal/bulkorder"
	"github.com/vastra-munim/internal/domain/shared"
	"github.com/vastra-munim/internal/session"
)

// buildBulkOrder parses a multi-item order utterance and resolves each group
// against inventory. Every group must resolve before a command is produced;
// otherwise the owner gets a partial result naming the groups that failed.
func (r *Resolver) buildBulkOrder(ctx context.Context, msg *shared.InboundMessage, hyp *shared.Hypothesis, sess *session.Context) (*Result, error) {
	parsed := r.bulk.Parse(msg.Text)
	if len(parsed.Groups) == 0 {
		return unrecognizedResult(), nil
	}

	cust, stop, err := r.requireCustomer(ctx, hyp, sess)
	if err != nil || stop != nil {
		return stop, err
	}

	partial := &PartialBulk{}
	var total int64
	for _, g := range parsed.Groups {
		line, reason, err := r.resolveGroup(ctx, g)
		if err != nil {
			return nil, err
		}
		if line == nil {
			partial.Unresolved = append(partial.Unresolved, fmt.Sprintf("%s (%s)", strings.TrimSpace(g.Raw), reason))
			continue
		}
		partial.Resolved = append(partial.Resolved, *line)
		total += line.Quantity * line.UnitRate
	}

	if len(partial.Unresolved) > 0 {
		partial.Note = parsed.Discrepancy
		return partialResult(partial), nil
	}

	if parsed.Discrepancy != "" {
		// The declared total disagrees with the group sum beyond
		// tolerance. Never adjust the numbers: report what parsed and
		// have the sender restate the order.
		partial.Note = parsed.Discrepancy
		return partialResult(partial), nil
	}

	cmd := r.newCommand(shared.CommandCreateInvoice, msg)
	cmd.Invoice = &shared.InvoicePayload{
		CustomerID:  cust.ID,
		Lines:       partial.Resolved,
		InvoiceType: invoiceTypeFrom(msg.Text),
	}

	r.flagCreditSensitivity(cmd, cust, total)
	if !cmd.Sensitive && total > r.policy.BulkOrderThreshold {
		cmd.Sensitive = true
		cmd.SensitiveNote = fmt.Sprintf("bulk order worth %s, threshold se upar", shared.FormatRupees(total))
	}

	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("failed to assemble bulk order command: %w", err)
	}
	return commandResult(cmd), nil
}

// resolveGroup matches one parsed group to an inventory item. A nil line with
// an empty error means the group could not be matched; reason says why, in
// terms the owner can act on.
func (r *Resolver) resolveGroup(ctx context.Context, g bulkorder.Group) (*shared.LineItemRequest, string, error) {
	item, candidates, err := r.resolveItem(ctx, g.FabricType, g.Color, g.Width)
	if err != nil {
		return nil, "", err
	}
	if len(candidates) > 0 {
		labels := make([]string, len(candidates))
		for i, c := range candidates {
			labels[i] = c.Label
		}
		return nil, "kai variant milte hain: " + strings.Join(labels, ", "), nil
	}
	if item == nil {
		return nil, "stock mein nahi mila", nil
	}
	if item.Unit != "meter" {
		return nil, fmt.Sprintf("%s meter mein nahi bikta", item.DisplayName()), nil
	}
	if g.Quantity <= 0 {
		return nil, "quantity nahi mili", nil
	}

	return &shared.LineItemRequest{
		ItemID:   item.ID,
		Quantity: g.Quantity,
		UnitRate: item.RatePerUnit,
	}, "", nil
}
