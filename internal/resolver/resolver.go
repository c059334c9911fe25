// Package resolver turns ranked NLU hypotheses into fully-specified commands.
// It owns entity resolution (fuzzy name and variant matching), slot parsing,
// and the sensitivity policy that decides which commands need the owner's
// approval before execution. The resolver never writes business state.
package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vastra-munim/internal/bulkorder"
	"github.com/vastra-munim/internal/config"
	"github.com/vastra-munim/internal/domain/customer"
	"github.com/vastra-munim/internal/domain/inventory"
	"github.com/vastra-munim/internal/domain/shared"
	"github.com/vastra-munim/internal/session"
	"github.com/vastra-munim/internal/similarity"
)

// Resolver maps one inbound utterance to a Result. All thresholds come from
// policy configuration; nothing here is hard-coded.
type Resolver struct {
	customers     customer.Repository
	items         inventory.Repository
	scorer        similarity.Scorer
	bulk          *bulkorder.Parser
	policy        *config.PolicyConfig
	minConfidence float64
	logger        *slog.Logger
}

func NewResolver(
	logger *slog.Logger,
	customers customer.Repository,
	items inventory.Repository,
	scorer similarity.Scorer,
	bulk *bulkorder.Parser,
	policy *config.PolicyConfig,
	nluCfg *config.NLUConfig,
) *Resolver {
	return &Resolver{
		customers:     customers,
		items:         items,
		scorer:        scorer,
		bulk:          bulk,
		policy:        policy,
		minConfidence: nluCfg.MinConfidence,
		logger:        logger,
	}
}

// Resolve picks the best hypothesis above the confidence threshold and
// dispatches to the intent-specific builder. A below-threshold or unknown
// top hypothesis yields an unrecognized result, never an error; errors are
// reserved for infrastructure failures.
func (r *Resolver) Resolve(ctx context.Context, msg *shared.InboundMessage, hyps []shared.Hypothesis, sess *session.Context) (*Result, error) {
	hyp := bestHypothesis(hyps, r.minConfidence)
	if hyp == nil {
		r.logger.Info("No hypothesis cleared confidence threshold",
			"message_id", msg.MessageID,
			"hypotheses", len(hyps))
		return unrecognizedResult(), nil
	}

	r.logger.Info("Resolving intent",
		"message_id", msg.MessageID,
		"intent", hyp.Intent,
		"confidence", hyp.Confidence)

	switch hyp.Intent {
	case shared.IntentGenerateInvoice:
		return r.buildInvoice(ctx, msg, hyp, sess)
	case shared.IntentRecordPayment:
		return r.buildPayment(ctx, msg, hyp, sess)
	case shared.IntentAddCustomer:
		return r.buildAddCustomer(msg, hyp)
	case shared.IntentAddInventory:
		return r.buildAddInventory(ctx, msg, hyp)
	case shared.IntentSendReminder:
		return r.buildReminder(ctx, msg, hyp, sess)
	case shared.IntentCheckInventory:
		return r.buildInventoryQuery(ctx, msg, hyp)
	case shared.IntentCheckUdhaar:
		return r.buildUdhaarQuery(ctx, msg, hyp)
	case shared.IntentLowStockAlert:
		return commandResult(r.newCommand(shared.CommandLowStockReport, msg)), nil
	case shared.IntentBulkOrder:
		return r.buildBulkOrder(ctx, msg, hyp, sess)
	default:
		return unrecognizedResult(), nil
	}
}

func bestHypothesis(hyps []shared.Hypothesis, minConfidence float64) *shared.Hypothesis {
	var best *shared.Hypothesis
	for i := range hyps {
		h := &hyps[i]
		if h.Intent == shared.IntentUnknown || h.Confidence < minConfidence {
			continue
		}
		if best == nil || h.Confidence > best.Confidence {
			best = h
		}
	}
	return best
}

func (r *Resolver) newCommand(kind shared.CommandKind, msg *shared.InboundMessage) *shared.Command {
	return &shared.Command{
		CommandID:     uuid.New(),
		Kind:          kind,
		IssuedBy:      msg.From,
		CorrelationID: msg.CorrelationID,
		IssuedAt:      time.Now(),
	}
}

// requireCustomer resolves the customer_name slot, falling back to the
// session's recent customer when the utterance names nobody ("usse 2000 aur
// de do"). The Result is non-nil when the caller must stop and reply.
func (r *Resolver) requireCustomer(ctx context.Context, hyp *shared.Hypothesis, sess *session.Context) (*customer.Customer, *Result, error) {
	name := hyp.Slots[shared.SlotCustomerName]

	if name == "" {
		if sess != nil && sess.RecentCustomerID != nil {
			cust, err := r.customers.GetByID(ctx, *sess.RecentCustomerID)
			if err == nil {
				return cust, nil, nil
			}
			r.logger.Warn("Session customer no longer resolvable",
				"customer_id", *sess.RecentCustomerID, "error", err)
		}
		return nil, clarificationResult("Kaunse customer ke liye? Naam bhejein.", nil), nil
	}

	cust, candidates, err := r.resolveCustomer(ctx, name)
	if err != nil {
		return nil, nil, err
	}
	if len(candidates) > 0 {
		prompt := fmt.Sprintf("'%s' se milte-julte kai customer hain, kaunsa?", name)
		return nil, chooseResult(shared.SlotCustomerName, prompt, candidates), nil
	}
	if cust == nil {
		prompt := fmt.Sprintf("Customer '%s' nahi mila. Pehle 'add customer %s' karein.", name, name)
		return nil, clarificationResult(prompt, nil), nil
	}
	return cust, nil, nil
}

func (r *Resolver) buildInvoice(ctx context.Context, msg *shared.InboundMessage, hyp *shared.Hypothesis, sess *session.Context) (*Result, error) {
	cust, stop, err := r.requireCustomer(ctx, hyp, sess)
	if err != nil || stop != nil {
		return stop, err
	}

	cmd := r.newCommand(shared.CommandCreateInvoice, msg)
	payload := &shared.InvoicePayload{
		CustomerID:  cust.ID,
		InvoiceType: invoiceTypeFrom(msg.Text),
	}

	var total int64
	fabric, color := hyp.Slots[shared.SlotFabricType], hyp.Slots[shared.SlotColor]
	switch {
	case fabric != "" || color != "":
		qtyRaw := hyp.Slots[shared.SlotQuantity]
		if qtyRaw == "" {
			return clarificationResult("Kitna quantity chahiye? (jaise '50 meter')", nil), nil
		}
		qty, err := parseQuantity(qtyRaw)
		if err != nil {
			return clarificationResult(fmt.Sprintf("Quantity '%s' samajh nahi aayi, dobara bhejein.", qtyRaw), nil), nil
		}

		item, candidates, err := r.resolveItem(ctx, fabric, color, parseWidth(hyp.Slots[shared.SlotWidth]))
		if err != nil {
			return nil, err
		}
		if len(candidates) > 0 {
			return chooseResult(shared.SlotFabricType, "Ek se zyada variant milte hain, kaunsa?", candidates), nil
		}
		if item == nil {
			label := strings.TrimSpace(color + " " + fabric)
			return clarificationResult(fmt.Sprintf("'%s' stock mein nahi mila.", label), nil), nil
		}

		payload.Lines = []shared.LineItemRequest{{
			ItemID:   item.ID,
			Quantity: qty,
			UnitRate: item.RatePerUnit,
		}}
		total = qty * item.RatePerUnit

	case hyp.Slots[shared.SlotAmount] != "":
		amount, err := parseRupees(hyp.Slots[shared.SlotAmount])
		if err != nil {
			return clarificationResult(fmt.Sprintf("Amount '%s' samajh nahi aaya, dobara bhejein.", hyp.Slots[shared.SlotAmount]), nil), nil
		}
		payload.AdhocAmount = amount
		total = amount

	default:
		return clarificationResult("Kitne ka bill banau? Amount ya item bhejein.", nil), nil
	}

	cmd.Invoice = payload
	r.flagCreditSensitivity(cmd, cust, total)
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("failed to assemble invoice command: %w", err)
	}
	return commandResult(cmd), nil
}

func (r *Resolver) buildPayment(ctx context.Context, msg *shared.InboundMessage, hyp *shared.Hypothesis, sess *session.Context) (*Result, error) {
	cust, stop, err := r.requireCustomer(ctx, hyp, sess)
	if err != nil || stop != nil {
		return stop, err
	}

	amountRaw := hyp.Slots[shared.SlotAmount]
	if amountRaw == "" {
		return clarificationResult(fmt.Sprintf("%s ne kitna diya?", cust.Name), nil), nil
	}
	amount, err := parseRupees(amountRaw)
	if err != nil {
		return clarificationResult(fmt.Sprintf("Amount '%s' samajh nahi aaya, dobara bhejein.", amountRaw), nil), nil
	}

	cmd := r.newCommand(shared.CommandRecordPayment, msg)
	cmd.Payment = &shared.PaymentPayload{
		CustomerID: cust.ID,
		Amount:     amount,
		Method:     paymentMethodFrom(hyp.Slots[shared.SlotPaymentMethod]),
	}
	return commandResult(cmd), nil
}

func (r *Resolver) buildAddCustomer(msg *shared.InboundMessage, hyp *shared.Hypothesis) (*Result, error) {
	name := strings.TrimSpace(hyp.Slots[shared.SlotCustomerName])
	if name == "" {
		return clarificationResult("Naye customer ka naam kya hai?", nil), nil
	}

	phone := phoneDigits(hyp.Slots[shared.SlotPhone])
	if phone == "" {
		return clarificationResult(fmt.Sprintf("%s ka phone number bhejein.", name), nil), nil
	}

	var creditLimit int64
	if raw := hyp.Slots[shared.SlotAmount]; raw != "" {
		limit, err := parseRupees(raw)
		if err != nil {
			return clarificationResult(fmt.Sprintf("Credit limit '%s' samajh nahi aayi, dobara bhejein.", raw), nil), nil
		}
		creditLimit = limit
	}

	cmd := r.newCommand(shared.CommandAddCustomer, msg)
	cmd.NewCustomer = &shared.NewCustomerPayload{
		Name:        name,
		Phone:       phone,
		CreditLimit: creditLimit,
	}
	if creditLimit >= r.policy.LargeCreditThreshold {
		cmd.Sensitive = true
		cmd.SensitiveNote = fmt.Sprintf("credit limit %s is above the large-credit threshold", shared.FormatRupees(creditLimit))
	}
	return commandResult(cmd), nil
}

// buildAddInventory restocks when the named variant already exists, and
// registers a new variant otherwise
func (r *Resolver) buildAddInventory(ctx context.Context, msg *shared.InboundMessage, hyp *shared.Hypothesis) (*Result, error) {
	fabric, color := hyp.Slots[shared.SlotFabricType], hyp.Slots[shared.SlotColor]
	if fabric == "" && color == "" {
		return clarificationResult("Kaunsa kapda add karna hai? Fabric aur color bhejein.", nil), nil
	}

	qtyRaw := hyp.Slots[shared.SlotQuantity]
	if qtyRaw == "" {
		return clarificationResult("Kitna stock aaya hai?", nil), nil
	}
	qty, err := parseQuantity(qtyRaw)
	if err != nil {
		return clarificationResult(fmt.Sprintf("Quantity '%s' samajh nahi aayi, dobara bhejein.", qtyRaw), nil), nil
	}

	width := parseWidth(hyp.Slots[shared.SlotWidth])
	item, candidates, err := r.resolveItem(ctx, fabric, color, width)
	if err != nil {
		return nil, err
	}
	if len(candidates) > 0 {
		return chooseResult(shared.SlotFabricType, "Ek se zyada variant milte hain, kaunsa restock karna hai?", candidates), nil
	}

	if item != nil {
		cmd := r.newCommand(shared.CommandRestockItem, msg)
		cmd.Restock = &shared.RestockPayload{ItemID: item.ID, Quantity: qty}
		return commandResult(cmd), nil
	}

	rateRaw := hyp.Slots[shared.SlotAmount]
	if rateRaw == "" {
		return clarificationResult("Naya item hai. Rate per meter kya hai?", nil), nil
	}
	rate, err := parseRupees(rateRaw)
	if err != nil {
		return clarificationResult(fmt.Sprintf("Rate '%s' samajh nahi aaya, dobara bhejein.", rateRaw), nil), nil
	}

	cmd := r.newCommand(shared.CommandAddInventory, msg)
	cmd.NewItem = &shared.NewItemPayload{
		Name:        variantName(fabric, color),
		FabricType:  strings.TrimSpace(fabric),
		Color:       strings.TrimSpace(color),
		Width:       width,
		Quantity:    qty,
		Unit:        "meter",
		RatePerUnit: rate,
	}
	return commandResult(cmd), nil
}

func (r *Resolver) buildReminder(ctx context.Context, msg *shared.InboundMessage, hyp *shared.Hypothesis, sess *session.Context) (*Result, error) {
	cust, stop, err := r.requireCustomer(ctx, hyp, sess)
	if err != nil || stop != nil {
		return stop, err
	}

	cmd := r.newCommand(shared.CommandSendReminder, msg)
	cmd.Reminder = &shared.ReminderPayload{
		CustomerID:    cust.ID,
		CustomerPhone: cust.Phone,
		CustomerName:  cust.Name,
		OverdueAmount: cust.CreditBalance,
	}
	// Reminders reach the customer directly, so every one needs approval
	cmd.Sensitive = true
	cmd.SensitiveNote = fmt.Sprintf("outbound payment reminder to %s", cust.Name)
	return commandResult(cmd), nil
}

func (r *Resolver) buildInventoryQuery(ctx context.Context, msg *shared.InboundMessage, hyp *shared.Hypothesis) (*Result, error) {
	cmd := r.newCommand(shared.CommandCheckInventory, msg)
	cmd.InventoryQuery = &shared.InventoryQueryPayload{
		FabricType: strings.TrimSpace(hyp.Slots[shared.SlotFabricType]),
		Color:      strings.TrimSpace(hyp.Slots[shared.SlotColor]),
	}

	// Pin the query to an item when the filters resolve unambiguously
	if cmd.InventoryQuery.FabricType != "" || cmd.InventoryQuery.Color != "" {
		item, candidates, err := r.resolveItem(ctx, cmd.InventoryQuery.FabricType, cmd.InventoryQuery.Color, 0)
		if err != nil {
			return nil, err
		}
		if item != nil && len(candidates) == 0 {
			cmd.InventoryQuery.ItemID = &item.ID
		}
	}
	return commandResult(cmd), nil
}

func (r *Resolver) buildUdhaarQuery(ctx context.Context, msg *shared.InboundMessage, hyp *shared.Hypothesis) (*Result, error) {
	cmd := r.newCommand(shared.CommandCheckUdhaar, msg)
	cmd.UdhaarQuery = &shared.UdhaarQueryPayload{}

	if name := hyp.Slots[shared.SlotCustomerName]; name != "" {
		cust, candidates, err := r.resolveCustomer(ctx, name)
		if err != nil {
			return nil, err
		}
		if len(candidates) > 0 {
			prompt := fmt.Sprintf("'%s' se milte-julte kai customer hain, kiska udhaar dekhna hai?", name)
			return chooseResult(shared.SlotCustomerName, prompt, candidates), nil
		}
		if cust == nil {
			return clarificationResult(fmt.Sprintf("Customer '%s' nahi mila.", name), nil), nil
		}
		cmd.UdhaarQuery.CustomerID = &cust.ID
	}
	return commandResult(cmd), nil
}

// flagCreditSensitivity marks invoice commands that extend credit past the
// customer's limit or past the configured large-credit threshold
func (r *Resolver) flagCreditSensitivity(cmd *shared.Command, cust *customer.Customer, total int64) {
	switch {
	case cust.CreditLimit > 0 && cust.CreditBalance+total > cust.CreditLimit:
		cmd.Sensitive = true
		cmd.SensitiveNote = fmt.Sprintf("%s ka balance %s ho jayega, limit %s hai",
			cust.Name, shared.FormatRupees(cust.CreditBalance+total), shared.FormatRupees(cust.CreditLimit))
	case total >= r.policy.LargeCreditThreshold:
		cmd.Sensitive = true
		cmd.SensitiveNote = fmt.Sprintf("%s ka bill large-credit threshold se upar hai", shared.FormatRupees(total))
	}
}

func invoiceTypeFrom(text string) shared.InvoiceType {
	lower := strings.ToLower(text)
	if strings.Contains(lower, "kacha") || strings.Contains(lower, "kaccha") {
		return shared.InvoiceTypeKacha
	}
	return shared.InvoiceTypePucca
}

func paymentMethodFrom(raw string) shared.PaymentMethod {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "upi", "gpay", "phonepe", "paytm":
		return shared.PaymentMethodUPI
	case "bank", "bank_transfer", "neft", "rtgs", "imps":
		return shared.PaymentMethodBankTransfer
	case "cheque", "check":
		return shared.PaymentMethodCheque
	default:
		return shared.PaymentMethodCash
	}
}

func phoneDigits(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() < 10 {
		return ""
	}
	return b.String()
}

func variantName(fabric, color string) string {
	return strings.TrimSpace(titleCase(fabric) + " " + titleCase(color))
}

func titleCase(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
