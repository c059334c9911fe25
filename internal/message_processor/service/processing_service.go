package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/vastra-munim/internal/domain/approval"
	"github.com/vastra-munim/internal/domain/convlog"
	"github.com/vastra-munim/internal/domain/inbox"
	"github.com/vastra-munim/internal/domain/shared"
	"github.com/vastra-munim/internal/messenger"
	"github.com/vastra-munim/internal/nlu"
	"github.com/vastra-munim/internal/resolver"
	"github.com/vastra-munim/internal/session"
)

const fallbackReply = "Samajh nahi aaya. Aap bill, payment, stock ya udhaar ke baare mein pooch sakte hain."

type ProcessingServiceImpl struct {
	inboxRepo   inbox.Repository
	interpreter nlu.Interpreter
	resolver    MessageResolver
	executor    CommandExecutor
	gate        ApprovalGate
	sessions    session.Store
	sender      messenger.Sender
	convLog     convlog.Repository
	ownerPhone  string
	logger      *slog.Logger
}

func NewProcessingService(
	logger *slog.Logger,
	inboxRepo inbox.Repository,
	interpreter nlu.Interpreter,
	msgResolver MessageResolver,
	executor CommandExecutor,
	gate ApprovalGate,
	sessions session.Store,
	sender messenger.Sender,
	convLog convlog.Repository,
	ownerPhone string,
) ProcessingService {
	return &ProcessingServiceImpl{
		inboxRepo:   inboxRepo,
		interpreter: interpreter,
		resolver:    msgResolver,
		executor:    executor,
		gate:        gate,
		sessions:    sessions,
		sender:      sender,
		convLog:     convLog,
		ownerPhone:  ownerPhone,
		logger:      logger,
	}
}

// ProcessMessage handles one admitted inbound WhatsApp message end to end.
// Returning nil acknowledges the Kafka offset; returning an error leaves the
// message uncommitted for redelivery. Business-level misses (unrecognized
// text, failed commands) reply to the sender and acknowledge.
func (s *ProcessingServiceImpl) ProcessMessage(ctx context.Context, msg *shared.InboundMessage) error {
	logger := s.logger
	if msg.CorrelationID != "" {
		logger = s.logger.With("correlation_id", msg.CorrelationID)
	}

	logger.Info("Processing inbound message",
		"message_id", msg.MessageID, "from", msg.From, "kind", msg.Kind)

	// 1. Deduplicate on the provider message id
	skip, err := s.checkDedup(ctx, logger, msg)
	if err != nil {
		return err
	}
	if skip {
		return nil
	}

	// 2. Dispatch by message kind
	switch msg.Kind {
	case shared.MessageKindButton:
		s.logTurn(ctx, logger, convlog.NewInbound(msg, msg.ButtonPayload))
		err = s.handleDecision(ctx, logger, msg)
	case shared.MessageKindText:
		s.logTurn(ctx, logger, convlog.NewInbound(msg, msg.Text))
		err = s.handleUtterance(ctx, logger, msg, msg.Text)
	case shared.MessageKindAudio:
		var text string
		text, err = s.transcribe(ctx, logger, msg)
		if err == nil {
			s.logTurn(ctx, logger, convlog.NewInbound(msg, text))
			err = s.handleUtterance(ctx, logger, msg, text)
		}
	default:
		err = s.reply(ctx, logger, msg, "Sirf text ya voice message bhejein, photo abhi samajh nahi aata.")
	}
	if err != nil {
		return err
	}

	// 3. Stamp the message processed. Failure here is logged but not
	// retried: the command already ran and a redelivery would run it twice.
	stamped, err := s.inboxRepo.MarkProcessed(ctx, msg.MessageID)
	if err != nil {
		logger.Error("Failed to mark message processed", "message_id", msg.MessageID, "error", err)
		return nil
	}
	if !stamped {
		logger.Warn("Message was stamped processed concurrently", "message_id", msg.MessageID)
	}
	return nil
}

// checkDedup reports whether the message was already processed. A message
// the gateway never admitted is admitted here so the final stamp has a row
// to land on.
func (s *ProcessingServiceImpl) checkDedup(ctx context.Context, logger *slog.Logger, msg *shared.InboundMessage) (bool, error) {
	record, err := s.inboxRepo.Get(ctx, msg.MessageID)
	if err != nil {
		var notFound inbox.ErrRecordNotFound
		if errors.As(err, &notFound) {
			claimed, admitErr := s.inboxRepo.Admit(ctx, &inbox.Record{
				MessageID:  msg.MessageID,
				From:       msg.From,
				ReceivedAt: msg.ReceivedAt,
			})
			if admitErr != nil {
				return false, fmt.Errorf("failed to admit message %s: %w", msg.MessageID, admitErr)
			}
			if !claimed {
				logger.Info("Message admitted concurrently, continuing", "message_id", msg.MessageID)
			}
			return false, nil
		}
		return false, fmt.Errorf("failed to check dedup for message %s: %w", msg.MessageID, err)
	}

	if record.ProcessedAt != nil {
		logger.Info("Skipping already-processed message",
			"message_id", msg.MessageID, "processed_at", *record.ProcessedAt)
		return true, nil
	}
	return false, nil
}

func (s *ProcessingServiceImpl) transcribe(ctx context.Context, logger *slog.Logger, msg *shared.InboundMessage) (string, error) {
	audio, mimeType, err := s.sender.DownloadMedia(ctx, msg.MediaID)
	if err != nil {
		return "", fmt.Errorf("failed to download voice note %s: %w", msg.MediaID, err)
	}

	text, err := s.interpreter.Transcribe(ctx, audio, mimeType)
	if err != nil {
		return "", fmt.Errorf("failed to transcribe voice note %s: %w", msg.MediaID, err)
	}

	logger.Info("Transcribed voice note", "media_id", msg.MediaID, "length", len(text))
	return text, nil
}

// handleUtterance runs the interpret-resolve-execute pipeline for one piece
// of text, whether typed or transcribed.
func (s *ProcessingServiceImpl) handleUtterance(ctx context.Context, logger *slog.Logger, msg *shared.InboundMessage, text string) error {
	sess, err := s.sessions.Get(ctx, msg.From)
	if err != nil {
		return err
	}

	text, strippedSlot := s.applyPendingChoice(logger, sess, text)

	hyps, err := s.interpreter.Interpret(ctx, text)
	if err != nil {
		return fmt.Errorf("failed to interpret message %s: %w", msg.MessageID, err)
	}
	if strippedSlot != "" {
		for i := range hyps {
			delete(hyps[i].Slots, strippedSlot)
		}
	}

	result, err := s.resolver.Resolve(ctx, msg, hyps, sess)
	if err != nil {
		return fmt.Errorf("failed to resolve message %s: %w", msg.MessageID, err)
	}

	switch result.Kind {
	case resolver.KindCommand:
		err = s.handleCommand(ctx, logger, msg, result.Command, sess)
	case resolver.KindClarification:
		err = s.handleClarification(ctx, logger, msg, result.Clarification, sess, text)
	case resolver.KindPartial:
		err = s.handlePartial(ctx, logger, msg, result.Partial)
	default:
		err = s.reply(ctx, logger, msg, fallbackReply)
	}
	if err != nil {
		return err
	}

	if putErr := s.sessions.Put(ctx, sess); putErr != nil {
		logger.Warn("Failed to save session", "wa_id", msg.From, "error", putErr)
	}
	return nil
}

// applyPendingChoice replaces a bare ordinal reply ("1", "2") with the
// utterance that triggered the clarification, pinning the chosen customer on
// the session. Any other reply drops the stale offer.
func (s *ProcessingServiceImpl) applyPendingChoice(logger *slog.Logger, sess *session.Context, text string) (string, string) {
	if len(sess.PendingChoice) == 0 {
		return text, ""
	}

	chosen, ok := sess.PendingChoice[strings.TrimSpace(text)]
	if !ok || sess.PendingText == "" || sess.PendingSlot != shared.SlotCustomerName {
		sess.ClearPending()
		return text, ""
	}

	logger.Info("Clarification choice applied", "customer_id", chosen.String())
	replay := sess.PendingText
	sess.RecentCustomerID = &chosen
	sess.ClearPending()
	return replay, shared.SlotCustomerName
}

func (s *ProcessingServiceImpl) handleCommand(ctx context.Context, logger *slog.Logger, msg *shared.InboundMessage, cmd *shared.Command, sess *session.Context) error {
	sess.LastIntent = intentFor(cmd.Kind)
	if id := commandCustomerID(cmd); id != nil {
		sess.RecentCustomerID = id
	}

	if cmd.Sensitive {
		return s.submitForApproval(ctx, logger, msg, cmd)
	}

	outcome, err := s.executor.Execute(ctx, cmd)
	if err != nil {
		return fmt.Errorf("failed to execute command %s: %w", cmd.CommandID.String(), err)
	}

	logger.Info("Command executed",
		"command_id", cmd.CommandID.String(), "kind", cmd.Kind, "ok", outcome.OK, "reason", outcome.Reason)
	return s.reply(ctx, logger, msg, outcome.Summary)
}

func (s *ProcessingServiceImpl) submitForApproval(ctx context.Context, logger *slog.Logger, msg *shared.InboundMessage, cmd *shared.Command) error {
	summary := commandSummary(cmd)

	req, err := s.gate.Submit(ctx, cmd, summary)
	if err != nil {
		return fmt.Errorf("failed to submit command %s for approval: %w", cmd.CommandID.String(), err)
	}

	prompt := fmt.Sprintf("%s\nWajah: %s\nApprove karein?", summary, cmd.SensitiveNote)
	buttons := []messenger.Button{
		{Payload: "approve_" + req.ID.String(), Title: "Approve"},
		{Payload: "reject_" + req.ID.String(), Title: "Reject"},
	}
	if err := s.sender.SendButtons(ctx, s.ownerPhone, prompt, buttons); err != nil {
		// The request is parked; the owner can still decide from the
		// pending list even if this prompt was lost.
		logger.Error("Failed to send approval prompt to owner",
			"request_id", req.ID.String(), "error", err)
	}

	if msg.From != s.ownerPhone {
		return s.reply(ctx, logger, msg, "Ye kaam owner ke approval ke baad hoga, thoda intezaar karein.")
	}
	return nil
}

// handleDecision resolves an approve/reject button tap. Only the owner's
// taps are honored.
func (s *ProcessingServiceImpl) handleDecision(ctx context.Context, logger *slog.Logger, msg *shared.InboundMessage) error {
	if msg.From != s.ownerPhone {
		logger.Warn("Ignoring decision from non-owner", "from", msg.From)
		return s.reply(ctx, logger, msg, "Sirf owner approve ya reject kar sakte hain.")
	}

	approve := false
	var rawID string
	switch {
	case strings.HasPrefix(msg.ButtonPayload, "approve_"):
		approve = true
		rawID = strings.TrimPrefix(msg.ButtonPayload, "approve_")
	case strings.HasPrefix(msg.ButtonPayload, "reject_"):
		rawID = strings.TrimPrefix(msg.ButtonPayload, "reject_")
	default:
		logger.Warn("Unrecognized button payload", "payload", msg.ButtonPayload)
		return s.reply(ctx, logger, msg, fallbackReply)
	}

	requestID, err := uuid.Parse(rawID)
	if err != nil {
		logger.Warn("Button payload carries malformed request id", "payload", msg.ButtonPayload)
		return s.reply(ctx, logger, msg, fallbackReply)
	}

	if approve {
		_, outcome, err := s.gate.Approve(ctx, requestID, msg.From)
		if err != nil {
			return s.replyDecisionError(ctx, logger, msg, requestID, err)
		}
		logger.Info("Approval executed", "request_id", requestID.String(), "ok", outcome.OK)
		return s.reply(ctx, logger, msg, outcome.Summary)
	}

	if _, err := s.gate.Reject(ctx, requestID, msg.From); err != nil {
		return s.replyDecisionError(ctx, logger, msg, requestID, err)
	}
	logger.Info("Approval rejected", "request_id", requestID.String())
	return s.reply(ctx, logger, msg, "Theek hai, request reject kar di.")
}

// replyDecisionError turns terminal-state decision conflicts into replies
// and leaves infrastructure errors to the retry path
func (s *ProcessingServiceImpl) replyDecisionError(ctx context.Context, logger *slog.Logger, msg *shared.InboundMessage, requestID uuid.UUID, err error) error {
	var conflict approval.ErrStateConflict
	if errors.As(err, &conflict) {
		return s.reply(ctx, logger, msg,
			fmt.Sprintf("Ye request pehle hi %s ho chuki hai.", strings.ToLower(string(conflict.Status))))
	}
	var notFound approval.ErrRequestNotFound
	if errors.As(err, &notFound) {
		return s.reply(ctx, logger, msg, "Ye request ab nahi mili, shayad expire ho gayi.")
	}
	return fmt.Errorf("failed to decide approval request %s: %w", requestID.String(), err)
}

func (s *ProcessingServiceImpl) handleClarification(ctx context.Context, logger *slog.Logger, msg *shared.InboundMessage, clar *resolver.Clarification, sess *session.Context, text string) error {
	body := clar.Prompt
	if len(clar.Candidates) > 0 {
		var b strings.Builder
		b.WriteString(clar.Prompt)
		for i, c := range clar.Candidates {
			fmt.Fprintf(&b, "\n%d. %s", i+1, c.Label)
		}
		body = b.String()

		// Only customer choices replay cleanly; variant ambiguity asks
		// the sender to restate with the fuller label.
		if clar.Slot == shared.SlotCustomerName {
			sess.PendingChoice = make(map[string]uuid.UUID, len(clar.Candidates))
			for i, c := range clar.Candidates {
				sess.PendingChoice[fmt.Sprintf("%d", i+1)] = c.ID
			}
			sess.PendingSlot = clar.Slot
			sess.PendingText = text
		}
	}

	logger.Info("Clarification requested", "message_id", msg.MessageID, "candidates", len(clar.Candidates))
	return s.reply(ctx, logger, msg, body)
}

func (s *ProcessingServiceImpl) handlePartial(ctx context.Context, logger *slog.Logger, msg *shared.InboundMessage, partial *resolver.PartialBulk) error {
	var b strings.Builder
	if len(partial.Unresolved) > 0 {
		fmt.Fprintf(&b, "%d items match ho gaye, par ye samajh nahi aaye:", len(partial.Resolved))
		for _, group := range partial.Unresolved {
			fmt.Fprintf(&b, "\n- %s", group)
		}
		b.WriteString("\nInhe theek karke poora order dobara bhejein.")
	} else {
		// Every group matched but the declared total disagrees with the sum
		fmt.Fprintf(&b, "%d items match ho gaye, par total match nahi hua.", len(partial.Resolved))
		b.WriteString("\nNumbers check karke poora order dobara bhejein.")
	}
	if partial.Note != "" {
		fmt.Fprintf(&b, "\n(%s)", partial.Note)
	}

	logger.Info("Bulk order partially resolved",
		"message_id", msg.MessageID, "resolved", len(partial.Resolved), "unresolved", len(partial.Unresolved))
	return s.reply(ctx, logger, msg, b.String())
}

func (s *ProcessingServiceImpl) reply(ctx context.Context, logger *slog.Logger, msg *shared.InboundMessage, text string) error {
	if err := s.sender.SendText(ctx, msg.From, text); err != nil {
		return fmt.Errorf("failed to send reply to %s: %w", msg.From, err)
	}
	s.logTurn(ctx, logger, convlog.NewOutbound(msg.From, text, msg.CorrelationID))
	logger.Debug("Reply sent", "recipient", msg.From, "length", len(text))
	return nil
}

// logTurn appends to the conversation log. Logging is best effort and never
// fails the message.
func (s *ProcessingServiceImpl) logTurn(ctx context.Context, logger *slog.Logger, turn *convlog.Message) {
	if err := s.convLog.Append(ctx, turn); err != nil {
		logger.Warn("Failed to append conversation log", "wa_id", turn.WaID, "error", err)
	}
}

// commandSummary renders a one-line description shown to the owner above the
// approve/reject buttons
func commandSummary(cmd *shared.Command) string {
	switch cmd.Kind {
	case shared.CommandCreateInvoice:
		total := cmd.Invoice.AdhocAmount
		for _, line := range cmd.Invoice.Lines {
			total += line.Quantity * line.UnitRate
		}
		if len(cmd.Invoice.Lines) > 0 {
			return fmt.Sprintf("Naya bill %s ka (%d items)", shared.FormatRupees(total), len(cmd.Invoice.Lines))
		}
		return fmt.Sprintf("Naya bill %s ka", shared.FormatRupees(total))
	case shared.CommandRecordPayment:
		return fmt.Sprintf("Payment %s (%s)", shared.FormatRupees(cmd.Payment.Amount), cmd.Payment.Method)
	case shared.CommandAddCustomer:
		return fmt.Sprintf("Naya customer %s, credit limit %s", cmd.NewCustomer.Name, shared.FormatRupees(cmd.NewCustomer.CreditLimit))
	case shared.CommandSendReminder:
		return fmt.Sprintf("%s ko payment reminder (%s baaki)", cmd.Reminder.CustomerName, shared.FormatRupees(cmd.Reminder.OverdueAmount))
	default:
		return string(cmd.Kind)
	}
}

func commandCustomerID(cmd *shared.Command) *uuid.UUID {
	switch {
	case cmd.Invoice != nil:
		return &cmd.Invoice.CustomerID
	case cmd.Payment != nil:
		return &cmd.Payment.CustomerID
	case cmd.Reminder != nil:
		return &cmd.Reminder.CustomerID
	case cmd.UdhaarQuery != nil:
		return cmd.UdhaarQuery.CustomerID
	}
	return nil
}

func intentFor(kind shared.CommandKind) shared.IntentLabel {
	switch kind {
	case shared.CommandCreateInvoice:
		return shared.IntentGenerateInvoice
	case shared.CommandRecordPayment:
		return shared.IntentRecordPayment
	case shared.CommandAddCustomer:
		return shared.IntentAddCustomer
	case shared.CommandAddInventory, shared.CommandRestockItem:
		return shared.IntentAddInventory
	case shared.CommandSendReminder:
		return shared.IntentSendReminder
	case shared.CommandCheckInventory:
		return shared.IntentCheckInventory
	case shared.CommandCheckUdhaar:
		return shared.IntentCheckUdhaar
	case shared.CommandLowStockReport:
		return shared.IntentLowStockAlert
	}
	return shared.IntentUnknown
}
