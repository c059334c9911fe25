package handler

import (
	"strconv"
	"time"

	"github.com/vastra-munim/internal/domain/shared"
)

// WebhookPayload mirrors the WhatsApp Cloud API webhook envelope. Only the
// fields the pipeline consumes are mapped; everything else is ignored.
type WebhookPayload struct {
	Object string         `json:"object"`
	Entry  []WebhookEntry `json:"entry"`
}

type WebhookEntry struct {
	ID      string          `json:"id"`
	Changes []WebhookChange `json:"changes"`
}

type WebhookChange struct {
	Field string       `json:"field"`
	Value WebhookValue `json:"value"`
}

type WebhookValue struct {
	MessagingProduct string           `json:"messaging_product"`
	Messages         []WebhookMessage `json:"messages"`
	Statuses         []map[string]any `json:"statuses"` // Delivery receipts, ignored
}

type WebhookMessage struct {
	ID          string              `json:"id"`
	From        string              `json:"from"`
	Timestamp   string              `json:"timestamp"`
	Type        string              `json:"type"`
	Text        *TextPart        `json:"text,omitempty"`
	Audio       *MediaPart       `json:"audio,omitempty"`
	Image       *MediaPart       `json:"image,omitempty"`
	Button      *ButtonPart      `json:"button,omitempty"`
	Interactive *InteractivePart `json:"interactive,omitempty"`
}

type TextPart struct {
	Body string `json:"body"`
}

type MediaPart struct {
	ID       string `json:"id"`
	MimeType string `json:"mime_type"`
}

type ButtonPart struct {
	Payload string `json:"payload"`
	Text    string `json:"text"`
}

type InteractivePart struct {
	Type        string `json:"type"`
	ButtonReply *struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	} `json:"button_reply,omitempty"`
}

// InboundMessages flattens the webhook envelope into pipeline messages.
// Status-only notifications produce an empty slice, which the handler
// acknowledges without publishing anything.
func (p *WebhookPayload) InboundMessages(correlationID string) []*shared.InboundMessage {
	var out []*shared.InboundMessage
	for _, entry := range p.Entry {
		for _, change := range entry.Changes {
			if change.Field != "messages" {
				continue
			}
			for _, wm := range change.Value.Messages {
				if msg := wm.toInbound(correlationID); msg != nil {
					out = append(out, msg)
				}
			}
		}
	}
	return out
}

func (wm *WebhookMessage) toInbound(correlationID string) *shared.InboundMessage {
	msg := &shared.InboundMessage{
		MessageID:     wm.ID,
		From:          wm.From,
		CorrelationID: correlationID,
		ReceivedAt:    wm.receivedAt(),
	}

	switch wm.Type {
	case "text":
		if wm.Text == nil {
			return nil
		}
		msg.Kind = shared.MessageKindText
		msg.Text = wm.Text.Body
	case "audio", "voice":
		if wm.Audio == nil {
			return nil
		}
		msg.Kind = shared.MessageKindAudio
		msg.MediaID = wm.Audio.ID
	case "image":
		if wm.Image == nil {
			return nil
		}
		msg.Kind = shared.MessageKindImage
		msg.MediaID = wm.Image.ID
	case "button":
		if wm.Button == nil {
			return nil
		}
		msg.Kind = shared.MessageKindButton
		msg.ButtonPayload = wm.Button.Payload
	case "interactive":
		if wm.Interactive == nil || wm.Interactive.ButtonReply == nil {
			return nil
		}
		msg.Kind = shared.MessageKindButton
		msg.ButtonPayload = wm.Interactive.ButtonReply.ID
	default:
		return nil
	}
	return msg
}

func (wm *WebhookMessage) receivedAt() time.Time {
	if secs, err := strconv.ParseInt(wm.Timestamp, 10, 64); err == nil && secs > 0 {
		return time.Unix(secs, 0).UTC()
	}
	return time.Now().UTC()
}

// ApprovalDecisionRequest carries the decider for an approval endpoint call
type ApprovalDecisionRequest struct {
	DecidedBy string `json:"decided_by" binding:"required"`
}

// ApprovalResponse represents a parked approval request in API responses
type ApprovalResponse struct {
	ID        string `json:"id"`
	CommandID string `json:"command_id"`
	Summary   string `json:"summary"`
	Reason    string `json:"reason"`
	Status    string `json:"status"`
	DecidedBy string `json:"decided_by,omitempty"`
	DecidedAt string `json:"decided_at,omitempty"`
	ExpiresAt string `json:"expires_at"`
	CreatedAt string `json:"created_at"`
}

// CustomerResponse represents a customer in API responses
type CustomerResponse struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Phone         string `json:"phone"`
	CreditLimit   int64  `json:"credit_limit"`
	CreditBalance int64  `json:"credit_balance"`
	IsBulkBuyer   bool   `json:"is_bulk_buyer"`
	Status        string `json:"status"`
	CreatedAt     string `json:"created_at"`
}

// LedgerEntryResponse represents a udhaar ledger entry in API responses
type LedgerEntryResponse struct {
	EntryID       string `json:"entry_id"`
	CustomerID    string `json:"customer_id"`
	Kind          string `json:"kind"`
	Amount        int64  `json:"amount"`
	InvoiceNumber string `json:"invoice_number,omitempty"`
	Method        string `json:"method,omitempty"`
	Note          string `json:"note,omitempty"`
	BalanceAfter  int64  `json:"balance_after"`
	CreatedAt     string `json:"created_at"`
}

// ConversationTurnResponse represents one logged WhatsApp turn in API responses
type ConversationTurnResponse struct {
	ID            string `json:"id"`
	Direction     string `json:"direction"`
	Kind          string `json:"kind,omitempty"`
	Text          string `json:"text"`
	MessageID     string `json:"message_id,omitempty"`
	CorrelationID string `json:"correlation_id,omitempty"`
	CreatedAt     string `json:"created_at"`
}

// ItemResponse represents an inventory item in API responses
type ItemResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	FabricType   string `json:"fabric_type"`
	Color        string `json:"color"`
	Width        int    `json:"width,omitempty"`
	Quantity     int64  `json:"quantity"`
	Unit         string `json:"unit"`
	RatePerUnit  int64  `json:"rate_per_unit"`
	ReorderLevel int64  `json:"reorder_level"`
	HSNCode      string `json:"hsn_code,omitempty"`
}

// InvoiceLineResponse represents one invoice line in API responses
type InvoiceLineResponse struct {
	Description string `json:"description"`
	Quantity    int64  `json:"quantity"`
	Unit        string `json:"unit"`
	UnitRate    int64  `json:"unit_rate"`
	LineTotal   int64  `json:"line_total"`
}

// InvoiceResponse represents an invoice in API responses
type InvoiceResponse struct {
	ID         string                `json:"id"`
	Number     string                `json:"number"`
	CustomerID string                `json:"customer_id"`
	Type       string                `json:"type"`
	Status     string                `json:"status"`
	Lines      []InvoiceLineResponse `json:"lines,omitempty"`
	Subtotal   int64                 `json:"subtotal"`
	CGSTAmount int64                 `json:"cgst_amount,omitempty"`
	SGSTAmount int64                 `json:"sgst_amount,omitempty"`
	Total      int64                 `json:"total"`
	AmountPaid int64                 `json:"amount_paid"`
	IssuedAt   string                `json:"issued_at"`
	DueAt      string                `json:"due_at"`
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=20" binding:"min=1,max=100"`
}
