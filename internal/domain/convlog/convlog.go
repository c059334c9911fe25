// Package convlog records the conversation history between the shop and its
// WhatsApp contacts. Entries are append-only and live in MongoDB next to the
// udhaar ledger; nothing in the command path reads them, they exist for
// audit and for reconstructing what the assistant said.
package convlog

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/vastra-munim/internal/domain/shared"
)

// Direction tells whether a message came from the contact or from the assistant
type Direction string

const (
	DirectionInbound  Direction = "IN"
	DirectionOutbound Direction = "OUT"
)

// Message is one logged conversation turn
type Message struct {
	ID            uuid.UUID          `json:"id" bson:"id"`
	WaID          string             `json:"wa_id" bson:"wa_id"` // The contact's phone number
	Direction     Direction          `json:"direction" bson:"direction"`
	Kind          shared.MessageKind `json:"kind,omitempty" bson:"kind,omitempty"` // Empty on outbound turns
	Text          string             `json:"text" bson:"text"`
	MessageID     string             `json:"message_id,omitempty" bson:"message_id,omitempty"` // Provider id, inbound only
	CorrelationID string             `json:"correlation_id,omitempty" bson:"correlation_id,omitempty"`
	CreatedAt     time.Time          `json:"created_at" bson:"created_at"`
}

// NewInbound logs a message received from a contact
func NewInbound(msg *shared.InboundMessage, text string) *Message {
	return &Message{
		ID:            uuid.New(),
		WaID:          msg.From,
		Direction:     DirectionInbound,
		Kind:          msg.Kind,
		Text:          text,
		MessageID:     msg.MessageID,
		CorrelationID: msg.CorrelationID,
		CreatedAt:     time.Now().UTC(),
	}
}

// NewOutbound logs a reply sent to a contact
func NewOutbound(waID, text, correlationID string) *Message {
	return &Message{
		ID:            uuid.New(),
		WaID:          waID,
		Direction:     DirectionOutbound,
		Text:          text,
		CorrelationID: correlationID,
		CreatedAt:     time.Now().UTC(),
	}
}

// Repository defines conversation log operations
type Repository interface {
	Append(ctx context.Context, message *Message) error

	// ListByWaID returns a contact's conversation turns, newest first
	ListByWaID(ctx context.Context, waID string, limit, offset int) ([]*Message, error)
}
