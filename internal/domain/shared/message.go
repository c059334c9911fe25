package shared

import (
	"time"
)

// MessageKind defines the kinds of inbound WhatsApp messages the pipeline handles
type MessageKind string

const (
	MessageKindText   MessageKind = "TEXT"
	MessageKindAudio  MessageKind = "AUDIO"
	MessageKindButton MessageKind = "BUTTON"
	MessageKindImage  MessageKind = "IMAGE"
)

// InboundMessage defines a Kafka message carrying one admitted inbound
// WhatsApp event from the webhook gateway to the message processor.
// MessageID is the provider's message id and is the deduplication key.
type InboundMessage struct {
	MessageID     string      `json:"message_id"`
	From          string      `json:"from"` // Sender wa_id (phone number)
	Kind          MessageKind `json:"kind"`
	Text          string      `json:"text,omitempty"`
	MediaID       string      `json:"media_id,omitempty"`
	ButtonPayload string      `json:"button_payload,omitempty"`
	CorrelationID string      `json:"correlation_id"`
	ReceivedAt    time.Time   `json:"received_at"`
}
