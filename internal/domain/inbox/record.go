package inbox

import (
	"time"
)

// Record tracks one inbound WhatsApp message by its provider message id.
// The gateway admits a message exactly once; the processor stamps
// ProcessedAt after executing it. Webhook redeliveries and Kafka
// redeliveries both bounce off this table.
type Record struct {
	MessageID   string     `json:"message_id"`
	From        string     `json:"from"`
	ReceivedAt  time.Time  `json:"received_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
}
