// Package messenger sends outbound WhatsApp messages. Send failures are
// non-fatal to already-committed commands; the caller logs and moves on.
package messenger

import "context"

// Button is one quick-reply option attached to an interactive message
type Button struct {
	Payload string // Opaque id returned verbatim when the user taps
	Title   string // Label shown on the button, max 20 chars per provider
}

// Sender delivers messages to a WhatsApp recipient identified by wa_id
type Sender interface {
	SendText(ctx context.Context, recipient, text string) error
	SendButtons(ctx context.Context, recipient, text string, buttons []Button) error

	// DownloadMedia fetches the raw bytes of an inbound media attachment
	DownloadMedia(ctx context.Context, mediaID string) ([]byte, string, error)
}
