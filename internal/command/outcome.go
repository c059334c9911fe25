package command

import (
	"github.com/google/uuid"

	"github.com/vastra-munim/internal/domain/shared"
)

// Outcome is what executing a command produced. Summary is the reply text
// sent back over WhatsApp, in the owner's language; Reason is set only on
// business failures.
type Outcome struct {
	CommandID uuid.UUID
	Kind      shared.CommandKind
	OK        bool
	Reason    shared.FailureReason
	Summary   string
}

func success(cmd *shared.Command, summary string) *Outcome {
	return &Outcome{
		CommandID: cmd.CommandID,
		Kind:      cmd.Kind,
		OK:        true,
		Summary:   summary,
	}
}

func failure(cmd *shared.Command, reason shared.FailureReason, summary string) *Outcome {
	return &Outcome{
		CommandID: cmd.CommandID,
		Kind:      cmd.Kind,
		Reason:    reason,
		Summary:   summary,
	}
}
