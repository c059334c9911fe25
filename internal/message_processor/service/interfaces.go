package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/vastra-munim/internal/command"
	"github.com/vastra-munim/internal/domain/approval"
	"github.com/vastra-munim/internal/domain/shared"
	"github.com/vastra-munim/internal/resolver"
	"github.com/vastra-munim/internal/session"
)

// ProcessingService defines the interface for processing inbound messages.
type ProcessingService interface {
	ProcessMessage(ctx context.Context, msg *shared.InboundMessage) error
}

// CommandExecutor applies a resolved command against the stores
type CommandExecutor interface {
	Execute(ctx context.Context, cmd *shared.Command) (*command.Outcome, error)
}

// ApprovalGate parks sensitive commands and resolves owner decisions
type ApprovalGate interface {
	Submit(ctx context.Context, cmd *shared.Command, summary string) (*approval.Request, error)
	Approve(ctx context.Context, requestID uuid.UUID, decidedBy string) (*approval.Request, *command.Outcome, error)
	Reject(ctx context.Context, requestID uuid.UUID, decidedBy string) (*approval.Request, error)
}

// MessageResolver turns NLU hypotheses into commands or clarifications
type MessageResolver interface {
	Resolve(ctx context.Context, msg *shared.InboundMessage, hyps []shared.Hypothesis, sess *session.Context) (*resolver.Result, error)
}
