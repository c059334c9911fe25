// Package hitl gates sensitive commands behind the owner's explicit
// decision. A gated command is parked as an approval request; approving it
// executes the original command with fresh state validation, rejecting or
// letting it expire discards it. Terminal requests never change again.
package hitl

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vastra-munim/internal/command"
	"github.com/vastra-munim/internal/config"
	"github.com/vastra-munim/internal/domain/approval"
	"github.com/vastra-munim/internal/domain/shared"
)

// CommandExecutor runs an approved command
type CommandExecutor interface {
	Execute(ctx context.Context, cmd *shared.Command) (*command.Outcome, error)
}

// Gate owns the approval lifecycle
type Gate struct {
	approvals approval.Repository
	executor  CommandExecutor
	ttl       time.Duration
	logger    *slog.Logger
}

func NewGate(logger *slog.Logger, approvals approval.Repository, executor CommandExecutor, policy *config.PolicyConfig) *Gate {
	return &Gate{
		approvals: approvals,
		executor:  executor,
		ttl:       policy.ApprovalTTL,
		logger:    logger,
	}
}

// Submit parks a sensitive command and returns the pending request the
// owner will be asked to decide on
func (g *Gate) Submit(ctx context.Context, cmd *shared.Command, summary string) (*approval.Request, error) {
	req, err := approval.NewRequest(cmd, summary, g.ttl)
	if err != nil {
		return nil, fmt.Errorf("failed to build approval request for command %s: %w", cmd.CommandID.String(), err)
	}

	if err := g.approvals.Create(ctx, req); err != nil {
		return nil, fmt.Errorf("failed to park command %s for approval: %w", cmd.CommandID.String(), err)
	}

	g.logger.Info("Command parked for approval",
		"request_id", req.ID.String(),
		"command_id", cmd.CommandID.String(),
		"reason", req.Reason,
		"expires_at", req.ExpiresAt)
	return req, nil
}

// Approve claims the request, then executes the parked command with the
// owner's override. The claim is a versioned PENDING to APPROVED update, so
// of two concurrent approvals only one ever reaches the executor. If the
// command does not take effect the claim is returned and the request is
// pending again. A request whose TTL elapsed is expired instead, never
// executed.
func (g *Gate) Approve(ctx context.Context, requestID uuid.UUID, decidedBy string) (*approval.Request, *command.Outcome, error) {
	req, err := g.approvals.GetByID(ctx, requestID)
	if err != nil {
		return nil, nil, err
	}

	if req.Status == approval.StatusPending && req.IsExpired(time.Now()) {
		if expireErr := g.expireOne(ctx, req); expireErr != nil {
			return nil, nil, expireErr
		}
		return req, nil, approval.ErrStateConflict{RequestID: req.ID, Status: approval.StatusExpired}
	}

	cmd, err := req.GetCommand()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode parked command for request %s: %w", req.ID.String(), err)
	}
	cmd.Approved = true

	if err := req.Approve(decidedBy); err != nil {
		return req, nil, err
	}
	if err := g.approvals.Update(ctx, req); err != nil {
		// Another decision claimed the request first; nothing executed
		return nil, nil, err
	}

	outcome, err := g.executor.Execute(ctx, cmd)
	if err != nil {
		g.logger.Error("Approved command failed to execute, returning claim",
			"request_id", req.ID.String(),
			"command_id", cmd.CommandID.String(),
			"error", err)
		g.returnClaim(ctx, req)
		return nil, nil, err
	}

	if !outcome.OK {
		// The executor rolled everything back; the request goes back to
		// pending so the owner can approve again once the blocker clears
		g.logger.Warn("Approved command was refused, returning claim",
			"request_id", req.ID.String(),
			"command_id", cmd.CommandID.String(),
			"reason", outcome.Reason)
		g.returnClaim(ctx, req)
		return req, outcome, nil
	}

	g.logger.Info("Approval decided",
		"request_id", req.ID.String(),
		"status", req.Status,
		"decided_by", decidedBy,
		"outcome_ok", outcome.OK)
	return req, outcome, nil
}

// returnClaim moves a claimed request back to pending. Best effort: a
// request stuck in APPROVED with nothing executed still shows up in the
// audit trail via the error logs.
func (g *Gate) returnClaim(ctx context.Context, req *approval.Request) {
	if err := req.Reopen(); err != nil {
		g.logger.Error("Failed to reopen claimed request", "request_id", req.ID.String(), "error", err)
		return
	}
	if err := g.approvals.Update(ctx, req); err != nil {
		g.logger.Error("Failed to return approval claim", "request_id", req.ID.String(), "error", err)
	}
}

// Reject records a rejection. Nothing executes.
func (g *Gate) Reject(ctx context.Context, requestID uuid.UUID, decidedBy string) (*approval.Request, error) {
	req, err := g.approvals.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if err := req.Reject(decidedBy); err != nil {
		return req, err
	}
	if err := g.approvals.Update(ctx, req); err != nil {
		return nil, err
	}

	g.logger.Info("Approval rejected", "request_id", req.ID.String(), "decided_by", decidedBy)
	return req, nil
}

// ListPending returns requests still waiting on the owner
func (g *Gate) ListPending(ctx context.Context, limit int) ([]*approval.Request, error) {
	return g.approvals.ListPending(ctx, limit)
}

// ExpireStale expires every pending request whose TTL elapsed before now.
// Safe to run repeatedly; already-decided requests are skipped.
func (g *Gate) ExpireStale(ctx context.Context, now time.Time) (int, error) {
	stale, err := g.approvals.ListPendingExpiredBefore(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to list stale approvals: %w", err)
	}

	expired := 0
	for _, req := range stale {
		if err := g.expireOne(ctx, req); err != nil {
			// A concurrent decision beat the sweep; skip and move on
			g.logger.Warn("Failed to expire approval request", "request_id", req.ID.String(), "error", err)
			continue
		}
		expired++
	}

	if expired > 0 {
		g.logger.Info("Expired stale approval requests", "count", expired)
	}
	return expired, nil
}

func (g *Gate) expireOne(ctx context.Context, req *approval.Request) error {
	if err := req.Expire(); err != nil {
		return err
	}
	return g.approvals.Update(ctx, req)
}
