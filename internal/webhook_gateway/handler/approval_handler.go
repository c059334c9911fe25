package handler

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vastra-munim/internal/domain/approval"
	"github.com/vastra-munim/internal/webhook_gateway/service"
)

// ApprovalHandler handles HTTP requests for pending approval requests.
// The endpoints mirror the WhatsApp approve/reject buttons so the owner can
// also decide from a dashboard.
type ApprovalHandler struct {
	approvalService service.ApprovalService
	logger          *slog.Logger
}

// NewApprovalHandler creates a new approval handler
func NewApprovalHandler(logger *slog.Logger, approvalService service.ApprovalService) *ApprovalHandler {
	return &ApprovalHandler{
		approvalService: approvalService,
		logger:          logger,
	}
}

// ListPending returns pending approval requests, oldest first
func (h *ApprovalHandler) ListPending(c *gin.Context) {
	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		h.logger.Error("Invalid pagination parameters", "error", err)
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	requests, err := h.approvalService.ListPending(c.Request.Context(), pagination.PerPage)
	if err != nil {
		h.logger.Error("Failed to list pending approvals", "error", err)
		RespondInternalError(c)
		return
	}

	responses := make([]ApprovalResponse, 0, len(requests))
	for _, req := range requests {
		responses = append(responses, mapApprovalToResponse(req))
	}
	RespondOK(c, responses)
}

// Approve executes the parked command and records the decision
func (h *ApprovalHandler) Approve(c *gin.Context) {
	id, req, ok := h.bindDecision(c)
	if !ok {
		return
	}

	updated, outcome, err := h.approvalService.Approve(c.Request.Context(), id, req.DecidedBy)
	if err != nil {
		h.respondDecisionError(c, id, err)
		return
	}

	RespondOK(c, gin.H{
		"request": mapApprovalToResponse(updated),
		"summary": outcome.Summary,
	})
}

// Reject discards the parked command and records the decision
func (h *ApprovalHandler) Reject(c *gin.Context) {
	id, req, ok := h.bindDecision(c)
	if !ok {
		return
	}

	updated, err := h.approvalService.Reject(c.Request.Context(), id, req.DecidedBy)
	if err != nil {
		h.respondDecisionError(c, id, err)
		return
	}

	RespondOK(c, mapApprovalToResponse(updated))
}

func (h *ApprovalHandler) bindDecision(c *gin.Context) (uuid.UUID, *ApprovalDecisionRequest, bool) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Error("Invalid approval request ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid approval request ID")
		return uuid.Nil, nil, false
	}

	var req ApprovalDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return uuid.Nil, nil, false
	}
	return id, &req, true
}

func (h *ApprovalHandler) respondDecisionError(c *gin.Context, id uuid.UUID, err error) {
	var stateConflict approval.ErrStateConflict
	if errors.As(err, &stateConflict) {
		RespondConflict(c, "Request already "+string(stateConflict.Status))
		return
	}
	var notFound approval.ErrRequestNotFound
	if errors.As(err, &notFound) {
		RespondNotFound(c, "Approval request not found")
		return
	}
	h.logger.Error("Failed to decide approval request", "request_id", id.String(), "error", err)
	RespondInternalError(c)
}

func mapApprovalToResponse(req *approval.Request) ApprovalResponse {
	response := ApprovalResponse{
		ID:        req.ID.String(),
		CommandID: req.CommandID.String(),
		Summary:   req.Summary,
		Reason:    req.Reason,
		Status:    string(req.Status),
		DecidedBy: req.DecidedBy,
		ExpiresAt: req.ExpiresAt.Format(time.RFC3339),
		CreatedAt: req.CreatedAt.Format(time.RFC3339),
	}
	if req.DecidedAt != nil {
		response.DecidedAt = req.DecidedAt.Format(time.RFC3339)
	}
	return response
}
