package approval

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/vastra-munim/internal/domain/shared"
)

// Common errors
var (
	ErrNotSensitive = errors.New("only sensitive commands require approval")
)

// Status defines approval request lifecycle states. Approved, rejected and
// expired are terminal; a terminal request never changes again.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
	StatusExpired  Status = "EXPIRED"
)

// Request holds a sensitive command parked until the owner decides on it.
// The command is stored serialized so the decision path never has to
// re-resolve entities; execution re-validates state instead.
type Request struct {
	ID         uuid.UUID       `json:"id"`
	CommandID  uuid.UUID       `json:"command_id"`
	Command    json.RawMessage `json:"command"`
	Reason     string          `json:"reason"` // Why the command was gated
	Status     Status          `json:"status"`
	Summary    string          `json:"summary"` // Human-readable line shown to the owner
	DecidedBy  string          `json:"decided_by,omitempty"`
	DecidedAt  *time.Time      `json:"decided_at,omitempty"`
	ExpiresAt  time.Time       `json:"expires_at"`
	Version    int             `json:"version"` // For optimistic locking
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// NewRequest parks a sensitive command for the given TTL
func NewRequest(cmd *shared.Command, summary string, ttl time.Duration) (*Request, error) {
	if !cmd.Sensitive {
		return nil, ErrNotSensitive
	}
	payload, err := json.Marshal(cmd)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	return &Request{
		ID:        uuid.New(),
		CommandID: cmd.CommandID,
		Command:   payload,
		Reason:    cmd.SensitiveNote,
		Status:    StatusPending,
		Summary:   summary,
		ExpiresAt: now.Add(ttl),
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// GetCommand extracts the parked command from the payload
func (r *Request) GetCommand() (*shared.Command, error) {
	var cmd shared.Command
	if err := json.Unmarshal(r.Command, &cmd); err != nil {
		return nil, err
	}
	return &cmd, nil
}

// Approve moves a pending request to approved
func (r *Request) Approve(decidedBy string) error {
	if err := r.ensurePending(); err != nil {
		return err
	}
	r.decide(StatusApproved, decidedBy)
	return nil
}

// Reject moves a pending request to rejected
func (r *Request) Reject(decidedBy string) error {
	if err := r.ensurePending(); err != nil {
		return err
	}
	r.decide(StatusRejected, decidedBy)
	return nil
}

// Reopen returns a claimed request to pending. Used when an approved
// command did not take effect, so the owner can decide again.
func (r *Request) Reopen() error {
	if r.Status != StatusApproved {
		return ErrStateConflict{RequestID: r.ID, Status: r.Status}
	}
	r.Status = StatusPending
	r.DecidedBy = ""
	r.DecidedAt = nil
	r.UpdatedAt = time.Now()
	r.Version++
	return nil
}

// Expire moves a pending request past its TTL to expired
func (r *Request) Expire() error {
	if err := r.ensurePending(); err != nil {
		return err
	}
	r.decide(StatusExpired, "")
	return nil
}

// IsExpired reports whether the request's TTL has elapsed
func (r *Request) IsExpired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

func (r *Request) ensurePending() error {
	if r.Status != StatusPending {
		return ErrStateConflict{RequestID: r.ID, Status: r.Status}
	}
	return nil
}

func (r *Request) decide(status Status, decidedBy string) {
	now := time.Now()
	r.Status = status
	r.DecidedBy = decidedBy
	r.DecidedAt = &now
	r.UpdatedAt = now
	r.Version++
}

// ErrStateConflict indicates a decision attempt on a terminal request
type ErrStateConflict struct {
	RequestID uuid.UUID
	Status    Status
}

func (e ErrStateConflict) Error() string {
	return "approval request " + e.RequestID.String() + " is already " + string(e.Status)
}

// Is implements the errors.Is interface for ErrStateConflict
func (e ErrStateConflict) Is(target error) bool {
	t, ok := target.(ErrStateConflict)
	if !ok {
		return false
	}
	if t.RequestID == uuid.Nil {
		return true
	}
	return e.RequestID == t.RequestID
}
