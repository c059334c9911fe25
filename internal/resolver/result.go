package resolver

import (
	"github.com/google/uuid"

	"github.com/vastra-munim/internal/domain/shared"
)

// Kind classifies what the resolution pipeline produced for an utterance
type Kind string

const (
	// KindCommand means the utterance resolved to a fully-specified command
	KindCommand Kind = "COMMAND"
	// KindClarification means entity resolution needs the sender to choose
	KindClarification Kind = "CLARIFICATION"
	// KindPartial means a bulk order resolved some groups but not all
	KindPartial Kind = "PARTIAL"
	// KindUnrecognized means no hypothesis cleared the confidence threshold
	KindUnrecognized Kind = "UNRECOGNIZED"
)

// Candidate is one entity offered in a clarification prompt. Label is the
// human-readable rendering sent back over WhatsApp.
type Candidate struct {
	ID    uuid.UUID `json:"id"`
	Label string    `json:"label"`
}

// Clarification asks the sender to pick between near-equal entity matches,
// or to supply a slot the utterance left out. Slot names the ambiguous slot
// when Candidates are offered, so the caller can honor an ordinal reply.
type Clarification struct {
	Prompt     string      `json:"prompt"`
	Slot       string      `json:"slot,omitempty"`
	Candidates []Candidate `json:"candidates,omitempty"`
}

// PartialBulk reports a bulk order where some groups matched inventory and
// some did not. Nothing is executed until every group resolves.
type PartialBulk struct {
	Resolved   []shared.LineItemRequest `json:"resolved"`
	Unresolved []string                 `json:"unresolved"` // Group text as uttered
	Note       string                   `json:"note,omitempty"`
}

// Result is the outcome of resolving one inbound message. Exactly one of
// Command, Clarification, Partial is set, matching Kind; Unrecognized
// results carry none.
type Result struct {
	Kind          Kind
	Command       *shared.Command
	Clarification *Clarification
	Partial       *PartialBulk
}

func commandResult(cmd *shared.Command) *Result {
	return &Result{Kind: KindCommand, Command: cmd}
}

func clarificationResult(prompt string, candidates []Candidate) *Result {
	return &Result{
		Kind:          KindClarification,
		Clarification: &Clarification{Prompt: prompt, Candidates: candidates},
	}
}

func chooseResult(slot, prompt string, candidates []Candidate) *Result {
	return &Result{
		Kind:          KindClarification,
		Clarification: &Clarification{Prompt: prompt, Slot: slot, Candidates: candidates},
	}
}

func partialResult(p *PartialBulk) *Result {
	return &Result{Kind: KindPartial, Partial: p}
}

func unrecognizedResult() *Result {
	return &Result{Kind: KindUnrecognized}
}
