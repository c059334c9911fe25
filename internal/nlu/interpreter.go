// Package nlu adapts the external language-understanding provider. The core
// consumes it as a black box returning ranked intent hypotheses; a provider
// failure surfaces to the caller as an error, never as a fabricated intent.
package nlu

import (
	"context"

	"github.com/vastra-munim/internal/domain/shared"
)

// Interpreter turns utterances into ranked intent hypotheses
type Interpreter interface {
	// Interpret returns hypotheses ordered by descending confidence. An
	// empty slice means the provider produced nothing usable.
	Interpret(ctx context.Context, text string) ([]shared.Hypothesis, error)

	// Transcribe converts a voice note into text for the same Interpret call
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}
