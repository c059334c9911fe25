package nlu

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/vastra-munim/internal/domain/shared"
)

// fallbackConfidence is deliberately modest: a keyword match is a guess, and
// anything ambiguous should still land in the clarification path.
const fallbackConfidence = 0.45

// keywordRules maps an intent to the whole words that signal it. First rule
// with a hit wins, so the more specific intents come first.
var keywordRules = []struct {
	intent   shared.IntentLabel
	keywords []string
}{
	{shared.IntentRecordPayment, []string{"diye", "diya", "payment", "jama", "mile", "gpay", "phonepe", "upi"}},
	{shared.IntentSendReminder, []string{"reminder", "yaad", "tagada"}},
	{shared.IntentCheckUdhaar, []string{"udhaar", "udhar", "baaki", "baki", "balance"}},
	{shared.IntentLowStockAlert, []string{"kam", "khatam", "low"}},
	{shared.IntentCheckInventory, []string{"stock", "inventory", "bacha", "maal"}},
	{shared.IntentGenerateInvoice, []string{"bill", "invoice", "bilti"}},
	{shared.IntentAddCustomer, []string{"customer", "grahak", "party"}},
}

var amountPattern = regexp.MustCompile(`(?:₹|rs\.?\s*)?(\d[\d,]*)`)

// FallbackInterpreter wraps the remote provider with a deterministic keyword
// classifier. A provider outage degrades to keyword matching instead of
// putting every message into a redelivery loop; with no keyword hit the
// caller sees an empty hypothesis list and replies unrecognized.
type FallbackInterpreter struct {
	remote Interpreter
	logger *slog.Logger
}

func NewFallbackInterpreter(logger *slog.Logger, remote Interpreter) *FallbackInterpreter {
	return &FallbackInterpreter{
		remote: remote,
		logger: logger,
	}
}

func (f *FallbackInterpreter) Interpret(ctx context.Context, text string) ([]shared.Hypothesis, error) {
	hyps, err := f.remote.Interpret(ctx, text)
	if err == nil {
		return hyps, nil
	}

	f.logger.Warn("Remote interpreter failed, falling back to keyword matching", "error", err)
	return keywordHypotheses(text), nil
}

// Transcribe has no local fallback; voice needs the provider.
func (f *FallbackInterpreter) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	return f.remote.Transcribe(ctx, audio, mimeType)
}

// keywordHypotheses classifies by whole-word keyword match and pulls an
// amount slot when the text carries a number. Rupees only; the fallback
// never invents quantities or names.
func keywordHypotheses(text string) []shared.Hypothesis {
	words := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		words[strings.Trim(w, ".,!?₹")] = true
	}

	for _, rule := range keywordRules {
		for _, kw := range rule.keywords {
			if !words[kw] {
				continue
			}

			hyp := shared.Hypothesis{
				Intent:     rule.intent,
				Slots:      map[string]string{},
				Confidence: fallbackConfidence,
			}
			if m := amountPattern.FindStringSubmatch(text); m != nil {
				hyp.Slots[shared.SlotAmount] = strings.ReplaceAll(m[1], ",", "")
			}
			return []shared.Hypothesis{hyp}
		}
	}
	return nil
}
