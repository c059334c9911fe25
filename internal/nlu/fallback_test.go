package nlu

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vastra-munim/internal/domain/shared"
)

type mockRemote struct {
	mock.Mock
}

func (m *mockRemote) Interpret(ctx context.Context, text string) ([]shared.Hypothesis, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]shared.Hypothesis), args.Error(1)
}

func (m *mockRemote) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	args := m.Called(ctx, audio, mimeType)
	return args.String(0), args.Error(1)
}

func newFallback(remote *mockRemote) *FallbackInterpreter {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewFallbackInterpreter(logger, remote)
}

func TestFallbackInterpreter(t *testing.T) {
	ctx := context.Background()

	t.Run("passes remote hypotheses through", func(t *testing.T) {
		remote := new(mockRemote)
		remoteHyps := []shared.Hypothesis{{Intent: shared.IntentCheckUdhaar, Confidence: 0.9}}
		remote.On("Interpret", mock.Anything, "Ramesh ka udhaar").Return(remoteHyps, nil)

		hyps, err := newFallback(remote).Interpret(ctx, "Ramesh ka udhaar")
		require.NoError(t, err)
		assert.Equal(t, remoteHyps, hyps)
	})

	t.Run("provider outage degrades to keywords, not an error", func(t *testing.T) {
		remote := new(mockRemote)
		remote.On("Interpret", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))

		hyps, err := newFallback(remote).Interpret(ctx, "Ramesh ne 2000 diye")
		require.NoError(t, err)
		require.Len(t, hyps, 1)
		assert.Equal(t, shared.IntentRecordPayment, hyps[0].Intent)
		assert.Equal(t, "2000", hyps[0].Slots[shared.SlotAmount])
	})

	t.Run("no keyword hit yields no hypotheses", func(t *testing.T) {
		remote := new(mockRemote)
		remote.On("Interpret", mock.Anything, mock.Anything).Return(nil, errors.New("timeout"))

		hyps, err := newFallback(remote).Interpret(ctx, "namaste kaise ho")
		require.NoError(t, err)
		assert.Empty(t, hyps)
	})
}

func TestKeywordHypotheses(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		intent shared.IntentLabel
		amount string
	}{
		{"payment with amount", "Sharma ji ne ₹5,000 gpay pe diye", shared.IntentRecordPayment, "5000"},
		{"udhaar check", "Ramesh ka baaki kitna hai", shared.IntentCheckUdhaar, ""},
		{"invoice", "2000 ka bill banao", shared.IntentGenerateInvoice, "2000"},
		{"stock check", "silk ka stock dikhao", shared.IntentCheckInventory, ""},
		{"reminder", "Gupta ko tagada bhejo", shared.IntentSendReminder, ""},
		{"keyword inside a word does not match", "billi bahar hai", shared.IntentUnknown, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hyps := keywordHypotheses(tt.text)
			if tt.intent == shared.IntentUnknown {
				assert.Empty(t, hyps)
				return
			}
			require.Len(t, hyps, 1)
			assert.Equal(t, tt.intent, hyps[0].Intent)
			assert.Equal(t, fallbackConfidence, hyps[0].Confidence)
			if tt.amount != "" {
				assert.Equal(t, tt.amount, hyps[0].Slots[shared.SlotAmount])
			}
		})
	}
}
