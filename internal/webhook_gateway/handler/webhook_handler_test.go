package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vastra-munim/internal/domain/shared"
	"github.com/vastra-munim/internal/webhook_gateway/middleware"
)

type MockIngestService struct {
	mock.Mock
}

func (m *MockIngestService) Ingest(ctx context.Context, messages []*shared.InboundMessage) (int, error) {
	args := m.Called(ctx, messages)
	return args.Int(0), args.Error(1)
}

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.Default()
	r.Use(middleware.CorrelationID())
	return r
}

const testVerifyToken = "shop-verify-token"

// textWebhookBody builds a WhatsApp Cloud webhook delivery carrying one text message
func textWebhookBody(messageID, from, body string) []byte {
	payload := map[string]any{
		"object": "whatsapp_business_account",
		"entry": []map[string]any{{
			"id": "entry-1",
			"changes": []map[string]any{{
				"field": "messages",
				"value": map[string]any{
					"messaging_product": "whatsapp",
					"messages": []map[string]any{{
						"id":        messageID,
						"from":      from,
						"timestamp": "1756500000",
						"type":      "text",
						"text":      map[string]any{"body": body},
					}},
				},
			}},
		}},
	}
	b, _ := json.Marshal(payload)
	return b
}

func TestWebhookHandler_Verify(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	t.Run("EchoesChallengeWhenTokenMatches", func(t *testing.T) {
		handler := NewWebhookHandler(logger, new(MockIngestService), testVerifyToken)

		router := setupTestRouter()
		router.GET("/webhook", handler.Verify)

		req, _ := http.NewRequest(http.MethodGet,
			"/webhook?hub.mode=subscribe&hub.verify_token="+testVerifyToken+"&hub.challenge=12345", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "12345", rr.Body.String())
	})

	t.Run("RejectsWrongToken", func(t *testing.T) {
		handler := NewWebhookHandler(logger, new(MockIngestService), testVerifyToken)

		router := setupTestRouter()
		router.GET("/webhook", handler.Verify)

		req, _ := http.NewRequest(http.MethodGet,
			"/webhook?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=12345", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusForbidden, rr.Code)
		assert.NotContains(t, rr.Body.String(), "12345")
	})
}

func TestWebhookHandler_Receive(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	t.Run("ParsesTextMessageAndIngests", func(t *testing.T) {
		mockService := new(MockIngestService)
		handler := NewWebhookHandler(logger, mockService, testVerifyToken)

		var captured []*shared.InboundMessage
		mockService.On("Ingest", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) {
				captured = args.Get(1).([]*shared.InboundMessage)
			}).
			Return(1, nil)

		router := setupTestRouter()
		router.POST("/webhook", handler.Receive)

		body := textWebhookBody("wamid.ABC123", "919876500000", "Ramesh ko 5000 ka bill banao")
		req, _ := http.NewRequest(http.MethodPost, "/webhook", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		require.Len(t, captured, 1)
		assert.Equal(t, "wamid.ABC123", captured[0].MessageID)
		assert.Equal(t, "919876500000", captured[0].From)
		assert.Equal(t, shared.MessageKindText, captured[0].Kind)
		assert.Equal(t, "Ramesh ko 5000 ka bill banao", captured[0].Text)
		assert.NotEmpty(t, captured[0].CorrelationID)
		mockService.AssertExpectations(t)
	})

	t.Run("ParsesButtonReply", func(t *testing.T) {
		mockService := new(MockIngestService)
		handler := NewWebhookHandler(logger, mockService, testVerifyToken)

		var captured []*shared.InboundMessage
		mockService.On("Ingest", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) {
				captured = args.Get(1).([]*shared.InboundMessage)
			}).
			Return(1, nil)

		payload := map[string]any{
			"object": "whatsapp_business_account",
			"entry": []map[string]any{{
				"changes": []map[string]any{{
					"field": "messages",
					"value": map[string]any{
						"messages": []map[string]any{{
							"id":        "wamid.BTN1",
							"from":      "919999900000",
							"timestamp": "1756500000",
							"type":      "interactive",
							"interactive": map[string]any{
								"type": "button_reply",
								"button_reply": map[string]any{
									"id":    "approve_7b0c6c2e-9a1f-4f0e-8b59-8f0c4a9d21aa",
									"title": "Approve",
								},
							},
						}},
					},
				}},
			}},
		}
		body, _ := json.Marshal(payload)

		router := setupTestRouter()
		router.POST("/webhook", handler.Receive)

		req, _ := http.NewRequest(http.MethodPost, "/webhook", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		require.Len(t, captured, 1)
		assert.Equal(t, shared.MessageKindButton, captured[0].Kind)
		assert.Equal(t, "approve_7b0c6c2e-9a1f-4f0e-8b59-8f0c4a9d21aa", captured[0].ButtonPayload)
	})

	t.Run("StatusOnlyDeliveryIsAcknowledgedWithoutIngest", func(t *testing.T) {
		mockService := new(MockIngestService)
		handler := NewWebhookHandler(logger, mockService, testVerifyToken)

		payload := map[string]any{
			"object": "whatsapp_business_account",
			"entry": []map[string]any{{
				"changes": []map[string]any{{
					"field": "messages",
					"value": map[string]any{
						"statuses": []map[string]any{{"id": "wamid.X", "status": "delivered"}},
					},
				}},
			}},
		}
		body, _ := json.Marshal(payload)

		router := setupTestRouter()
		router.POST("/webhook", handler.Receive)

		req, _ := http.NewRequest(http.MethodPost, "/webhook", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		mockService.AssertNotCalled(t, "Ingest", mock.Anything, mock.Anything)
	})

	t.Run("IngestFailureReturns500ForProviderRetry", func(t *testing.T) {
		mockService := new(MockIngestService)
		handler := NewWebhookHandler(logger, mockService, testVerifyToken)

		mockService.On("Ingest", mock.Anything, mock.Anything).
			Return(0, errors.New("kafka unavailable"))

		router := setupTestRouter()
		router.POST("/webhook", handler.Receive)

		body := textWebhookBody("wamid.ABC124", "919876500000", "stock check karo")
		req, _ := http.NewRequest(http.MethodPost, "/webhook", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})

	t.Run("MalformedBodyReturns400", func(t *testing.T) {
		handler := NewWebhookHandler(logger, new(MockIngestService), testVerifyToken)

		router := setupTestRouter()
		router.POST("/webhook", handler.Receive)

		req, _ := http.NewRequest(http.MethodPost, "/webhook", bytes.NewBufferString("{not json"))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}
