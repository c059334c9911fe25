package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vastra-munim/internal/webhook_gateway/middleware"
	"github.com/vastra-munim/internal/webhook_gateway/service"
)

// WebhookHandler handles the WhatsApp Cloud API webhook endpoints
type WebhookHandler struct {
	ingestService service.IngestService
	verifyToken   string
	logger        *slog.Logger
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(logger *slog.Logger, ingestService service.IngestService, verifyToken string) *WebhookHandler {
	return &WebhookHandler{
		ingestService: ingestService,
		verifyToken:   verifyToken,
		logger:        logger,
	}
}

// Verify answers the provider's subscription handshake. The challenge is
// echoed back as plain text only when the verify token matches.
func (h *WebhookHandler) Verify(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode != "subscribe" || token != h.verifyToken {
		h.logger.Warn("Webhook verification rejected", "mode", mode)
		c.String(http.StatusForbidden, "verification failed")
		return
	}

	h.logger.Info("Webhook verified")
	c.String(http.StatusOK, challenge)
}

// Receive ingests a webhook delivery. The provider retries on any non-2xx,
// so the handler answers 200 even when every message inside was a duplicate;
// only an infrastructure failure returns 500 to trigger a redelivery.
func (h *WebhookHandler) Receive(c *gin.Context) {
	var payload WebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		h.logger.Error("Invalid webhook payload", "error", err)
		RespondBadRequest(c, "Invalid webhook payload")
		return
	}

	messages := payload.InboundMessages(middleware.GetCorrelationID(c))
	if len(messages) == 0 {
		RespondOK(c, gin.H{"accepted": 0})
		return
	}
	c.Set(middleware.WaIDKey, messages[0].From)

	accepted, err := h.ingestService.Ingest(c.Request.Context(), messages)
	if err != nil {
		h.logger.Error("Failed to ingest webhook messages", "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, gin.H{"accepted": accepted})
}
