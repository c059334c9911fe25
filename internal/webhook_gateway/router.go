package webhook_gateway

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vastra-munim/internal/webhook_gateway/handler"
	"github.com/vastra-munim/internal/webhook_gateway/middleware"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	webhookHandler *handler.WebhookHandler,
	approvalHandler *handler.ApprovalHandler,
	queryHandler *handler.QueryHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CorrelationID())

	// WhatsApp Cloud API webhook endpoints
	r.GET("/webhook", webhookHandler.Verify)
	r.POST("/webhook", webhookHandler.Receive)

	// API v1 endpoints
	v1 := r.Group("/api/v1")
	{
		// Approval operations
		approvals := v1.Group("/approvals")
		{
			approvals.GET("", approvalHandler.ListPending)
			approvals.POST("/:id/approve", approvalHandler.Approve)
			approvals.POST("/:id/reject", approvalHandler.Reject)
		}

		// Customer reads
		customers := v1.Group("/customers")
		{
			customers.GET("", queryHandler.SearchCustomers)
			customers.GET("/:id", queryHandler.GetCustomer)
			customers.GET("/:id/udhaar", queryHandler.GetCustomerLedger)
		}

		v1.GET("/inventory", queryHandler.ListInventory)

		// Conversation history keyed by the contact's WhatsApp number
		v1.GET("/conversations/:wa_id", queryHandler.GetConversation)

		// Invoice numbers contain slashes (KT/20260830/42), so the route
		// takes a catch-all segment
		v1.GET("/invoices/*number", queryHandler.GetInvoice)
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
