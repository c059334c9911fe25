package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

// WaIDKey is the gin context key under which handlers record the WhatsApp
// sender id for the access log.
const WaIDKey = "wa_id"

// Logger middleware writes one access log line per request. Query strings on
// the webhook endpoints are never logged: the provider's verification
// handshake carries the verify token in the query.
func Logger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		requestLogger := logger
		if correlationID := GetCorrelationID(c); correlationID != "" {
			requestLogger = logger.With("correlation_id", correlationID)
		}

		c.Next()

		fields := []any{
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
		}
		if raw := c.Request.URL.RawQuery; raw != "" && path != "/webhook" {
			fields = append(fields, "query", raw)
		}
		if waID := c.GetString(WaIDKey); waID != "" {
			fields = append(fields, "wa_id", waID)
		}

		requestLogger.Info("HTTP request", fields...)
	}
}
