package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
)

// Recovery middleware turns a handler panic into a 500. On the webhook
// endpoint the 500 makes the provider redeliver the batch, and the inbox
// dedup absorbs the retry.
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				fields := []any{
					"error", r,
					"stack", string(debug.Stack()),
					"path", c.Request.URL.Path,
					"method", c.Request.Method,
				}
				if correlationID := GetCorrelationID(c); correlationID != "" {
					fields = append(fields, "correlation_id", correlationID)
				}
				if waID := c.GetString(WaIDKey); waID != "" {
					fields = append(fields, "wa_id", waID)
				}
				logger.Error("Panic recovered", fields...)

				response := gin.H{
					"error": gin.H{
						"code":    "INTERNAL_SERVER_ERROR",
						"message": "An internal server error occurred",
					},
				}
				if correlationID := GetCorrelationID(c); correlationID != "" {
					response["correlation_id"] = correlationID
				}

				c.AbortWithStatusJSON(http.StatusInternalServerError, response)
			}
		}()

		c.Next()
	}
}
