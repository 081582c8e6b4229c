// internal/middleware/request_id.go
// Generates unique request IDs for tracing

package middleware

import (
	"tournament-engine/internal/utils"

	"github.com/gin-gonic/gin"
)

// RequestID adds a unique request ID to each request, honoring one the
// caller already carries so a sync client's retries correlate.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = utils.GenerateRequestID()
		}

		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}
