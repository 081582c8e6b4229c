// internal/middleware/maintenance.go
// Maintenance mode: reject writes while keeping health probes and
// read-side sync pulls available, so offline clients keep catching up
// during a maintenance window.

package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// MaintenanceMode returns 503 for every mutating request while
// enabled. GET requests pass through: participants can still read
// their draws and clients can still pull the log; only pushes and
// other writes are held back.
func MaintenanceMode() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/health" || c.Request.Method == http.MethodGet {
			c.Next()
			return
		}

		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "service temporarily unavailable for maintenance",
		})
		c.Abort()
	}
}
