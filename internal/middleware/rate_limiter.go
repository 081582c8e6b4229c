// internal/middleware/rate_limiter.go
// Rate limiting to prevent abuse, backed directly by Redis

package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimiter implements rate limiting using a fixed window counter in
// Redis, keyed by participant ID when authenticated and by client IP
// otherwise.
func RateLimiter(client *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		var key string
		if participantID, exists := c.Get("participant_id"); exists {
			key = fmt.Sprintf("rate_limit:participant:%s", participantID)
		} else {
			key = fmt.Sprintf("rate_limit:ip:%s", c.ClientIP())
		}

		limit := 100
		window := time.Minute

		count, err := increment(c, client, key, window)
		if err != nil {
			// Don't block on rate limit errors
			c.Next()
			return
		}

		if count > limit {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "Rate limit exceeded",
				"retry_after": window.Seconds(),
			})
			c.Abort()
			return
		}

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", limit))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", limit-count))
		c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", time.Now().Add(window).Unix()))

		c.Next()
	}
}

// increment bumps the counter at key, setting its expiry on first
// write so the window resets after it elapses.
func increment(c *gin.Context, client *redis.Client, key string, window time.Duration) (int, error) {
	ctx := c.Request.Context()
	count, err := client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		client.Expire(ctx, key, window)
	}
	return int(count), nil
}
