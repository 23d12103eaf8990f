package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sentinelsoc/soc-core/pkg/cache"
)

const rateLimitWindow = time.Minute

// RateLimiter enforces a per-client-IP request ceiling over one-minute
// windows backed by the shared cache, so the limit holds across replicas.
func RateLimiter(valkeyCache cache.Valkey, maxRequests int64) gin.HandlerFunc {
	if maxRequests <= 0 {
		maxRequests = 1000
	}
	return func(c *gin.Context) {
		window := time.Now().Unix() / 60
		key := fmt.Sprintf("rate_limit:%s:%d", c.ClientIP(), window)

		count, err := valkeyCache.Increment(c.Request.Context(), key, 2*rateLimitWindow)
		if err != nil {
			// cache trouble must not take the API down with it
			c.Next()
			return
		}

		c.Header("X-Rate-Limit-Limit", strconv.FormatInt(maxRequests, 10))
		c.Header("X-Rate-Limit-Reset", strconv.FormatInt((window+1)*60, 10))

		if count > maxRequests {
			c.Header("X-Rate-Limit-Remaining", "0")
			c.JSON(http.StatusTooManyRequests, gin.H{
				"status":      "error",
				"error":       "Rate limit exceeded",
				"retry_after": 60,
			})
			c.Abort()
			return
		}

		c.Header("X-Rate-Limit-Remaining", strconv.FormatInt(maxRequests-count, 10))
		c.Next()
	}
}
