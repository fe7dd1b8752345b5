package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/game-store-project/game-store/cache"
	"github.com/game-store-project/game-store/utils"

	"github.com/gin-gonic/gin"
)

type RateLimiter interface {
	Allow(ctx context.Context, key string, max int, window time.Duration) (cache.RateLimitResult, error)
}

// RateLimit allows maxRequests per window for each client IP on the routes
// it is attached to. scope separates the counters of different routes.
// Limiter failures let the request through.
func RateLimit(limiter RateLimiter, scope string, maxRequests int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := limiter.Allow(c.Request.Context(), scope+":"+c.ClientIP(), maxRequests, window)
		if err != nil {
			utils.Log.WithError(err).WithField("scope", scope).Warn("Rate limiter unavailable")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(maxRequests))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		c.Header("X-RateLimit-Window", window.String())

		if !res.Allowed {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(res.RetryAfter.Seconds()))))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			return
		}
		c.Next()
	}
}
