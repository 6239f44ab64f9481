package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/ctenarsky-denik/journal/internal/pkg/redis"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	rateLimitWindow = time.Second
	rateLimitPrefix = "journal:rate_limit:"
)

// RateLimit enforces a fixed one-second window per caller. Authenticated
// callers are keyed by user id, anonymous ones by client ip. Redis failures
// let the request through.
func RateLimit(rdb *redis.Client, max int, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller := CurrentUserID(c)
		if caller == "" {
			caller = c.ClientIP()
		}
		if caller == "" || max <= 0 {
			c.Next()
			return
		}

		key := fmt.Sprintf("%s%s:%d", rateLimitPrefix, caller, time.Now().Unix())
		count, err := rdb.Incr(c.Request.Context(), key, rateLimitWindow+time.Second)
		if err != nil {
			log.Warn("rate limit check failed", zap.Error(err))
			c.Next()
			return
		}

		if count > int64(max) {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"ok":      0,
				"code":    http.StatusTooManyRequests,
				"message": "too many requests",
			})
			return
		}

		c.Next()
	}
}
