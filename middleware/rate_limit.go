package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	apperrors "github.com/roamfund/roamfund-backend/errors"
)

// ConfirmRateLimiter limits payment-confirmation calls per user. Each
// confirmation triggers a provider round trip, so retry storms are capped
// with a fixed window of Redis INCR and EXPIRE per user.
func ConfirmRateLimiter(redisClient *redis.Client, requestsPerWindow int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString(string(UserIDKey))
		if userID == "" {
			_ = c.Error(apperrors.Unauthorized("missing_auth", "Authentication required"))
			c.Abort()
			return
		}

		key := fmt.Sprintf("ratelimit:confirm:%s", userID)

		pipe := redisClient.TxPipeline()
		incr := pipe.Incr(c.Request.Context(), key)
		pipe.Expire(c.Request.Context(), key, window)

		_, err := pipe.Exec(c.Request.Context())
		if err != nil {
			// Don't block confirmations on Redis failures; the store-level
			// guards keep concurrent confirmations safe regardless.
			c.Next()
			return
		}

		count := incr.Val()
		if count > int64(requestsPerWindow) {
			ttl, err := redisClient.TTL(c.Request.Context(), key).Result()
			if err != nil || ttl < 0 {
				ttl = window
			}

			c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", requestsPerWindow))
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("Retry-After", fmt.Sprintf("%d", int(ttl.Seconds())))

			_ = c.Error(apperrors.RateLimitExceeded("Too many confirmation attempts. Please try again later.", int(ttl.Seconds())))
			c.Abort()
			return
		}

		remaining := requestsPerWindow - int(count)
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", requestsPerWindow))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))

		c.Next()
	}
}
