package middleware

import (
	"net/http"
	"strconv"
	"time"

	"todo_app/internal/logger"

	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"
)

// incrWindow increments the counter and gives it a TTL in the same round
// trip. A key found without a TTL gets one too, so a counter can never
// outlive its window.
var incrWindow = redis.NewScript(`
local n = redis.call('INCR', KEYS[1])
if redis.call('PTTL', KEYS[1]) < 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return n
`)

// RedisRateLimit implements a simple fixed-window rate limiter using Redis INCR/PEXPIRE.
// key format: rl:<window_seconds>:<client_ip>
// A nil client or a Redis error lets the request through.
func RedisRateLimit(client *redis.Client, maxRequests int, window time.Duration) gin.HandlerFunc {
	windowSeconds := strconv.FormatInt(int64(window.Seconds()), 10)
	windowMillis := window.Milliseconds()

	return func(c *gin.Context) {
		if client == nil {
			c.Next()
			return
		}

		key := "rl:" + windowSeconds + ":" + c.ClientIP()
		ctx := c.Request.Context()

		val, err := incrWindow.Run(ctx, client, []string{key}, windowMillis).Int64()
		if err != nil {
			// fail-open, but tell the caller
			c.Header("X-RateLimit-Error", "redis-error")
			logger.WithContext(ctx).Warn("rate limiter unavailable", "error", err)
			c.Next()
			return
		}

		if val > int64(maxRequests) {
			RLBlocked.WithLabelValues(routeLabel(c)).Inc()
			abortRateLimited(c)
			return
		}

		RLRequests.WithLabelValues(routeLabel(c)).Inc()
		c.Next()
	}
}

func abortRateLimited(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
		"success": false,
		"message": "Rate limit exceeded",
	})
}
