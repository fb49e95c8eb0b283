package httpmiddleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RedisLimiter enforces per-IP fixed-window limits shared across instances.
// It fails open: a redis outage must not take requests down with it.
type RedisLimiter struct {
	client    *redis.Client
	perMinute int
}

// NewRedisLimiter creates a limiter allowing perMinute requests per IP.
func NewRedisLimiter(client *redis.Client, perMinute int) *RedisLimiter {
	if perMinute <= 0 {
		perMinute = 120
	}
	return &RedisLimiter{client: client, perMinute: perMinute}
}

// GinMiddleware returns gin handler enforcing per-IP limits.
func (l *RedisLimiter) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if ip == "" {
			ip = "unknown"
		}
		window := time.Now().Unix() / 60
		key := "ratelimit:" + ip + ":" + strconv.FormatInt(window, 10)

		ctx := c.Request.Context()
		count, err := l.client.Incr(ctx, key).Result()
		if err != nil {
			c.Next()
			return
		}
		if count == 1 {
			l.client.Expire(ctx, key, 2*time.Minute)
		}
		if count > int64(l.perMinute) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit"})
			return
		}
		c.Next()
	}
}
