package middleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Counter increments a windowed counter and returns the new value
type Counter interface {
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// RedisCounter counts with INCR and EXPIRE
type RedisCounter struct {
	rdb *redis.Client
}

// NewRedisCounter wraps a redis client; nil yields a nil counter
func NewRedisCounter(rdb *redis.Client) Counter {
	if rdb == nil {
		return nil
	}
	return &RedisCounter{rdb: rdb}
}

func (r *RedisCounter) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := r.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		r.rdb.Expire(ctx, key, ttl)
	}
	return count, nil
}

// RateLimitKey is the per-client counter key for one second window
func RateLimitKey(clientIP string, unix int64) string {
	return fmt.Sprintf("rl:client:%s:second:%d", clientIP, unix)
}

// RateLimitMiddleware limits requests per client IP per second. A nil
// counter or a non-positive limit disables it. Counter failures let the
// request through.
func RateLimitMiddleware(counter Counter, perSecond int, logger *zap.Logger) fiber.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *fiber.Ctx) error {
		if counter == nil || perSecond <= 0 {
			return c.Next()
		}

		now := time.Now()
		key := RateLimitKey(c.IP(), now.Unix())

		count, err := counter.Incr(c.UserContext(), key, 2*time.Second)
		if err != nil {
			logger.Warn("rate limit counter unavailable", zap.Error(err))
			return c.Next()
		}

		c.Set("X-RateLimit-Limit-Second", strconv.Itoa(perSecond))
		if count > int64(perSecond) {
			c.Set("X-RateLimit-Remaining-Second", "0")
			c.Set("X-RateLimit-Reset-Second", strconv.FormatInt(now.Unix()+1, 10))
			c.Set("Retry-After", "1")

			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":       "rate_limit_exceeded",
				"message":     "Too many requests per second",
				"limit":       perSecond,
				"retry_after": 1,
			})
		}

		c.Set("X-RateLimit-Remaining-Second", strconv.FormatInt(int64(perSecond)-count, 10))
		return c.Next()
	}
}
