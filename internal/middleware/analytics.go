package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RequestIDHeader carries the per-request id
const RequestIDHeader = "X-Request-ID"

// RequestLogger logs every request with zap and adds timing headers.
// cacheLocal names the fiber local a handler sets to report a cache hit.
func RequestLogger(logger *zap.Logger, cacheLocal string) fiber.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *fiber.Ctx) error {
		start := time.Now()

		requestID := c.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(RequestIDHeader, requestID)

		err := c.Next()
		if err != nil {
			// Let the app error handler write the response so the status is final
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		responseTime := time.Since(start)

		cacheHit := false
		if val, ok := c.Locals(cacheLocal).(bool); ok {
			cacheHit = val
		}

		c.Set("X-Response-Time", responseTime.String())
		c.Set("X-Cache-Hit", boolToString(cacheHit))

		status := c.Response().StatusCode()
		fields := []zap.Field{
			zap.String("request_id", requestID),
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Duration("latency", responseTime),
			zap.Bool("cache_hit", cacheHit),
			zap.String("ip", c.IP()),
		}
		if status >= fiber.StatusInternalServerError {
			logger.Error("request", fields...)
		} else {
			logger.Info("request", fields...)
		}

		return nil
	}
}

func boolToString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
