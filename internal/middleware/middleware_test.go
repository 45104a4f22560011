package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryCounter struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func (m *memoryCounter) Incr(_ context.Context, key string, _ time.Duration) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counts == nil {
		m.counts = make(map[string]int64)
	}
	m.counts[key]++
	return m.counts[key], nil
}

func newLimitedApp(counter Counter, limit int) *fiber.App {
	app := fiber.New()
	app.Use(RateLimitMiddleware(counter, limit, nil))
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString("ok") })
	return app
}

func TestRateLimitMiddleware(t *testing.T) {
	tests := []struct {
		name      string
		counter   Counter
		limit     int
		requests  int
		wantLast  int
		wantCalls int
	}{
		{name: "under limit", counter: &memoryCounter{}, limit: 5, requests: 3, wantLast: http.StatusOK},
		{name: "over limit", counter: &memoryCounter{}, limit: 2, requests: 3, wantLast: http.StatusTooManyRequests},
		{name: "disabled by zero limit", counter: &memoryCounter{}, limit: 0, requests: 10, wantLast: http.StatusOK},
		{name: "disabled without counter", counter: nil, limit: 1, requests: 5, wantLast: http.StatusOK},
		{name: "counter failure passes through", counter: &memoryCounter{err: errors.New("down")}, limit: 1, requests: 3, wantLast: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newLimitedApp(tt.counter, tt.limit)

			var last *http.Response
			for i := 0; i < tt.requests; i++ {
				resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil), -1)
				require.NoError(t, err)
				last = resp
			}
			assert.Equal(t, tt.wantLast, last.StatusCode)
			if tt.wantLast == http.StatusTooManyRequests {
				assert.Equal(t, "1", last.Header.Get("Retry-After"))
			}
		})
	}
}

func TestRateLimitKey(t *testing.T) {
	assert.Equal(t, "rl:client:10.0.0.1:second:1700000000", RateLimitKey("10.0.0.1", 1700000000))
}

func TestRequestLogger(t *testing.T) {
	app := fiber.New()
	app.Use(RequestLogger(nil, "cache_hit"))
	app.Get("/hit", func(c *fiber.Ctx) error {
		c.Locals("cache_hit", true)
		return c.SendString("ok")
	})
	app.Get("/fail", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusBadRequest, "bad")
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/hit", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "true", resp.Header.Get("X-Cache-Hit"))
	assert.NotEmpty(t, resp.Header.Get("X-Response-Time"))
	assert.NotEmpty(t, resp.Header.Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/fail", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "false", resp.Header.Get("X-Cache-Hit"))
	assert.Equal(t, "abc-123", resp.Header.Get(RequestIDHeader))
}
