package cache

import (
	"context"
	"crypto/sha256"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/locowear/wheelwear/internal/features"
)

// Config holds Redis configuration
type Config struct {
	Host       string
	Port       int
	Password   string
	DB         int
	TLSEnabled bool
	TTL        time.Duration
}

// Client caches prediction batches in Redis
type Client struct {
	rdb *redis.Client
	ttl time.Duration
}

// New connects to Redis. It returns nil, nil when no host is configured.
func New(ctx context.Context, config Config) (*Client, error) {
	if config.Host == "" {
		return nil, nil
	}
	if config.TTL <= 0 {
		config.TTL = 10 * time.Minute
	}

	opts := &redis.Options{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Password:     config.Password,
		DB:           config.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	}

	// Managed Redis offerings require TLS
	if config.TLSEnabled {
		opts.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Client{rdb: rdb, ttl: config.TTL}, nil
}

// Redis exposes the underlying client for the rate limiter
func (c *Client) Redis() *redis.Client {
	if c == nil {
		return nil
	}
	return c.rdb
}

// Close closes the Redis client
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	return c.rdb.Close()
}

// PredictionKey derives a deterministic key from the prepared vectors
func PredictionKey(vectors []features.Vector) string {
	var b strings.Builder
	for i, v := range vectors {
		if i == 0 {
			b.WriteString(strings.Join(v.Columns, ","))
			b.WriteByte('\n')
		}
		b.WriteString(strings.Join(v.Strings(), ","))
		b.WriteByte('\n')
	}
	hash := sha256.Sum256([]byte(b.String()))
	return fmt.Sprintf("predict:%x:%d", hash[:12], len(vectors))
}

// GetPredictions returns a cached batch; ok is false on a miss
func (c *Client) GetPredictions(ctx context.Context, vectors []features.Vector) ([]float64, bool, error) {
	data, err := c.rdb.Get(ctx, PredictionKey(vectors)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var predictions []float64
	if err := json.Unmarshal(data, &predictions); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal cached predictions: %w", err)
	}

	return predictions, true, nil
}

// SetPredictions caches a batch for the configured TTL
func (c *Client) SetPredictions(ctx context.Context, vectors []features.Vector, predictions []float64) error {
	data, err := json.Marshal(predictions)
	if err != nil {
		return fmt.Errorf("failed to marshal predictions: %w", err)
	}

	return c.rdb.Set(ctx, PredictionKey(vectors), data, c.ttl).Err()
}

// HealthCheck performs a health check on the Redis connection
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Stats returns connection pool counters
func (c *Client) Stats() map[string]interface{} {
	poolStats := c.rdb.PoolStats()

	return map[string]interface{}{
		"hits":        poolStats.Hits,
		"misses":      poolStats.Misses,
		"timeouts":    poolStats.Timeouts,
		"total_conns": poolStats.TotalConns,
		"idle_conns":  poolStats.IdleConns,
		"stale_conns": poolStats.StaleConns,
	}
}
