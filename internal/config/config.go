package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	"github.com/locowear/wheelwear/internal/cache"
	"github.com/locowear/wheelwear/internal/db"
)

// Repair history sources
const (
	RepairsCSV      = "csv"
	RepairsPostgres = "postgres"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds the prediction server configuration. Every field comes from
// the environment, optionally seeded from a .env file.
type Config struct {
	Port     string `env:"PORT" env-default:"8000"`
	Env      string `env:"ENV" env-default:"production"`
	LogLevel string `env:"LOG_LEVEL" env-default:"info"`

	ModelPath        string `env:"MODEL_PATH" env-default:"models/model.json"`
	FeaturesPath     string `env:"FEATURES_PATH" env-default:"models/features.json"`
	ServiceDatesPath string `env:"SERVICE_DATES_PATH" env-default:"data/service_dates.csv"`
	RepairsSource    string `env:"REPAIRS_SOURCE" env-default:"csv"`
	ModelVersion     string `env:"MODEL_VERSION" env-default:"1.0.0"`
	MaxBatch         int    `env:"MAX_BATCH" env-default:"1000"`

	RateLimitPerSecond int `env:"RATE_LIMIT_PER_SECOND" env-default:"0"`

	Database DatabaseConfig
	Redis    RedisConfig
}

// DatabaseConfig holds PostgreSQL settings; an empty host disables the store
type DatabaseConfig struct {
	Host     string `env:"DB_HOST" env-default:""`
	Port     int    `env:"DB_PORT" env-default:"5432"`
	Name     string `env:"DB_NAME" env-default:"wheelwear"`
	User     string `env:"DB_USER" env-default:"postgres"`
	Password string `env:"DB_PASSWORD"`
	SSLMode  string `env:"DB_SSLMODE" env-default:"disable"`
	MinConns int32  `env:"DB_MIN_CONNS" env-default:"2"`
	MaxConns int32  `env:"DB_MAX_CONNS" env-default:"10"`
}

// RedisConfig holds cache settings; an empty host disables caching and rate limiting
type RedisConfig struct {
	Host       string        `env:"REDIS_HOST" env-default:""`
	Port       int           `env:"REDIS_PORT" env-default:"6379"`
	Password   string        `env:"REDIS_PASSWORD"`
	DB         int           `env:"REDIS_DB" env-default:"0"`
	TLSEnabled bool          `env:"REDIS_TLS_ENABLED" env-default:"false"`
	TTL        time.Duration `env:"CACHE_TTL" env-default:"10m"`
}

// Load reads .env if present, then the environment
func Load() (*Config, error) {
	// A missing .env is normal outside development
	_ = godotenv.Load()

	cfg := &Config{}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	cfg.RepairsSource = strings.ToLower(strings.TrimSpace(cfg.RepairsSource))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that required artifacts exist and settings are coherent
func (c *Config) Validate() error {
	if err := fileExists("MODEL_PATH", c.ModelPath); err != nil {
		return err
	}
	if err := fileExists("FEATURES_PATH", c.FeaturesPath); err != nil {
		return err
	}

	switch c.RepairsSource {
	case RepairsCSV:
		if err := fileExists("SERVICE_DATES_PATH", c.ServiceDatesPath); err != nil {
			return err
		}
	case RepairsPostgres:
		if c.Database.Host == "" {
			return fmt.Errorf("%w: REPAIRS_SOURCE=postgres requires DB_HOST", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown REPAIRS_SOURCE %q", ErrInvalidConfig, c.RepairsSource)
	}

	if c.MaxBatch <= 0 {
		return fmt.Errorf("%w: MAX_BATCH must be positive", ErrInvalidConfig)
	}
	if c.RateLimitPerSecond < 0 {
		return fmt.Errorf("%w: RATE_LIMIT_PER_SECOND must not be negative", ErrInvalidConfig)
	}
	return nil
}

// IsDevelopment reports whether ENV selects development mode
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Env, "development")
}

// DB converts to the pool configuration
func (c *Config) DB() db.Config {
	return db.Config{
		Host:     c.Database.Host,
		Port:     c.Database.Port,
		Database: c.Database.Name,
		User:     c.Database.User,
		Password: c.Database.Password,
		SSLMode:  c.Database.SSLMode,
		MinConns: c.Database.MinConns,
		MaxConns: c.Database.MaxConns,
	}
}

// Cache converts to the Redis client configuration
func (c *Config) Cache() cache.Config {
	return cache.Config{
		Host:       c.Redis.Host,
		Port:       c.Redis.Port,
		Password:   c.Redis.Password,
		DB:         c.Redis.DB,
		TLSEnabled: c.Redis.TLSEnabled,
		TTL:        c.Redis.TTL,
	}
}

func fileExists(name, path string) error {
	if path == "" {
		return fmt.Errorf("%w: %s is empty", ErrInvalidConfig, name)
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, name, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s points to a directory: %s", ErrInvalidConfig, name, path)
	}
	return nil
}

// LoadDatabase reads only the database settings, for tools that do not
// serve predictions
func LoadDatabase() (db.Config, error) {
	_ = godotenv.Load()

	var dbc DatabaseConfig
	if err := cleanenv.ReadEnv(&dbc); err != nil {
		return db.Config{}, fmt.Errorf("failed to read environment: %w", err)
	}
	return (&Config{Database: dbc}).DB(), nil
}
