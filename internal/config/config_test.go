package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("MODEL_PATH", touch(t, dir, "model.json"))
	t.Setenv("FEATURES_PATH", touch(t, dir, "features.json"))
	t.Setenv("SERVICE_DATES_PATH", touch(t, dir, "service_dates.csv"))
	t.Setenv("REPAIRS_SOURCE", " CSV ")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("CACHE_TTL", "30s")
	t.Setenv("DB_HOST", "pg")
	t.Setenv("ENV", "production")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8000", cfg.Port)
	assert.Equal(t, 1000, cfg.MaxBatch)
	assert.Equal(t, RepairsCSV, cfg.RepairsSource)
	assert.False(t, cfg.IsDevelopment())

	cacheCfg := cfg.Cache()
	assert.Equal(t, "cache", cacheCfg.Host)
	assert.Equal(t, 6379, cacheCfg.Port)
	assert.Equal(t, 30*time.Second, cacheCfg.TTL)

	dbCfg := cfg.DB()
	assert.Equal(t, "pg", dbCfg.Host)
	assert.Equal(t, "wheelwear", dbCfg.Database)
	assert.Equal(t, int32(10), dbCfg.MaxConns)
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	model := touch(t, dir, "model.json")
	feats := touch(t, dir, "features.json")
	dates := touch(t, dir, "service_dates.csv")

	valid := func() Config {
		return Config{
			ModelPath:        model,
			FeaturesPath:     feats,
			ServiceDatesPath: dates,
			RepairsSource:    RepairsCSV,
			MaxBatch:         1000,
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "missing model", mutate: func(c *Config) { c.ModelPath = filepath.Join(dir, "nope.json") }, wantErr: "MODEL_PATH"},
		{name: "missing features", mutate: func(c *Config) { c.FeaturesPath = "" }, wantErr: "FEATURES_PATH"},
		{name: "missing service dates", mutate: func(c *Config) { c.ServiceDatesPath = filepath.Join(dir, "x.csv") }, wantErr: "SERVICE_DATES_PATH"},
		{name: "model is a directory", mutate: func(c *Config) { c.ModelPath = dir }, wantErr: "directory"},
		{name: "postgres without host", mutate: func(c *Config) { c.RepairsSource = RepairsPostgres }, wantErr: "DB_HOST"},
		{name: "postgres ignores service dates", mutate: func(c *Config) {
			c.RepairsSource = RepairsPostgres
			c.ServiceDatesPath = ""
			c.Database.Host = "pg"
		}},
		{name: "unknown source", mutate: func(c *Config) { c.RepairsSource = "s3" }, wantErr: "REPAIRS_SOURCE"},
		{name: "zero batch", mutate: func(c *Config) { c.MaxBatch = 0 }, wantErr: "MAX_BATCH"},
		{name: "negative rate limit", mutate: func(c *Config) { c.RateLimitPerSecond = -1 }, wantErr: "RATE_LIMIT_PER_SECOND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadDatabase(t *testing.T) {
	t.Setenv("DB_HOST", "pg.internal")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("DB_NAME", "wear")

	cfg, err := LoadDatabase()
	require.NoError(t, err)
	assert.True(t, cfg.Enabled())
	assert.Equal(t, 6543, cfg.Port)
	assert.Equal(t, "wear", cfg.Database)
	assert.Equal(t, "disable", cfg.SSLMode)
}
