package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigConnString(t *testing.T) {
	cfg := Config{Host: "db", Port: 5432, Database: "wheelwear", User: "app", Password: "secret", SSLMode: "disable"}

	assert.True(t, cfg.Enabled())
	assert.Equal(t, "host=db port=5432 dbname=wheelwear user=app password=secret sslmode=disable", cfg.ConnString())
	assert.False(t, Config{}.Enabled())
}

func TestHealthCheckWithoutPool(t *testing.T) {
	assert.Error(t, HealthCheck(context.Background(), nil))
}
