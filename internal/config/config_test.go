package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRequiresJWTSecret(t *testing.T) {
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jwt.secret")
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CIRCDESK_JWT_SECRET", "test-secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "release", cfg.Server.Mode)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 20, cfg.Database.MaxOpenConns)
	assert.Equal(t, 20, cfg.Catalog.SearchLimit)
	assert.Equal(t, 30, cfg.Catalog.LoanPeriodDays)
	assert.Equal(t, 30*24*time.Hour, cfg.Catalog.LoanPeriod())
	assert.Equal(t, "test-secret", cfg.JWT.Secret)
	assert.False(t, cfg.Redis.Enabled())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CIRCDESK_JWT_SECRET", "test-secret")
	t.Setenv("CIRCDESK_SERVER_ADDR", ":9090")
	t.Setenv("CIRCDESK_CATALOG_SEARCH_LIMIT", "5")
	t.Setenv("CIRCDESK_REDIS_ADDR", "localhost:6379")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 5, cfg.Catalog.SearchLimit)
	assert.True(t, cfg.Redis.Enabled())
}

func TestDatabaseDSN(t *testing.T) {
	d := DatabaseConfig{
		Host:     "db.example.com",
		Port:     5433,
		User:     "svc",
		Password: "hunter2",
		DBName:   "catalog",
		SSLMode:  "require",
	}
	assert.Equal(t,
		"host=db.example.com port=5433 user=svc password=hunter2 dbname=catalog sslmode=require",
		d.DSN())
}
