package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRequiresJWTSecret(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "")

	_, err := Load()

	assert.ErrorIs(t, err, ErrMissingJWTSecret)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "secret")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("PUBLIC_BASE_URL", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "http://localhost:9090", cfg.Storage.PublicBaseURL)
	assert.Equal(t, int64(5<<20), cfg.Storage.MaxFileSize)
	assert.Equal(t, 30*time.Second, cfg.Storage.Timeout)
	assert.Equal(t, 5*time.Second, cfg.Geocode.Timeout)
	assert.Equal(t, 3, cfg.Notify.MaxAttempts)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "secret")
	t.Setenv("GEOCODE_URL", "http://geo.local/")
	t.Setenv("GEOCODE_TIMEOUT", "250ms")
	t.Setenv("NOTIFY_QUEUE_SIZE", "8")
	t.Setenv("DATABASE_QUERY_TIMEOUT", "not-a-duration")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("STORAGE_TIMEOUT", "2s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://geo.local", cfg.Geocode.URL)
	assert.Equal(t, 250*time.Millisecond, cfg.Geocode.Timeout)
	assert.Equal(t, 8, cfg.Notify.QueueSize)
	assert.Equal(t, 5*time.Second, cfg.Database.QueryTimeout)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, 2*time.Second, cfg.Storage.Timeout)
}

func TestLoadDatabaseNeedsNoSecret(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/x")
	t.Setenv("DATABASE_MAX_OPEN_CONNS", "7")

	cfg := LoadDatabase()

	assert.Equal(t, "postgres://u:p@db:5432/x", cfg.URL)
	assert.Equal(t, 7, cfg.MaxOpenConns)
	assert.Equal(t, 5*time.Minute, cfg.ConnMaxLifetime)
}
