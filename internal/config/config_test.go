package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Server config
	assert.Equal(t, "8600", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)

	// Session config
	assert.Equal(t, 0, cfg.Session.MaxSessions)
	assert.Equal(t, 2*time.Minute, cfg.Session.EvalTimeout)

	// Logging config
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Development)

	// Rate limit config
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, float64(100), cfg.RateLimit.RPS)
	assert.Equal(t, 200, cfg.RateLimit.Burst)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PAGEBRIDGE_PORT", "9100")
	t.Setenv("PAGEBRIDGE_LOG_LEVEL", "debug")
	t.Setenv("PAGEBRIDGE_MAX_SESSIONS", "8")
	t.Setenv("PAGEBRIDGE_EVAL_TIMEOUT", "30s")
	t.Setenv("PAGEBRIDGE_RATE_LIMIT_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9100", cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 8, cfg.Session.MaxSessions)
	assert.Equal(t, 30*time.Second, cfg.Session.EvalTimeout)
	assert.False(t, cfg.RateLimit.Enabled)
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Setenv("PAGEBRIDGE_MAX_SESSIONS", "-1")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadOrDefaultFallsBack(t *testing.T) {
	t.Setenv("PAGEBRIDGE_RATE_LIMIT_RPS", "not-a-number")

	cfg := LoadOrDefault()
	assert.Equal(t, Default(), cfg)
}

func TestAddr(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "0.0.0.0:8600", cfg.Server.Addr())
}
