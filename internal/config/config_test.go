package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_PORT", "")
	t.Setenv("SLA_CRITICAL_ACK_MINUTES", "")
	t.Setenv("SLA_CRITICAL_RESOLVE_MINUTES", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
	assert.Equal(t, SLAWindowMinutes{Ack: 15, Resolve: 240}, cfg.SLA.Critical)
	assert.Equal(t, SLAWindowMinutes{Ack: 240, Resolve: 4320}, cfg.SLA.Low)
	assert.Equal(t, 5, cfg.Engine.IDMaxAttempts)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SLA_HIGH_ACK_MINUTES", "10")
	t.Setenv("SLA_HIGH_RESOLVE_MINUTES", "120")
	t.Setenv("RISK_TIMEOUT_SECONDS", "2")
	t.Setenv("SWEEP_INTERVAL_SECONDS", "15")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, SLAWindowMinutes{Ack: 10, Resolve: 120}, cfg.SLA.High)
	assert.Equal(t, 2*time.Second, cfg.Risk.Timeout())
	assert.Equal(t, 15*time.Second, cfg.Sweep.Interval())
}

func TestLoadRejectsBadRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "zero")

	_, err := Load()
	assert.Error(t, err)
}

func TestNonPositiveDurationsDisable(t *testing.T) {
	assert.Zero(t, AppConfig{RequestTimeoutSeconds: 0}.RequestTimeout())
	assert.Zero(t, EngineConfig{StoreTimeoutSeconds: -1}.StoreTimeout())
}
