package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "hookline.db", cfg.DBPath)
	assert.Equal(t, "127.0.0.1:8787", cfg.ListenAddr)
	assert.Equal(t, 100, cfg.BacklogLimit)
	assert.True(t, cfg.WebSocketEnabled)
	assert.Equal(t, 200, cfg.QueueCapacity)
	assert.Equal(t, 30*time.Second, cfg.PingInterval)
	assert.Equal(t, 50*time.Millisecond, cfg.BridgeTimeout)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.RetentionEnabled())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("HOOKLINE_DB_PATH", "/tmp/custom.db")
	t.Setenv("HOOKLINE_LISTEN_ADDR", "0.0.0.0:9999")
	t.Setenv("HOOKLINE_WEBSOCKET_ENABLED", "false")
	t.Setenv("HOOKLINE_RETENTION_DAYS", "14")
	t.Setenv("HOOKLINE_BRIDGE_TIMEOUT", "250ms")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/custom.db", cfg.DBPath)
	assert.Equal(t, "0.0.0.0:9999", cfg.ListenAddr)
	assert.False(t, cfg.WebSocketEnabled)
	assert.Equal(t, 14, cfg.RetentionDays)
	assert.Equal(t, 250*time.Millisecond, cfg.BridgeTimeout)
	assert.True(t, cfg.RetentionEnabled())
	assert.Equal(t, 14*24*time.Hour, cfg.RetentionHorizon())
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Setenv("HOOKLINE_BRIDGE_TIMEOUT", "soon")

	_, err := Load()
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"empty db path", func(c *Config) { c.DBPath = "" }, "HOOKLINE_DB_PATH"},
		{"zero backlog", func(c *Config) { c.BacklogLimit = 0 }, "HOOKLINE_BACKLOG_LIMIT"},
		{"negative queue", func(c *Config) { c.QueueCapacity = -1 }, "HOOKLINE_QUEUE_CAPACITY"},
		{"negative retention", func(c *Config) { c.RetentionDays = -3 }, "HOOKLINE_RETENTION_DAYS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load()
			require.NoError(t, err)
			tt.mutate(&cfg)

			err = cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
