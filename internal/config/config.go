// Package config loads runtime configuration from HOOKLINE_* environment
// variables.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds settings shared by the hub, the hook gateway, and the CLI.
type Config struct {
	// DBPath is the libsql database file. The file and its parent
	// directory are created on first use.
	DBPath string `env:"HOOKLINE_DB_PATH" envDefault:"hookline.db"`

	// ListenAddr is the hub's HTTP bind address.
	ListenAddr string `env:"HOOKLINE_LISTEN_ADDR" envDefault:"127.0.0.1:8787"`

	// BacklogLimit caps how many recent events list endpoints return by
	// default.
	BacklogLimit int `env:"HOOKLINE_BACKLOG_LIMIT" envDefault:"100"`

	// WebSocketEnabled gates the /ws streaming endpoint.
	WebSocketEnabled bool `env:"HOOKLINE_WEBSOCKET_ENABLED" envDefault:"true"`

	// QueueCapacity bounds each subscriber's pending event queue.
	QueueCapacity int `env:"HOOKLINE_QUEUE_CAPACITY" envDefault:"200"`

	// PingInterval is the cadence of keepalive pings on idle websocket
	// connections.
	PingInterval time.Duration `env:"HOOKLINE_PING_INTERVAL" envDefault:"30s"`

	// BridgeURL is the hub base URL the hook gateway notifies after a
	// commit. Empty disables live delivery.
	BridgeURL string `env:"HOOKLINE_BRIDGE_URL" envDefault:"http://127.0.0.1:8787"`

	// BridgeTimeout bounds the gateway's notify round trip.
	BridgeTimeout time.Duration `env:"HOOKLINE_BRIDGE_TIMEOUT" envDefault:"50ms"`

	// PolicyRulesPath points at the JSON deny rule file. A missing file
	// means no rules.
	PolicyRulesPath string `env:"HOOKLINE_POLICY_RULES" envDefault:""`

	// RetentionDays prunes events older than this many days. Zero keeps
	// everything.
	RetentionDays int `env:"HOOKLINE_RETENTION_DAYS" envDefault:"0"`

	// RetentionSchedule is a cron expression for the prune job.
	RetentionSchedule string `env:"HOOKLINE_RETENTION_SCHEDULE" envDefault:"0 3 * * *"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `env:"HOOKLINE_LOG_LEVEL" envDefault:"info"`
}

// Load reads configuration from the environment and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects values that would misbehave at runtime.
func (c Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("HOOKLINE_DB_PATH must not be empty")
	}
	if c.BacklogLimit <= 0 {
		return fmt.Errorf("HOOKLINE_BACKLOG_LIMIT must be positive, got %d", c.BacklogLimit)
	}
	if c.QueueCapacity <= 0 {
		return fmt.Errorf("HOOKLINE_QUEUE_CAPACITY must be positive, got %d", c.QueueCapacity)
	}
	if c.BridgeTimeout < 0 {
		return fmt.Errorf("HOOKLINE_BRIDGE_TIMEOUT must not be negative, got %s", c.BridgeTimeout)
	}
	if c.RetentionDays < 0 {
		return fmt.Errorf("HOOKLINE_RETENTION_DAYS must not be negative, got %d", c.RetentionDays)
	}
	return nil
}

// RetentionEnabled reports whether the prune job should run.
func (c Config) RetentionEnabled() bool {
	return c.RetentionDays > 0
}

// RetentionHorizon converts RetentionDays to a duration.
func (c Config) RetentionHorizon() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}
