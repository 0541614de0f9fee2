// Package config defines the top-level configuration for the exchange daemon
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by SNIPSWAP_* environment
// variables.
type Config struct {
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Engine   EngineConfig   `toml:"engine"`
	Bridge   BridgeConfig   `toml:"bridge"`
	Jobs     JobsConfig     `toml:"jobs"`
	Server   ServerConfig   `toml:"server"`
	Notify   NotifyConfig   `toml:"notify"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// PostgresConfig holds PostgreSQL connection parameters. When DSN is set it
// takes precedence over the discrete fields.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for the trade
// archive. Disabled when Enabled is false.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// EngineConfig holds matching and AMM fee parameters. Rates are fractions,
// not percentages: 0.001 is 0.1%.
type EngineConfig struct {
	MakerFeeRate   float64 `toml:"maker_fee_rate"`
	TakerFeeRate   float64 `toml:"taker_fee_rate"`
	DefaultPoolFee float64 `toml:"default_pool_fee"`
}

// BridgeConfig maps target chain names to relay endpoints. An order tagged
// with a chain absent from Endpoints settles locally only.
type BridgeConfig struct {
	Endpoints map[string]string `toml:"endpoints"`
	Timeout   duration          `toml:"timeout"`
}

// JobsConfig holds intervals for the background maintenance loops.
type JobsConfig struct {
	ExpirySweepInterval    duration `toml:"expiry_sweep_interval"`
	SessionCleanupInterval duration `toml:"session_cleanup_interval"`
	StatsRefreshInterval   duration `toml:"stats_refresh_interval"`
	ArchiveInterval        duration `toml:"archive_interval"`
	ArchiveRetentionDays   int      `toml:"archive_retention_days"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	AdminKey    string   `toml:"admin_key"`
	RateLimit   int      `toml:"rate_limit"`
	RateWindow  duration `toml:"rate_window"`
}

// NotifyConfig holds notification channel credentials and alert thresholds.
type NotifyConfig struct {
	TelegramToken      string   `toml:"telegram_token"`
	TelegramChatID     string   `toml:"telegram_chat_id"`
	DiscordWebhookURL  string   `toml:"discord_webhook_url"`
	Events             []string `toml:"events"`
	LargeTradeNotional float64  `toml:"large_trade_notional"`
	LowReserveQuote    float64  `toml:"low_reserve_quote"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "snipswap",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		S3: S3Config{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "snipswap-archive",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Engine: EngineConfig{
			MakerFeeRate:   0.001,
			TakerFeeRate:   0.0015,
			DefaultPoolFee: 0.003,
		},
		Bridge: BridgeConfig{
			Endpoints: map[string]string{},
			Timeout:   duration{10 * time.Second},
		},
		Jobs: JobsConfig{
			ExpirySweepInterval:    duration{30 * time.Second},
			SessionCleanupInterval: duration{10 * time.Minute},
			StatsRefreshInterval:   duration{time.Minute},
			ArchiveInterval:        duration{24 * time.Hour},
			ArchiveRetentionDays:   30,
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
			RateLimit:   120,
			RateWindow:  duration{time.Minute},
		},
		Notify: NotifyConfig{
			Events:             []string{"large_trade", "pool_drained", "bridge_failure", "error"},
			LargeTradeNotional: 100000,
			LowReserveQuote:    100,
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode. "server" runs
// only the HTTP/WebSocket front, "worker" only the background jobs, "full"
// runs both.
var validModes = map[string]bool{
	"server": true,
	"worker": true,
	"full":   true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: server, worker, full)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Postgres
	if strings.TrimSpace(c.Postgres.DSN) == "" {
		if c.Postgres.Host == "" {
			errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
		}
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
		}
		if c.Postgres.Database == "" {
			errs = append(errs, "postgres: database must not be empty")
		}
	}
	if c.Postgres.PoolMaxConns < 1 {
		errs = append(errs, "postgres: pool_max_conns must be >= 1")
	}
	if c.Postgres.PoolMinConns < 0 {
		errs = append(errs, "postgres: pool_min_conns must be >= 0")
	}
	if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
		errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
	}

	// Redis
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// S3 (only when the archiver is enabled)
	if c.S3.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty when enabled")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when enabled")
		}
	}

	// Engine fees
	if c.Engine.MakerFeeRate < 0 || c.Engine.MakerFeeRate >= 1 {
		errs = append(errs, fmt.Sprintf("engine: maker_fee_rate must be in [0, 1), got %g", c.Engine.MakerFeeRate))
	}
	if c.Engine.TakerFeeRate < 0 || c.Engine.TakerFeeRate >= 1 {
		errs = append(errs, fmt.Sprintf("engine: taker_fee_rate must be in [0, 1), got %g", c.Engine.TakerFeeRate))
	}
	if c.Engine.DefaultPoolFee < 0 || c.Engine.DefaultPoolFee >= 1 {
		errs = append(errs, fmt.Sprintf("engine: default_pool_fee must be in [0, 1), got %g", c.Engine.DefaultPoolFee))
	}

	// Jobs
	if c.Jobs.ExpirySweepInterval.Duration <= 0 {
		errs = append(errs, "jobs: expiry_sweep_interval must be positive")
	}
	if c.Jobs.SessionCleanupInterval.Duration <= 0 {
		errs = append(errs, "jobs: session_cleanup_interval must be positive")
	}
	if c.Jobs.StatsRefreshInterval.Duration <= 0 {
		errs = append(errs, "jobs: stats_refresh_interval must be positive")
	}
	if c.S3.Enabled && c.Jobs.ArchiveRetentionDays < 1 {
		errs = append(errs, "jobs: archive_retention_days must be >= 1 when s3 is enabled")
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
		if c.Server.RateLimit > 0 && c.Server.RateWindow.Duration <= 0 {
			errs = append(errs, "server: rate_window must be positive when rate_limit is set")
		}
	}

	// Telegram credentials must be set together.
	tt := c.Notify.TelegramToken != ""
	tc := c.Notify.TelegramChatID != ""
	if tt != tc {
		errs = append(errs, "notify: telegram_token and telegram_chat_id must be set together")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
