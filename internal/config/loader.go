package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies SNIPSWAP_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known SNIPSWAP_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "SNIPSWAP_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "SNIPSWAP_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "SNIPSWAP_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "SNIPSWAP_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "SNIPSWAP_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "SNIPSWAP_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "SNIPSWAP_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "SNIPSWAP_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "SNIPSWAP_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "SNIPSWAP_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "SNIPSWAP_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "SNIPSWAP_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "SNIPSWAP_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "SNIPSWAP_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "SNIPSWAP_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "SNIPSWAP_REDIS_TLS_ENABLED")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "SNIPSWAP_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "SNIPSWAP_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "SNIPSWAP_S3_REGION")
	setStr(&cfg.S3.Bucket, "SNIPSWAP_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "SNIPSWAP_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "SNIPSWAP_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "SNIPSWAP_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "SNIPSWAP_S3_FORCE_PATH_STYLE")

	// ── Engine ──
	setFloat64(&cfg.Engine.MakerFeeRate, "SNIPSWAP_ENGINE_MAKER_FEE_RATE")
	setFloat64(&cfg.Engine.TakerFeeRate, "SNIPSWAP_ENGINE_TAKER_FEE_RATE")
	setFloat64(&cfg.Engine.DefaultPoolFee, "SNIPSWAP_ENGINE_DEFAULT_POOL_FEE")

	// ── Bridge ──
	setDuration(&cfg.Bridge.Timeout, "SNIPSWAP_BRIDGE_TIMEOUT")

	// ── Jobs ──
	setDuration(&cfg.Jobs.ExpirySweepInterval, "SNIPSWAP_JOBS_EXPIRY_SWEEP_INTERVAL")
	setDuration(&cfg.Jobs.SessionCleanupInterval, "SNIPSWAP_JOBS_SESSION_CLEANUP_INTERVAL")
	setDuration(&cfg.Jobs.StatsRefreshInterval, "SNIPSWAP_JOBS_STATS_REFRESH_INTERVAL")
	setDuration(&cfg.Jobs.ArchiveInterval, "SNIPSWAP_JOBS_ARCHIVE_INTERVAL")
	setInt(&cfg.Jobs.ArchiveRetentionDays, "SNIPSWAP_JOBS_ARCHIVE_RETENTION_DAYS")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "SNIPSWAP_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "SNIPSWAP_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "SNIPSWAP_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.AdminKey, "SNIPSWAP_SERVER_ADMIN_KEY")
	setInt(&cfg.Server.RateLimit, "SNIPSWAP_SERVER_RATE_LIMIT")
	setDuration(&cfg.Server.RateWindow, "SNIPSWAP_SERVER_RATE_WINDOW")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "SNIPSWAP_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "SNIPSWAP_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "SNIPSWAP_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "SNIPSWAP_NOTIFY_EVENTS")
	setFloat64(&cfg.Notify.LargeTradeNotional, "SNIPSWAP_NOTIFY_LARGE_TRADE_NOTIONAL")
	setFloat64(&cfg.Notify.LowReserveQuote, "SNIPSWAP_NOTIFY_LOW_RESERVE_QUOTE")

	// ── Top-level ──
	setStr(&cfg.Mode, "SNIPSWAP_MODE")
	setStr(&cfg.LogLevel, "SNIPSWAP_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
