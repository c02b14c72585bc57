package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load decodes the TOML file at path over Defaults and applies WINDOWBOT_*
// overrides. An empty path skips the file. The result is not validated.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
	}

	// .env is optional.
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides overwrites Config fields from WINDOWBOT_* variables that
// are set and non-empty.
func applyEnvOverrides(cfg *Config) {
	// ── Polymarket ──
	setStr(&cfg.Polymarket.GammaHost, "WINDOWBOT_POLYMARKET_GAMMA_HOST")
	setDuration(&cfg.Polymarket.Timeout, "WINDOWBOT_POLYMARKET_TIMEOUT")

	// ── Window ──
	setStr(&cfg.Window.SlugPrefix, "WINDOWBOT_WINDOW_SLUG_PREFIX")
	setDuration(&cfg.Window.Duration, "WINDOWBOT_WINDOW_DURATION")
	setDuration(&cfg.Window.SettlementDelay, "WINDOWBOT_WINDOW_SETTLEMENT_DELAY")
	setDuration(&cfg.Window.TickInterval, "WINDOWBOT_WINDOW_TICK_INTERVAL")
	setStringSlice(&cfg.Window.Records, "WINDOWBOT_WINDOW_RECORDS")

	// ── Supabase ──
	setBool(&cfg.Supabase.Enabled, "WINDOWBOT_SUPABASE_ENABLED")
	setStr(&cfg.Supabase.DSN, "WINDOWBOT_SUPABASE_DSN")
	setStr(&cfg.Supabase.DSN, "WINDOWBOT_SUPABASE_URL") // compatibility alias
	setStr(&cfg.Supabase.Host, "WINDOWBOT_SUPABASE_HOST")
	setInt(&cfg.Supabase.Port, "WINDOWBOT_SUPABASE_PORT")
	setStr(&cfg.Supabase.Database, "WINDOWBOT_SUPABASE_DATABASE")
	setStr(&cfg.Supabase.User, "WINDOWBOT_SUPABASE_USER")
	setStr(&cfg.Supabase.Password, "WINDOWBOT_SUPABASE_PASSWORD")
	setStr(&cfg.Supabase.SSLMode, "WINDOWBOT_SUPABASE_SSL_MODE")
	setInt(&cfg.Supabase.PoolMaxConns, "WINDOWBOT_SUPABASE_POOL_MAX_CONNS")
	setInt(&cfg.Supabase.PoolMinConns, "WINDOWBOT_SUPABASE_POOL_MIN_CONNS")
	setBool(&cfg.Supabase.RunMigrations, "WINDOWBOT_SUPABASE_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "WINDOWBOT_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "WINDOWBOT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "WINDOWBOT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "WINDOWBOT_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "WINDOWBOT_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "WINDOWBOT_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "WINDOWBOT_REDIS_TLS_ENABLED")
	setStr(&cfg.Redis.KeyPrefix, "WINDOWBOT_REDIS_KEY_PREFIX")
	setDuration(&cfg.Redis.MarketTTL, "WINDOWBOT_REDIS_MARKET_TTL")
	setInt64(&cfg.Redis.StreamMaxLen, "WINDOWBOT_REDIS_STREAM_MAX_LEN")
	setDuration(&cfg.Redis.LockTTL, "WINDOWBOT_REDIS_LOCK_TTL")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "WINDOWBOT_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "WINDOWBOT_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "WINDOWBOT_S3_REGION")
	setStr(&cfg.S3.Bucket, "WINDOWBOT_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "WINDOWBOT_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "WINDOWBOT_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "WINDOWBOT_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "WINDOWBOT_S3_FORCE_PATH_STYLE")
	setDuration(&cfg.S3.RollupInterval, "WINDOWBOT_S3_ROLLUP_INTERVAL")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "WINDOWBOT_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "WINDOWBOT_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "WINDOWBOT_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "WINDOWBOT_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimit, "WINDOWBOT_SERVER_RATE_LIMIT")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "WINDOWBOT_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "WINDOWBOT_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "WINDOWBOT_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "WINDOWBOT_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "WINDOWBOT_MODE")
	setStr(&cfg.LogLevel, "WINDOWBOT_LOG_LEVEL")
}

// Typed env-var helpers; each leaves dst alone when the variable is unset.

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

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
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
