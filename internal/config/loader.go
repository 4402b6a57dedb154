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
// built-in defaults, applies SORBOT_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known SORBOT_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// Router.
	setFloat64(&cfg.Router.CrossBps, "SORBOT_ROUTER_CROSS_BPS")
	setDuration(&cfg.Router.FillWait, "SORBOT_ROUTER_FILL_WAIT")
	setBool(&cfg.Router.FOKFirst, "SORBOT_ROUTER_FOK_FIRST")
	setDuration(&cfg.Router.VenueTimeout, "SORBOT_ROUTER_VENUE_TIMEOUT")
	setBool(&cfg.Router.DryRun, "SORBOT_ROUTER_DRY_RUN")
	setInt(&cfg.Router.OrdersPerMinute, "SORBOT_ROUTER_ORDERS_PER_MINUTE")
	setFloat64(&cfg.Router.DepthBps, "SORBOT_ROUTER_DEPTH_BPS")

	// Venues, keyed by upper-cased venue id: SORBOT_VENUE_GATEIO_API_KEY.
	for id, v := range cfg.Venues {
		prefix := "SORBOT_VENUE_" + strings.ToUpper(id) + "_"
		setBool(&v.Enabled, prefix+"ENABLED")
		setStr(&v.RestURL, prefix+"REST_URL")
		setStr(&v.WsURL, prefix+"WS_URL")
		setStr(&v.ApiKey, prefix+"API_KEY")
		setStr(&v.ApiSecret, prefix+"API_SECRET")
		setStr(&v.EncryptedSecretPath, prefix+"ENCRYPTED_SECRET_PATH")
		setStr(&v.SecretPassword, prefix+"SECRET_PASSWORD")
		setStr(&v.Passphrase, prefix+"PASSPHRASE")
		setFloat64(&v.TakerFeeBps, prefix+"TAKER_FEE_BPS")
		cfg.Venues[id] = v
	}

	// Arbitrage.
	setBool(&cfg.Arbitrage.Enabled, "SORBOT_ARBITRAGE_ENABLED")
	setFloat64(&cfg.Arbitrage.MinSpread, "SORBOT_ARBITRAGE_MIN_SPREAD")
	setDuration(&cfg.Arbitrage.ScanInterval, "SORBOT_ARBITRAGE_SCAN_INTERVAL")
	setStringSlice(&cfg.Arbitrage.Symbols, "SORBOT_ARBITRAGE_SYMBOLS")

	// Feed.
	setBool(&cfg.Feed.Enabled, "SORBOT_FEED_ENABLED")
	setStringSlice(&cfg.Feed.Symbols, "SORBOT_FEED_SYMBOLS")
	setDuration(&cfg.Feed.ReconnectDelay, "SORBOT_FEED_RECONNECT_DELAY")
	setDuration(&cfg.Feed.QuoteTTL, "SORBOT_FEED_QUOTE_TTL")

	// Postgres.
	setStr(&cfg.Postgres.DSN, "SORBOT_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "SORBOT_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "SORBOT_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "SORBOT_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "SORBOT_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "SORBOT_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "SORBOT_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "SORBOT_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "SORBOT_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "SORBOT_POSTGRES_RUN_MIGRATIONS")

	// Redis.
	setStr(&cfg.Redis.Addr, "SORBOT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "SORBOT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "SORBOT_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "SORBOT_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "SORBOT_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "SORBOT_REDIS_TLS_ENABLED")

	// S3.
	setStr(&cfg.S3.Endpoint, "SORBOT_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "SORBOT_S3_REGION")
	setStr(&cfg.S3.Bucket, "SORBOT_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "SORBOT_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "SORBOT_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "SORBOT_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "SORBOT_S3_FORCE_PATH_STYLE")

	// Archive.
	setBool(&cfg.Archive.Enabled, "SORBOT_ARCHIVE_ENABLED")
	setDuration(&cfg.Archive.Interval, "SORBOT_ARCHIVE_INTERVAL")
	setInt(&cfg.Archive.RetentionDays, "SORBOT_ARCHIVE_RETENTION_DAYS")

	// Server.
	setBool(&cfg.Server.Enabled, "SORBOT_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "SORBOT_SERVER_PORT")
	setStr(&cfg.Server.APIToken, "SORBOT_SERVER_API_TOKEN")
	setStringSlice(&cfg.Server.CORSOrigins, "SORBOT_SERVER_CORS_ORIGINS")
	setInt(&cfg.Server.RequestsPerMinute, "SORBOT_SERVER_REQUESTS_PER_MINUTE")

	// Notify.
	setStr(&cfg.Notify.TelegramToken, "SORBOT_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "SORBOT_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "SORBOT_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "SORBOT_NOTIFY_EVENTS")

	// Top level.
	setStr(&cfg.Mode, "SORBOT_MODE")
	setStr(&cfg.LogLevel, "SORBOT_LOG_LEVEL")
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
