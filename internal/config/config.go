// Package config defines the top-level configuration for the smart order
// router and provides validation helpers.
package config

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/alanyoungcy/sorbot/internal/domain"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by SORBOT_* environment variables.
type Config struct {
	Router     RouterConfig           `toml:"router"`
	Venues     map[string]VenueConfig `toml:"venues"`
	VenueOrder []string               `toml:"venue_order"`
	Arbitrage  ArbitrageConfig        `toml:"arbitrage"`
	Feed       FeedConfig             `toml:"feed"`
	Postgres   PostgresConfig         `toml:"postgres"`
	Redis      RedisConfig            `toml:"redis"`
	S3         S3Config               `toml:"s3"`
	Archive    ArchiveConfig          `toml:"archive"`
	Server     ServerConfig           `toml:"server"`
	Notify     NotifyConfig           `toml:"notify"`
	Mode       string                 `toml:"mode"`
	LogLevel   string                 `toml:"log_level"`
}

// RouterConfig tunes the execution engine and quote aggregation.
type RouterConfig struct {
	// CrossBps is how far a marketable limit crosses the guard price.
	CrossBps float64 `toml:"cross_bps"`
	// FillWait is the pause between submission and the status fetch.
	FillWait duration `toml:"fill_wait"`
	// FOKFirst prepends Fill-Or-Kill to the time-in-force chain.
	FOKFirst bool `toml:"fok_first"`
	// VenueTimeout bounds each venue call and each per-venue execution.
	VenueTimeout duration `toml:"venue_timeout"`
	// DryRun routes orders through the paper simulator instead of the
	// venues' trading endpoints. Market data stays live.
	DryRun bool `toml:"dry_run"`
	// OrdersPerMinute caps accepted order intents; 0 disables the limit.
	OrdersPerMinute int `toml:"orders_per_minute"`
	// DepthBps is the default basis-point budget for depth queries.
	DepthBps float64 `toml:"depth_bps"`
}

// VenueConfig holds one venue's connection parameters and trading limits.
type VenueConfig struct {
	Enabled    bool   `toml:"enabled"`
	Convention string `toml:"convention"` // slash, dash, concat, concat_upper
	RestURL    string `toml:"rest_url"`
	WsURL      string `toml:"ws_url"`

	ApiKey              string `toml:"api_key"`
	ApiSecret           string `toml:"api_secret"`
	EncryptedSecretPath string `toml:"encrypted_secret_path"`
	SecretPassword      string `toml:"secret_password"`

	// RequiresPassphrase marks venues whose private API needs a passphrase
	// alongside the key/secret pair (kucoin, bitget).
	RequiresPassphrase bool   `toml:"requires_passphrase"`
	Passphrase         string `toml:"passphrase"`

	TakerFeeBps     float64 `toml:"taker_fee_bps"`
	MinOrderSize    float64 `toml:"min_order_size"`
	MaxOrderSize    float64 `toml:"max_order_size"`
	PricePrecision  int     `toml:"price_precision"`
	AmountPrecision int     `toml:"amount_precision"`
}

// Profile converts the venue section into the runtime profile.
func (v VenueConfig) Profile(id string) domain.VenueProfile {
	return domain.VenueProfile{
		ID:              id,
		Convention:      domain.SymbolConvention(v.Convention),
		TakerFeeBps:     v.TakerFeeBps,
		MinOrderSize:    v.MinOrderSize,
		MaxOrderSize:    v.MaxOrderSize,
		PricePrecision:  v.PricePrecision,
		AmountPrecision: v.AmountPrecision,
		RESTBaseURL:     v.RestURL,
		WSURL:           v.WsURL,

		RequiresPassphrase: v.RequiresPassphrase,
		Enabled:            v.Enabled,
	}
}

// ArbitrageConfig tunes the cross-venue scanner.
type ArbitrageConfig struct {
	Enabled bool `toml:"enabled"`
	// MinSpread is the minimum profitable spread as a fraction
	// (0.001 = 10 bps).
	MinSpread    float64  `toml:"min_spread"`
	ScanInterval duration `toml:"scan_interval"`
	Symbols      []string `toml:"symbols"`
}

// FeedConfig tunes the websocket ticker feeds.
type FeedConfig struct {
	Enabled        bool     `toml:"enabled"`
	Symbols        []string `toml:"symbols"`
	ReconnectDelay duration `toml:"reconnect_delay"`
	QuoteTTL       duration `toml:"quote_ttl"`
}

// PostgresConfig holds PostgreSQL connection parameters.
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

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ArchiveConfig tunes the cold-storage archiver.
type ArchiveConfig struct {
	Enabled       bool     `toml:"enabled"`
	Interval      duration `toml:"interval"`
	RetentionDays int      `toml:"retention_days"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	APIToken    string   `toml:"api_token"`
	CORSOrigins []string `toml:"cors_origins"`
	// RequestsPerMinute caps API requests per client IP; 0 disables it.
	RequestsPerMinute int `toml:"requests_per_minute"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
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
		Router: RouterConfig{
			CrossBps:        3.0,
			FillWait:        duration{350 * time.Millisecond},
			FOKFirst:        true,
			VenueTimeout:    duration{10 * time.Second},
			DryRun:          true,
			OrdersPerMinute: 60,
			DepthBps:        20,
		},
		Venues: map[string]VenueConfig{
			"gateio": {
				Enabled:         true,
				Convention:      "slash",
				RestURL:         "https://api.gateio.ws",
				WsURL:           "wss://api.gateio.ws/ws/v4/",
				TakerFeeBps:     20,
				MinOrderSize:    0.0001,
				PricePrecision:  6,
				AmountPrecision: 6,
			},
			"mexc": {
				Enabled:         true,
				Convention:      "concat_upper",
				RestURL:         "https://api.mexc.com",
				WsURL:           "wss://wbs-api.mexc.com/ws",
				TakerFeeBps:     10,
				MinOrderSize:    0.0001,
				PricePrecision:  6,
				AmountPrecision: 6,
			},
			// Profiles without a client implementation yet. They stay
			// disabled until one exists; enabling them fails at wiring.
			"kucoin": {
				Convention:         "dash",
				RestURL:            "https://api.kucoin.com",
				TakerFeeBps:        10,
				RequiresPassphrase: true,
			},
			"bitget": {
				Convention:         "concat_upper",
				RestURL:            "https://api.bitget.com",
				TakerFeeBps:        10,
				RequiresPassphrase: true,
			},
			"bitmart": {
				Convention:  "concat_upper",
				RestURL:     "https://api-cloud.bitmart.com",
				TakerFeeBps: 25,
			},
		},
		VenueOrder: []string{"gateio", "mexc"},
		Arbitrage: ArbitrageConfig{
			Enabled:      true,
			MinSpread:    0.001,
			ScanInterval: duration{5 * time.Second},
			Symbols:      []string{"BTC/USDT", "ETH/USDT"},
		},
		Feed: FeedConfig{
			Enabled:        false,
			Symbols:        []string{"BTC/USDT"},
			ReconnectDelay: duration{3 * time.Second},
			QuoteTTL:       duration{5 * time.Second},
		},
		Postgres: PostgresConfig{
			DSN:           "",
			Host:          "localhost",
			Port:          5432,
			Database:      "sorbot",
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
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "sorbot-data",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Archive: ArchiveConfig{
			Enabled:       false,
			Interval:      duration{6 * time.Hour},
			RetentionDays: 90,
		},
		Server: ServerConfig{
			Enabled:           true,
			Port:              8000,
			CORSOrigins:       []string{"http://localhost:3000", "http://localhost:5173"},
			RequestsPerMinute: 240,
		},
		Notify: NotifyConfig{
			Events: []string{"arb_detected", "order_filled", "order_failed", "error"},
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"server":  true,
	"monitor": true,
	"full":    true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validConventions = map[string]bool{
	"slash":        true,
	"dash":         true,
	"concat":       true,
	"concat_upper": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: server, monitor, full)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Router
	if c.Router.CrossBps < 0 {
		errs = append(errs, "router: cross_bps must be >= 0")
	}
	if c.Router.FillWait.Duration < 0 {
		errs = append(errs, "router: fill_wait must be >= 0")
	}

	// Venues
	enabled := 0
	for id, v := range c.Venues {
		if !v.Enabled {
			continue
		}
		enabled++
		if !validConventions[v.Convention] {
			errs = append(errs, fmt.Sprintf("venues.%s: unknown convention %q (valid: slash, dash, concat, concat_upper)", id, v.Convention))
		}
		if v.RestURL == "" {
			errs = append(errs, fmt.Sprintf("venues.%s: rest_url must not be empty", id))
		}
		if !c.Router.DryRun {
			if v.ApiKey == "" {
				errs = append(errs, fmt.Sprintf("venues.%s: api_key is required for live trading", id))
			}
			if v.ApiSecret == "" && v.EncryptedSecretPath == "" {
				errs = append(errs, fmt.Sprintf("venues.%s: api_secret or encrypted_secret_path is required for live trading", id))
			}
			if v.EncryptedSecretPath != "" && v.SecretPassword == "" {
				errs = append(errs, fmt.Sprintf("venues.%s: secret_password is required when encrypted_secret_path is set", id))
			}
			if v.RequiresPassphrase && v.Passphrase == "" {
				errs = append(errs, fmt.Sprintf("venues.%s: passphrase is required for live trading on this venue", id))
			}
		}
	}
	if enabled == 0 {
		errs = append(errs, "venues: at least one venue must be enabled")
	}
	for _, id := range c.VenueOrder {
		if _, ok := c.Venues[id]; !ok {
			errs = append(errs, fmt.Sprintf("venue_order: unknown venue %q", id))
		}
	}

	// Arbitrage
	if c.Arbitrage.Enabled {
		if c.Arbitrage.MinSpread <= 0 {
			errs = append(errs, "arbitrage: min_spread must be > 0 when enabled")
		}
		if len(c.Arbitrage.Symbols) == 0 {
			errs = append(errs, "arbitrage: symbols must not be empty when enabled")
		}
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

	// S3 only matters when archiving is on.
	if c.Archive.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty when archive is enabled")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when archive is enabled")
		}
		if c.Archive.RetentionDays < 1 {
			errs = append(errs, "archive: retention_days must be >= 1")
		}
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// OrderedVenues returns the enabled venue ids in routing priority order:
// venue_order first, then any remaining enabled venues alphabetically.
func (c *Config) OrderedVenues() []string {
	seen := make(map[string]bool, len(c.Venues))
	var out []string
	for _, id := range c.VenueOrder {
		if v, ok := c.Venues[id]; ok && v.Enabled && !seen[id] {
			out = append(out, id)
			seen[id] = true
		}
	}
	var rest []string
	for id, v := range c.Venues {
		if v.Enabled && !seen[id] {
			rest = append(rest, id)
		}
	}
	sort.Strings(rest)
	out = append(out, rest...)
	return out
}
