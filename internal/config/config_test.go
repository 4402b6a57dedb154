package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
}

func TestValidateRejectsUnknownMode(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "turbo"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestValidateLiveTradingRequiresCredentials(t *testing.T) {
	cfg := Defaults()
	cfg.Router.DryRun = false

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api_key is required")
	assert.Contains(t, err.Error(), "api_secret or encrypted_secret_path")
}

func TestValidateLiveTradingRequiresPassphrase(t *testing.T) {
	cfg := Defaults()
	cfg.Router.DryRun = false

	v := cfg.Venues["kucoin"]
	v.Enabled = true
	v.ApiKey = "key"
	v.ApiSecret = "secret"
	cfg.Venues["kucoin"] = v

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "venues.kucoin: passphrase is required")

	v.Passphrase = "hunter2"
	cfg.Venues["kucoin"] = v
	err = cfg.Validate()
	if err != nil {
		assert.NotContains(t, err.Error(), "venues.kucoin: passphrase")
	}
}

func TestProfileCarriesPassphraseFlag(t *testing.T) {
	cfg := Defaults()
	assert.True(t, cfg.Venues["kucoin"].Profile("kucoin").RequiresPassphrase)
	assert.False(t, cfg.Venues["gateio"].Profile("gateio").RequiresPassphrase)
}

func TestDefaultsCarryConfigOnlyProfiles(t *testing.T) {
	cfg := Defaults()
	for _, id := range []string{"kucoin", "bitget", "bitmart"} {
		v, ok := cfg.Venues[id]
		require.True(t, ok, id)
		assert.False(t, v.Enabled, id)
		assert.NotEmpty(t, v.RestURL, id)
	}
	// Disabled profiles never enter the routing order.
	assert.Equal(t, []string{"gateio", "mexc"}, cfg.OrderedVenues())
}

func TestValidateRequiresEnabledVenue(t *testing.T) {
	cfg := Defaults()
	for id, v := range cfg.Venues {
		v.Enabled = false
		cfg.Venues[id] = v
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one venue")
}

func TestValidateUnknownVenueOrderEntry(t *testing.T) {
	cfg := Defaults()
	cfg.VenueOrder = append(cfg.VenueOrder, "binance")
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown venue "binance"`)
}

func TestOrderedVenues(t *testing.T) {
	cfg := Defaults()
	cfg.Venues["zeta"] = VenueConfig{Enabled: true, Convention: "slash", RestURL: "https://example.com"}
	cfg.Venues["alpha"] = VenueConfig{Enabled: true, Convention: "slash", RestURL: "https://example.com"}
	cfg.VenueOrder = []string{"mexc", "gateio"}

	// Explicit order first, then the rest alphabetically.
	assert.Equal(t, []string{"mexc", "gateio", "alpha", "zeta"}, cfg.OrderedVenues())
}

func TestOrderedVenuesSkipsDisabled(t *testing.T) {
	cfg := Defaults()
	v := cfg.Venues["mexc"]
	v.Enabled = false
	cfg.Venues["mexc"] = v

	assert.Equal(t, []string{"gateio"}, cfg.OrderedVenues())
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := writeConfig(t, `
mode = "monitor"
log_level = "debug"

[router]
cross_bps = 7.5
fill_wait = "200ms"

[venues.gateio]
api_key = "k-from-file"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "monitor", cfg.Mode)
	assert.Equal(t, 7.5, cfg.Router.CrossBps)
	assert.Equal(t, 200*time.Millisecond, cfg.Router.FillWait.Duration)
	assert.Equal(t, "k-from-file", cfg.Venues["gateio"].ApiKey)

	// Untouched sections keep their defaults.
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.True(t, cfg.Router.DryRun)
}

func TestLoadEnvOverridesWinOverFile(t *testing.T) {
	path := writeConfig(t, `
mode = "monitor"

[server]
port = 9000
`)

	t.Setenv("SORBOT_MODE", "server")
	t.Setenv("SORBOT_SERVER_PORT", "9100")
	t.Setenv("SORBOT_VENUE_GATEIO_API_SECRET", "s3cret")
	t.Setenv("SORBOT_ARBITRAGE_SYMBOLS", "BTC/USDT, SOL/USDT")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "server", cfg.Mode)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "s3cret", cfg.Venues["gateio"].ApiSecret)
	assert.Equal(t, []string{"BTC/USDT", "SOL/USDT"}, cfg.Arbitrage.Symbols)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
}

func TestDurationRoundTrip(t *testing.T) {
	var d duration
	require.NoError(t, d.UnmarshalText([]byte("90s")))
	assert.Equal(t, 90*time.Second, d.Duration)

	out, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1m30s", string(out))

	assert.Error(t, d.UnmarshalText([]byte("soon")))
}

func TestRedactedConfig(t *testing.T) {
	cfg := Defaults()
	v := cfg.Venues["gateio"]
	v.ApiKey = "key"
	v.ApiSecret = "secret"
	cfg.Venues["gateio"] = v
	cfg.Postgres.Password = "pgpass"
	cfg.Redis.Password = "rpass"
	cfg.S3.SecretKey = "s3secret"
	cfg.Server.APIToken = "token"
	cfg.Notify.TelegramToken = "tg"

	red := RedactedConfig(&cfg)

	assert.Equal(t, "***", red.Venues["gateio"].ApiKey)
	assert.Equal(t, "***", red.Venues["gateio"].ApiSecret)
	assert.Equal(t, "***", red.Postgres.Password)
	assert.Equal(t, "***", red.Redis.Password)
	assert.Equal(t, "***", red.S3.SecretKey)
	assert.Equal(t, "***", red.Server.APIToken)
	assert.Equal(t, "***", red.Notify.TelegramToken)

	// Original is untouched.
	assert.Equal(t, "secret", cfg.Venues["gateio"].ApiSecret)
	assert.NotContains(t, strings.Join(red.Arbitrage.Symbols, ","), "***")
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}
