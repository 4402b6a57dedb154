package app

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/sorbot/internal/config"
)

func TestBuildVenuesOrdersAdapters(t *testing.T) {
	cfg := config.Defaults()
	cfg.VenueOrder = []string{"mexc", "gateio"}

	adapters, err := buildVenues(&cfg, slog.Default())
	require.NoError(t, err)
	require.Len(t, adapters, 2)
	assert.Equal(t, "mexc", adapters[0].ID())
	assert.Equal(t, "gateio", adapters[1].ID())
}

// Config-only profiles exist in the defaults but cannot be wired until a
// client implementation exists for them.
func TestBuildVenuesRejectsEnabledConfigOnlyProfile(t *testing.T) {
	cfg := config.Defaults()
	v := cfg.Venues["kucoin"]
	v.Enabled = true
	cfg.Venues["kucoin"] = v

	_, err := buildVenues(&cfg, slog.Default())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `venue "kucoin" has no client implementation`)
}

func TestBuildVenuesRequiresAnEnabledVenue(t *testing.T) {
	cfg := config.Defaults()
	for id, v := range cfg.Venues {
		v.Enabled = false
		cfg.Venues[id] = v
	}

	_, err := buildVenues(&cfg, slog.Default())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no venues enabled")
}
