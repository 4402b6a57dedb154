package service

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/sorbot/internal/domain"
)

func TestStatusProbesAllVenues(t *testing.T) {
	healthy := liquidMarket()
	sick := &fakeMarketData{name: "mexc", marketsErr: errors.New("502 bad gateway")}

	store := &memExecutionStore{}
	require.NoError(t, store.Create(context.Background(), domain.ExecutionResult{ID: "e-1"}))

	svc := NewStatusService(testAggregator(healthy, sick), store, "full", true, slog.Default())

	st := svc.Status(context.Background())

	assert.Equal(t, "full", st.Mode)
	assert.True(t, st.DryRun)
	assert.Equal(t, int64(1), st.Executions)
	assert.False(t, st.Timestamp.IsZero())

	require.Len(t, st.Venues, 2)
	byVenue := map[string]VenueStatus{}
	for _, v := range st.Venues {
		byVenue[v.Venue] = v
	}
	assert.True(t, byVenue["gateio"].Healthy)
	assert.Empty(t, byVenue["gateio"].Error)
	assert.False(t, byVenue["mexc"].Healthy)
	assert.Contains(t, byVenue["mexc"].Error, "502")
}

func TestStatusWithoutStore(t *testing.T) {
	svc := NewStatusService(testAggregator(liquidMarket()), nil, "server", false, slog.Default())

	st := svc.Status(context.Background())
	assert.Zero(t, st.Executions)
	assert.False(t, st.DryRun)
}
