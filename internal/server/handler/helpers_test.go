package handler

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseListOptsDefaults(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/orders", nil)
	opts := parseListOpts(r)

	assert.Equal(t, 50, opts.Limit)
	assert.Zero(t, opts.Offset)
	assert.Empty(t, opts.Symbol)
	assert.Empty(t, opts.Venue)
	assert.Nil(t, opts.Since)
	assert.Nil(t, opts.Until)
}

func TestParseListOptsFull(t *testing.T) {
	r := httptest.NewRequest("GET",
		"/api/orders?limit=10&offset=20&venue=gateio&symbol=btc-usdt&since=2025-01-01T00:00:00Z&until=2025-02-01T00:00:00Z", nil)
	opts := parseListOpts(r)

	assert.Equal(t, 10, opts.Limit)
	assert.Equal(t, 20, opts.Offset)
	assert.Equal(t, "gateio", opts.Venue)
	// Symbols are canonicalised on the way in.
	assert.Equal(t, "BTC/USDT", opts.Symbol)
	require.NotNil(t, opts.Since)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), opts.Since.UTC())
	require.NotNil(t, opts.Until)
}

func TestParseListOptsClampsAndIgnoresGarbage(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/orders?limit=9999&offset=-5&since=yesterday", nil)
	opts := parseListOpts(r)

	assert.Equal(t, 500, opts.Limit)
	assert.Zero(t, opts.Offset)
	assert.Nil(t, opts.Since)
}

func TestWriteJSONAndError(t *testing.T) {
	w := httptest.NewRecorder()
	writeJSON(w, 201, map[string]int{"n": 7})

	assert.Equal(t, 201, w.Code)
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"n":7}`, w.Body.String())

	w = httptest.NewRecorder()
	writeError(w, 404, "gone")
	assert.Equal(t, 404, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "gone", body["error"])
}
