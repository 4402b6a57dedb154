package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGateHeadersAtDeterministic(t *testing.T) {
	auth := &HMACAuth{Key: "api-key", Secret: "api-secret"}

	h1 := auth.GateHeadersAt("GET", "/api/v4/spot/orders", "currency_pair=BTC_USDT", "", 1700000000)
	h2 := auth.GateHeadersAt("GET", "/api/v4/spot/orders", "currency_pair=BTC_USDT", "", 1700000000)

	require.Equal(t, h1, h2)
	assert.Equal(t, "api-key", h1["KEY"])
	assert.Equal(t, "1700000000", h1["Timestamp"])
	// HMAC-SHA512 hex.
	assert.Len(t, h1["SIGN"], 128)
}

func TestGateHeadersAtBodyAffectsSignature(t *testing.T) {
	auth := &HMACAuth{Key: "k", Secret: "s"}

	a := auth.GateHeadersAt("POST", "/api/v4/spot/orders", "", `{"side":"buy"}`, 1700000000)
	b := auth.GateHeadersAt("POST", "/api/v4/spot/orders", "", `{"side":"sell"}`, 1700000000)

	assert.NotEqual(t, a["SIGN"], b["SIGN"])
}

func TestMEXCSignature(t *testing.T) {
	auth := &HMACAuth{Key: "k", Secret: "s"}

	sig := auth.MEXCSignature("symbol=BTCUSDT&timestamp=1700000000000")
	// HMAC-SHA256 hex.
	assert.Len(t, sig, 64)
	assert.NotEqual(t, sig, auth.MEXCSignature("symbol=ETHUSDT&timestamp=1700000000000"))

	other := &HMACAuth{Key: "k", Secret: "different"}
	assert.NotEqual(t, sig, other.MEXCSignature("symbol=BTCUSDT&timestamp=1700000000000"))
}

func TestConfigured(t *testing.T) {
	assert.False(t, (*HMACAuth)(nil).Configured())
	assert.False(t, (&HMACAuth{Key: "k"}).Configured())
	assert.True(t, (&HMACAuth{Key: "k", Secret: "s"}).Configured())
}

func TestStringRedactsSecret(t *testing.T) {
	auth := &HMACAuth{Key: "abcdef", Secret: "supersecret"}
	s := auth.String()
	assert.NotContains(t, s, "supersecret")
	assert.Contains(t, s, "abcd****")
}
