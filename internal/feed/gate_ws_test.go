package feed

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/sorbot/internal/domain"
)

// fakeGateServer upgrades one connection, records subscribe frames, and
// pushes the given raw frames to the client.
func fakeGateServer(t *testing.T, frames []string, gotSubs chan<- gateWSRequest) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// First frame from the client must be the subscription.
		var req gateWSRequest
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		gotSubs <- req

		for _, f := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}

		// Hold the connection open until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestGateFeedDeliversQuotes(t *testing.T) {
	ack := `{"time":1700000000,"channel":"spot.book_ticker","event":"subscribe","result":{"status":"success"}}`
	update := `{"time":1700000001,"channel":"spot.book_ticker","event":"update","result":{"t":1700000001123,"s":"BTC_USDT","b":"64000.1","B":"0.5","a":"64000.9","A":"1.25"}}`
	noise := `{"time":1700000002,"channel":"spot.pong","event":"","result":null}`

	subs := make(chan gateWSRequest, 1)
	srv := fakeGateServer(t, []string{ack, noise, update}, subs)
	defer srv.Close()

	feed := NewGateBookTickerFeed(wsURL(srv), []string{"BTC/USDT"}, time.Second, slog.Default())
	assert.Equal(t, "gateio", feed.Venue())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quotes := make(chan domain.Quote, 4)
	go func() {
		_ = feed.Run(ctx, func(_ context.Context, q domain.Quote) {
			quotes <- q
		})
	}()

	select {
	case req := <-subs:
		assert.Equal(t, "spot.book_ticker", req.Channel)
		assert.Equal(t, "subscribe", req.Event)
		assert.Equal(t, []string{"BTC_USDT"}, req.Payload)
	case <-time.After(3 * time.Second):
		t.Fatal("no subscribe frame received")
	}

	select {
	case q := <-quotes:
		assert.Equal(t, "gateio", q.Venue)
		assert.Equal(t, "BTC/USDT", q.Symbol)
		assert.Equal(t, 64000.1, q.Bid)
		assert.Equal(t, 64000.9, q.Ask)
		assert.Equal(t, 0.5, q.BidQty)
		assert.Equal(t, 1.25, q.AskQty)
		assert.Equal(t, time.UnixMilli(1700000001123), q.Timestamp)
	case <-time.After(3 * time.Second):
		t.Fatal("no quote delivered")
	}
	cancel()
}

func TestGateFeedIgnoresUnknownPairs(t *testing.T) {
	update := `{"time":1,"channel":"spot.book_ticker","event":"update","result":{"t":1,"s":"ETH_USDT","b":"1","B":"1","a":"2","A":"1"}}`

	subs := make(chan gateWSRequest, 1)
	srv := fakeGateServer(t, []string{update}, subs)
	defer srv.Close()

	feed := NewGateBookTickerFeed(wsURL(srv), []string{"BTC/USDT"}, time.Second, slog.Default())

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	var delivered int
	_ = feed.Run(ctx, func(context.Context, domain.Quote) { delivered++ })
	assert.Zero(t, delivered)
}

func TestGateFeedSkipsUnparseableSymbols(t *testing.T) {
	feed := NewGateBookTickerFeed("ws://unused", []string{"???", "BTC/USDT"}, time.Second, slog.Default())
	require.Len(t, feed.pairs, 1)
	assert.Equal(t, "BTC_USDT", feed.pairs[0])
	assert.Equal(t, "BTC/USDT", feed.canonByPair["BTC_USDT"])
}

func TestGateFeedIdleWithoutSymbols(t *testing.T) {
	feed := NewGateBookTickerFeed("ws://unused", nil, time.Second, slog.Default())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := feed.Run(ctx, func(context.Context, domain.Quote) {})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGateEnvelopeDecoding(t *testing.T) {
	raw := `{"time":1,"channel":"spot.book_ticker","event":"update","error":{"code":2,"message":"bad"},"result":{}}`
	var env gateWSEnvelope
	require.NoError(t, json.Unmarshal([]byte(raw), &env))
	require.NotNil(t, env.Error)
	assert.Equal(t, 2, env.Error.Code)
	assert.Equal(t, "bad", env.Error.Message)
}
