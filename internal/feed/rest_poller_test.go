package feed

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/sorbot/internal/domain"
)

type stubSource struct {
	mu     sync.Mutex
	quotes map[string]domain.Quote
	errs   map[string]error
	calls  int
}

func (s *stubSource) ID() string { return "mexc" }

func (s *stubSource) TopOfBook(_ context.Context, canonical string) (domain.Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if err := s.errs[canonical]; err != nil {
		return domain.Quote{}, err
	}
	return s.quotes[canonical], nil
}

func (s *stubSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func TestRESTPollerDeliversQuotes(t *testing.T) {
	src := &stubSource{
		quotes: map[string]domain.Quote{
			"BTC/USDT": {Venue: "mexc", Symbol: "BTC/USDT", Bid: 64000, Ask: 64001, BidQty: 1, AskQty: 1},
		},
	}
	poller := NewRESTPollerFeed(src, []string{"BTC/USDT"}, 10*time.Millisecond, slog.Default())
	assert.Equal(t, "mexc", poller.Venue())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quotes := make(chan domain.Quote, 8)
	go func() {
		_ = poller.Run(ctx, func(_ context.Context, q domain.Quote) {
			select {
			case quotes <- q:
			default:
			}
		})
	}()

	select {
	case q := <-quotes:
		assert.Equal(t, "BTC/USDT", q.Symbol)
		assert.Equal(t, 64000.0, q.Bid)
	case <-time.After(2 * time.Second):
		t.Fatal("no quote delivered")
	}
}

func TestRESTPollerSkipsFailures(t *testing.T) {
	src := &stubSource{
		quotes: map[string]domain.Quote{
			"ETH/USDT": {Venue: "mexc", Symbol: "ETH/USDT", Bid: 3000, Ask: 3001},
		},
		errs: map[string]error{
			"BTC/USDT": errors.New("boom"),
		},
	}
	poller := NewRESTPollerFeed(src, []string{"BTC/USDT", "ETH/USDT"}, 10*time.Millisecond, slog.Default())

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	var got []string
	_ = poller.Run(ctx, func(_ context.Context, q domain.Quote) {
		got = append(got, q.Symbol)
	})

	require.NotEmpty(t, got)
	for _, sym := range got {
		assert.Equal(t, "ETH/USDT", sym)
	}
	assert.Greater(t, src.callCount(), 1)
}

func TestRESTPollerStopsOnContext(t *testing.T) {
	src := &stubSource{quotes: map[string]domain.Quote{}}
	poller := NewRESTPollerFeed(src, []string{"BTC/USDT"}, time.Hour, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := poller.Run(ctx, func(context.Context, domain.Quote) {})
	assert.ErrorIs(t, err, context.Canceled)
}
