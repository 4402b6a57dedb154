package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/alanyoungcy/sorbot/internal/arb"
	"github.com/alanyoungcy/sorbot/internal/domain"
	"github.com/alanyoungcy/sorbot/internal/notify"
)

// ArbService runs the periodic cross-venue scan, records detected
// opportunities, and serves on-demand scans for the API.
type ArbService struct {
	detector *arb.Detector
	store    domain.ArbStore
	notifier *notify.Notifier
	symbols  []string
	interval time.Duration
	logger   *slog.Logger
}

// NewArbService creates an ArbService. store and notifier may be nil; an
// interval of 0 selects five seconds.
func NewArbService(
	detector *arb.Detector,
	store domain.ArbStore,
	notifier *notify.Notifier,
	symbols []string,
	interval time.Duration,
	logger *slog.Logger,
) *ArbService {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &ArbService{
		detector: detector,
		store:    store,
		notifier: notifier,
		symbols:  symbols,
		interval: interval,
		logger:   logger.With(slog.String("component", "arb_service")),
	}
}

// Scan runs one on-demand scan for a symbol and records what it finds.
// minSpread <= 0 uses the detector default.
func (s *ArbService) Scan(ctx context.Context, symbol string, minSpread float64) []domain.ArbOpportunity {
	opps := s.detector.Scan(ctx, symbol, minSpread)
	s.record(ctx, opps)
	return opps
}

// Recent returns stored opportunities newest first, optionally filtered to
// one symbol.
func (s *ArbService) Recent(ctx context.Context, symbol string, limit int) ([]domain.ArbOpportunity, error) {
	if s.store == nil {
		return nil, nil
	}
	return s.store.ListRecent(ctx, symbol, limit)
}

// Run scans every configured symbol each interval until the context ends.
func (s *ArbService) Run(ctx context.Context) error {
	if len(s.symbols) == 0 {
		s.logger.Info("no symbols configured, scanner idle")
		<-ctx.Done()
		return ctx.Err()
	}

	s.logger.Info("scanner starting",
		slog.Int("symbols", len(s.symbols)),
		slog.Duration("interval", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			for _, sym := range s.symbols {
				s.record(ctx, s.detector.Scan(ctx, sym, 0))
				if ctx.Err() != nil {
					return ctx.Err()
				}
			}
		}
	}
}

// record persists and announces opportunities, best effort.
func (s *ArbService) record(ctx context.Context, opps []domain.ArbOpportunity) {
	for _, opp := range opps {
		if s.store != nil {
			if err := s.store.Insert(ctx, opp); err != nil {
				s.logger.Error("persist opportunity failed",
					slog.String("id", opp.ID),
					slog.String("error", err.Error()))
			}
		}
		if s.notifier != nil {
			if err := s.notifier.NotifyArbDetected(ctx, opp); err != nil {
				s.logger.Warn("opportunity notification failed",
					slog.String("id", opp.ID),
					slog.String("error", err.Error()))
			}
		}
	}
}
