package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/alanyoungcy/sorbot/internal/aggregator"
	"github.com/alanyoungcy/sorbot/internal/domain"
)

// pingTimeout bounds each venue health probe.
const pingTimeout = 5 * time.Second

// VenueStatus is one venue's health probe result.
type VenueStatus struct {
	Venue   string `json:"venue"`
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
	// LatencyMs is the probe round trip in milliseconds.
	LatencyMs int64 `json:"latency_ms"`
}

// SystemStatus is the aggregate health report served by the API.
type SystemStatus struct {
	Mode          string        `json:"mode"`
	DryRun        bool          `json:"dry_run"`
	UptimeSeconds int64         `json:"uptime_seconds"`
	Venues        []VenueStatus `json:"venues"`
	Executions    int64         `json:"executions"`
	Timestamp     time.Time     `json:"timestamp"`
}

// StatusService probes venue connectivity and reports process health.
type StatusService struct {
	agg       *aggregator.Aggregator
	store     domain.ExecutionStore
	mode      string
	dryRun    bool
	startedAt time.Time
	logger    *slog.Logger
}

// NewStatusService creates a StatusService. store may be nil.
func NewStatusService(agg *aggregator.Aggregator, store domain.ExecutionStore, mode string, dryRun bool, logger *slog.Logger) *StatusService {
	return &StatusService{
		agg:       agg,
		store:     store,
		mode:      mode,
		dryRun:    dryRun,
		startedAt: time.Now(),
		logger:    logger.With(slog.String("component", "status_service")),
	}
}

// Status probes every venue in parallel and returns the aggregate report.
// Probe failures are reported per venue, never as an error.
func (s *StatusService) Status(ctx context.Context) SystemStatus {
	venues := s.agg.Venues()
	statuses := make([]VenueStatus, len(venues))

	var wg sync.WaitGroup
	for i, a := range venues {
		wg.Add(1)
		go func() {
			defer wg.Done()
			probeCtx, cancel := context.WithTimeout(ctx, pingTimeout)
			defer cancel()

			start := time.Now()
			err := a.Ping(probeCtx)
			st := VenueStatus{
				Venue:     a.ID(),
				Healthy:   err == nil,
				LatencyMs: time.Since(start).Milliseconds(),
			}
			if err != nil {
				st.Error = err.Error()
			}
			statuses[i] = st
		}()
	}
	wg.Wait()

	report := SystemStatus{
		Mode:          s.mode,
		DryRun:        s.dryRun,
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
		Venues:        statuses,
		Timestamp:     time.Now().UTC(),
	}

	if s.store != nil {
		n, err := s.store.Count(ctx)
		if err != nil {
			s.logger.Warn("execution count failed", slog.String("error", err.Error()))
		} else {
			report.Executions = n
		}
	}
	return report
}
