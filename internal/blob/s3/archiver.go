package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/sorbot/internal/domain"
)

// archiveBatchSize bounds how many rows one sweep pulls into memory.
const archiveBatchSize = 5000

// archiveLockTTL covers the longest plausible sweep.
const archiveLockTTL = 10 * time.Minute

// multipartThreshold is the serialized batch size above which uploads go
// through the multipart manager instead of a single PutObject.
const multipartThreshold = 8 << 20

// ---------------------------------------------------------------------------
// Narrow store interfaces required by the archiver. The Postgres stores
// satisfy these implicitly; the archiver only needs the time-ranged queries
// and the matching prune.
// ---------------------------------------------------------------------------

// ExecutionArchiveStore provides read and prune access to executions for
// archival purposes.
type ExecutionArchiveStore interface {
	ListBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.ExecutionResult, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// ArbArchiveStore provides read and prune access to arbitrage history for
// archival purposes.
type ArbArchiveStore interface {
	ListBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.ArbOpportunity, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Archiver implements domain.Archiver by querying the stores for rows older
// than a cutoff, serializing them to JSONL, uploading the file to object
// storage, and pruning the archived rows. Rows are only deleted after the
// upload succeeded.
type Archiver struct {
	writer     domain.BlobWriter
	executions ExecutionArchiveStore
	arbs       ArbArchiveStore
	locks      domain.LockManager
	logger     *slog.Logger
}

// NewArchiver creates a new Archiver. locks may be nil, in which case sweeps
// run without distributed mutual exclusion.
func NewArchiver(
	writer domain.BlobWriter,
	executions ExecutionArchiveStore,
	arbs ArbArchiveStore,
	locks domain.LockManager,
	logger *slog.Logger,
) *Archiver {
	return &Archiver{
		writer:     writer,
		executions: executions,
		arbs:       arbs,
		locks:      locks,
		logger:     logger.With("component", "archiver"),
	}
}

// ArchiveExecutions moves executions created before the cutoff to cold
// storage and prunes them. It returns the number of archived rows.
func (a *Archiver) ArchiveExecutions(ctx context.Context, before time.Time) (int64, error) {
	var total int64
	for {
		rows, err := a.executions.ListBefore(ctx, before, archiveBatchSize)
		if err != nil {
			return total, fmt.Errorf("s3blob: archive executions query: %w", err)
		}
		if len(rows) == 0 {
			return total, nil
		}

		buf, err := marshalJSONL(rows)
		if err != nil {
			return total, fmt.Errorf("s3blob: archive executions marshal: %w", err)
		}

		// Keys carry the last row's timestamp so successive batches within
		// one month never overwrite each other.
		path := archivePath("executions", rows[len(rows)-1].CreatedAt)
		if err := a.upload(ctx, path, buf); err != nil {
			return total, fmt.Errorf("s3blob: archive executions upload: %w", err)
		}

		// Prune only what made it to cold storage.
		cutoff := rows[len(rows)-1].CreatedAt.Add(time.Nanosecond)
		if cutoff.After(before) {
			cutoff = before
		}
		deleted, err := a.executions.DeleteBefore(ctx, cutoff)
		if err != nil {
			return total, fmt.Errorf("s3blob: archive executions prune: %w", err)
		}
		total += deleted

		a.logger.Info("archived executions batch",
			"path", path, "rows", len(rows), "deleted", deleted)

		if len(rows) < archiveBatchSize {
			return total, nil
		}
	}
}

// ArchiveArbHistory moves arbitrage opportunities detected before the cutoff
// to cold storage and prunes them. It returns the number of archived rows.
func (a *Archiver) ArchiveArbHistory(ctx context.Context, before time.Time) (int64, error) {
	var total int64
	for {
		rows, err := a.arbs.ListBefore(ctx, before, archiveBatchSize)
		if err != nil {
			return total, fmt.Errorf("s3blob: archive arb history query: %w", err)
		}
		if len(rows) == 0 {
			return total, nil
		}

		buf, err := marshalJSONL(rows)
		if err != nil {
			return total, fmt.Errorf("s3blob: archive arb history marshal: %w", err)
		}

		path := archivePath("arb_history", rows[len(rows)-1].DetectedAt)
		if err := a.upload(ctx, path, buf); err != nil {
			return total, fmt.Errorf("s3blob: archive arb history upload: %w", err)
		}

		cutoff := rows[len(rows)-1].DetectedAt.Add(time.Nanosecond)
		if cutoff.After(before) {
			cutoff = before
		}
		deleted, err := a.arbs.DeleteBefore(ctx, cutoff)
		if err != nil {
			return total, fmt.Errorf("s3blob: archive arb history prune: %w", err)
		}
		total += deleted

		a.logger.Info("archived arb history batch",
			"path", path, "rows", len(rows), "deleted", deleted)

		if len(rows) < archiveBatchSize {
			return total, nil
		}
	}
}

// upload sends one serialized batch to object storage, switching to the
// multipart manager when the payload is large enough to benefit from it.
func (a *Archiver) upload(ctx context.Context, path string, buf []byte) error {
	if len(buf) >= multipartThreshold {
		return a.writer.PutMultipart(ctx, path, bytes.NewReader(buf), 0)
	}
	return a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson")
}

// Run performs one full sweep with the given retention, holding the
// distributed archive lock while it works. A sweep already in progress on
// another instance is skipped silently.
func (a *Archiver) Run(ctx context.Context, retention time.Duration) error {
	if a.locks != nil {
		unlock, err := a.locks.Acquire(ctx, "archive", archiveLockTTL)
		if err != nil {
			if errors.Is(err, domain.ErrLockHeld) {
				a.logger.Debug("archive sweep already running elsewhere")
				return nil
			}
			return fmt.Errorf("s3blob: archive lock: %w", err)
		}
		defer unlock()
	}

	before := time.Now().Add(-retention)

	execs, execErr := a.ArchiveExecutions(ctx, before)
	arbs, arbErr := a.ArchiveArbHistory(ctx, before)

	a.logger.Info("archive sweep complete",
		"before", before.Format(time.RFC3339),
		"executions", execs, "arb_opportunities", arbs)

	return errors.Join(execErr, arbErr)
}

// RunPeriodic runs sweeps on the given interval until the context ends.
func (a *Archiver) RunPeriodic(ctx context.Context, interval, retention time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := a.Run(ctx, retention); err != nil {
				a.logger.Error("archive sweep failed", "error", err)
			}
		}
	}
}

// archivePath builds the object key for an archive file, partitioned by day
// with a nanosecond suffix to keep batch uploads distinct.
//
//	archive/executions/2025-01-02/1735804800123456789.jsonl
func archivePath(kind string, last time.Time) string {
	return fmt.Sprintf("archive/%s/%s/%d.jsonl",
		kind, last.Format("2006-01-02"), last.UnixNano())
}

// marshalJSONL serialises a slice of values as newline-delimited JSON.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

// Compile-time interface check.
var _ domain.Archiver = (*Archiver)(nil)
