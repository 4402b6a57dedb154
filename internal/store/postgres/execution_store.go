package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/sorbot/internal/domain"
)

// ExecutionStore implements domain.ExecutionStore using PostgreSQL.
// Per-venue attempts are stored denormalized as a JSONB column since they are
// only ever read alongside their execution.
type ExecutionStore struct {
	pool *pgxpool.Pool
}

// NewExecutionStore creates a new ExecutionStore backed by the given pool.
func NewExecutionStore(pool *pgxpool.Pool) *ExecutionStore {
	return &ExecutionStore{pool: pool}
}

const executionSelectCols = `id, symbol, side, success, venue, venue_order_id,
	status, requested_qty, filled_qty, average_price, cost, guard_price,
	slippage_bps, error_kind, error_message, attempts, created_at`

// Create inserts a new execution record.
func (s *ExecutionStore) Create(ctx context.Context, res domain.ExecutionResult) error {
	attempts, err := json.Marshal(res.Attempts)
	if err != nil {
		return fmt.Errorf("postgres: marshal attempts for %s: %w", res.ID, err)
	}

	const query = `
		INSERT INTO executions (
			id, symbol, side, success, venue, venue_order_id,
			status, requested_qty, filled_qty, average_price, cost,
			guard_price, slippage_bps, error_kind, error_message,
			attempts, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11,
			$12, $13, $14, $15,
			$16, $17
		)`

	_, err = s.pool.Exec(ctx, query,
		res.ID, res.Symbol, string(res.Side), res.Success,
		nullIfEmpty(res.Venue), nullIfEmpty(res.VenueOrderID),
		nullIfEmpty(string(res.Status)),
		res.RequestedQty, res.FilledQty, res.AveragePrice, res.Cost,
		res.GuardPrice, res.SlippageBps,
		nullIfEmpty(string(res.ErrorKind)), nullIfEmpty(res.ErrorMessage),
		attempts, res.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: create execution %s: %w", res.ID, err)
	}
	return nil
}

func scanExecutionFromRow(
	scanner interface{ Scan(dest ...any) error },
) (domain.ExecutionResult, error) {
	var res domain.ExecutionResult
	var side string
	var venue, venueOrderID, status, errorKind, errorMessage *string
	var attempts []byte

	err := scanner.Scan(
		&res.ID, &res.Symbol, &side, &res.Success, &venue, &venueOrderID,
		&status, &res.RequestedQty, &res.FilledQty, &res.AveragePrice,
		&res.Cost, &res.GuardPrice, &res.SlippageBps,
		&errorKind, &errorMessage, &attempts, &res.CreatedAt,
	)
	if err != nil {
		return domain.ExecutionResult{}, err
	}

	res.Side = domain.OrderSide(side)
	if venue != nil {
		res.Venue = *venue
	}
	if venueOrderID != nil {
		res.VenueOrderID = *venueOrderID
	}
	if status != nil {
		res.Status = domain.OrderStatus(*status)
	}
	if errorKind != nil {
		res.ErrorKind = domain.ErrorKind(*errorKind)
	}
	if errorMessage != nil {
		res.ErrorMessage = *errorMessage
	}
	if len(attempts) > 0 {
		if err := json.Unmarshal(attempts, &res.Attempts); err != nil {
			return domain.ExecutionResult{}, fmt.Errorf("unmarshal attempts: %w", err)
		}
	}
	return res, nil
}

func scanExecutionRows(rows pgx.Rows) ([]domain.ExecutionResult, error) {
	var out []domain.ExecutionResult
	for rows.Next() {
		res, err := scanExecutionFromRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

// GetByID retrieves a single execution by ID.
func (s *ExecutionStore) GetByID(ctx context.Context, id string) (domain.ExecutionResult, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+executionSelectCols+` FROM executions WHERE id = $1`, id)

	res, err := scanExecutionFromRow(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.ExecutionResult{}, domain.ErrNotFound
		}
		return domain.ExecutionResult{}, fmt.Errorf("postgres: get execution %s: %w", id, err)
	}
	return res, nil
}

// List returns executions newest first, filtered and paginated per opts.
func (s *ExecutionStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.ExecutionResult, error) {
	query := `SELECT ` + executionSelectCols + ` FROM executions WHERE TRUE`
	var args []any
	argIdx := 1

	if opts.Symbol != "" {
		query += fmt.Sprintf(" AND symbol = $%d", argIdx)
		args = append(args, opts.Symbol)
		argIdx++
	}
	if opts.Venue != "" {
		query += fmt.Sprintf(" AND venue = $%d", argIdx)
		args = append(args, opts.Venue)
		argIdx++
	}
	if opts.Since != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}
	if opts.Until != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, *opts.Until)
		argIdx++
	}

	query += " ORDER BY created_at DESC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list executions: %w", err)
	}
	defer rows.Close()

	out, err := scanExecutionRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan executions: %w", err)
	}
	return out, nil
}

// Count returns the total number of stored executions.
func (s *ExecutionStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM executions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres: count executions: %w", err)
	}
	return n, nil
}

// ListBefore returns up to limit executions created before cutoff, oldest
// first, for archival.
func (s *ExecutionStore) ListBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.ExecutionResult, error) {
	query := `SELECT ` + executionSelectCols + ` FROM executions
		WHERE created_at < $1 ORDER BY created_at ASC`
	args := []any{cutoff}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list executions before %s: %w", cutoff, err)
	}
	defer rows.Close()

	out, err := scanExecutionRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan executions before cutoff: %w", err)
	}
	return out, nil
}

// DeleteBefore removes executions created before cutoff and returns the number
// of rows deleted.
func (s *ExecutionStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM executions WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete executions before %s: %w", cutoff, err)
	}
	return tag.RowsAffected(), nil
}

// nullIfEmpty maps "" to NULL so optional text columns stay NULL in the DB.
func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Compile-time interface check.
var _ domain.ExecutionStore = (*ExecutionStore)(nil)
