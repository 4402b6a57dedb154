package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/sorbot/internal/domain"
)

// ArbStore implements domain.ArbStore using PostgreSQL.
type ArbStore struct {
	pool *pgxpool.Pool
}

// NewArbStore creates a new ArbStore backed by the given connection pool.
func NewArbStore(pool *pgxpool.Pool) *ArbStore {
	return &ArbStore{pool: pool}
}

const arbSelectCols = `id, symbol, buy_venue, sell_venue, buy_price,
	sell_price, spread_bps, profit_per_unit, size, detected_at`

// Insert stores a new arbitrage opportunity.
func (s *ArbStore) Insert(ctx context.Context, opp domain.ArbOpportunity) error {
	const query = `
		INSERT INTO arb_opportunities (
			id, symbol, buy_venue, sell_venue, buy_price,
			sell_price, spread_bps, profit_per_unit, size, detected_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10
		)`

	_, err := s.pool.Exec(ctx, query,
		opp.ID, opp.Symbol, opp.BuyVenue, opp.SellVenue, opp.BuyPrice,
		opp.SellPrice, opp.SpreadBps, opp.ProfitPerUnit, opp.Size, opp.DetectedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert arb opportunity %s: %w", opp.ID, err)
	}
	return nil
}

func scanArbRows(rows pgx.Rows) ([]domain.ArbOpportunity, error) {
	var opps []domain.ArbOpportunity
	for rows.Next() {
		var opp domain.ArbOpportunity
		if err := rows.Scan(
			&opp.ID, &opp.Symbol, &opp.BuyVenue, &opp.SellVenue,
			&opp.BuyPrice, &opp.SellPrice, &opp.SpreadBps,
			&opp.ProfitPerUnit, &opp.Size, &opp.DetectedAt,
		); err != nil {
			return nil, err
		}
		opps = append(opps, opp)
	}
	return opps, rows.Err()
}

// ListRecent returns the most recent opportunities newest first, optionally
// filtered to one symbol.
func (s *ArbStore) ListRecent(ctx context.Context, symbol string, limit int) ([]domain.ArbOpportunity, error) {
	query := `SELECT ` + arbSelectCols + ` FROM arb_opportunities WHERE TRUE`
	var args []any
	argIdx := 1

	if symbol != "" {
		query += fmt.Sprintf(" AND symbol = $%d", argIdx)
		args = append(args, symbol)
		argIdx++
	}

	query += " ORDER BY detected_at DESC"

	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent arbs: %w", err)
	}
	defer rows.Close()

	opps, err := scanArbRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan recent arbs: %w", err)
	}
	return opps, nil
}

// ListBefore returns up to limit opportunities detected before cutoff, oldest
// first, for archival.
func (s *ArbStore) ListBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.ArbOpportunity, error) {
	query := `SELECT ` + arbSelectCols + ` FROM arb_opportunities
		WHERE detected_at < $1 ORDER BY detected_at ASC`
	args := []any{cutoff}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list arbs before %s: %w", cutoff, err)
	}
	defer rows.Close()

	opps, err := scanArbRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan arbs before cutoff: %w", err)
	}
	return opps, nil
}

// DeleteBefore removes opportunities detected before cutoff and returns the
// number of rows deleted.
func (s *ArbStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM arb_opportunities WHERE detected_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete arbs before %s: %w", cutoff, err)
	}
	return tag.RowsAffected(), nil
}

// Compile-time interface check.
var _ domain.ArbStore = (*ArbStore)(nil)
