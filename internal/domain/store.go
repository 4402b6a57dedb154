package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Symbol string
	Venue  string
	Since  *time.Time
	Until  *time.Time
}

// ExecutionStore persists routed executions and their per-venue attempts.
type ExecutionStore interface {
	Create(ctx context.Context, res ExecutionResult) error
	GetByID(ctx context.Context, id string) (ExecutionResult, error)
	List(ctx context.Context, opts ListOpts) ([]ExecutionResult, error)
	Count(ctx context.Context) (int64, error)
	ListBefore(ctx context.Context, cutoff time.Time, limit int) ([]ExecutionResult, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// ArbStore persists detected arbitrage opportunities.
type ArbStore interface {
	Insert(ctx context.Context, opp ArbOpportunity) error
	ListRecent(ctx context.Context, symbol string, limit int) ([]ArbOpportunity, error)
	ListBefore(ctx context.Context, cutoff time.Time, limit int) ([]ArbOpportunity, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
