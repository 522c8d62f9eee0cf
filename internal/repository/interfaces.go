// Package repository provides data access interfaces and implementations.
package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jnst/order-stats-pipeline/internal/model"
)

// AggregateStore defines the durable aggregate mutations and reads over the
// key-value backend. Each operation is atomic on its own key; no cross-key
// transactions are assumed.
type AggregateStore interface {
	// RecordOrder applies the four aggregate mutations for one valid order:
	// per-user-per-date counters, per-user counters, the daily leaderboard
	// score, and the global totals. The steps are individually atomic but
	// not atomic as a whole.
	RecordOrder(ctx context.Context, userID, date string, orderValue decimal.Decimal) error
	// MarkProcessed records an order ID as processed with bounded retention.
	// It reports true the first time an ID is seen.
	MarkProcessed(ctx context.Context, orderID string) (bool, error)
	// UnmarkProcessed clears an order's processed marker so that a
	// redelivery after a failed aggregation is not treated as a duplicate.
	UnmarkProcessed(ctx context.Context, orderID string) error
	GetGlobalStats(ctx context.Context) (*model.GlobalStats, error)
	GetUserStats(ctx context.Context, userID string) (*model.UserStats, error)
	GetUserDateStats(ctx context.Context, userID, date string) (*model.UserStats, error)
	GetDailyLeaderboard(ctx context.Context, date string, limit int64) ([]model.LeaderboardEntry, error)
	// UnionLeaderboards sums the daily leaderboards for the given dates into
	// tempKey and returns the top entries. The caller owns tempKey and must
	// delete it before returning.
	UnionLeaderboards(ctx context.Context, tempKey string, dates []string, limit int64) ([]model.LeaderboardEntry, error)
	DeleteKey(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}

// RejectedOrderRepository defines the dead-letter archive for orders that
// failed validation.
type RejectedOrderRepository interface {
	Archive(ctx context.Context, params *model.ArchiveRejectedOrderParams) error
	ListRecent(ctx context.Context, limit int) ([]*model.RejectedOrder, error)
}
