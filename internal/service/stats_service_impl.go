package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/jnst/order-stats-pipeline/internal/model"
	"github.com/jnst/order-stats-pipeline/internal/repository"
)

// StatsServiceImpl implements StatsService over the aggregate store.
type StatsServiceImpl struct {
	store repository.AggregateStore
}

// NewStatsServiceImpl creates a new StatsService implementation.
func NewStatsServiceImpl(store repository.AggregateStore) StatsService {
	return &StatsServiceImpl{store: store}
}

// GetGlobalStats returns the global order and revenue totals.
func (s *StatsServiceImpl) GetGlobalStats(ctx context.Context) (*model.GlobalStats, error) {
	return s.store.GetGlobalStats(ctx)
}

// GetUserStats returns overall totals for one user; zeros for an absent user.
func (s *StatsServiceImpl) GetUserStats(ctx context.Context, userID string) (*model.UserStats, error) {
	return s.store.GetUserStats(ctx, userID)
}

// GetTopUsers returns the top-n spenders over the given period. Multi-day
// periods are composed by unioning the daily leaderboards into an ephemeral
// ranking that is discarded before the call returns. Each returned user's
// order count is summed from their per-date aggregates, so cost grows with
// n × period length.
func (s *StatsServiceImpl) GetTopUsers(ctx context.Context, period, date string, n int) ([]model.TopUser, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: %d", model.ErrInvalidLimit, n)
	}

	dates, err := ExpandPeriod(period, date)
	if err != nil {
		return nil, err
	}

	if len(dates) == 0 {
		return nil, fmt.Errorf("%w: %q", model.ErrInvalidPeriod, period)
	}

	if len(dates) == 1 {
		entries, err := s.store.GetDailyLeaderboard(ctx, dates[0], int64(n))
		if err != nil {
			return nil, err
		}

		return s.enrichWithOrderCounts(ctx, entries, dates)
	}

	// Concurrent identical queries must not collide, so the ephemeral union
	// key carries a per-call nonce.
	tempKey := fmt.Sprintf("union:%s:%s:%s", period, date, uuid.NewString())
	defer func() {
		if err := s.store.DeleteKey(ctx, tempKey); err != nil {
			slog.Error("failed to delete ephemeral leaderboard key",
				slog.String("key", tempKey),
				slog.String("error", err.Error()),
			)
		}
	}()

	entries, err := s.store.UnionLeaderboards(ctx, tempKey, dates, int64(n))
	if err != nil {
		return nil, err
	}

	return s.enrichWithOrderCounts(ctx, entries, dates)
}

func (s *StatsServiceImpl) enrichWithOrderCounts(ctx context.Context, entries []model.LeaderboardEntry, dates []string) ([]model.TopUser, error) {
	users := make([]model.TopUser, len(entries))

	for i, entry := range entries {
		var orderCount int64

		for _, date := range dates {
			stats, err := s.store.GetUserDateStats(ctx, entry.UserID, date)
			if err != nil {
				return nil, err
			}

			orderCount += stats.OrderCount
		}

		users[i] = model.TopUser{
			UserID:     entry.UserID,
			OrderCount: orderCount,
			TotalSpend: entry.Spend,
		}
	}

	return users, nil
}
