package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/rueidis"
	"github.com/shopspring/decimal"

	"github.com/jnst/order-stats-pipeline/internal/model"
)

// Key layout:
//
//	user:{user_id}        hash  order_count, total_spend
//	user:{user_id}:{date} hash  order_count, total_spend
//	daily:{date}          zset  user_id -> cumulative daily spend
//	global:stats          hash  total_orders, total_revenue
//	order:seen:{order_id} string, TTL-bounded idempotency marker
const (
	globalStatsKey = "global:stats"

	fieldOrderCount   = "order_count"
	fieldTotalSpend   = "total_spend"
	fieldTotalOrders  = "total_orders"
	fieldTotalRevenue = "total_revenue"
)

func userKey(userID string) string {
	return "user:" + userID
}

func userDateKey(userID, date string) string {
	return "user:" + userID + ":" + date
}

func dailyKey(date string) string {
	return "daily:" + date
}

func seenKey(orderID string) string {
	return "order:seen:" + orderID
}

// AggregateStoreImpl implements AggregateStore using Redis.
type AggregateStoreImpl struct {
	client    rueidis.Client
	dedupeTTL time.Duration
}

// NewAggregateStoreImpl creates a new AggregateStore implementation. The
// dedupeTTL bounds retention of processed-order markers.
func NewAggregateStoreImpl(client rueidis.Client, dedupeTTL time.Duration) AggregateStore {
	return &AggregateStoreImpl{
		client:    client,
		dedupeTTL: dedupeTTL,
	}
}

// RecordOrder applies the aggregate mutations for one valid order. The daily
// leaderboard score is an absolute set of the new per-day cumulative total,
// not an increment, so it always equals the per-user-per-date spend.
func (s *AggregateStoreImpl) RecordOrder(ctx context.Context, userID, date string, orderValue decimal.Decimal) error {
	value := orderValue.InexactFloat64()
	dateKey := userDateKey(userID, date)

	incrCountCmd := s.client.B().Hincrby().Key(dateKey).Field(fieldOrderCount).Increment(1).Build()
	if err := s.client.Do(ctx, incrCountCmd).Error(); err != nil {
		return fmt.Errorf("failed to increment daily order count: %w", err)
	}

	incrSpendCmd := s.client.B().Hincrbyfloat().Key(dateKey).Field(fieldTotalSpend).Increment(value).Build()
	dailySpend, err := s.client.Do(ctx, incrSpendCmd).AsFloat64()
	if err != nil {
		return fmt.Errorf("failed to increment daily spend: %w", err)
	}

	overallKey := userKey(userID)

	overallCountCmd := s.client.B().Hincrby().Key(overallKey).Field(fieldOrderCount).Increment(1).Build()
	if err := s.client.Do(ctx, overallCountCmd).Error(); err != nil {
		return fmt.Errorf("failed to increment user order count: %w", err)
	}

	overallSpendCmd := s.client.B().Hincrbyfloat().Key(overallKey).Field(fieldTotalSpend).Increment(value).Build()
	if err := s.client.Do(ctx, overallSpendCmd).Error(); err != nil {
		return fmt.Errorf("failed to increment user spend: %w", err)
	}

	rankCmd := s.client.B().Zadd().Key(dailyKey(date)).ScoreMember().ScoreMember(dailySpend, userID).Build()
	if err := s.client.Do(ctx, rankCmd).Error(); err != nil {
		return fmt.Errorf("failed to update daily leaderboard: %w", err)
	}

	globalCountCmd := s.client.B().Hincrby().Key(globalStatsKey).Field(fieldTotalOrders).Increment(1).Build()
	if err := s.client.Do(ctx, globalCountCmd).Error(); err != nil {
		return fmt.Errorf("failed to increment global order count: %w", err)
	}

	globalRevenueCmd := s.client.B().Hincrbyfloat().Key(globalStatsKey).Field(fieldTotalRevenue).Increment(value).Build()
	if err := s.client.Do(ctx, globalRevenueCmd).Error(); err != nil {
		return fmt.Errorf("failed to increment global revenue: %w", err)
	}

	return nil
}

// MarkProcessed performs a set-if-absent on the order's idempotency marker.
func (s *AggregateStoreImpl) MarkProcessed(ctx context.Context, orderID string) (bool, error) {
	cmd := s.client.B().Set().Key(seenKey(orderID)).Value("1").Nx().Ex(s.dedupeTTL).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		if rueidis.IsRedisNil(err) {
			return false, nil // already processed
		}

		return false, fmt.Errorf("failed to mark order as processed: %w", err)
	}

	return true, nil
}

// UnmarkProcessed removes the idempotency marker set by MarkProcessed.
func (s *AggregateStoreImpl) UnmarkProcessed(ctx context.Context, orderID string) error {
	return s.DeleteKey(ctx, seenKey(orderID))
}

// GetGlobalStats retrieves the global order and revenue totals.
func (s *AggregateStoreImpl) GetGlobalStats(ctx context.Context) (*model.GlobalStats, error) {
	cmd := s.client.B().Hgetall().Key(globalStatsKey).Build()
	fields, err := s.client.Do(ctx, cmd).AsStrMap()
	if err != nil {
		return nil, fmt.Errorf("failed to read global stats: %w", err)
	}

	return &model.GlobalStats{
		TotalOrders:  parseIntField(fields, fieldTotalOrders),
		TotalRevenue: parseFloatField(fields, fieldTotalRevenue),
	}, nil
}

// GetUserStats retrieves overall totals for one user. An absent user yields
// zero counts, not an error.
func (s *AggregateStoreImpl) GetUserStats(ctx context.Context, userID string) (*model.UserStats, error) {
	return s.readUserStats(ctx, userID, userKey(userID))
}

// GetUserDateStats retrieves totals for one user on one calendar date.
func (s *AggregateStoreImpl) GetUserDateStats(ctx context.Context, userID, date string) (*model.UserStats, error) {
	return s.readUserStats(ctx, userID, userDateKey(userID, date))
}

func (s *AggregateStoreImpl) readUserStats(ctx context.Context, userID, key string) (*model.UserStats, error) {
	cmd := s.client.B().Hgetall().Key(key).Build()
	fields, err := s.client.Do(ctx, cmd).AsStrMap()
	if err != nil {
		return nil, fmt.Errorf("failed to read stats for %s: %w", key, err)
	}

	return &model.UserStats{
		UserID:     userID,
		OrderCount: parseIntField(fields, fieldOrderCount),
		TotalSpend: parseFloatField(fields, fieldTotalSpend),
	}, nil
}

// GetDailyLeaderboard returns the top spenders for one date, highest first.
func (s *AggregateStoreImpl) GetDailyLeaderboard(ctx context.Context, date string, limit int64) ([]model.LeaderboardEntry, error) {
	return s.topEntries(ctx, dailyKey(date), limit)
}

// UnionLeaderboards sums the daily leaderboards for the given dates into
// tempKey and returns its top entries. tempKey remains in the store until the
// caller deletes it.
func (s *AggregateStoreImpl) UnionLeaderboards(ctx context.Context, tempKey string, dates []string, limit int64) ([]model.LeaderboardEntry, error) {
	keys := make([]string, len(dates))
	for i, date := range dates {
		keys[i] = dailyKey(date)
	}

	unionCmd := s.client.B().Zunionstore().Destination(tempKey).Numkeys(int64(len(keys))).Key(keys...).Build()
	if err := s.client.Do(ctx, unionCmd).Error(); err != nil {
		return nil, fmt.Errorf("failed to union leaderboards: %w", err)
	}

	return s.topEntries(ctx, tempKey, limit)
}

func (s *AggregateStoreImpl) topEntries(ctx context.Context, key string, limit int64) ([]model.LeaderboardEntry, error) {
	if limit <= 0 {
		return nil, nil
	}

	cmd := s.client.B().Zrevrange().Key(key).Start(0).Stop(limit - 1).Withscores().Build()
	scores, err := s.client.Do(ctx, cmd).AsZScores()
	if err != nil {
		return nil, fmt.Errorf("failed to read leaderboard %s: %w", key, err)
	}

	entries := make([]model.LeaderboardEntry, len(scores))
	for i, score := range scores {
		entries[i] = model.LeaderboardEntry{
			UserID: score.Member,
			Spend:  score.Score,
		}
	}

	return entries, nil
}

// DeleteKey removes a key, typically an ephemeral union leaderboard.
func (s *AggregateStoreImpl) DeleteKey(ctx context.Context, key string) error {
	cmd := s.client.B().Del().Key(key).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("failed to delete key %s: %w", key, err)
	}

	return nil
}

// Ping checks connectivity to the backend.
func (s *AggregateStoreImpl) Ping(ctx context.Context) error {
	return s.client.Do(ctx, s.client.B().Ping().Build()).Error()
}

func parseIntField(fields map[string]string, name string) int64 {
	v, err := strconv.ParseInt(fields[name], 10, 64)
	if err != nil {
		return 0
	}

	return v
}

func parseFloatField(fields map[string]string, name string) float64 {
	v, err := strconv.ParseFloat(fields[name], 64)
	if err != nil {
		return 0
	}

	return v
}
