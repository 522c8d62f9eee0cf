// Package service provides business logic layer implementations.
package service

import (
	"context"

	"github.com/jnst/order-stats-pipeline/internal/model"
)

// StatsService defines the read API over the order aggregates.
type StatsService interface {
	GetGlobalStats(ctx context.Context) (*model.GlobalStats, error)
	GetUserStats(ctx context.Context, userID string) (*model.UserStats, error)
	// GetTopUsers ranks users by spend over a period: "d" (YYYY-MM-DD),
	// "w" (YYYY-WW, ISO week), "m" (YYYY-MM) or "y" (YYYY).
	GetTopUsers(ctx context.Context, period, date string, n int) ([]model.TopUser, error)
}
