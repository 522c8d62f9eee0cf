package model

import (
	"encoding/json"
	"time"
)

// GlobalStats holds the singleton order/revenue totals across all users.
type GlobalStats struct {
	TotalOrders  int64   `json:"total_orders"`
	TotalRevenue float64 `json:"total_revenue"`
}

// UserStats holds aggregate totals for one user, either overall or for a
// single calendar date. Absent users yield the zero value, never an error.
type UserStats struct {
	UserID     string  `json:"user_id"`
	OrderCount int64   `json:"order_count"`
	TotalSpend float64 `json:"total_spend"`
}

// LeaderboardEntry is one row of a spend ranking, highest spend first.
type LeaderboardEntry struct {
	UserID string  `json:"user_id"`
	Spend  float64 `json:"spend"`
}

// TopUser is one row of a period leaderboard, enriched with the order count
// accumulated over the period.
type TopUser struct {
	UserID     string  `json:"user_id"`
	OrderCount int64   `json:"order_count"`
	TotalSpend float64 `json:"total_spend"`
}

// RejectedOrder is an order that failed validation and was routed to the
// dead-letter archive for manual inspection.
type RejectedOrder struct {
	ID         int64           `json:"id"`
	OrderID    string          `json:"order_id"`
	Reasons    []string        `json:"reasons"`
	Payload    json.RawMessage `json:"payload"`
	ReceivedAt time.Time       `json:"received_at"`
}

// ArchiveRejectedOrderParams represents parameters for archiving a rejected
// order.
type ArchiveRejectedOrderParams struct {
	OrderID string
	Reasons []string
	Payload []byte
}
