package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jnst/order-stats-pipeline/internal/model"
)

// --- Mock implementations ---

type mockStore struct {
	daily     map[string][]model.LeaderboardEntry
	dateStats map[string]*model.UserStats // userID + "|" + date

	unionEntries []model.LeaderboardEntry
	unionErr     error
	unionTempKey string
	unionDates   []string

	deleted []string
}

func (m *mockStore) RecordOrder(_ context.Context, _, _ string, _ decimal.Decimal) error {
	return nil
}

func (m *mockStore) MarkProcessed(_ context.Context, _ string) (bool, error) {
	return true, nil
}

func (m *mockStore) UnmarkProcessed(_ context.Context, _ string) error { return nil }

func (m *mockStore) GetGlobalStats(_ context.Context) (*model.GlobalStats, error) {
	return &model.GlobalStats{}, nil
}

func (m *mockStore) GetUserStats(_ context.Context, userID string) (*model.UserStats, error) {
	return &model.UserStats{UserID: userID}, nil
}

func (m *mockStore) GetUserDateStats(_ context.Context, userID, date string) (*model.UserStats, error) {
	if stats, ok := m.dateStats[userID+"|"+date]; ok {
		return stats, nil
	}

	return &model.UserStats{UserID: userID}, nil
}

func (m *mockStore) GetDailyLeaderboard(_ context.Context, date string, limit int64) ([]model.LeaderboardEntry, error) {
	entries := m.daily[date]
	if int64(len(entries)) > limit {
		entries = entries[:limit]
	}

	return entries, nil
}

func (m *mockStore) UnionLeaderboards(_ context.Context, tempKey string, dates []string, _ int64) ([]model.LeaderboardEntry, error) {
	m.unionTempKey = tempKey
	m.unionDates = dates

	return m.unionEntries, m.unionErr
}

func (m *mockStore) DeleteKey(_ context.Context, key string) error {
	m.deleted = append(m.deleted, key)
	return nil
}

func (m *mockStore) Ping(_ context.Context) error { return nil }

// --- Tests ---

func TestGetTopUsers_Day(t *testing.T) {
	store := &mockStore{
		daily: map[string][]model.LeaderboardEntry{
			"2024-01-01": {
				{UserID: "U1", Spend: 15.0},
				{UserID: "U2", Spend: 9.0},
			},
		},
		dateStats: map[string]*model.UserStats{
			"U1|2024-01-01": {UserID: "U1", OrderCount: 2, TotalSpend: 15.0},
			"U2|2024-01-01": {UserID: "U2", OrderCount: 1, TotalSpend: 9.0},
		},
	}
	svc := NewStatsServiceImpl(store)

	users, err := svc.GetTopUsers(context.Background(), "d", "2024-01-01", 10)
	require.NoError(t, err)

	require.Len(t, users, 2)
	assert.Equal(t, model.TopUser{UserID: "U1", OrderCount: 2, TotalSpend: 15.0}, users[0])
	assert.Equal(t, model.TopUser{UserID: "U2", OrderCount: 1, TotalSpend: 9.0}, users[1])
	assert.Empty(t, store.deleted, "single-day reads must not create union keys")
}

func TestGetTopUsers_WeekSumsCountsAcrossDates(t *testing.T) {
	store := &mockStore{
		unionEntries: []model.LeaderboardEntry{{UserID: "U1", Spend: 15.0}},
		dateStats: map[string]*model.UserStats{
			"U1|2024-01-08": {UserID: "U1", OrderCount: 1, TotalSpend: 10.0},
			"U1|2024-01-09": {UserID: "U1", OrderCount: 1, TotalSpend: 5.0},
		},
	}
	svc := NewStatsServiceImpl(store)

	users, err := svc.GetTopUsers(context.Background(), "w", "2024-02", 5)
	require.NoError(t, err)

	require.Len(t, users, 1)
	assert.Equal(t, model.TopUser{UserID: "U1", OrderCount: 2, TotalSpend: 15.0}, users[0])

	require.Len(t, store.unionDates, 7)
	assert.Equal(t, "2024-01-08", store.unionDates[0])

	assert.True(t, strings.HasPrefix(store.unionTempKey, "union:w:2024-02:"),
		"union key %q must be namespaced per call", store.unionTempKey)
	assert.Equal(t, []string{store.unionTempKey}, store.deleted,
		"ephemeral union key must be deleted before returning")
}

func TestGetTopUsers_UnionKeysAreUniquePerCall(t *testing.T) {
	store := &mockStore{}
	svc := NewStatsServiceImpl(store)

	_, err := svc.GetTopUsers(context.Background(), "w", "2024-02", 5)
	require.NoError(t, err)
	first := store.unionTempKey

	_, err = svc.GetTopUsers(context.Background(), "w", "2024-02", 5)
	require.NoError(t, err)

	assert.NotEqual(t, first, store.unionTempKey)
}

func TestGetTopUsers_UnionErrorStillDeletesTempKey(t *testing.T) {
	store := &mockStore{unionErr: errors.New("connection reset")}
	svc := NewStatsServiceImpl(store)

	_, err := svc.GetTopUsers(context.Background(), "m", "2024-02", 3)
	require.Error(t, err)

	require.Len(t, store.deleted, 1)
	assert.Equal(t, store.unionTempKey, store.deleted[0])
}

func TestGetTopUsers_UnknownPeriod(t *testing.T) {
	svc := NewStatsServiceImpl(&mockStore{})

	_, err := svc.GetTopUsers(context.Background(), "q", "2024", 10)
	require.ErrorIs(t, err, model.ErrInvalidPeriod)
}

func TestGetTopUsers_BadDate(t *testing.T) {
	svc := NewStatsServiceImpl(&mockStore{})

	_, err := svc.GetTopUsers(context.Background(), "m", "February", 10)
	require.ErrorIs(t, err, model.ErrInvalidDate)
}

func TestGetTopUsers_NonPositiveLimit(t *testing.T) {
	svc := NewStatsServiceImpl(&mockStore{})

	_, err := svc.GetTopUsers(context.Background(), "d", "2024-01-01", 0)
	require.ErrorIs(t, err, model.ErrInvalidLimit)
}
