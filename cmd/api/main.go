// Package main provides the HTTP reporting API over the order aggregates.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/rueidis"

	"github.com/jnst/order-stats-pipeline/internal/config"
	"github.com/jnst/order-stats-pipeline/internal/logger"
	"github.com/jnst/order-stats-pipeline/internal/model"
	"github.com/jnst/order-stats-pipeline/internal/repository"
	"github.com/jnst/order-stats-pipeline/internal/service"
)

const (
	contentTypeJSON        = "Content-Type"
	applicationJSON        = "application/json"
	failedToEncodeResponse = "failed to encode response"
	defaultTopN            = 10
	defaultRejectedLimit   = 50
	exitCode               = 1
)

// APIServer handles HTTP requests for the reporting layer.
type APIServer struct {
	stats    service.StatsService
	store    repository.AggregateStore
	rejected repository.RejectedOrderRepository
}

// NewAPIServer creates a new API server instance. rejected may be nil when
// the dead-letter archive is disabled.
func NewAPIServer(stats service.StatsService, store repository.AggregateStore, rejected repository.RejectedOrderRepository) *APIServer {
	return &APIServer{
		stats:    stats,
		store:    store,
		rejected: rejected,
	}
}

// HealthCheck handles GET /health.
func (s *APIServer) HealthCheck(w http.ResponseWriter, r *http.Request) {
	redisStatus := "connected"
	if err := s.store.Ping(r.Context()); err != nil {
		redisStatus = "error: " + err.Error()
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "healthy",
		"services": map[string]string{
			"redis": redisStatus,
			"api":   "running",
		},
	})
}

// GetGlobalStats handles GET /stats/global.
func (s *APIServer) GetGlobalStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.stats.GetGlobalStats(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// GetUserStats handles GET /users/{user_id}/stats. An unknown user yields
// zero counts.
func (s *APIServer) GetUserStats(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user_id")
	if userID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}

	stats, err := s.stats.GetUserStats(r.Context(), userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// GetLeaderboard handles GET /leaderboard?period=&date=&n=.
func (s *APIServer) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	period := r.URL.Query().Get("period")
	date := r.URL.Query().Get("date")

	n := defaultTopN
	if nStr := r.URL.Query().Get("n"); nStr != "" {
		parsed, err := strconv.Atoi(nStr)
		if err != nil {
			http.Error(w, "invalid n parameter", http.StatusBadRequest)
			return
		}

		n = parsed
	}

	users, err := s.stats.GetTopUsers(r.Context(), period, date, n)
	if err != nil {
		if errors.Is(err, model.ErrInvalidPeriod) || errors.Is(err, model.ErrInvalidDate) || errors.Is(err, model.ErrInvalidLimit) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		http.Error(w, err.Error(), http.StatusInternalServerError)

		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"period":    period,
		"date":      date,
		"top_users": users,
	})
}

// ListRejectedOrders handles GET /orders/rejected?limit=.
func (s *APIServer) ListRejectedOrders(w http.ResponseWriter, r *http.Request) {
	if s.rejected == nil {
		http.Error(w, "dead-letter archive is disabled", http.StatusServiceUnavailable)
		return
	}

	limit := defaultRejectedLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed <= 0 {
			http.Error(w, "invalid limit parameter", http.StatusBadRequest)
			return
		}

		limit = parsed
	}

	orders, err := s.rejected.ListRecent(r.Context(), limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"rejected_orders": orders})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set(contentTypeJSON, applicationJSON)
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		http.Error(w, failedToEncodeResponse, http.StatusInternalServerError)
		return
	}
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(exitCode)
	}

	loggerInstance := logger.Setup(cfg.LogLevel)
	slog.SetDefault(loggerInstance)

	redisClient, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress: []string{cfg.RedisAddr},
	})
	if err != nil {
		slog.Error("failed to connect to Redis", slog.String("error", err.Error()))
		os.Exit(exitCode)
	}
	defer redisClient.Close()

	store := repository.NewAggregateStoreImpl(redisClient, cfg.DedupeTTL)
	statsService := service.NewStatsServiceImpl(store)

	var rejectedRepo repository.RejectedOrderRepository

	if cfg.DeadLetterEnabled {
		dbPool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to connect to database", slog.String("error", err.Error()))
			os.Exit(exitCode)
		}
		defer dbPool.Close()

		rejectedRepo = repository.NewRejectedOrderRepositoryImpl(dbPool)
	}

	server := NewAPIServer(statsService, store, rejectedRepo)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", server.HealthCheck)
	mux.HandleFunc("GET /stats/global", server.GetGlobalStats)
	mux.HandleFunc("GET /users/{user_id}/stats", server.GetUserStats)
	mux.HandleFunc("GET /leaderboard", server.GetLeaderboard)
	mux.HandleFunc("GET /orders/rejected", server.ListRejectedOrders)

	slog.Info("starting API server", slog.String("service", "api"), slog.String("port", cfg.Port))

	if err := http.ListenAndServe(":"+cfg.Port, mux); err != nil {
		slog.Error("failed to start server", slog.String("error", err.Error()))
		return
	}
}
