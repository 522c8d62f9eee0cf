// Package main provides the order aggregation worker that consumes queued
// orders and maintains the statistical aggregates.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/rueidis"

	"github.com/jnst/order-stats-pipeline/internal/config"
	"github.com/jnst/order-stats-pipeline/internal/logger"
	"github.com/jnst/order-stats-pipeline/internal/metrics"
	"github.com/jnst/order-stats-pipeline/internal/queue"
	"github.com/jnst/order-stats-pipeline/internal/repository"
	"github.com/jnst/order-stats-pipeline/internal/worker"
)

const (
	signalBufferSize = 1
	exitCode         = 1
)

func setupRedisClient(cfg *config.Config) (rueidis.Client, error) {
	redisClient, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress: []string{cfg.RedisAddr},
	})
	if err != nil {
		return nil, err
	}

	return redisClient, nil
}

func setupSignalHandling() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, signalBufferSize)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("shutdown signal received, stopping worker")
		cancel()
	}()

	return ctx, cancel
}

func serveMetrics(addr string, reg *metrics.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", reg.Handler())

	slog.Info("serving metrics", slog.String("addr", addr))

	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("metrics server stopped", slog.String("error", err.Error()))
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

	redisClient, err := setupRedisClient(cfg)
	if err != nil {
		slog.Error("failed to connect to Redis", slog.String("error", err.Error()))
		os.Exit(exitCode)
	}
	defer redisClient.Close()

	ctx, cancel := setupSignalHandling()
	defer cancel()

	store := repository.NewAggregateStoreImpl(redisClient, cfg.DedupeTTL)
	if err := store.Ping(ctx); err != nil {
		slog.Error("cannot start worker without Redis connection", slog.String("error", err.Error()))
		os.Exit(exitCode)
	}

	var rejectedRepo repository.RejectedOrderRepository

	if cfg.DeadLetterEnabled {
		dbPool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to connect to database", slog.String("error", err.Error()))
			os.Exit(exitCode)
		}
		defer dbPool.Close()

		if err := dbPool.Ping(ctx); err != nil {
			slog.Error("cannot start worker without database connection", slog.String("error", err.Error()))
			os.Exit(exitCode)
		}

		rejectedRepo = repository.NewRejectedOrderRepositoryImpl(dbPool)
	}

	orderQueue := queue.NewStreamQueue(redisClient, cfg.StreamKey, cfg.GroupName, cfg.ConsumerName)
	if err := orderQueue.EnsureGroup(ctx); err != nil {
		slog.Error("failed to create consumer group", slog.String("error", err.Error()))
		os.Exit(exitCode)
	}

	reg := metrics.NewRegistry()
	go serveMetrics(cfg.MetricsAddr, reg)

	slog.Info("worker configured",
		slog.String("service", "worker"),
		slog.String("stream", cfg.StreamKey),
		slog.String("group", cfg.GroupName),
		slog.String("consumer", cfg.ConsumerName),
	)

	w := worker.New(orderQueue, store, rejectedRepo, reg, worker.Config{
		BatchSize:         cfg.ReceiveBatchSize,
		ReceiveWait:       cfg.ReceiveWait,
		ErrorBackoff:      cfg.ErrorBackoff,
		CorrectOrderValue: cfg.CorrectOrderValue,
		DedupeOrders:      cfg.DedupeOrders,
	})

	w.Run(ctx)
}
