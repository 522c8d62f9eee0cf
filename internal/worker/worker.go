// Package worker implements the consumer loop that turns queued order
// messages into durable aggregate mutations.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jnst/order-stats-pipeline/internal/metrics"
	"github.com/jnst/order-stats-pipeline/internal/model"
	"github.com/jnst/order-stats-pipeline/internal/queue"
	"github.com/jnst/order-stats-pipeline/internal/repository"
	"github.com/jnst/order-stats-pipeline/internal/service"
)

// Config controls the consumer loop.
type Config struct {
	// BatchSize is the maximum number of messages fetched per poll. Messages
	// are still handled one at a time.
	BatchSize int64
	// ReceiveWait bounds the long-poll on an empty queue.
	ReceiveWait time.Duration
	// ErrorBackoff is slept after a loop-level error before polling resumes.
	ErrorBackoff time.Duration
	// CorrectOrderValue accepts orders whose reported value mismatches the
	// computed total, using the computed total as authoritative.
	CorrectOrderValue bool
	// DedupeOrders skips aggregation for order IDs already processed within
	// the idempotency retention window.
	DedupeOrders bool
}

// Worker owns the consumer state: queue and store handles, the optional
// dead-letter archive, and metrics. It holds no process-wide globals.
type Worker struct {
	queue    queue.Consumer
	store    repository.AggregateStore
	rejected repository.RejectedOrderRepository // nil disables dead-lettering
	metrics  *metrics.Registry
	cfg      Config
}

// New creates a worker. rejected may be nil, in which case invalid orders are
// dropped instead of archived.
func New(
	q queue.Consumer,
	store repository.AggregateStore,
	rejected repository.RejectedOrderRepository,
	reg *metrics.Registry,
	cfg Config,
) *Worker {
	return &Worker{
		queue:    q,
		store:    store,
		rejected: rejected,
		metrics:  reg,
		cfg:      cfg,
	}
}

// Run polls the queue until ctx is canceled. The stop signal is observed only
// between poll cycles; a message already being processed runs to completion.
// Transient errors back off and resume; they never terminate the loop.
func (w *Worker) Run(ctx context.Context) {
	slog.Info("starting order worker",
		slog.Int64("batch_size", w.cfg.BatchSize),
		slog.Duration("receive_wait", w.cfg.ReceiveWait),
		slog.Bool("dedupe", w.cfg.DedupeOrders),
		slog.Bool("dead_letter", w.rejected != nil),
	)

	for {
		select {
		case <-ctx.Done():
			slog.Info("worker stopped")
			return
		default:
			if err := w.poll(ctx); err != nil {
				slog.Error("error receiving messages", slog.String("error", err.Error()))
				w.metrics.ReceiveErrors.Inc()
				w.sleep(ctx, w.cfg.ErrorBackoff)
			}
		}
	}
}

func (w *Worker) poll(ctx context.Context) error {
	messages, err := w.queue.Receive(ctx, w.cfg.BatchSize, w.cfg.ReceiveWait)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil // shutdown in progress
		}

		return err
	}

	if len(messages) == 0 {
		slog.Debug("no messages in queue")
		return nil
	}

	for _, message := range messages {
		w.processMessage(ctx, message)
	}

	return nil
}

// processMessage handles one message end to end. It never propagates an
// error: a failure is logged, the message is left in the queue, and the loop
// moves on to the next message.
func (w *Worker) processMessage(ctx context.Context, message queue.Message) {
	defer func(start time.Time) {
		w.metrics.ProcessSeconds.Observe(time.Since(start).Seconds())

		if r := recover(); r != nil {
			slog.Error("panic while processing message",
				slog.String("handle", message.Handle),
				slog.Any("panic", r),
			)
		}
	}(time.Now())

	order, err := model.ParseOrder(message.Body)
	if err != nil {
		var schemaErr *model.SchemaError
		if errors.As(err, &schemaErr) {
			// Valid JSON that can never satisfy the schema; redelivery is
			// pointless, so it is rejected like a business-invalid order.
			w.metrics.SchemaViolations.Inc()
			slog.Error("order payload failed schema check",
				slog.String("handle", message.Handle),
				slog.String("error", schemaErr.Error()),
			)
			w.reject(ctx, message, model.OrderIDFromPayload(message.Body), []string{schemaErr.Error()})

			return
		}

		// Broken JSON stays in the queue; the queue's own redelivery and
		// dead-letter policy decides its fate.
		w.metrics.ParseFailures.Inc()
		slog.Error("failed to parse message payload",
			slog.String("handle", message.Handle),
			slog.String("error", err.Error()),
		)

		return
	}

	result := service.ValidateOrder(order, w.cfg.CorrectOrderValue)
	if result.Status == model.StatusInvalid {
		w.metrics.OrdersInvalid.Inc()
		slog.Warn("invalid order, not aggregating",
			slog.String("order_id", result.OrderID),
			slog.Any("errors", result.Errors),
		)
		w.reject(ctx, message, result.OrderID, result.Errors)

		return
	}

	if result.OrderTimestamp.IsZero() {
		w.metrics.SchemaViolations.Inc()
		slog.Error("order has no usable timestamp", slog.String("order_id", result.OrderID))
		w.reject(ctx, message, result.OrderID, []string{"missing or zero order_timestamp"})

		return
	}

	date := result.OrderTimestamp.UTC().Format("2006-01-02")

	if w.cfg.DedupeOrders {
		first, err := w.store.MarkProcessed(ctx, result.OrderID)
		if err != nil {
			slog.Error("failed to check processed marker",
				slog.String("order_id", result.OrderID),
				slog.String("error", err.Error()),
			)

			return
		}

		if !first {
			w.metrics.DuplicatesSkipped.Inc()
			slog.Warn("duplicate delivery, skipping aggregation",
				slog.String("order_id", result.OrderID),
			)
			w.deleteMessage(ctx, message)

			return
		}
	}

	if err := w.store.RecordOrder(ctx, result.UserID, date, result.OrderValue); err != nil {
		slog.Error("failed to record order aggregates",
			slog.String("order_id", result.OrderID),
			slog.String("error", err.Error()),
		)

		if w.cfg.DedupeOrders {
			// Clear the marker set above, otherwise the redelivered
			// message would be skipped as a duplicate and the order lost.
			if err := w.store.UnmarkProcessed(ctx, result.OrderID); err != nil {
				slog.Error("failed to clear processed marker",
					slog.String("order_id", result.OrderID),
					slog.String("error", err.Error()),
				)
			}
		}

		return
	}

	w.metrics.OrdersProcessed.Inc()
	if result.Corrected {
		w.metrics.OrdersCorrected.Inc()
	}

	slog.Info("order aggregated",
		slog.String("order_id", result.OrderID),
		slog.String("user_id", result.UserID),
		slog.String("value", result.OrderValue.StringFixed(2)),
		slog.String("date", date),
	)

	w.deleteMessage(ctx, message)
}

// reject routes an invalid order out of the queue: archived to the
// dead-letter store when one is configured, dropped otherwise. If archiving
// fails the message stays queued for another attempt.
func (w *Worker) reject(ctx context.Context, message queue.Message, orderID string, reasons []string) {
	if w.rejected != nil {
		params := &model.ArchiveRejectedOrderParams{
			OrderID: orderID,
			Reasons: reasons,
			Payload: message.Body,
		}

		if err := w.rejected.Archive(ctx, params); err != nil {
			slog.Error("failed to archive rejected order",
				slog.String("order_id", orderID),
				slog.String("error", err.Error()),
			)

			return
		}
	}

	w.deleteMessage(ctx, message)
}

func (w *Worker) deleteMessage(ctx context.Context, message queue.Message) {
	if err := w.queue.Delete(ctx, message.Handle); err != nil {
		slog.Error("failed to delete message",
			slog.String("handle", message.Handle),
			slog.String("error", err.Error()),
		)
	}
}

func (w *Worker) sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
