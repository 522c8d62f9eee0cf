package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jnst/order-stats-pipeline/internal/model"
)

// RejectedOrderRepositoryImpl implements RejectedOrderRepository using PostgreSQL.
type RejectedOrderRepositoryImpl struct {
	pool *pgxpool.Pool
}

// NewRejectedOrderRepositoryImpl creates a new RejectedOrderRepository implementation.
func NewRejectedOrderRepositoryImpl(pool *pgxpool.Pool) RejectedOrderRepository {
	return &RejectedOrderRepositoryImpl{pool: pool}
}

// Archive stores a rejected order with its raw payload and rejection reasons.
func (r *RejectedOrderRepositoryImpl) Archive(ctx context.Context, params *model.ArchiveRejectedOrderParams) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO rejected_orders (order_id, reasons, payload) VALUES ($1, $2, $3::jsonb)`,
		params.OrderID, params.Reasons, string(params.Payload),
	)
	if err != nil {
		return fmt.Errorf("failed to archive rejected order %s: %w", params.OrderID, err)
	}

	return nil
}

// ListRecent returns the most recently rejected orders, newest first.
func (r *RejectedOrderRepositoryImpl) ListRecent(ctx context.Context, limit int) ([]*model.RejectedOrder, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, order_id, reasons, payload, received_at
		 FROM rejected_orders
		 ORDER BY received_at DESC, id DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list rejected orders: %w", err)
	}
	defer rows.Close()

	var orders []*model.RejectedOrder

	for rows.Next() {
		order := &model.RejectedOrder{}
		if err := rows.Scan(&order.ID, &order.OrderID, &order.Reasons, &order.Payload, &order.ReceivedAt); err != nil {
			return nil, fmt.Errorf("failed to scan rejected order: %w", err)
		}

		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rejected orders: %w", err)
	}

	return orders, nil
}
