package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const orderColumns = `
	id, order_number, customer_id, items, subtotal, shipping_cost, tax, discount,
	total_amount, payment_method, payment_status, shipping_address, status,
	status_history, expected_delivery_date, created_at, updated_at
`

// orderRepository implements the OrderRepository interface using PostgreSQL.
type orderRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool *pgxpool.Pool, logger zerolog.Logger) OrderRepository {
	return &orderRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "order").Logger(),
	}
}

// BeginTx starts a new database transaction.
func (r *orderRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

// NextSequence upserts the counter row of the day. Concurrent callers
// serialise on that row, so every committed order of a day gets a distinct
// sequence. The first allocation of a day starts after the highest sequence
// already used by an order with the same prefix.
func (r *orderRepository) NextSequence(ctx context.Context, tx pgx.Tx, day time.Time, prefix string) (int, error) {
	query := `
		INSERT INTO order_sequences (day, last_seq)
		VALUES (
			$1::date,
			COALESCE((
				SELECT MAX(CAST(SUBSTRING(order_number FROM $3::int) AS INTEGER))
				FROM orders
				WHERE order_number LIKE $2
			), 0) + 1
		)
		ON CONFLICT (day) DO UPDATE
		SET last_seq = order_sequences.last_seq + 1
		RETURNING last_seq
	`

	var seq int
	err := tx.QueryRow(ctx, query, day, prefix+"%", len(prefix)+1).Scan(&seq)
	if err != nil {
		r.logger.Error().Err(err).Str("prefix", prefix).Msg("failed to allocate order sequence")
		return 0, fmt.Errorf("failed to allocate order sequence: %w", err)
	}

	return seq, nil
}

// CreateOrder inserts a new order within the provided transaction.
func (r *orderRepository) CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	query := `
		INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`

	_, err := tx.Exec(ctx, query,
		order.ID,
		order.OrderNumber,
		order.CustomerID,
		order.Items,
		order.Subtotal,
		order.ShippingCost,
		order.Tax,
		order.Discount,
		order.TotalAmount,
		order.PaymentMethod,
		order.PaymentStatus,
		order.ShippingAddress,
		order.Status,
		order.StatusHistory,
		order.ExpectedDeliveryDate,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", order.ID.String()).
			Str("order_number", order.OrderNumber).
			Msg("failed to create order")
		return fmt.Errorf("failed to create order: %w", err)
	}

	r.logger.Debug().
		Str("order_id", order.ID.String()).
		Str("order_number", order.OrderNumber).
		Msg("order created successfully")

	return nil
}

// GetByID retrieves an order by its ID.
func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	return r.getOne(ctx, r.pool, query, id, "order_id", id.String())
}

// GetByNumber retrieves an order by its order number.
func (r *orderRepository) GetByNumber(ctx context.Context, orderNumber string) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE order_number = $1`
	return r.getOne(ctx, r.pool, query, orderNumber, "order_number", orderNumber)
}

// GetByIDForUpdate retrieves an order and locks its row.
func (r *orderRepository) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE`
	return r.getOne(ctx, tx, query, id, "order_id", id.String())
}

func (r *orderRepository) getOne(ctx context.Context, q rowQuerier, query string, arg any, field, value string) (*model.Order, error) {
	var o model.Order
	err := q.QueryRow(ctx, query, arg).Scan(
		&o.ID,
		&o.OrderNumber,
		&o.CustomerID,
		&o.Items,
		&o.Subtotal,
		&o.ShippingCost,
		&o.Tax,
		&o.Discount,
		&o.TotalAmount,
		&o.PaymentMethod,
		&o.PaymentStatus,
		&o.ShippingAddress,
		&o.Status,
		&o.StatusHistory,
		&o.ExpectedDeliveryDate,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str(field, value).Msg("order not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str(field, value).Msg("failed to query order")
		return nil, fmt.Errorf("failed to query order: %w", err)
	}

	return &o, nil
}

// UpdateStatus writes the status fields of the order.
func (r *orderRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	query := `
		UPDATE orders
		SET status = $2, status_history = $3, expected_delivery_date = $4, updated_at = $5
		WHERE id = $1
	`

	tag, err := tx.Exec(ctx, query,
		order.ID,
		order.Status,
		order.StatusHistory,
		order.ExpectedDeliveryDate,
		order.UpdatedAt,
	)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to update order status")
		return fmt.Errorf("failed to update order status: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return model.ErrOrderNotFound
	}

	return nil
}

// Delete removes an order.
func (r *orderRepository) Delete(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	tag, err := tx.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to delete order")
		return fmt.Errorf("failed to delete order: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return model.ErrOrderNotFound
	}

	r.logger.Debug().Str("order_id", id.String()).Msg("order deleted")

	return nil
}
