package repository

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// customerRepository implements the CustomerRepository interface using PostgreSQL.
type customerRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewCustomerRepository creates a new PostgreSQL-backed customer repository.
// Writes run inside a caller-provided transaction; reads use the pool.
func NewCustomerRepository(pool *pgxpool.Pool, logger zerolog.Logger) CustomerRepository {
	return &customerRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "customer").Logger(),
	}
}

func (r *customerRepository) GetAddresses(ctx context.Context, id uuid.UUID) ([]model.ShippingAddress, error) {
	var addresses []model.ShippingAddress
	err := r.pool.QueryRow(ctx, `SELECT addresses FROM customers WHERE id = $1`, id).Scan(&addresses)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrCustomerNotFound
	}
	if err != nil {
		r.logger.Error().Err(err).Str("customer_id", id.String()).Msg("failed to query customer addresses")
		return nil, fmt.Errorf("failed to query customer addresses: %w", err)
	}

	if addresses == nil {
		addresses = []model.ShippingAddress{}
	}

	return addresses, nil
}

func (r *customerRepository) Exists(ctx context.Context, tx pgx.Tx, id uuid.UUID) (bool, error) {
	var exists bool
	err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM customers WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		r.logger.Error().Err(err).Str("customer_id", id.String()).Msg("failed to query customer")
		return false, fmt.Errorf("failed to query customer: %w", err)
	}

	return exists, nil
}

func (r *customerRepository) ReplaceAddresses(ctx context.Context, tx pgx.Tx, id uuid.UUID, addresses []model.ShippingAddress) error {
	if addresses == nil {
		addresses = []model.ShippingAddress{}
	}

	query := `
		UPDATE customers
		SET addresses = $2, updated_at = now()
		WHERE id = $1
	`

	tag, err := tx.Exec(ctx, query, id, addresses)
	if err != nil {
		r.logger.Error().Err(err).Str("customer_id", id.String()).Msg("failed to update customer addresses")
		return fmt.Errorf("failed to update customer addresses: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return model.ErrCustomerNotFound
	}

	r.logger.Debug().
		Str("customer_id", id.String()).
		Int("count", len(addresses)).
		Msg("customer addresses replaced")

	return nil
}
