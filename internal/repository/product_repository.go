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

// rowQuerier is satisfied by both *pgxpool.Pool and pgx.Tx.
type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// productRepository implements the ProductRepository interface using PostgreSQL.
type productRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(pool *pgxpool.Pool, logger zerolog.Logger) ProductRepository {
	return &productRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "product").Logger(),
	}
}

// GetByID retrieves a single product by its ID.
func (r *productRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	return r.getByID(ctx, r.pool, id)
}

// GetByIDTx retrieves a single product by its ID inside tx.
func (r *productRepository) GetByIDTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Product, error) {
	return r.getByID(ctx, tx, id)
}

func (r *productRepository) getByID(ctx context.Context, q rowQuerier, id uuid.UUID) (*model.Product, error) {
	query := `
		SELECT id, name, status, created_at
		FROM products
		WHERE id = $1
	`

	var p model.Product
	err := q.QueryRow(ctx, query, id).Scan(&p.ID, &p.Name, &p.Status, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("product_id", id.String()).Msg("product not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("product_id", id.String()).Msg("failed to query product")
		return nil, fmt.Errorf("failed to query product: %w", err)
	}

	return &p, nil
}

// ListVariants returns the variants of a product ordered by SKU.
func (r *productRepository) ListVariants(ctx context.Context, productID uuid.UUID) ([]model.Variant, error) {
	query := `
		SELECT id, product_id, sku, price, sale_price, quantity, is_active, updated_at
		FROM variants
		WHERE product_id = $1
		ORDER BY sku
	`

	rows, err := r.pool.Query(ctx, query, productID)
	if err != nil {
		r.logger.Error().Err(err).Str("product_id", productID.String()).Msg("failed to query variants")
		return nil, fmt.Errorf("failed to query variants: %w", err)
	}
	defer rows.Close()

	variants := []model.Variant{}
	for rows.Next() {
		var v model.Variant
		err := rows.Scan(&v.ID, &v.ProductID, &v.SKU, &v.Price, &v.SalePrice, &v.Quantity, &v.IsActive, &v.UpdatedAt)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan variant row")
			return nil, fmt.Errorf("failed to scan variant: %w", err)
		}
		variants = append(variants, v)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating variant rows")
		return nil, fmt.Errorf("error iterating variants: %w", err)
	}

	return variants, nil
}
