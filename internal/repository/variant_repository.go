package repository

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

type variantRepository struct {
	logger zerolog.Logger
}

// NewVariantRepository creates a new PostgreSQL-backed variant repository.
// Every operation runs inside a caller-provided transaction.
func NewVariantRepository(logger zerolog.Logger) VariantRepository {
	return &variantRepository{
		logger: logger.With().Str("repository", "variant").Logger(),
	}
}

func (r *variantRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Variant, error) {
	query := `
		SELECT id, product_id, sku, price, sale_price, quantity, is_active, updated_at
		FROM variants
		WHERE id = $1
		FOR UPDATE
	`

	var v model.Variant
	err := tx.QueryRow(ctx, query, id).Scan(
		&v.ID,
		&v.ProductID,
		&v.SKU,
		&v.Price,
		&v.SalePrice,
		&v.Quantity,
		&v.IsActive,
		&v.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("variant_id", id.String()).Msg("variant not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("variant_id", id.String()).Msg("failed to lock variant")
		return nil, fmt.Errorf("failed to lock variant: %w", err)
	}

	return &v, nil
}

func (r *variantRepository) DecrementStock(ctx context.Context, tx pgx.Tx, id uuid.UUID, quantity int) (bool, error) {
	query := `
		UPDATE variants
		SET quantity = quantity - $2, updated_at = now()
		WHERE id = $1 AND quantity >= $2
	`

	tag, err := tx.Exec(ctx, query, id, quantity)
	if err != nil {
		r.logger.Error().Err(err).
			Str("variant_id", id.String()).
			Int("quantity", quantity).
			Msg("failed to decrement stock")
		return false, fmt.Errorf("failed to decrement stock: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

func (r *variantRepository) RestoreStock(ctx context.Context, tx pgx.Tx, id uuid.UUID, quantity int) error {
	query := `
		UPDATE variants
		SET quantity = quantity + $2, updated_at = now()
		WHERE id = $1
	`

	tag, err := tx.Exec(ctx, query, id, quantity)
	if err != nil {
		r.logger.Error().Err(err).
			Str("variant_id", id.String()).
			Int("quantity", quantity).
			Msg("failed to restore stock")
		return fmt.Errorf("failed to restore stock: %w", err)
	}

	// The variant may have been removed from the catalogue since the order was
	// placed; there is nothing to restore onto.
	if tag.RowsAffected() == 0 {
		r.logger.Warn().Str("variant_id", id.String()).Msg("variant missing, stock not restored")
	}

	return nil
}
