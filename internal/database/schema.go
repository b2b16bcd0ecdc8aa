package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// Schema is the storefront schema. Orders keep their line items, shipping
// address and status history as embedded JSONB documents; customers keep
// their address book the same way.
const Schema = `
	CREATE TABLE IF NOT EXISTS customers (
		id UUID PRIMARY KEY,
		first_name VARCHAR(100) NOT NULL DEFAULT '',
		last_name VARCHAR(100) NOT NULL DEFAULT '',
		email VARCHAR(255) NOT NULL UNIQUE,
		phone VARCHAR(20) NOT NULL DEFAULT '',
		addresses JSONB NOT NULL DEFAULT '[]'::jsonb,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS products (
		id UUID PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'active',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS variants (
		id UUID PRIMARY KEY,
		product_id UUID NOT NULL REFERENCES products(id) ON DELETE CASCADE,
		sku VARCHAR(50) NOT NULL UNIQUE,
		price NUMERIC(12, 2) NOT NULL,
		sale_price NUMERIC(12, 2),
		quantity INTEGER NOT NULL DEFAULT 0 CHECK (quantity >= 0),
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS orders (
		id UUID PRIMARY KEY,
		order_number VARCHAR(20) NOT NULL,
		customer_id UUID NOT NULL REFERENCES customers(id),
		items JSONB NOT NULL,
		subtotal NUMERIC(12, 2) NOT NULL CHECK (subtotal >= 0),
		shipping_cost NUMERIC(12, 2) NOT NULL DEFAULT 0 CHECK (shipping_cost >= 0),
		tax NUMERIC(12, 2) NOT NULL DEFAULT 0 CHECK (tax >= 0),
		discount NUMERIC(12, 2) NOT NULL DEFAULT 0 CHECK (discount >= 0),
		total_amount NUMERIC(12, 2) NOT NULL CHECK (total_amount >= 0),
		payment_method VARCHAR(10) NOT NULL DEFAULT 'cod',
		payment_status VARCHAR(10) NOT NULL DEFAULT 'pending',
		shipping_address JSONB NOT NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'placed',
		status_history JSONB NOT NULL DEFAULT '[]'::jsonb,
		expected_delivery_date TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		CONSTRAINT orders_order_number_key UNIQUE (order_number)
	);

	CREATE TABLE IF NOT EXISTS order_sequences (
		day DATE PRIMARY KEY,
		last_seq INTEGER NOT NULL CHECK (last_seq > 0)
	);

	CREATE INDEX IF NOT EXISTS idx_variants_product_id ON variants(product_id);
	CREATE INDEX IF NOT EXISTS idx_orders_customer_id ON orders(customer_id);
	CREATE INDEX IF NOT EXISTS idx_orders_order_number_pattern ON orders(order_number varchar_pattern_ops);
`

// Migrate applies Schema. Every statement is idempotent.
func Migrate(ctx context.Context, pool *pgxpool.Pool, logger zerolog.Logger) error {
	if _, err := pool.Exec(ctx, Schema); err != nil {
		logger.Error().Err(err).Msg("failed to apply database schema")
		return fmt.Errorf("failed to apply schema: %w", err)
	}

	logger.Info().Msg("database schema applied")

	return nil
}
