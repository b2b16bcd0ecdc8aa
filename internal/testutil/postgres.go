// Package testutil starts throwaway Postgres and Redis containers and seeds
// catalogue data for integration tests.
package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"storefront/internal/config"
	"storefront/internal/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// SkipIfShort skips integration tests under -short.
func SkipIfShort(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test")
	}
}

// NewPostgres starts a PostgreSQL container, applies the schema and returns a
// pool. The container is terminated when the test finishes.
func NewPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()

	ctx := context.Background()

	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("storefront"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	dbConfig := config.DatabaseConfig{
		MaxConnections: 20,
		MinConnections: 2,
		AutoMigrate:    true,
	}

	pool, err := database.NewPoolFromURL(ctx, connStr, dbConfig, zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to create connection pool: %v", err)
	}

	t.Cleanup(func() {
		pool.Close()
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	return pool
}

// Truncate removes all rows from every table.
func Truncate(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	ctx := context.Background()

	tables := []string{"orders", "order_sequences", "variants", "products", "customers"}
	for _, table := range tables {
		if _, err := pool.Exec(ctx, fmt.Sprintf("DELETE FROM %s", table)); err != nil {
			t.Fatalf("failed to clean table %s: %v", table, err)
		}
	}
}

// SeedCustomer inserts a customer with an empty address book.
func SeedCustomer(t *testing.T, pool *pgxpool.Pool) uuid.UUID {
	t.Helper()

	id := uuid.New()
	_, err := pool.Exec(context.Background(),
		`INSERT INTO customers (id, first_name, last_name, email, phone) VALUES ($1, $2, $3, $4, $5)`,
		id, "Asha", "Rao", id.String()+"@example.com", "+919800000000",
	)
	if err != nil {
		t.Fatalf("failed to seed customer: %v", err)
	}
	return id
}

// SeedProduct inserts an active product.
func SeedProduct(t *testing.T, pool *pgxpool.Pool, name string) uuid.UUID {
	t.Helper()

	id := uuid.New()
	_, err := pool.Exec(context.Background(),
		`INSERT INTO products (id, name) VALUES ($1, $2)`,
		id, name,
	)
	if err != nil {
		t.Fatalf("failed to seed product %s: %v", name, err)
	}
	return id
}

// SeedVariant inserts a variant of productID with the given stock.
func SeedVariant(t *testing.T, pool *pgxpool.Pool, productID uuid.UUID, sku string, quantity int) uuid.UUID {
	t.Helper()

	id := uuid.New()
	_, err := pool.Exec(context.Background(),
		`INSERT INTO variants (id, product_id, sku, price, quantity) VALUES ($1, $2, $3, $4, $5)`,
		id, productID, sku, 499.00, quantity,
	)
	if err != nil {
		t.Fatalf("failed to seed variant %s: %v", sku, err)
	}
	return id
}

// VariantQuantity reads the current stock of a variant.
func VariantQuantity(t *testing.T, pool *pgxpool.Pool, id uuid.UUID) int {
	t.Helper()

	var quantity int
	if err := pool.QueryRow(context.Background(), `SELECT quantity FROM variants WHERE id = $1`, id).Scan(&quantity); err != nil {
		t.Fatalf("failed to read variant %s: %v", id, err)
	}
	return quantity
}

// CountOrders returns the number of stored orders.
func CountOrders(t *testing.T, pool *pgxpool.Pool) int {
	t.Helper()

	var count int
	if err := pool.QueryRow(context.Background(), `SELECT COUNT(*) FROM orders`).Scan(&count); err != nil {
		t.Fatalf("failed to count orders: %v", err)
	}
	return count
}
