package database

import (
	"context"
	"fmt"
	"time"

	"storefront/internal/config"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// NewPool creates a new PostgreSQL connection pool and, when configured,
// applies the schema.
func NewPool(ctx context.Context, cfg config.DatabaseConfig, logger zerolog.Logger) (*pgxpool.Pool, error) {
	return NewPoolFromURL(ctx, cfg.ConnectionString(), cfg, logger)
}

// NewPoolFromURL is NewPool with an explicit connection string, used when the
// address is only known at runtime (containers, managed databases).
func NewPoolFromURL(ctx context.Context, connString string, cfg config.DatabaseConfig, logger zerolog.Logger) (*pgxpool.Pool, error) {
	logger = logger.With().Str("component", "database").Logger()

	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	if cfg.MaxConnections > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConnections)
	}
	if cfg.MinConnections > 0 {
		poolConfig.MinConns = int32(cfg.MinConnections)
	}
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = time.Duration(cfg.MaxConnLifetime) * time.Second
	}
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = 1 * time.Minute

	logger.Info().
		Str("host", poolConfig.ConnConfig.Host).
		Uint16("port", poolConfig.ConnConfig.Port).
		Str("database", poolConfig.ConnConfig.Database).
		Int32("max_connections", poolConfig.MaxConns).
		Int32("min_connections", poolConfig.MinConns).
		Msg("creating database connection pool")

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if cfg.AutoMigrate {
		if err := Migrate(ctx, pool, logger); err != nil {
			pool.Close()
			return nil, err
		}
	}

	logger.Info().Msg("database connection pool created successfully")

	return pool, nil
}
