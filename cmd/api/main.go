package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	// Order numbers are dated in a configurable zone; do not depend on the
	// host's zoneinfo.
	_ "time/tzdata"

	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/handler"
	"storefront/internal/idempotency"
	"storefront/internal/metrics"
	"storefront/internal/middleware"
	"storefront/internal/repository"
	"storefront/internal/router"
	"storefront/internal/service"
	"storefront/internal/serviceability"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Logger, "storefront-api")
	logger.Info().Msg("starting storefront API server")

	// Create context for application lifecycle
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	// Initialize repositories
	repos := service.Repositories{
		Orders:    repository.NewOrderRepository(pool, logger),
		Customers: repository.NewCustomerRepository(pool, logger),
		Products:  repository.NewProductRepository(pool, logger),
		Variants:  repository.NewVariantRepository(logger),
	}
	productRepo := repos.Products

	// Initialize the pincode checker (S3 with local fallback when enabled)
	checker, err := serviceability.NewChecker(ctx, cfg.Serviceability, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize serviceability checker: %w", err)
	}
	defer checker.Close()

	// Idempotent order placement needs Redis; without it the header is ignored.
	var idempotencyStore idempotency.Store
	if cfg.Redis.Enabled {
		client, err := idempotency.NewRedisClient(ctx, cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer client.Close()

		idempotencyStore = idempotency.NewRedisStore(client, time.Duration(cfg.Redis.IdempotencyTTL)*time.Second, logger)
		logger.Info().Msg("idempotent order placement enabled")
	} else {
		logger.Info().Msg("redis disabled, Idempotency-Key header will be ignored")
	}

	var limiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, 5*time.Minute)
	}

	m := metrics.New()

	loc, err := cfg.Orders.Location()
	if err != nil {
		return fmt.Errorf("failed to load order timezone: %w", err)
	}

	// Initialize services
	productService := service.NewProductService(productRepo, logger)
	customerService := service.NewCustomerService(repos.Customers, logger)
	orderService := service.NewOrderService(repos, checker, m, service.OrderServiceConfig{
		Location:       loc,
		DeliveryWindow: cfg.Orders.DefaultDeliveryWindow(),
		MaxAttempts:    cfg.Orders.MaxPlacementAttempts,
	}, logger)

	// Initialize HTTP handlers
	handlers := router.Handlers{
		Health:   handler.NewHealthHandler(pool, logger),
		Product:  handler.NewProductHandler(productService, logger),
		Customer: handler.NewCustomerHandler(customerService, logger),
		Order:    handler.NewOrderHandler(orderService, logger),
	}

	// Initialize router
	mux := router.New(handlers, router.Options{
		APIKey:      cfg.Auth.APIKey,
		Metrics:     m,
		RateLimiter: limiter,
		Idempotency: idempotencyStore,
	}, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Channel to listen for errors from the server
	serverErrors := make(chan error, 1)

	// Start HTTP server in a goroutine
	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Str("order_timezone", loc.String()).
			Msg("HTTP server started")
		serverErrors <- server.ListenAndServe()
	}()

	// Channel to listen for interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or an error
	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info().
			Str("signal", sig.String()).
			Msg("shutdown signal received, starting graceful shutdown")

		// Create a context with timeout for shutdown
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
		defer shutdownCancel()

		// Attempt graceful shutdown
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			// Force close
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		logger.Info().Msg("server shutdown completed")
	}

	return nil
}
