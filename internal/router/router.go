package router

import (
	"net/http"

	"storefront/internal/handler"
	"storefront/internal/idempotency"
	"storefront/internal/metrics"
	"storefront/internal/middleware"

	"github.com/rs/zerolog"
)

// Handlers groups the HTTP handlers served by the router.
type Handlers struct {
	Health   *handler.HealthHandler
	Product  *handler.ProductHandler
	Customer *handler.CustomerHandler
	Order    *handler.OrderHandler
}

// Options configures the middleware chain.
type Options struct {
	APIKey  string
	Metrics *metrics.Metrics

	// RateLimiter is optional; nil disables rate limiting.
	RateLimiter *middleware.RateLimiter

	// Idempotency is optional; nil disables Idempotency-Key support on
	// order placement.
	Idempotency idempotency.Store
}

// New creates a new HTTP router with all routes and middleware configured.
func New(h Handlers, opts Options, logger zerolog.Logger) http.Handler {
	mux := http.NewServeMux()

	// Health checks and metrics (no authentication required)
	mux.HandleFunc("GET /health", h.Health.Live)
	mux.HandleFunc("GET /ready", h.Health.Ready)
	if opts.Metrics != nil {
		mux.Handle("GET /metrics", opts.Metrics.Handler())
	}

	mux.HandleFunc("GET /api/products/{id}", h.Product.GetByID)

	var create http.Handler = http.HandlerFunc(h.Order.Create)
	if opts.Idempotency != nil {
		create = idempotency.Middleware(opts.Idempotency, actorScope, logger)(create)
	}
	mux.Handle("POST /api/orders", create)
	mux.HandleFunc("GET /api/orders/{id}", h.Order.GetByID)
	mux.HandleFunc("GET /api/orders/number/{orderNumber}", h.Order.GetByNumber)
	mux.HandleFunc("PUT /api/orders/{id}/status", h.Order.UpdateStatus)
	mux.HandleFunc("DELETE /api/orders/{id}", h.Order.Delete)
	mux.HandleFunc("GET /api/customers/{customerId}/orders/{id}", h.Order.GetCustomerOrder)
	mux.HandleFunc("GET /api/customers/{customerId}/addresses", h.Customer.GetAddresses)

	mux.HandleFunc("/", handler.Fallback(mux, logger))

	// Apply middleware in order: Recovery -> Logging -> Metrics -> CORS -> APIKeyAuth -> RateLimit
	var root http.Handler = mux
	if opts.RateLimiter != nil {
		root = middleware.RateLimit(opts.RateLimiter, logger)(root)
	}
	root = middleware.APIKeyAuth(opts.APIKey, logger)(root)
	root = middleware.CORS(root)
	if opts.Metrics != nil {
		root = middleware.Metrics(opts.Metrics, mux)(root)
	}
	root = middleware.Logging(logger)(root)
	root = middleware.Recovery(logger)(root)

	return root
}

func actorScope(r *http.Request) string {
	return middleware.ActorFromContext(r.Context()).Name()
}
