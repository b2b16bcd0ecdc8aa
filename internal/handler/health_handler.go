package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"storefront/internal/middleware"
	"storefront/internal/model"

	"github.com/rs/zerolog"
)

// Pinger is implemented by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthResponse is returned by the health endpoints.
type HealthResponse struct {
	Status string `json:"status"`
}

// HealthHandler serves liveness and readiness checks.
type HealthHandler struct {
	db      Pinger
	timeout time.Duration
	logger  zerolog.Logger
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(db Pinger, logger zerolog.Logger) *HealthHandler {
	return &HealthHandler{
		db:      db,
		timeout: 2 * time.Second,
		logger:  logger.With().Str("handler", "health").Logger(),
	}
}

// Live handles GET /health requests.
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "healthy"}, h.logger)
}

// Ready handles GET /ready requests. It fails while the database is unreachable.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		h.logger.Warn().Err(err).Msg("readiness check failed")
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unavailable"}, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, HealthResponse{Status: "ready"}, h.logger)
}

var routedMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete}

// Fallback answers requests no route matched, distinguishing an unknown path
// from a known path called with the wrong method. It must be registered on
// the "/" pattern of routes.
func Fallback(routes middleware.RouteResolver, logger zerolog.Logger) http.HandlerFunc {
	logger = logger.With().Str("handler", "fallback").Logger()

	return func(w http.ResponseWriter, r *http.Request) {
		var allowed []string
		for _, method := range routedMethods {
			candidate := r.Clone(r.Context())
			candidate.Method = method
			if _, pattern := routes.Handler(candidate); pattern != "" && pattern != "/" {
				allowed = append(allowed, method)
			}
		}

		if len(allowed) > 0 {
			w.Header().Set("Allow", strings.Join(allowed, ", "))
			writeError(w, model.NewDomainError(
				model.ErrCodeMethodNotAllowed,
				fmt.Sprintf("Method %s is not allowed on %s", r.Method, r.URL.Path),
				http.StatusMethodNotAllowed,
			), logger)
			return
		}

		writeError(w, model.NewDomainError(model.ErrCodeNotFound, "Resource not found", http.StatusNotFound), logger)
	}
}
