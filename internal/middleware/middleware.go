package middleware

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"storefront/internal/metrics"
	"storefront/internal/model"

	"github.com/rs/zerolog"
)

const (
	// HeaderAPIKey carries the shared API key.
	HeaderAPIKey = "X-API-Key"

	// HeaderActor optionally names the operator behind an authenticated request.
	HeaderActor = "X-Actor"

	maxActorLength = 100
)

type contextKey struct{}

var actorKey contextKey

// WithActor returns a copy of ctx carrying actor.
func WithActor(ctx context.Context, actor model.Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// ActorFromContext returns the actor set by APIKeyAuth, or the zero Actor.
func ActorFromContext(ctx context.Context) model.Actor {
	actor, _ := ctx.Value(actorKey).(model.Actor)
	return actor
}

// CORS adds CORS headers to the response.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-API-Key, X-Actor, Idempotency-Key")

		// Handle preflight requests
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// APIKeyAuth validates the API key from the X-API-Key header and stores the
// request's actor in its context.
func APIKeyAuth(apiKey string, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPublicPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			providedKey := r.Header.Get(HeaderAPIKey)
			if providedKey == "" {
				logger.Warn().Str("path", r.URL.Path).Msg("missing API key")
				writeError(w, model.NewDomainError(model.ErrCodeUnauthorised, "Missing API key", http.StatusUnauthorized))
				return
			}

			if subtle.ConstantTimeCompare([]byte(providedKey), []byte(apiKey)) != 1 {
				logger.Warn().
					Str("path", r.URL.Path).
					Str("provided_key", providedKey[:min(8, len(providedKey))]).
					Msg("invalid API key")
				writeError(w, model.NewDomainError(model.ErrCodeUnauthorised, "Invalid API key", http.StatusUnauthorized))
				return
			}

			actor := model.Actor{Subject: strings.TrimSpace(r.Header.Get(HeaderActor))}
			if len(actor.Subject) > maxActorLength {
				writeError(w, model.NewInvalidRequestError("X-Actor must be at most 100 characters"))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

func isPublicPath(path string) bool {
	return path == "/health" || path == "/ready" || path == "/metrics"
}

// Logging logs HTTP requests with timing information.
func Logging(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Create a response writer wrapper to capture status code
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			duration := time.Since(start)

			event := logger.Info()
			if rw.statusCode >= http.StatusInternalServerError {
				event = logger.Error()
			}
			event.
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", rw.statusCode).
				Dur("duration", duration).
				Str("remote_addr", r.RemoteAddr).
				Msg("http request")
		})
	}
}

// RouteResolver reports the pattern a request will be routed to.
// *http.ServeMux satisfies it.
type RouteResolver interface {
	Handler(r *http.Request) (http.Handler, string)
}

// Metrics records request count and latency per route pattern. Requests that
// match no route, or only the catch-all "/" pattern, share the "unmatched"
// label so arbitrary paths cannot blow up label cardinality.
func Metrics(m *metrics.Metrics, routes RouteResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			route := "unmatched"
			if _, pattern := routes.Handler(r); pattern != "" && pattern != "/" {
				route = pattern
			}

			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rw, r)

			m.ObserveRequest(route, rw.statusCode, time.Since(start))
		})
	}
}

// Recovery recovers from panics and returns a 500 error.
func Recovery(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					if err == http.ErrAbortHandler {
						panic(err)
					}

					logger.Error().
						Interface("panic", err).
						Str("method", r.Method).
						Str("path", r.URL.Path).
						Msg("panic recovered")

					writeError(w, model.NewInternalError("Internal server error", nil))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, err *model.DomainError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.StatusCode)
	_ = json.NewEncoder(w).Encode(err.Response())
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

// WriteHeader captures the status code.
func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}
