package idempotency

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"storefront/internal/model"

	"github.com/rs/zerolog"
)

const (
	// HeaderKey carries the client-chosen idempotency key.
	HeaderKey = "Idempotency-Key"

	// HeaderReplayed marks a response served from the store.
	HeaderReplayed = "Idempotent-Replayed"

	maxKeyLength = 255

	// maxBodyBytes matches the handlers' request body limit. Bodies are read
	// and fingerprinted up to one byte past it.
	maxBodyBytes = 1 << 20
)

// Middleware makes the wrapped handler idempotent per key. scope returns the
// namespace keys live in, normally the authenticated actor, so two callers
// cannot collide on the same key. A key is bound to the SHA-256 of the body
// it was first used with; reusing it with another body is rejected.
// Requests without the header pass through. Store failures degrade to
// running the request without idempotency.
func Middleware(store Store, scope func(*http.Request) string, logger zerolog.Logger) func(http.Handler) http.Handler {
	logger = logger.With().Str("component", "idempotency").Logger()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientKey := r.Header.Get(HeaderKey)
			if clientKey == "" {
				next.ServeHTTP(w, r)
				return
			}

			if len(clientKey) > maxKeyLength {
				writeError(w, model.NewInvalidRequestError("Idempotency-Key must be at most 255 characters"))
				return
			}

			body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
			if err != nil {
				writeError(w, model.NewInvalidRequestError("Failed to read request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))
			fingerprint := Fingerprint(body)

			key := scope(r) + ":" + r.Method + ":" + r.URL.Path + ":" + clientKey
			ctx := r.Context()

			rec, err := store.Begin(ctx, key, fingerprint)
			switch {
			case errors.Is(err, ErrFingerprintMismatch):
				logger.Warn().Str("key", clientKey).Msg("idempotency key reused with a different body")
				writeError(w, model.NewDomainError(
					model.ErrCodeIdempotencyKeyMismatch,
					"Idempotency-Key was already used with a different request body",
					http.StatusUnprocessableEntity,
				))
				return
			case errors.Is(err, ErrInProgress):
				writeError(w, model.NewDomainError(
					model.ErrCodeIdempotencyInProgress,
					"A request with this Idempotency-Key is already being processed",
					http.StatusConflict,
				))
				return
			case err != nil:
				logger.Error().Err(err).Msg("idempotency store unavailable, serving request without it")
				next.ServeHTTP(w, r)
				return
			case rec != nil:
				logger.Debug().Str("key", clientKey).Int("status", rec.StatusCode).Msg("replaying stored response")
				replay(w, rec)
				return
			}

			cw := &captureWriter{ResponseWriter: w, statusCode: http.StatusOK}
			completed := false

			// A panicking handler must not leave the key reserved.
			defer func() {
				if !completed {
					release(store, key, logger)
				}
			}()

			next.ServeHTTP(cw, r)

			if cw.statusCode >= 200 && cw.statusCode < 300 {
				err := store.Complete(context.WithoutCancel(ctx), key, Record{
					RequestHash: fingerprint,
					StatusCode:  cw.statusCode,
					ContentType: cw.Header().Get("Content-Type"),
					Body:        cw.body.Bytes(),
				})
				if err != nil {
					logger.Error().Err(err).Msg("failed to store idempotent response")
					return
				}
				completed = true
			}
		})
	}
}

// Fingerprint returns the hex SHA-256 of a request body.
func Fingerprint(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

func release(store Store, key string, logger zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := store.Release(ctx, key); err != nil {
		logger.Error().Err(err).Msg("failed to release idempotency key")
	}
}

func replay(w http.ResponseWriter, rec *Record) {
	if rec.ContentType != "" {
		w.Header().Set("Content-Type", rec.ContentType)
	}
	w.Header().Set(HeaderReplayed, "true")
	w.WriteHeader(rec.StatusCode)
	_, _ = w.Write(rec.Body)
}

func writeError(w http.ResponseWriter, err *model.DomainError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.StatusCode)
	_ = json.NewEncoder(w).Encode(err.Response())
}

// captureWriter copies the response while passing it through.
type captureWriter struct {
	http.ResponseWriter
	statusCode  int
	body        bytes.Buffer
	wroteHeader bool
}

func (cw *captureWriter) WriteHeader(code int) {
	if !cw.wroteHeader {
		cw.statusCode = code
		cw.wroteHeader = true
	}
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
	cw.wroteHeader = true
	cw.body.Write(b)
	return cw.ResponseWriter.Write(b)
}
