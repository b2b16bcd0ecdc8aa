package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"storefront/internal/model"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter hands out a token bucket per client address. Buckets idle for
// longer than ttl are dropped on the next sweep.
type RateLimiter struct {
	mu        sync.Mutex
	clients   map[string]*limiterEntry
	rate      rate.Limit
	burst     int
	ttl       time.Duration
	lastSweep time.Time
	now       func() time.Time
}

// NewRateLimiter creates a limiter allowing rps requests per second per client
// with the given burst.
func NewRateLimiter(rps float64, burst int, ttl time.Duration) *RateLimiter {
	return &RateLimiter{
		clients:   make(map[string]*limiterEntry),
		rate:      rate.Limit(rps),
		burst:     burst,
		ttl:       ttl,
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

// Allow reports whether client may make a request now.
func (rl *RateLimiter) Allow(client string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastSweep) >= rl.ttl {
		for key, entry := range rl.clients {
			if now.Sub(entry.lastSeen) >= rl.ttl {
				delete(rl.clients, key)
			}
		}
		rl.lastSweep = now
	}

	entry, ok := rl.clients[client]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.clients[client] = entry
	}
	entry.lastSeen = now

	return entry.limiter.AllowN(now, 1)
}

// Size returns the number of tracked clients.
func (rl *RateLimiter) Size() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

// RateLimit rejects requests over the per-client limit with 429.
func RateLimit(rl *RateLimiter, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := clientAddr(r)
			if !rl.Allow(client) {
				logger.Warn().Str("client", client).Str("path", r.URL.Path).Msg("rate limit exceeded")
				w.Header().Set("Retry-After", "1")
				writeError(w, model.NewDomainError(model.ErrCodeRateLimited, "Too many requests", http.StatusTooManyRequests))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
