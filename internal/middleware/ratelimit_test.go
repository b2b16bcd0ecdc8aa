package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"storefront/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimit(t *testing.T) {
	rl := NewRateLimiter(0.001, 2, time.Minute)
	handler := RateLimit(rl, zerolog.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(remoteAddr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
		req.RemoteAddr = remoteAddr
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, send("10.0.0.1:5000").Code)
	assert.Equal(t, http.StatusOK, send("10.0.0.1:5001").Code)

	limited := send("10.0.0.1:5002")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, "1", limited.Header().Get("Retry-After"))

	var resp model.ErrorResponse
	require.NoError(t, json.Unmarshal(limited.Body.Bytes(), &resp))
	assert.Equal(t, model.ErrCodeRateLimited, resp.Code)

	// Other clients have their own bucket.
	assert.Equal(t, http.StatusOK, send("10.0.0.2:5000").Code)
}

func TestRateLimiter_SweepsIdleClients(t *testing.T) {
	rl := NewRateLimiter(10, 1, time.Minute)
	now := time.Date(2025, 5, 23, 10, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	rl.lastSweep = now

	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"))
	assert.Equal(t, 2, rl.Size())

	now = now.Add(30 * time.Second)
	assert.True(t, rl.Allow("b"))

	now = now.Add(40 * time.Second)
	assert.True(t, rl.Allow("c"))

	// "a" was idle past the ttl; "b" was seen 40s ago.
	assert.Equal(t, 2, rl.Size())
}

func TestClientAddr(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		expected   string
	}{
		{name: "IPv4 with port", remoteAddr: "192.0.2.1:1234", expected: "192.0.2.1"},
		{name: "IPv6 with port", remoteAddr: "[2001:db8::1]:443", expected: "2001:db8::1"},
		{name: "No port", remoteAddr: "192.0.2.1", expected: "192.0.2.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr

			assert.Equal(t, tt.expected, clientAddr(req))
		})
	}
}
