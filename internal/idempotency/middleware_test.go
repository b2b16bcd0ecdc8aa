package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"storefront/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryStore is an in-process Store.
type memoryStore struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	failAll bool
}

type memoryEntry struct {
	fingerprint string
	rec         *Record
}

func newMemoryStore() *memoryStore {
	return &memoryStore{entries: make(map[string]*memoryEntry)}
}

func (s *memoryStore) Begin(ctx context.Context, key, fingerprint string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failAll {
		return nil, errors.New("connection refused")
	}

	entry, ok := s.entries[key]
	if !ok {
		s.entries[key] = &memoryEntry{fingerprint: fingerprint}
		return nil, nil
	}
	if entry.fingerprint != fingerprint {
		return nil, ErrFingerprintMismatch
	}
	if entry.rec == nil {
		return nil, ErrInProgress
	}
	return entry.rec, nil
}

func (s *memoryStore) Complete(ctx context.Context, key string, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = &memoryEntry{fingerprint: rec.RequestHash, rec: &rec}
	return nil
}

func (s *memoryStore) Release(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

func (s *memoryStore) has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[key]
	return ok
}

func staticScope(scope string) func(*http.Request) string {
	return func(r *http.Request) string { return scope }
}

func newRequest(key string) *http.Request {
	return newRequestWithBody(key, `{}`)
}

func newRequestWithBody(key, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(body))
	if key != "" {
		req.Header.Set(HeaderKey, key)
	}
	return req
}

func TestMiddleware_ReplaysSuccessfulResponse(t *testing.T) {
	store := newMemoryStore()
	calls := 0
	handler := Middleware(store, staticScope("ops"), zerolog.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"orderNumber":"ORD2505230001"}`))
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, newRequest("abc-123"))

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, newRequest("abc-123"))

	assert.Equal(t, 1, calls)
	assert.Equal(t, http.StatusCreated, first.Code)
	assert.Empty(t, first.Header().Get(HeaderReplayed))
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "true", second.Header().Get(HeaderReplayed))
	assert.Equal(t, "application/json", second.Header().Get("Content-Type"))
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.True(t, store.has("ops:POST:/api/orders:abc-123"))
}

func TestMiddleware_ReleasesKeyOnFailure(t *testing.T) {
	store := newMemoryStore()
	calls := 0
	handler := Middleware(store, staticScope("ops"), zerolog.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, newRequest("abc-123"))
	assert.Equal(t, http.StatusBadRequest, first.Code)
	assert.False(t, store.has("ops:POST:/api/orders:abc-123"))

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, newRequest("abc-123"))
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, 2, calls)
}

func TestMiddleware_InProgress(t *testing.T) {
	store := newMemoryStore()
	_, err := store.Begin(context.Background(), "ops:POST:/api/orders:abc-123", Fingerprint([]byte(`{}`)))
	require.NoError(t, err)

	handler := Middleware(store, staticScope("ops"), zerolog.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run while the key is held")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, newRequest("abc-123"))

	assert.Equal(t, http.StatusConflict, rec.Code)
	var body model.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, model.ErrCodeIdempotencyInProgress, body.Code)
	assert.Equal(t, http.StatusConflict, body.StatusCode)
}

func TestMiddleware_PassThrough(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		store *memoryStore
	}{
		{name: "no key", key: "", store: newMemoryStore()},
		{name: "store unavailable", key: "abc-123", store: &memoryStore{entries: map[string]*memoryEntry{}, failAll: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			handler := Middleware(tt.store, staticScope("ops"), zerolog.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls++
				w.WriteHeader(http.StatusCreated)
			}))

			for i := 0; i < 2; i++ {
				rec := httptest.NewRecorder()
				handler.ServeHTTP(rec, newRequest(tt.key))
				assert.Equal(t, http.StatusCreated, rec.Code)
			}
			assert.Equal(t, 2, calls)
		})
	}
}

func TestMiddleware_KeyTooLong(t *testing.T) {
	handler := Middleware(newMemoryStore(), staticScope("ops"), zerolog.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, newRequest(strings.Repeat("k", 256)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), model.ErrCodeInvalidRequest)
}

func TestMiddleware_ScopesKeysByActor(t *testing.T) {
	store := newMemoryStore()
	calls := 0
	scope := func(r *http.Request) string { return r.Header.Get("X-Actor") }
	handler := Middleware(store, scope, zerolog.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))

	for _, actor := range []string{"alice", "bob"} {
		req := newRequest("same-key")
		req.Header.Set("X-Actor", actor)
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}

	assert.Equal(t, 2, calls)
}

func TestMiddleware_PanicReleasesKey(t *testing.T) {
	store := newMemoryStore()
	handler := Middleware(store, staticScope("ops"), zerolog.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	assert.Panics(t, func() {
		handler.ServeHTTP(httptest.NewRecorder(), newRequest("abc-123"))
	})
	assert.False(t, store.has("ops:POST:/api/orders:abc-123"))
}

func TestMiddleware_DifferentBodyIsRejected(t *testing.T) {
	store := newMemoryStore()
	var bodies []string
	handler := Middleware(store, staticScope("ops"), zerolog.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		bodies = append(bodies, string(b))
		w.WriteHeader(http.StatusCreated)
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, newRequestWithBody("k1", `{"qty":1}`))
	require.Equal(t, http.StatusCreated, first.Code)

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, newRequestWithBody("k1", `{"qty":99}`))

	assert.Equal(t, http.StatusUnprocessableEntity, second.Code)
	assert.Empty(t, second.Header().Get(HeaderReplayed))
	var body model.ErrorResponse
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &body))
	assert.Equal(t, model.ErrCodeIdempotencyKeyMismatch, body.Code)

	// The handler saw the full body once; the second cart never reached it.
	assert.Equal(t, []string{`{"qty":1}`}, bodies)

	// The original body still replays.
	third := httptest.NewRecorder()
	handler.ServeHTTP(third, newRequestWithBody("k1", `{"qty":1}`))
	assert.Equal(t, http.StatusCreated, third.Code)
	assert.Equal(t, "true", third.Header().Get(HeaderReplayed))
	assert.Len(t, bodies, 1)
}

func TestMiddleware_DifferentBodyWhileInProgress(t *testing.T) {
	store := newMemoryStore()
	_, err := store.Begin(context.Background(), "ops:POST:/api/orders:k1", Fingerprint([]byte(`{"qty":1}`)))
	require.NoError(t, err)

	handler := Middleware(store, staticScope("ops"), zerolog.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, newRequestWithBody("k1", `{"qty":99}`))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), model.ErrCodeIdempotencyKeyMismatch)
}

func TestFingerprint(t *testing.T) {
	assert.Equal(t, Fingerprint([]byte(`{"qty":1}`)), Fingerprint([]byte(`{"qty":1}`)))
	assert.NotEqual(t, Fingerprint([]byte(`{"qty":1}`)), Fingerprint([]byte(`{"qty":99}`)))
	assert.Len(t, Fingerprint(nil), 64)
}
