package router

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"storefront/internal/handler"
	"storefront/internal/idempotency"
	"storefront/internal/metrics"
	"storefront/internal/middleware"
	"storefront/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAPIKey = "test-api-key-123"

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error { return nil }

type stubProductService struct{}

func (stubProductService) GetByID(ctx context.Context, id uuid.UUID) (*model.ProductResponse, error) {
	return &model.ProductResponse{Product: model.Product{ID: id, Name: "Linen Shirt"}}, nil
}

type stubCustomerService struct{}

func (stubCustomerService) GetAddresses(ctx context.Context, customerID uuid.UUID) ([]model.ShippingAddress, error) {
	return []model.ShippingAddress{}, nil
}

// countingOrderService places orders with consecutive numbers and records
// the actors it was called with.
type countingOrderService struct {
	mu     sync.Mutex
	placed int
	actors []string
}

func (s *countingOrderService) PlaceOrder(ctx context.Context, actor model.Actor, req *model.PlaceOrderRequest) (*model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.placed++
	s.actors = append(s.actors, actor.Name())
	return &model.Order{ID: uuid.New(), OrderNumber: fmt.Sprintf("ORD250523%04d", s.placed), Status: model.StatusPlaced}, nil
}

func (s *countingOrderService) GetOrder(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	return nil, model.ErrOrderNotFound
}

func (s *countingOrderService) GetOrderByNumber(ctx context.Context, orderNumber string) (*model.Order, error) {
	return &model.Order{OrderNumber: orderNumber}, nil
}

func (s *countingOrderService) GetCustomerOrder(ctx context.Context, customerID, id uuid.UUID) (*model.Order, error) {
	return &model.Order{ID: id, CustomerID: customerID}, nil
}

func (s *countingOrderService) UpdateStatus(ctx context.Context, actor model.Actor, id uuid.UUID, req *model.UpdateStatusRequest) (*model.Order, error) {
	return &model.Order{ID: id, Status: req.Status}, nil
}

func (s *countingOrderService) DeleteOrder(ctx context.Context, actor model.Actor, id uuid.UUID) error {
	return nil
}

// memoryStore is a minimal in-process idempotency.Store.
type memoryStore struct {
	mu      sync.Mutex
	entries map[string]*idempotency.Record
}

func (s *memoryStore) Begin(ctx context.Context, key, fingerprint string) (*idempotency.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.entries[key]
	if !ok {
		s.entries[key] = &idempotency.Record{RequestHash: fingerprint}
		return nil, nil
	}
	if rec.RequestHash != fingerprint {
		return nil, idempotency.ErrFingerprintMismatch
	}
	if rec.StatusCode == 0 {
		return nil, idempotency.ErrInProgress
	}
	return rec, nil
}

func (s *memoryStore) Complete(ctx context.Context, key string, rec idempotency.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = &rec
	return nil
}

func (s *memoryStore) Release(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

type fixture struct {
	router  http.Handler
	orders  *countingOrderService
	metrics *metrics.Metrics
}

func newFixture(t *testing.T, limiter *middleware.RateLimiter) *fixture {
	t.Helper()

	logger := zerolog.Nop()
	orders := &countingOrderService{}
	m := metrics.New()

	h := Handlers{
		Health:   handler.NewHealthHandler(stubPinger{}, logger),
		Product:  handler.NewProductHandler(stubProductService{}, logger),
		Customer: handler.NewCustomerHandler(stubCustomerService{}, logger),
		Order:    handler.NewOrderHandler(orders, logger),
	}

	return &fixture{
		router: New(h, Options{
			APIKey:      testAPIKey,
			Metrics:     m,
			RateLimiter: limiter,
			Idempotency: &memoryStore{entries: make(map[string]*idempotency.Record)},
		}, logger),
		orders:  orders,
		metrics: m,
	}
}

func (f *fixture) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func authed(extra map[string]string) map[string]string {
	headers := map[string]string{middleware.HeaderAPIKey: testAPIKey}
	for k, v := range extra {
		headers[k] = v
	}
	return headers
}

func TestRouter_Routes(t *testing.T) {
	f := newFixture(t, nil)
	id := uuid.NewString()
	customerID := uuid.NewString()

	tests := []struct {
		name           string
		method         string
		path           string
		body           string
		headers        map[string]string
		expectedStatus int
		expectedCode   string
	}{
		{name: "Health without key", method: http.MethodGet, path: "/health", expectedStatus: http.StatusOK},
		{name: "Ready without key", method: http.MethodGet, path: "/ready", expectedStatus: http.StatusOK},
		{name: "Metrics without key", method: http.MethodGet, path: "/metrics", expectedStatus: http.StatusOK},
		{name: "Orders require key", method: http.MethodGet, path: "/api/orders/" + id, expectedStatus: http.StatusUnauthorized, expectedCode: model.ErrCodeUnauthorised},
		{name: "Product by ID", method: http.MethodGet, path: "/api/products/" + id, headers: authed(nil), expectedStatus: http.StatusOK},
		{name: "Order not found", method: http.MethodGet, path: "/api/orders/" + id, headers: authed(nil), expectedStatus: http.StatusNotFound, expectedCode: model.ErrCodeOrderNotFound},
		{name: "Order by number", method: http.MethodGet, path: "/api/orders/number/ORD2505230001", headers: authed(nil), expectedStatus: http.StatusOK},
		{name: "Customer order", method: http.MethodGet, path: "/api/customers/" + customerID + "/orders/" + id, headers: authed(nil), expectedStatus: http.StatusOK},
		{name: "Customer addresses", method: http.MethodGet, path: "/api/customers/" + customerID + "/addresses", headers: authed(nil), expectedStatus: http.StatusOK},
		{name: "Update status", method: http.MethodPut, path: "/api/orders/" + id + "/status", body: `{"status":"confirmed"}`, headers: authed(nil), expectedStatus: http.StatusOK},
		{name: "Delete", method: http.MethodDelete, path: "/api/orders/" + id, headers: authed(nil), expectedStatus: http.StatusOK},
		{name: "Place order", method: http.MethodPost, path: "/api/orders", body: `{}`, headers: authed(nil), expectedStatus: http.StatusCreated},
		{name: "Unknown path", method: http.MethodGet, path: "/api/unknown", headers: authed(nil), expectedStatus: http.StatusNotFound, expectedCode: model.ErrCodeNotFound},
		{name: "Wrong method", method: http.MethodPatch, path: "/api/orders/" + id, headers: authed(nil), expectedStatus: http.StatusMethodNotAllowed, expectedCode: model.ErrCodeMethodNotAllowed},
		{name: "Preflight", method: http.MethodOptions, path: "/api/orders", expectedStatus: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(tt.method, tt.path, tt.body, tt.headers)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedCode != "" {
				var resp model.ErrorResponse
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				assert.Equal(t, tt.expectedCode, resp.Code)
			}
		})
	}
}

func TestRouter_ActorReachesService(t *testing.T) {
	f := newFixture(t, nil)

	f.do(http.MethodPost, "/api/orders", `{}`, authed(map[string]string{middleware.HeaderActor: "warehouse-7"}))
	f.do(http.MethodPost, "/api/orders", `{}`, authed(nil))

	assert.Equal(t, []string{"warehouse-7", model.DefaultActor}, f.orders.actors)
}

func TestRouter_IdempotentPlacement(t *testing.T) {
	f := newFixture(t, nil)
	headers := authed(map[string]string{idempotency.HeaderKey: "checkout-42"})

	first := f.do(http.MethodPost, "/api/orders", `{}`, headers)
	second := f.do(http.MethodPost, "/api/orders", `{}`, headers)

	require.Equal(t, http.StatusCreated, first.Code)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "true", second.Header().Get(idempotency.HeaderReplayed))
	assert.Equal(t, 1, f.orders.placed)

	changed := f.do(http.MethodPost, "/api/orders", `{"customerId":"other"}`, headers)
	assert.Equal(t, http.StatusUnprocessableEntity, changed.Code)
	assert.Equal(t, 1, f.orders.placed)

	// A different actor does not share the key.
	other := f.do(http.MethodPost, "/api/orders", `{}`, authed(map[string]string{
		idempotency.HeaderKey:  "checkout-42",
		middleware.HeaderActor: "someone-else",
	}))
	assert.Equal(t, http.StatusCreated, other.Code)
	assert.Equal(t, 2, f.orders.placed)
}

func TestRouter_RateLimit(t *testing.T) {
	f := newFixture(t, middleware.NewRateLimiter(0.001, 1, time.Minute))

	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/api/orders/number/ORD2505230001", "", authed(nil)).Code)

	limited := f.do(http.MethodGet, "/api/orders/number/ORD2505230001", "", authed(nil))
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
}

func TestRouter_MetricsExposeRoutes(t *testing.T) {
	f := newFixture(t, nil)

	f.do(http.MethodGet, "/api/orders/number/ORD2505230001", "", authed(nil))
	f.do(http.MethodGet, "/api/unknown", "", authed(nil))
	w := f.do(http.MethodGet, "/metrics", "", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `storefront_http_requests_total{route="GET /api/orders/number/{orderNumber}",status="200"} 1`)
	assert.Contains(t, w.Body.String(), `storefront_http_requests_total{route="unmatched",status="404"} 1`)
}
