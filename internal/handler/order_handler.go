package handler

import (
	"net/http"

	"storefront/internal/middleware"
	"storefront/internal/model"
	"storefront/internal/service"

	"github.com/rs/zerolog"
)

// OrderHandler handles order-related HTTP requests.
type OrderHandler struct {
	service service.OrderService
	logger  zerolog.Logger
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(service service.OrderService, logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{
		service: service,
		logger:  logger.With().Str("handler", "order").Logger(),
	}
}

// Create handles POST /api/orders requests.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.PlaceOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err, h.logger)
		return
	}

	order, err := h.service.PlaceOrder(r.Context(), middleware.ActorFromContext(r.Context()), &req)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, order, h.logger)
}

// GetByID handles GET /api/orders/{id} requests.
func (h *OrderHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathUUID(r, "id", "order")
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	order, err := h.service.GetOrder(r.Context(), orderID)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order, h.logger)
}

// GetByNumber handles GET /api/orders/number/{orderNumber} requests.
func (h *OrderHandler) GetByNumber(w http.ResponseWriter, r *http.Request) {
	order, err := h.service.GetOrderByNumber(r.Context(), r.PathValue("orderNumber"))
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order, h.logger)
}

// GetCustomerOrder handles GET /api/customers/{customerId}/orders/{id} requests.
func (h *OrderHandler) GetCustomerOrder(w http.ResponseWriter, r *http.Request) {
	customerID, err := pathUUID(r, "customerId", "customer")
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	orderID, err := pathUUID(r, "id", "order")
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	order, err := h.service.GetCustomerOrder(r.Context(), customerID, orderID)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order, h.logger)
}

// UpdateStatus handles PUT /api/orders/{id}/status requests.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathUUID(r, "id", "order")
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	var req model.UpdateStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err, h.logger)
		return
	}

	order, err := h.service.UpdateStatus(r.Context(), middleware.ActorFromContext(r.Context()), orderID, &req)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order, h.logger)
}

// Delete handles DELETE /api/orders/{id} requests.
func (h *OrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathUUID(r, "id", "order")
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	if err := h.service.DeleteOrder(r.Context(), middleware.ActorFromContext(r.Context()), orderID); err != nil {
		writeError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, model.DeleteOrderResponse{Message: "Order deleted successfully"}, h.logger)
}
