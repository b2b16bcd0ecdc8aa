package handler

import (
	"net/http"

	"storefront/internal/service"

	"github.com/rs/zerolog"
)

// CustomerHandler handles customer-related HTTP requests.
type CustomerHandler struct {
	service service.CustomerService
	logger  zerolog.Logger
}

// NewCustomerHandler creates a new customer handler.
func NewCustomerHandler(service service.CustomerService, logger zerolog.Logger) *CustomerHandler {
	return &CustomerHandler{
		service: service,
		logger:  logger.With().Str("handler", "customer").Logger(),
	}
}

// GetAddresses handles GET /api/customers/{customerId}/addresses requests.
func (h *CustomerHandler) GetAddresses(w http.ResponseWriter, r *http.Request) {
	customerID, err := pathUUID(r, "customerId", "customer")
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	addresses, err := h.service.GetAddresses(r.Context(), customerID)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, addresses, h.logger)
}
