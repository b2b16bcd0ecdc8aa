package handler

import (
	"net/http"

	"storefront/internal/service"

	"github.com/rs/zerolog"
)

// ProductHandler handles product-related HTTP requests.
type ProductHandler struct {
	service service.ProductService
	logger  zerolog.Logger
}

// NewProductHandler creates a new product handler.
func NewProductHandler(service service.ProductService, logger zerolog.Logger) *ProductHandler {
	return &ProductHandler{
		service: service,
		logger:  logger.With().Str("handler", "product").Logger(),
	}
}

// GetByID handles GET /api/products/{id} requests.
func (h *ProductHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	productID, err := pathUUID(r, "id", "product")
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	product, err := h.service.GetByID(r.Context(), productID)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, product, h.logger)
}
