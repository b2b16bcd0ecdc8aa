package service

import (
	"context"

	"storefront/internal/model"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// productService implements ProductService.
type productService struct {
	productRepo repository.ProductRepository
	logger      zerolog.Logger
}

// NewProductService creates a new product service.
func NewProductService(productRepo repository.ProductRepository, logger zerolog.Logger) ProductService {
	return &productService{
		productRepo: productRepo,
		logger:      logger.With().Str("service", "product").Logger(),
	}
}

// GetByID retrieves a product together with its variants.
func (s *productService) GetByID(ctx context.Context, id uuid.UUID) (*model.ProductResponse, error) {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("product_id", id.String()).Msg("failed to get product")
		return nil, model.NewInternalError("Failed to get product", err)
	}
	if product == nil {
		return nil, model.NewProductNotFoundError(id.String())
	}

	variants, err := s.productRepo.ListVariants(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("product_id", id.String()).Msg("failed to list variants")
		return nil, model.NewInternalError("Failed to get product", err)
	}

	s.logger.Debug().
		Str("product_id", id.String()).
		Int("variant_count", len(variants)).
		Msg("retrieved product")

	return &model.ProductResponse{Product: *product, Variants: variants}, nil
}
