package service

import (
	"context"
	"errors"

	"storefront/internal/model"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// customerService implements CustomerService.
type customerService struct {
	customerRepo repository.CustomerRepository
	logger       zerolog.Logger
}

// NewCustomerService creates a new customer service.
func NewCustomerService(customerRepo repository.CustomerRepository, logger zerolog.Logger) CustomerService {
	return &customerService{
		customerRepo: customerRepo,
		logger:       logger.With().Str("service", "customer").Logger(),
	}
}

// GetAddresses returns the customer's saved shipping addresses.
func (s *customerService) GetAddresses(ctx context.Context, customerID uuid.UUID) ([]model.ShippingAddress, error) {
	addresses, err := s.customerRepo.GetAddresses(ctx, customerID)
	if errors.Is(err, model.ErrCustomerNotFound) {
		return nil, model.ErrCustomerNotFound
	}
	if err != nil {
		s.logger.Error().Err(err).Str("customer_id", customerID.String()).Msg("failed to get addresses")
		return nil, model.NewInternalError("Internal server error occurred while fetching addresses", err)
	}

	if addresses == nil {
		addresses = []model.ShippingAddress{}
	}

	return addresses, nil
}
