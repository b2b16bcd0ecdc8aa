package service

import (
	"context"

	"storefront/internal/model"

	"github.com/google/uuid"
)

// ProductService defines read access to the catalogue.
type ProductService interface {
	// GetByID retrieves a product with its variants and current stock.
	GetByID(ctx context.Context, id uuid.UUID) (*model.ProductResponse, error)
}

// CustomerService defines read access to customer data.
type CustomerService interface {
	// GetAddresses returns the customer's address book. An empty book is an
	// empty, non-nil slice.
	GetAddresses(ctx context.Context, customerID uuid.UUID) ([]model.ShippingAddress, error)
}

// OrderService defines operations for order management. Every error it
// returns is a *model.DomainError.
type OrderService interface {
	// PlaceOrder validates the request, reserves stock for every line item,
	// allocates an order number and persists the order, all or nothing.
	PlaceOrder(ctx context.Context, actor model.Actor, req *model.PlaceOrderRequest) (*model.Order, error)

	// GetOrder retrieves an order by its ID.
	GetOrder(ctx context.Context, id uuid.UUID) (*model.Order, error)

	// GetOrderByNumber retrieves an order by its human-readable number.
	GetOrderByNumber(ctx context.Context, orderNumber string) (*model.Order, error)

	// GetCustomerOrder retrieves an order only if it belongs to customerID.
	GetCustomerOrder(ctx context.Context, customerID, id uuid.UUID) (*model.Order, error)

	// UpdateStatus moves an order along the status state machine.
	UpdateStatus(ctx context.Context, actor model.Actor, id uuid.UUID, req *model.UpdateStatusRequest) (*model.Order, error)

	// DeleteOrder removes a placed or cancelled order, returning stock still
	// held by it to the variants.
	DeleteOrder(ctx context.Context, actor model.Actor, id uuid.UUID) error
}
