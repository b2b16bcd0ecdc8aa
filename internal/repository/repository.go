package repository

import (
	"context"
	"time"

	"storefront/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CustomerRepository defines data access for customers.
type CustomerRepository interface {
	// Exists reports whether a customer with the given ID exists.
	Exists(ctx context.Context, tx pgx.Tx, id uuid.UUID) (bool, error)

	// GetAddresses returns the customer's address book, never nil. Returns
	// model.ErrCustomerNotFound for an unknown customer.
	GetAddresses(ctx context.Context, id uuid.UUID) ([]model.ShippingAddress, error)

	// ReplaceAddresses overwrites the customer's address book.
	ReplaceAddresses(ctx context.Context, tx pgx.Tx, id uuid.UUID, addresses []model.ShippingAddress) error
}

// ProductRepository defines read access to the product catalogue.
type ProductRepository interface {
	// GetByID retrieves a single product by its ID. Returns nil if not found.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error)

	// GetByIDTx is GetByID inside the provided transaction.
	GetByIDTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Product, error)

	// ListVariants returns the variants of a product ordered by SKU.
	ListVariants(ctx context.Context, productID uuid.UUID) ([]model.Variant, error)
}

// VariantRepository defines stock access for product variants.
type VariantRepository interface {
	// GetForUpdate reads a variant and locks its row until the transaction ends.
	// Returns nil if not found.
	GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Variant, error)

	// DecrementStock subtracts quantity only if enough stock remains. It reports
	// false when the guard rejected the update.
	DecrementStock(ctx context.Context, tx pgx.Tx, id uuid.UUID, quantity int) (bool, error)

	// RestoreStock adds quantity back onto a variant.
	RestoreStock(ctx context.Context, tx pgx.Tx, id uuid.UUID, quantity int) error
}

// OrderRepository defines the interface for order data access operations.
type OrderRepository interface {
	// BeginTx starts a new database transaction.
	BeginTx(ctx context.Context) (pgx.Tx, error)

	// NextSequence allocates the next order sequence for the calendar day of
	// day. prefix is the order number prefix of that day and seeds the counter
	// from existing orders the first time the day is seen.
	NextSequence(ctx context.Context, tx pgx.Tx, day time.Time, prefix string) (int, error)

	// CreateOrder inserts a new order within the provided transaction.
	CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error

	// GetByID retrieves an order by its ID. Returns nil if not found.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)

	// GetByNumber retrieves an order by its order number. Returns nil if not found.
	GetByNumber(ctx context.Context, orderNumber string) (*model.Order, error)

	// GetByIDForUpdate retrieves and locks an order. Returns nil if not found.
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Order, error)

	// UpdateStatus persists status, status history, expected delivery date and
	// updated_at of the order.
	UpdateStatus(ctx context.Context, tx pgx.Tx, order *model.Order) error

	// Delete removes an order.
	Delete(ctx context.Context, tx pgx.Tx, id uuid.UUID) error
}
