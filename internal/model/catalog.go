package model

import (
	"time"

	"github.com/google/uuid"
)

// Customer is the buyer an order is placed for.
type Customer struct {
	ID        uuid.UUID         `json:"id"`
	FirstName string            `json:"firstName"`
	LastName  string            `json:"lastName"`
	Email     string            `json:"email"`
	Phone     string            `json:"phone"`
	Addresses []ShippingAddress `json:"addresses"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// Product represents a catalogue product.
type Product struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// Variant is a purchasable configuration of a product with its own stock.
type Variant struct {
	ID        uuid.UUID `json:"id"`
	ProductID uuid.UUID `json:"productId"`
	SKU       string    `json:"sku"`
	Price     float64   `json:"price"`
	SalePrice *float64  `json:"salePrice,omitempty"`
	Quantity  int       `json:"quantity"`
	IsActive  bool      `json:"isActive"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ProductResponse is a product together with its variants and stock levels.
type ProductResponse struct {
	Product
	Variants []Variant `json:"variants"`
}
