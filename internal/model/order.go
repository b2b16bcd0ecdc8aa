package model

import (
	"time"

	"github.com/google/uuid"
)

// PaymentMethod is the way an order is paid for. Only cash on delivery is supported.
type PaymentMethod string

const PaymentMethodCOD PaymentMethod = "cod"

// PaymentStatus tracks settlement of an order.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"
)

// Order represents a customer order.
type Order struct {
	ID                   uuid.UUID            `json:"id"`
	OrderNumber          string               `json:"orderNumber"`
	CustomerID           uuid.UUID            `json:"customerId"`
	Items                []OrderItem          `json:"items"`
	Subtotal             float64              `json:"subtotal"`
	ShippingCost         float64              `json:"shippingCost"`
	Tax                  float64              `json:"tax"`
	Discount             float64              `json:"discount"`
	TotalAmount          float64              `json:"totalAmount"`
	PaymentMethod        PaymentMethod        `json:"paymentMethod"`
	PaymentStatus        PaymentStatus        `json:"paymentStatus"`
	ShippingAddress      ShippingAddress      `json:"shippingAddress"`
	Status               OrderStatus          `json:"status"`
	StatusHistory        []StatusHistoryEntry `json:"statusHistory"`
	ExpectedDeliveryDate time.Time            `json:"expectedDeliveryDate"`
	CreatedAt            time.Time            `json:"createdAt"`
	UpdatedAt            time.Time            `json:"updatedAt"`
}

// OrderItem is a line item of an order. Name, SKU and prices are a snapshot
// taken when the order was placed.
type OrderItem struct {
	ProductID   uuid.UUID `json:"productId"`
	VariantID   uuid.UUID `json:"variantId"`
	ProductName string    `json:"productName"`
	SKU         string    `json:"sku"`
	Quantity    int       `json:"quantity"`
	Price       float64   `json:"price"`
	SalePrice   *float64  `json:"salePrice,omitempty"`
	TotalPrice  float64   `json:"totalPrice"`
}

// ShippingAddress is an embedded delivery address.
type ShippingAddress struct {
	FullName     string `json:"fullName" validate:"required,min=2,max=100"`
	Phone        string `json:"phone" validate:"required,min=7,max=20"`
	AddressLine1 string `json:"addressLine1" validate:"required,min=5,max=200"`
	AddressLine2 string `json:"addressLine2" validate:"max=200"`
	City         string `json:"city" validate:"required,min=2,max=50"`
	State        string `json:"state" validate:"required,min=2,max=50"`
	Pincode      string `json:"pincode" validate:"required,alphanum,min=3,max=10"`
	Country      string `json:"country" validate:"required,min=2,max=50"`
}

// StatusHistoryEntry is one record in the append-only status log.
type StatusHistoryEntry struct {
	Status    OrderStatus `json:"status"`
	Timestamp time.Time   `json:"timestamp"`
	Note      string      `json:"note,omitempty"`
	ChangedBy string      `json:"changedBy,omitempty"`
}

// PlaceOrderRequest represents the request payload for placing an order.
type PlaceOrderRequest struct {
	CustomerID           string             `json:"customerId" validate:"required,uuid"`
	Items                []OrderItemRequest `json:"items" validate:"required,min=1,dive"`
	Subtotal             float64            `json:"subtotal" validate:"gte=0"`
	ShippingCost         *float64           `json:"shippingCost,omitempty" validate:"omitempty,gte=0"`
	Tax                  *float64           `json:"tax,omitempty" validate:"omitempty,gte=0"`
	Discount             *float64           `json:"discount,omitempty" validate:"omitempty,gte=0"`
	TotalAmount          float64            `json:"totalAmount" validate:"gte=0"`
	PaymentMethod        PaymentMethod      `json:"paymentMethod,omitempty" validate:"omitempty,oneof=cod"`
	PaymentStatus        PaymentStatus      `json:"paymentStatus,omitempty" validate:"omitempty,oneof=pending paid failed"`
	ShippingAddress      *ShippingAddress   `json:"shippingAddress" validate:"required"`
	Status               OrderStatus        `json:"status,omitempty" validate:"omitempty,oneof=placed confirmed shipped delivered cancelled"`
	ExpectedDeliveryDate *string            `json:"expectedDeliveryDate,omitempty"`
}

// OrderItemRequest represents a single item in an order request.
type OrderItemRequest struct {
	ProductID   string   `json:"productId" validate:"required,uuid"`
	VariantID   string   `json:"variantId" validate:"required,uuid"`
	ProductName string   `json:"productName" validate:"required,max=100"`
	SKU         string   `json:"sku" validate:"required,max=50"`
	Quantity    int      `json:"quantity" validate:"gte=1"`
	Price       float64  `json:"price" validate:"gte=0"`
	SalePrice   *float64 `json:"salePrice,omitempty" validate:"omitempty,gte=0"`
	TotalPrice  float64  `json:"totalPrice" validate:"gte=0"`
}

// UpdateStatusRequest represents the request payload for a status change.
type UpdateStatusRequest struct {
	Status               OrderStatus `json:"status" validate:"required,oneof=placed confirmed shipped delivered cancelled"`
	Note                 string      `json:"note,omitempty" validate:"max=500"`
	ExpectedDeliveryDate *string     `json:"expectedDeliveryDate,omitempty"`
}

// DeleteOrderResponse is returned after an order has been deleted.
type DeleteOrderResponse struct {
	Message string `json:"message"`
}
