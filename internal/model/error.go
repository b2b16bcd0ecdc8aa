package model

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode"`
}

// Standard error codes for API responses
const (
	ErrCodeCustomerNotFound        = "CUSTOMER_NOT_FOUND"
	ErrCodeProductNotFound         = "PRODUCT_NOT_FOUND"
	ErrCodeVariantNotFound         = "VARIANT_NOT_FOUND"
	ErrCodeInsufficientStock       = "INSUFFICIENT_STOCK"
	ErrCodeInvalidStatusTransition = "INVALID_STATUS_TRANSITION"
	ErrCodeCannotDeleteOrder       = "CANNOT_DELETE_ORDER"
	ErrCodeOrderNotFound           = "ORDER_NOT_FOUND"
	ErrCodeOrderConflict           = "ORDER_CONFLICT"
	ErrCodeInvalidRequest          = "INVALID_REQUEST"
	ErrCodeInvalidJSON             = "INVALID_JSON"
	ErrCodePincodeNotServiceable   = "PINCODE_NOT_SERVICEABLE"
	ErrCodeIdempotencyInProgress   = "IDEMPOTENCY_IN_PROGRESS"
	ErrCodeIdempotencyKeyMismatch  = "IDEMPOTENCY_KEY_MISMATCH"
	ErrCodeUnauthorised            = "UNAUTHORIZED"
	ErrCodeRateLimited             = "RATE_LIMITED"
	ErrCodeNotFound                = "NOT_FOUND"
	ErrCodeMethodNotAllowed        = "METHOD_NOT_ALLOWED"
	ErrCodeInternalError           = "INTERNAL_ERROR"
)

// DomainError is the error type returned by services. The cause, when present,
// is kept for logging and is never serialised to clients.
type DomainError struct {
	Code       string
	Message    string
	StatusCode int
	cause      error
}

func (e *DomainError) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *DomainError) Unwrap() error {
	return e.cause
}

// Response converts the error to its wire form.
func (e *DomainError) Response() ErrorResponse {
	return ErrorResponse{Code: e.Code, Message: e.Message, StatusCode: e.StatusCode}
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string, status int) *DomainError {
	return &DomainError{
		Code:       code,
		Message:    message,
		StatusCode: status,
	}
}

// NewInternalError wraps an unexpected fault. The message is the only part
// callers ever see.
func NewInternalError(message string, cause error) *DomainError {
	return &DomainError{
		Code:       ErrCodeInternalError,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		cause:      cause,
	}
}

// AsDomainError reports whether err is (or wraps) a DomainError.
func AsDomainError(err error) (*DomainError, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// HasCode reports whether err is a DomainError with the given code.
func HasCode(err error, code string) bool {
	de, ok := AsDomainError(err)
	return ok && de.Code == code
}

// Common domain errors
var (
	ErrCustomerNotFound      = NewDomainError(ErrCodeCustomerNotFound, "Customer not found", http.StatusNotFound)
	ErrOrderNotFound         = NewDomainError(ErrCodeOrderNotFound, "Order not found", http.StatusNotFound)
	ErrCannotDeleteOrder     = NewDomainError(ErrCodeCannotDeleteOrder, "Only cancelled or placed orders can be deleted", http.StatusBadRequest)
	ErrOrderConflict         = NewDomainError(ErrCodeOrderConflict, "Order could not be placed due to a concurrent update, please retry", http.StatusConflict)
	ErrPincodeNotServiceable = NewDomainError(ErrCodePincodeNotServiceable, "Delivery is not available for this pincode", http.StatusBadRequest)
)

// NewProductNotFoundError reports a line item whose product does not exist.
func NewProductNotFoundError(id string) *DomainError {
	return NewDomainError(ErrCodeProductNotFound, fmt.Sprintf("Product with ID %s not found", id), http.StatusNotFound)
}

// NewVariantNotFoundError reports a line item whose variant does not exist.
func NewVariantNotFoundError(id string) *DomainError {
	return NewDomainError(ErrCodeVariantNotFound, fmt.Sprintf("Variant with ID %s not found", id), http.StatusNotFound)
}

// NewInsufficientStockError reports a line item that cannot be reserved.
func NewInsufficientStockError(productName, sku string, available, requested int) *DomainError {
	return NewDomainError(
		ErrCodeInsufficientStock,
		fmt.Sprintf("Insufficient stock for %s (SKU: %s). Available: %d, Requested: %d", productName, sku, available, requested),
		http.StatusBadRequest,
	)
}

func NewInvalidStatusTransitionError(from, to OrderStatus) *DomainError {
	return NewDomainError(
		ErrCodeInvalidStatusTransition,
		fmt.Sprintf("Cannot change status from '%s' to '%s'", from, to),
		http.StatusBadRequest,
	)
}

func NewInvalidRequestError(message string) *DomainError {
	return NewDomainError(ErrCodeInvalidRequest, message, http.StatusBadRequest)
}
