package model

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	StatusPlaced    OrderStatus = "placed"
	StatusConfirmed OrderStatus = "confirmed"
	StatusShipped   OrderStatus = "shipped"
	StatusDelivered OrderStatus = "delivered"
	StatusCancelled OrderStatus = "cancelled"
)

// transitions lists the forward-only moves allowed from each status.
var transitions = map[OrderStatus][]OrderStatus{
	StatusPlaced:    {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusShipped, StatusCancelled},
	StatusShipped:   {StatusDelivered},
	StatusDelivered: {},
	StatusCancelled: {},
}

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// CanTransitionTo reports whether an order in status s may move to next.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether s has no outbound transitions.
func (s OrderStatus) Terminal() bool {
	return s.Valid() && len(transitions[s]) == 0
}

// Deletable reports whether an order in status s may be deleted.
func (s OrderStatus) Deletable() bool {
	return s == StatusPlaced || s == StatusCancelled
}

// HoldsStock reports whether stock reserved for an order in status s is still
// taken from the variants. Cancelled orders have already given it back.
func (s OrderStatus) HoldsStock() bool {
	return s != StatusCancelled
}
