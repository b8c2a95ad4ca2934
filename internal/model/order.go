package model

import "time"

// OrderStatus is the closed set of lifecycle states for an order.
// pending_payment is the only non-terminal state; paid and cancelled
// absorb.
type OrderStatus string

const (
	OrderStatusPendingPayment OrderStatus = "pending_payment"
	OrderStatusPaid           OrderStatus = "paid"
	OrderStatusCancelled      OrderStatus = "cancelled"
)

// Valid reports whether s is one of the known order states.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPendingPayment, OrderStatusPaid, OrderStatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether s permits no further transition.
func (s OrderStatus) Terminal() bool { return s == OrderStatusPaid || s == OrderStatusCancelled }

// CanTransitionTo reports whether the transition s -> next is allowed.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	return s == OrderStatusPendingPayment && next.Terminal()
}

// Order is the record a still-valid hold converts into.  ProductID and
// Quantity are copied from the hold at conversion time so the order's
// lifetime is decoupled from the hold's.  The reserved stock belongs to
// the order from conversion until settlement either confirms the sale
// (paid) or returns the quantity to the product (cancelled).
//
// Fields:
//  ID        – primary key identifier.
//  HoldID    – hold this order was converted from.
//  ProductID – product being purchased.
//  Quantity  – purchased quantity, copied from the hold.
//  Status    – lifecycle state, see OrderStatus.
//  CreatedAt – creation timestamp.
//  UpdatedAt – last update timestamp.
type Order struct {
	ID        uint64      `json:"id"`         // orders.id
	HoldID    uint64      `json:"hold_id"`    // orders.hold_id
	ProductID uint64      `json:"product_id"` // orders.product_id
	Quantity  int         `json:"quantity"`   // orders.quantity
	Status    OrderStatus `json:"status"`     // orders.status
	CreatedAt time.Time   `json:"created_at"` // orders.created_at
	UpdatedAt time.Time   `json:"updated_at"` // orders.updated_at
}
