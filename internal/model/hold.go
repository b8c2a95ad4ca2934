package model

import "time"

// HoldStatus is the closed set of lifecycle states for a hold.  A hold
// starts active and moves exactly once to either expired or converted;
// both are terminal.
type HoldStatus string

const (
	HoldStatusActive    HoldStatus = "active"
	HoldStatusExpired   HoldStatus = "expired"
	HoldStatusConverted HoldStatus = "converted"
)

// Valid reports whether s is one of the known hold states.
func (s HoldStatus) Valid() bool {
	switch s {
	case HoldStatusActive, HoldStatusExpired, HoldStatusConverted:
		return true
	}
	return false
}

// Terminal reports whether s permits no further transition.
func (s HoldStatus) Terminal() bool { return s == HoldStatusExpired || s == HoldStatusConverted }

// CanTransitionTo reports whether the transition s -> next is allowed.
// Only active holds may move, and only into a terminal state.
func (s HoldStatus) CanTransitionTo(next HoldStatus) bool {
	return s == HoldStatusActive && next.Terminal()
}

// Hold is a time-limited reservation of stock against a product.  The
// quantity it carries was already subtracted from the product's
// StockRemaining in the same transaction that created the hold, so an
// active hold exclusively owns that quantity until it is converted to
// an order or reclaimed after expiry.
//
// Fields:
//  ID        – primary key identifier.
//  ProductID – product the stock was reserved from.
//  Quantity  – reserved quantity; fixed at creation.
//  Token     – opaque externally-shareable identifier for correlation.
//  ExpiresAt – instant after which the hold may be reclaimed.
//  Status    – lifecycle state, see HoldStatus.
//  CreatedAt – creation timestamp.
type Hold struct {
	ID        uint64     `json:"id"`         // holds.id
	ProductID uint64     `json:"product_id"` // holds.product_id
	Quantity  int        `json:"quantity"`   // holds.quantity
	Token     string     `json:"token"`      // holds.token
	ExpiresAt time.Time  `json:"expires_at"` // holds.expires_at
	Status    HoldStatus `json:"status"`     // holds.status
	CreatedAt time.Time  `json:"created_at"` // holds.created_at
}

// ActiveAt reports whether the hold can still be converted at the given
// instant: it must be in the active state and not yet expired.
func (h Hold) ActiveAt(now time.Time) bool {
	return h.Status == HoldStatusActive && h.ExpiresAt.After(now)
}
