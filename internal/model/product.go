package model

import "time"

// Product is a single flash-sale catalog entry.  StockRemaining is the
// live sellable quantity and is the only mutable counter in the system;
// it is decremented when a hold is created and incremented when a hold
// expires or a payment fails.  Outside an in-flight transaction the
// invariant 0 <= StockRemaining <= TotalStock always holds.
//
// Fields:
//  ID             – primary key identifier.
//  Name           – display name of the product.
//  PriceCents     – unit price in cents.
//  TotalStock     – quantity put on sale; never changes during the sale.
//  StockRemaining – quantity still available for new holds.
//  CreatedAt      – creation timestamp.
//  UpdatedAt      – last update timestamp.
type Product struct {
	ID             uint64    `json:"id"`              // products.id
	Name           string    `json:"name"`            // products.name
	PriceCents     int64     `json:"price_cents"`     // products.price_cents
	TotalStock     int       `json:"total_stock"`     // products.total_stock
	StockRemaining int       `json:"stock_remaining"` // products.stock_remaining
	CreatedAt      time.Time `json:"created_at"`      // products.created_at
	UpdatedAt      time.Time `json:"updated_at"`      // products.updated_at
}
