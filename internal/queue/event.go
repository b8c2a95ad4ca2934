// Package queue defines message payloads exchanged over the message broker.
package queue

import "context"

// AuditQueueName is the single durable queue all sale events are
// published to.  Consumers distinguish payloads by the Event field.
const AuditQueueName = "sale.audit"

// Event discriminator values.
const (
	EventOrderPaid     = "order.paid"
	EventStockReleased = "stock.released"
)

// OrderPaidEvent is published after a success webhook settles an order.
// It carries enough information for downstream consumers to log or
// notify without querying the primary database.
type OrderPaidEvent struct {
	Event     string `json:"event"`
	OrderID   uint64 `json:"order_id"`
	ProductID uint64 `json:"product_id"`
	Quantity  int    `json:"quantity"`
	WebhookID string `json:"webhook_id"`
	PaidAt    string `json:"paid_at"`
}

// StockReleasedEvent is published whenever reserved quantity returns to
// the pool, either because a payment failed or because an expired hold
// was reclaimed.  Reason is "payment_failed" or "hold_expired"; HoldID
// and OrderID are set depending on which path released the stock.
type StockReleasedEvent struct {
	Event      string `json:"event"`
	HoldID     uint64 `json:"hold_id,omitempty"`
	OrderID    uint64 `json:"order_id,omitempty"`
	ProductID  uint64 `json:"product_id"`
	Quantity   int    `json:"quantity"`
	Reason     string `json:"reason"`
	ReleasedAt string `json:"released_at"`
}

// Publisher is implemented by the AMQP-backed publisher in the service
// package.  Callers treat publishing as best effort: events go out
// after the transaction commits, and a broker failure never rolls back
// settled state.
type Publisher interface {
	PublishOrderPaid(ctx context.Context, ev OrderPaidEvent) error
	PublishStockReleased(ctx context.Context, ev StockReleasedEvent) error
}
