package model

import (
	"encoding/json"
	"errors"
	"time"
)

// ErrInvalidOutcome is returned when a payment notification carries a
// status outside the success/failure pair.  The webhook handler rejects
// such requests before any row lock is taken.
var ErrInvalidOutcome = errors.New("invalid payment outcome")

// PaymentOutcome is the result reported by the external payment
// notifier for an order.
type PaymentOutcome string

const (
	PaymentOutcomeSuccess PaymentOutcome = "success"
	PaymentOutcomeFailure PaymentOutcome = "failure"
)

// ParsePaymentOutcome validates a raw status string from a webhook
// request and returns the corresponding outcome, or ErrInvalidOutcome.
func ParsePaymentOutcome(s string) (PaymentOutcome, error) {
	switch PaymentOutcome(s) {
	case PaymentOutcomeSuccess, PaymentOutcomeFailure:
		return PaymentOutcome(s), nil
	}
	return "", ErrInvalidOutcome
}

// PaymentLog is the durable record that a given external payment
// notification was processed.  WebhookID is the caller-supplied
// idempotency key and is unique across all rows; a log entry is never
// mutated once written.
//
// Fields:
//  ID        – primary key identifier.
//  WebhookID – idempotency key supplied by the payment notifier.
//  OrderID   – order the notification settled.
//  Status    – reported outcome ("success" or "failure").
//  Payload   – raw notification payload, if any.
//  CreatedAt – when the notification was first processed.
type PaymentLog struct {
	ID        uint64          `json:"id"`                // payment_logs.id
	WebhookID string          `json:"webhook_id"`        // payment_logs.webhook_id
	OrderID   uint64          `json:"order_id"`          // payment_logs.order_id
	Status    PaymentOutcome  `json:"status"`            // payment_logs.status
	Payload   json.RawMessage `json:"payload,omitempty"` // payment_logs.payload (nullable)
	CreatedAt time.Time       `json:"created_at"`        // payment_logs.created_at
}
