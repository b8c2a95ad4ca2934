// Package metrics registers the Prometheus counters exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HoldsCreated counts successfully committed holds.
	HoldsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flashsale_holds_created_total",
		Help: "Holds created, i.e. successful stock reservations.",
	})

	// HoldsExpired counts holds released by the expiry sweep.
	HoldsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flashsale_holds_expired_total",
		Help: "Holds reclaimed after their TTL elapsed.",
	})

	// OrdersCreated counts holds converted into orders.
	OrdersCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flashsale_orders_created_total",
		Help: "Orders created from active holds.",
	})

	// WebhooksProcessed counts first-time payment notifications by outcome.
	WebhooksProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flashsale_payment_webhooks_total",
		Help: "Payment webhooks processed for the first time, by outcome.",
	}, []string{"outcome"})

	// WebhookReplays counts notifications answered from the payment log.
	WebhookReplays = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flashsale_payment_webhook_replays_total",
		Help: "Payment webhooks answered idempotently from an existing log entry.",
	})
)
