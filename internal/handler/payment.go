package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ahmedabdellatifss/flash-sale-api/internal/metrics"
	"github.com/ahmedabdellatifss/flash-sale-api/internal/model"
	"github.com/ahmedabdellatifss/flash-sale-api/internal/queue"
	"github.com/ahmedabdellatifss/flash-sale-api/internal/repository"
)

// PaymentHandler applies external payment outcomes to orders.  The
// webhook_id supplied by the notifier is the idempotency key: repeated
// deliveries of the same key return the stored log unchanged, which
// makes the endpoint safe under at-least-once delivery.
type PaymentHandler struct {
	OrderRepo      *repository.OrderRepo      // order row lock + settlement
	ProductRepo    *repository.ProductRepo    // stock return on failed payments
	PaymentLogRepo *repository.PaymentLogRepo // idempotency log
	Events         queue.Publisher            // post-commit notifications; may be nil
}

// NewPaymentHandler constructs a PaymentHandler.  Events may be nil
// when no broker is configured.
func NewPaymentHandler(orderRepo *repository.OrderRepo, productRepo *repository.ProductRepo, logRepo *repository.PaymentLogRepo, events queue.Publisher) *PaymentHandler {
	if orderRepo == nil || productRepo == nil || logRepo == nil {
		panic("nil repository passed to NewPaymentHandler")
	}
	return &PaymentHandler{OrderRepo: orderRepo, ProductRepo: productRepo, PaymentLogRepo: logRepo, Events: events}
}

// Webhook handles POST /v1/payments/webhook.  The body must contain
// webhook_id, order_id and a status of "success" or "failure"; any
// other status is rejected before a lock is taken.  On the first
// delivery the order is settled under its row lock: success flips
// pending_payment to paid, failure flips it to cancelled and returns
// the order's quantity to the product under the product lock.  An
// order already in a terminal state is left untouched and the
// notification is still logged.  The response is always the payment
// log entry for the given webhook_id.
func (h *PaymentHandler) Webhook(c echo.Context) error {
	var body struct {
		WebhookID string          `json:"webhook_id"`
		OrderID   uint64          `json:"order_id"`
		Status    string          `json:"status"`
		Payload   json.RawMessage `json:"payload"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.WebhookID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "webhook_id is required"})
	}
	if body.OrderID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "order_id is required"})
	}
	outcome, err := model.ParsePaymentOutcome(body.Status)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "status must be success or failure"})
	}

	ctx := c.Request().Context()

	// Idempotency check happens before any row lock on the order.
	if existing, err := h.PaymentLogRepo.FindByWebhookID(ctx, body.WebhookID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	} else if existing != nil {
		metrics.WebhookReplays.Inc()
		return c.JSON(http.StatusOK, existing)
	}

	tx, err := h.OrderRepo.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	order, err := h.OrderRepo.GetForUpdateTx(ctx, tx, body.OrderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found"})
		}
		if errors.Is(err, repository.ErrTxConflict) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "try again"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	// A terminal order is left as is: a duplicate notification carrying a
	// fresh webhook_id must not settle the order twice or move stock.
	settled := order.Status == model.OrderStatusPendingPayment
	if settled {
		switch outcome {
		case model.PaymentOutcomeSuccess:
			if err := h.OrderRepo.UpdateStatusTx(ctx, tx, order.ID, order.Status, model.OrderStatusPaid); err != nil {
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update order"})
			}
		case model.PaymentOutcomeFailure:
			if err := h.OrderRepo.UpdateStatusTx(ctx, tx, order.ID, order.Status, model.OrderStatusCancelled); err != nil {
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update order"})
			}
			// Order lock is already held; product is locked second per the
			// global lock order.
			product, err := h.ProductRepo.GetForUpdateTx(ctx, tx, order.ProductID)
			if err != nil {
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load product"})
			}
			if err := h.ProductRepo.UpdateStockTx(ctx, tx, product.ID, product.StockRemaining+order.Quantity); err != nil {
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to return stock"})
			}
		}
	}

	logEntry := &model.PaymentLog{
		WebhookID: body.WebhookID,
		OrderID:   body.OrderID,
		Status:    outcome,
		Payload:   body.Payload,
	}
	if err := h.PaymentLogRepo.CreateTx(ctx, tx, logEntry); err != nil {
		if errors.Is(err, repository.ErrDuplicateWebhook) {
			// A concurrent first-time delivery with the same key won the
			// insert. Drop our transaction and answer with the winner's log.
			_ = tx.Rollback()
			committed = true // nothing left to roll back
			winner, err := h.PaymentLogRepo.FindByWebhookID(ctx, body.WebhookID)
			if err != nil || winner == nil {
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
			}
			metrics.WebhookReplays.Inc()
			return c.JSON(http.StatusOK, winner)
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to record webhook"})
	}

	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true
	metrics.WebhooksProcessed.WithLabelValues(string(outcome)).Inc()

	if settled {
		h.notify(c.Request().Context(), order, outcome, body.WebhookID)
	}

	return c.JSON(http.StatusOK, logEntry)
}

// notify publishes the post-commit event for a settled order.  Failures
// are swallowed: the settlement is already durable and the publisher
// logs its own errors.
func (h *PaymentHandler) notify(ctx context.Context, order *model.Order, outcome model.PaymentOutcome, webhookID string) {
	if h.Events == nil {
		return
	}
	now := time.Now().UTC().Format(time.RFC3339)
	if outcome == model.PaymentOutcomeSuccess {
		_ = h.Events.PublishOrderPaid(ctx, queue.OrderPaidEvent{
			OrderID:   order.ID,
			ProductID: order.ProductID,
			Quantity:  order.Quantity,
			WebhookID: webhookID,
			PaidAt:    now,
		})
		return
	}
	_ = h.Events.PublishStockReleased(ctx, queue.StockReleasedEvent{
		OrderID:    order.ID,
		ProductID:  order.ProductID,
		Quantity:   order.Quantity,
		Reason:     "payment_failed",
		ReleasedAt: now,
	})
}
