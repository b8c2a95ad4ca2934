package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ahmedabdellatifss/flash-sale-api/internal/metrics"
	"github.com/ahmedabdellatifss/flash-sale-api/internal/model"
	"github.com/ahmedabdellatifss/flash-sale-api/internal/repository"
)

// OrderHandler converts still-valid holds into orders.  Ownership of
// the reserved quantity moves from hold to order inside one
// transaction; stock itself is not touched here, it was already
// decremented when the hold was created.
type OrderHandler struct {
	HoldRepo  *repository.HoldRepo  // hold row lock + status flip
	OrderRepo *repository.OrderRepo // order insertion
}

// NewOrderHandler constructs an OrderHandler.  All dependencies must be non-nil.
func NewOrderHandler(holdRepo *repository.HoldRepo, orderRepo *repository.OrderRepo) *OrderHandler {
	if holdRepo == nil || orderRepo == nil {
		panic("nil repository passed to NewOrderHandler")
	}
	return &OrderHandler{HoldRepo: holdRepo, OrderRepo: orderRepo}
}

// ConvertHold handles POST /v1/orders.  The request body must contain
// the hold_id to convert.  Status and expiry are re-checked on the
// locked row, not at request time, which closes the race against a
// concurrent reclaim: whichever side locks the hold first wins, and the
// loser observes the terminal state and backs off.
func (h *OrderHandler) ConvertHold(c echo.Context) error {
	var body struct {
		HoldID uint64 `json:"hold_id"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.HoldID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "hold_id is required"})
	}

	ctx := c.Request().Context()
	tx, err := h.HoldRepo.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	hold, err := h.HoldRepo.GetForUpdateTx(ctx, tx, body.HoldID)
	if err != nil {
		if errors.Is(err, repository.ErrHoldNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "hold not found"})
		}
		if errors.Is(err, repository.ErrTxConflict) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "try again"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if hold.Status != model.HoldStatusActive {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": repository.ErrHoldNotActive.Error()})
	}
	if !hold.ExpiresAt.After(time.Now().UTC()) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": repository.ErrHoldExpired.Error()})
	}

	order := &model.Order{
		HoldID:    hold.ID,
		ProductID: hold.ProductID,
		Quantity:  hold.Quantity,
		Status:    model.OrderStatusPendingPayment,
	}
	if err := h.OrderRepo.CreateTx(ctx, tx, order); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create order"})
	}
	if err := h.HoldRepo.UpdateStatusTx(ctx, tx, hold.ID, model.HoldStatusActive, model.HoldStatusConverted); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to convert hold"})
	}

	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true
	metrics.OrdersCreated.Inc()

	return c.JSON(http.StatusCreated, order)
}
