package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/ahmedabdellatifss/flash-sale-api/internal/metrics"
	"github.com/ahmedabdellatifss/flash-sale-api/internal/model"
	"github.com/ahmedabdellatifss/flash-sale-api/internal/repository"
)

// HoldHandler creates time-limited stock reservations.  The critical
// section runs inside a single transaction: the product row is locked,
// stock is checked and decremented, and the hold row is inserted, so
// there is no window where stock is reserved without a hold record or
// vice versa.
type HoldHandler struct {
	ProductRepo *repository.ProductRepo // product row lock + stock mutation
	HoldRepo    *repository.HoldRepo    // hold insertion
	HoldTTL     time.Duration           // lifetime of new holds
}

// NewHoldHandler constructs a HoldHandler.  All dependencies must be non-nil.
func NewHoldHandler(productRepo *repository.ProductRepo, holdRepo *repository.HoldRepo, ttl time.Duration) *HoldHandler {
	if productRepo == nil || holdRepo == nil {
		panic("nil repository passed to NewHoldHandler")
	}
	return &HoldHandler{ProductRepo: productRepo, HoldRepo: holdRepo, HoldTTL: ttl}
}

// CreateHold handles POST /v1/holds.  The request body must contain a
// JSON object with product_id and a quantity of at least one.  On
// success it returns 201 with the hold's id, its shareable token and
// the expiry timestamp.  Requesting more units than remain returns 400
// with no side effects.
func (h *HoldHandler) CreateHold(c echo.Context) error {
	var body struct {
		ProductID uint64 `json:"product_id"`
		Quantity  int    `json:"quantity"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.ProductID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "product_id is required"})
	}
	if body.Quantity < 1 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "quantity must be at least 1"})
	}

	ctx := c.Request().Context()
	tx, err := h.ProductRepo.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	// Lock the product row; all stock checks happen against the locked read.
	product, err := h.ProductRepo.GetForUpdateTx(ctx, tx, body.ProductID)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "product not found"})
		}
		if errors.Is(err, repository.ErrTxConflict) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "try again"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if product.StockRemaining < body.Quantity {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": repository.ErrInsufficientStock.Error()})
	}

	if err := h.ProductRepo.UpdateStockTx(ctx, tx, product.ID, product.StockRemaining-body.Quantity); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update stock"})
	}

	hold := &model.Hold{
		ProductID: product.ID,
		Quantity:  body.Quantity,
		Token:     uuid.NewString(),
		ExpiresAt: time.Now().UTC().Add(h.HoldTTL),
		Status:    model.HoldStatusActive,
	}
	if err := h.HoldRepo.CreateTx(ctx, tx, hold); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create hold"})
	}

	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true
	metrics.HoldsCreated.Inc()

	return c.JSON(http.StatusCreated, echo.Map{
		"hold_id":    hold.ID,
		"token":      hold.Token,
		"expires_at": hold.ExpiresAt.UTC().Format(time.RFC3339),
	})
}
