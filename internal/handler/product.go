package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/ahmedabdellatifss/flash-sale-api/internal/repository"
)

// ProductHandler serves read-only product lookups.
type ProductHandler struct {
	ProductRepo *repository.ProductRepo
}

// NewProductHandler constructs a ProductHandler.
func NewProductHandler(productRepo *repository.ProductRepo) *ProductHandler {
	if productRepo == nil {
		panic("nil repository passed to NewProductHandler")
	}
	return &ProductHandler{ProductRepo: productRepo}
}

// GetProduct handles GET /v1/products/:id.  available_stock is the live
// stock_remaining column; no lock is needed for the read because every
// writer maintains the counter under a row lock.
func (h *ProductHandler) GetProduct(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid product id"})
	}
	product, err := h.ProductRepo.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "product not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"id":              product.ID,
		"name":            product.Name,
		"price_cents":     product.PriceCents,
		"available_stock": product.StockRemaining,
	})
}
