package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/ahmedabdellatifss/flash-sale-api/internal/config"
	"github.com/ahmedabdellatifss/flash-sale-api/internal/handler"
	"github.com/ahmedabdellatifss/flash-sale-api/internal/middleware"
)

// RegisterRoutes registers routes that need no dependencies: the health
// check used by load balancers and the Prometheus metrics endpoint.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterSale wires the flash-sale endpoints under /v1.  Every route
// passes through the Redis token-bucket rate limiter (a no-op when
// Redis is unavailable), and the product read additionally goes through
// the short-TTL response cache so a request storm on a hot product does
// not hammer the database.
func RegisterSale(e *echo.Echo, products *handler.ProductHandler, holds *handler.HoldHandler, orders *handler.OrderHandler, payments *handler.PaymentHandler, rdb *redis.Client) {
	v1 := e.Group("/v1")
	v1.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	v1.POST("/holds", holds.CreateHold)
	v1.POST("/orders", orders.ConvertHold)
	v1.POST("/payments/webhook", payments.Webhook)
	v1.GET("/products/:id", products.GetProduct, middleware.NewRedisCache(config.LoadCacheConfig(), rdb))
}
