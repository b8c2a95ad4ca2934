package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/ahmedabdellatifss/flash-sale-api/internal/config"
)

func newCacheContext(method, target, route, id string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath(route)
	c.SetParamNames("id")
	c.SetParamValues(id)
	return c
}

func TestCacheKeyFrom(t *testing.T) {
	cfg := config.CacheConfig{Prefix: "cache", KeyStrategy: "route_query"}

	t.Run("distinct ids on a parameterized route get distinct keys", func(t *testing.T) {
		k1 := cacheKeyFrom(cfg, newCacheContext(http.MethodGet, "/v1/products/1", "/v1/products/:id", "1"))
		k2 := cacheKeyFrom(cfg, newCacheContext(http.MethodGet, "/v1/products/2", "/v1/products/:id", "2"))
		assert.NotEqual(t, k1, k2, "one product's response must never answer another product's request")
	})

	t.Run("identical requests share a key", func(t *testing.T) {
		k1 := cacheKeyFrom(cfg, newCacheContext(http.MethodGet, "/v1/products/1", "/v1/products/:id", "1"))
		k2 := cacheKeyFrom(cfg, newCacheContext(http.MethodGet, "/v1/products/1", "/v1/products/:id", "1"))
		assert.Equal(t, k1, k2)
	})

	t.Run("query participates under route_query", func(t *testing.T) {
		k1 := cacheKeyFrom(cfg, newCacheContext(http.MethodGet, "/v1/products/1", "/v1/products/:id", "1"))
		k2 := cacheKeyFrom(cfg, newCacheContext(http.MethodGet, "/v1/products/1?fields=name", "/v1/products/:id", "1"))
		assert.NotEqual(t, k1, k2)
	})

	t.Run("method participates under method_route", func(t *testing.T) {
		mcfg := config.CacheConfig{Prefix: "cache", KeyStrategy: "method_route"}
		k1 := cacheKeyFrom(mcfg, newCacheContext(http.MethodGet, "/v1/products/1", "/v1/products/:id", "1"))
		k2 := cacheKeyFrom(mcfg, newCacheContext(http.MethodHead, "/v1/products/1", "/v1/products/:id", "1"))
		assert.NotEqual(t, k1, k2)
	})

	t.Run("prefix scopes the key", func(t *testing.T) {
		a := config.CacheConfig{Prefix: "cache", KeyStrategy: "route"}
		b := config.CacheConfig{Prefix: "other", KeyStrategy: "route"}
		c := newCacheContext(http.MethodGet, "/v1/products/1", "/v1/products/:id", "1")
		assert.NotEqual(t, cacheKeyFrom(a, c), cacheKeyFrom(b, c))
	})
}
