package handler

import (
	"database/sql"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmedabdellatifss/flash-sale-api/internal/repository"
)

func TestGetProduct(t *testing.T) {
	t.Run("returns live availability", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery(`SELECT .+ FROM products WHERE id = \?$`).
			WithArgs(1).
			WillReturnRows(productRows(1, 37))

		c, rec := newJSONRequest(http.MethodGet, "/v1/products/1", "")
		c.SetParamNames("id")
		c.SetParamValues("1")
		require.NoError(t, NewProductHandler(repository.NewProductRepo(db)).GetProduct(c))

		assert.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, float64(37), body["available_stock"])
		assert.Equal(t, "Flash Widget", body["name"])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown product returns 404", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery(`SELECT .+ FROM products WHERE id = \?$`).
			WithArgs(9).
			WillReturnError(sql.ErrNoRows)

		c, rec := newJSONRequest(http.MethodGet, "/v1/products/9", "")
		c.SetParamNames("id")
		c.SetParamValues("9")
		require.NoError(t, NewProductHandler(repository.NewProductRepo(db)).GetProduct(c))

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("non-numeric id is rejected", func(t *testing.T) {
		db, _ := newMockDB(t)

		c, rec := newJSONRequest(http.MethodGet, "/v1/products/abc", "")
		c.SetParamNames("id")
		c.SetParamValues("abc")
		require.NoError(t, NewProductHandler(repository.NewProductRepo(db)).GetProduct(c))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
