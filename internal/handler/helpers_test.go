package handler

import (
	"database/sql"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/ahmedabdellatifss/flash-sale-api/internal/model"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func newJSONRequest(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	return m
}

func productRows(id uint64, stock int) *sqlmock.Rows {
	now := time.Now().UTC().Truncate(time.Second)
	return sqlmock.NewRows([]string{"id", "name", "price_cents", "total_stock", "stock_remaining", "created_at", "updated_at"}).
		AddRow(id, "Flash Widget", 1999, 100, stock, now, now)
}

func holdRows(id uint64, status model.HoldStatus, expiresAt time.Time) *sqlmock.Rows {
	now := time.Now().UTC().Truncate(time.Second)
	return sqlmock.NewRows([]string{"id", "product_id", "quantity", "token", "expires_at", "status", "created_at"}).
		AddRow(id, 1, 2, "3f6c0a67-3a54-4e6e-9a35-1df0e1c9a9b1", expiresAt, string(status), now)
}

func orderRows(id uint64, status model.OrderStatus) *sqlmock.Rows {
	now := time.Now().UTC().Truncate(time.Second)
	return sqlmock.NewRows([]string{"id", "hold_id", "product_id", "quantity", "status", "created_at", "updated_at"}).
		AddRow(id, 7, 1, 2, string(status), now, now)
}

func paymentLogRows(id uint64, webhookID string, orderID uint64, status model.PaymentOutcome) *sqlmock.Rows {
	now := time.Now().UTC().Truncate(time.Second)
	return sqlmock.NewRows([]string{"id", "webhook_id", "order_id", "status", "payload", "created_at"}).
		AddRow(id, webhookID, orderID, string(status), nil, now)
}
