package reclaimer

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmedabdellatifss/flash-sale-api/internal/model"
	"github.com/ahmedabdellatifss/flash-sale-api/internal/queue"
	"github.com/ahmedabdellatifss/flash-sale-api/internal/repository"
)

type recordingPublisher struct {
	released []queue.StockReleasedEvent
}

func (p *recordingPublisher) PublishOrderPaid(context.Context, queue.OrderPaidEvent) error {
	return errors.New("unexpected order.paid event from a sweep")
}

func (p *recordingPublisher) PublishStockReleased(_ context.Context, ev queue.StockReleasedEvent) error {
	p.released = append(p.released, ev)
	return nil
}

func newSweeper(t *testing.T, events queue.Publisher) (*Reclaimer, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	r := New(repository.NewHoldRepo(db), repository.NewProductRepo(db), events, 100, zerolog.Nop())
	return r, mock
}

func expiredHoldRows(ids ...uint64) *sqlmock.Rows {
	past := time.Now().UTC().Add(-time.Minute).Truncate(time.Second)
	rows := sqlmock.NewRows([]string{"id", "product_id", "quantity", "token", "expires_at", "status", "created_at"})
	for _, id := range ids {
		rows.AddRow(id, 1, 3, "2c7e3f61-1f5d-4c8e-8e25-57b1f2a9c0de", past, "active", past)
	}
	return rows
}

func lockedHoldRow(id uint64, status model.HoldStatus, expiresAt time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "product_id", "quantity", "token", "expires_at", "status", "created_at"}).
		AddRow(id, 1, 3, "2c7e3f61-1f5d-4c8e-8e25-57b1f2a9c0de", expiresAt, string(status), expiresAt)
}

func productRow(stock int) *sqlmock.Rows {
	now := time.Now().UTC().Truncate(time.Second)
	return sqlmock.NewRows([]string{"id", "name", "price_cents", "total_stock", "stock_remaining", "created_at", "updated_at"}).
		AddRow(1, "Flash Widget", 1999, 100, stock, now, now)
}

func expectRelease(mock sqlmock.Sqlmock, holdID uint64, stockBefore int) {
	past := time.Now().UTC().Add(-time.Minute)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM holds WHERE id = \? FOR UPDATE`).
		WithArgs(holdID).
		WillReturnRows(lockedHoldRow(holdID, model.HoldStatusActive, past))
	mock.ExpectExec(`UPDATE holds SET status = \? WHERE id = \? AND status = \?`).
		WithArgs("expired", holdID, "active").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT .+ FROM products WHERE id = \? FOR UPDATE`).
		WithArgs(1).
		WillReturnRows(productRow(stockBefore))
	mock.ExpectExec(`UPDATE products SET stock_remaining = \? WHERE id = \?`).
		WithArgs(stockBefore+3, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
}

func TestSweep(t *testing.T) {
	t.Run("releases each expired hold in its own transaction", func(t *testing.T) {
		events := &recordingPublisher{}
		r, mock := newSweeper(t, events)

		mock.ExpectQuery(`WHERE status = \? AND expires_at < UTC_TIMESTAMP\(\) AND id > \?`).
			WithArgs("active", 0, 100).
			WillReturnRows(expiredHoldRows(5, 6))
		expectRelease(mock, 5, 40)
		expectRelease(mock, 6, 43)

		released, err := r.Sweep(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 2, released)

		require.Len(t, events.released, 2)
		assert.Equal(t, "hold_expired", events.released[0].Reason)
		assert.Equal(t, uint64(5), events.released[0].HoldID)
		assert.Equal(t, 3, events.released[0].Quantity)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("skips a hold converted between selection and locking", func(t *testing.T) {
		r, mock := newSweeper(t, nil)

		mock.ExpectQuery(`WHERE status = \? AND expires_at < UTC_TIMESTAMP\(\) AND id > \?`).
			WithArgs("active", 0, 100).
			WillReturnRows(expiredHoldRows(5))
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT .+ FROM holds WHERE id = \? FOR UPDATE`).
			WithArgs(5).
			WillReturnRows(lockedHoldRow(5, model.HoldStatusConverted, time.Now().UTC().Add(-time.Minute)))
		mock.ExpectRollback()

		released, err := r.Sweep(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 0, released)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("one failing hold does not abort the batch", func(t *testing.T) {
		r, mock := newSweeper(t, nil)

		mock.ExpectQuery(`WHERE status = \? AND expires_at < UTC_TIMESTAMP\(\) AND id > \?`).
			WithArgs("active", 0, 100).
			WillReturnRows(expiredHoldRows(5, 6))
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT .+ FROM holds WHERE id = \? FOR UPDATE`).
			WithArgs(5).
			WillReturnError(errors.New("connection reset"))
		mock.ExpectRollback()
		expectRelease(mock, 6, 40)

		released, err := r.Sweep(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, released)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing product still expires the hold", func(t *testing.T) {
		r, mock := newSweeper(t, nil)
		past := time.Now().UTC().Add(-time.Minute)

		mock.ExpectQuery(`WHERE status = \? AND expires_at < UTC_TIMESTAMP\(\) AND id > \?`).
			WithArgs("active", 0, 100).
			WillReturnRows(expiredHoldRows(5))
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT .+ FROM holds WHERE id = \? FOR UPDATE`).
			WithArgs(5).
			WillReturnRows(lockedHoldRow(5, model.HoldStatusActive, past))
		mock.ExpectExec(`UPDATE holds SET status = \? WHERE id = \? AND status = \?`).
			WithArgs("expired", 5, "active").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`SELECT .+ FROM products WHERE id = \? FOR UPDATE`).
			WithArgs(1).
			WillReturnError(sql.ErrNoRows)
		mock.ExpectCommit()

		released, err := r.Sweep(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, released)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty batch ends the sweep", func(t *testing.T) {
		r, mock := newSweeper(t, nil)
		mock.ExpectQuery(`WHERE status = \? AND expires_at < UTC_TIMESTAMP\(\) AND id > \?`).
			WithArgs("active", 0, 100).
			WillReturnRows(expiredHoldRows())

		released, err := r.Sweep(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 0, released)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("pages by ascending id until a short batch", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		t.Cleanup(func() { db.Close() })
		r := New(repository.NewHoldRepo(db), repository.NewProductRepo(db), nil, 2, zerolog.Nop())

		mock.ExpectQuery(`WHERE status = \? AND expires_at < UTC_TIMESTAMP\(\) AND id > \?`).
			WithArgs("active", 0, 2).
			WillReturnRows(expiredHoldRows(5, 6))
		expectRelease(mock, 5, 40)
		expectRelease(mock, 6, 43)
		mock.ExpectQuery(`WHERE status = \? AND expires_at < UTC_TIMESTAMP\(\) AND id > \?`).
			WithArgs("active", 6, 2).
			WillReturnRows(expiredHoldRows(9))
		expectRelease(mock, 9, 46)

		released, err := r.Sweep(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 3, released)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
