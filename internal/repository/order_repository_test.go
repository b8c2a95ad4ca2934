package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmedabdellatifss/flash-sale-api/internal/model"
)

func orderRows(id uint64, status model.OrderStatus) *sqlmock.Rows {
	now := time.Now().UTC().Truncate(time.Second)
	return sqlmock.NewRows([]string{"id", "hold_id", "product_id", "quantity", "status", "created_at", "updated_at"}).
		AddRow(id, 7, 1, 2, string(status), now, now)
}

func TestOrderRepoCreateTx(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO orders \(hold_id, product_id, quantity, status\)`).
		WithArgs(7, 1, 2, "pending_payment").
		WillReturnResult(sqlmock.NewResult(11, 1))
	mock.ExpectQuery(`SELECT .+ FROM orders WHERE id = \?$`).
		WithArgs(11).
		WillReturnRows(orderRows(11, model.OrderStatusPendingPayment))
	mock.ExpectCommit()

	tx := beginTx(t, db)
	o := &model.Order{HoldID: 7, ProductID: 1, Quantity: 2, Status: model.OrderStatusPendingPayment}
	require.NoError(t, NewOrderRepo(db).CreateTx(context.Background(), tx, o))
	require.NoError(t, tx.Commit())

	assert.Equal(t, uint64(11), o.ID)
	assert.Equal(t, model.OrderStatusPendingPayment, o.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepoGetForUpdateTx(t *testing.T) {
	t.Run("locks the row", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT .+ FROM orders WHERE id = \? FOR UPDATE`).
			WithArgs(11).
			WillReturnRows(orderRows(11, model.OrderStatusPendingPayment))
		mock.ExpectCommit()

		tx := beginTx(t, db)
		o, err := NewOrderRepo(db).GetForUpdateTx(context.Background(), tx, 11)
		require.NoError(t, err)
		assert.Equal(t, model.OrderStatusPendingPayment, o.Status)
		require.NoError(t, tx.Commit())
	})

	t.Run("missing maps to sentinel", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT .+ FROM orders WHERE id = \? FOR UPDATE`).
			WithArgs(99).
			WillReturnError(sql.ErrNoRows)
		mock.ExpectRollback()

		tx := beginTx(t, db)
		_, err := NewOrderRepo(db).GetForUpdateTx(context.Background(), tx, 99)
		assert.ErrorIs(t, err, ErrOrderNotFound)
		require.NoError(t, tx.Rollback())
	})
}

func TestOrderRepoUpdateStatusTx(t *testing.T) {
	t.Run("settles a pending order", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE orders SET status = \? WHERE id = \? AND status = \?`).
			WithArgs("paid", 11, "pending_payment").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		tx := beginTx(t, db)
		err := NewOrderRepo(db).UpdateStatusTx(context.Background(), tx, 11, model.OrderStatusPendingPayment, model.OrderStatusPaid)
		require.NoError(t, err)
		require.NoError(t, tx.Commit())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("zero rows means already settled", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE orders SET status = \?`).
			WithArgs("cancelled", 11, "pending_payment").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		tx := beginTx(t, db)
		err := NewOrderRepo(db).UpdateStatusTx(context.Background(), tx, 11, model.OrderStatusPendingPayment, model.OrderStatusCancelled)
		assert.ErrorIs(t, err, ErrOrderSettled)
		require.NoError(t, tx.Rollback())
	})

	t.Run("rejects transitions out of a terminal state", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectRollback()

		tx := beginTx(t, db)
		err := NewOrderRepo(db).UpdateStatusTx(context.Background(), tx, 11, model.OrderStatusPaid, model.OrderStatusCancelled)
		assert.ErrorIs(t, err, ErrOrderSettled)
		require.NoError(t, tx.Rollback())
	})
}
