package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/ahmedabdellatifss/flash-sale-api/internal/model"
)

// OrderRepo provides data access to the orders table.  Orders are
// created exactly once per hold by the conversion handler and mutated
// only by payment settlement, always under an exclusive row lock.
type OrderRepo struct {
	db *sql.DB
}

// NewOrderRepo returns a new OrderRepo bound to the provided database.
func NewOrderRepo(db *sql.DB) *OrderRepo { return &OrderRepo{db: db} }

// DB exposes the underlying handle so handlers can open transactions.
func (r *OrderRepo) DB() *sql.DB { return r.db }

const orderColumns = `id, hold_id, product_id, quantity, status, created_at, updated_at`

func scanOrder(row *sql.Row) (*model.Order, error) {
	var o model.Order
	err := row.Scan(&o.ID, &o.HoldID, &o.ProductID, &o.Quantity, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, mapError(err)
	}
	return &o, nil
}

// CreateTx inserts a new order within the scope of an existing
// transaction and populates the generated ID and timestamps on the
// provided record.  The same transaction must also flip the source hold
// to converted so the two writes commit atomically.
func (r *OrderRepo) CreateTx(ctx context.Context, tx *sql.Tx, o *model.Order) error {
	const q = `INSERT INTO orders (hold_id, product_id, quantity, status) VALUES (?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, o.HoldID, o.ProductID, o.Quantity, string(o.Status))
	if err != nil {
		return mapError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	o.ID = uint64(id)
	// Query back the row to populate timestamps.
	const sel = `SELECT ` + orderColumns + ` FROM orders WHERE id = ?`
	got, err := scanOrder(tx.QueryRowContext(ctx, sel, o.ID))
	if err != nil {
		return err
	}
	*o = *got
	return nil
}

// GetForUpdateTx loads an order under an exclusive row lock.  Payment
// settlement decides paid/cancelled from the locked status, never from
// an earlier unlocked read.
func (r *OrderRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Order, error) {
	const q = `SELECT ` + orderColumns + ` FROM orders WHERE id = ? FOR UPDATE`
	return scanOrder(tx.QueryRowContext(ctx, q, id))
}

// UpdateStatusTx transitions an order from one status to another,
// guarded by the expected current status in the WHERE clause.  A
// zero-row update means another writer already settled the order.
func (r *OrderRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uint64, from, to model.OrderStatus) error {
	if !from.CanTransitionTo(to) {
		return ErrOrderSettled
	}
	const q = `UPDATE orders SET status = ? WHERE id = ? AND status = ?`
	res, err := tx.ExecContext(ctx, q, string(to), id, string(from))
	if err != nil {
		return mapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrOrderSettled
	}
	return nil
}
