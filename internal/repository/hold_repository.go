package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/ahmedabdellatifss/flash-sale-api/internal/model"
)

// HoldRepo provides data access to the holds table.  All timestamps are
// stored and compared in UTC.  Status changes go through UpdateStatusTx,
// which guards on the current status so a hold can never leave a
// terminal state even if two writers race on the same row.
type HoldRepo struct {
	db *sql.DB
}

// NewHoldRepo returns a new HoldRepo bound to the provided database.
func NewHoldRepo(db *sql.DB) *HoldRepo { return &HoldRepo{db: db} }

// DB exposes the underlying handle so handlers can open transactions.
func (r *HoldRepo) DB() *sql.DB { return r.db }

const holdColumns = `id, product_id, quantity, token, expires_at, status, created_at`

func scanHold(row *sql.Row) (*model.Hold, error) {
	var h model.Hold
	err := row.Scan(&h.ID, &h.ProductID, &h.Quantity, &h.Token, &h.ExpiresAt, &h.Status, &h.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrHoldNotFound
		}
		return nil, mapError(err)
	}
	return &h, nil
}

// CreateTx inserts a new hold within the scope of an existing
// transaction and populates the generated ID and timestamps on the
// provided record.  The caller must already hold the product row lock
// that covered the matching stock decrement, and must commit or roll
// back the transaction.
func (r *HoldRepo) CreateTx(ctx context.Context, tx *sql.Tx, h *model.Hold) error {
	const q = `INSERT INTO holds (product_id, quantity, token, expires_at, status) VALUES (?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, h.ProductID, h.Quantity, h.Token,
		h.ExpiresAt.UTC().Format("2006-01-02 15:04:05"), string(h.Status))
	if err != nil {
		return mapError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	h.ID = uint64(id)
	// Query back the row to populate created_at and normalized expires_at.
	const sel = `SELECT ` + holdColumns + ` FROM holds WHERE id = ?`
	got, err := scanHold(tx.QueryRowContext(ctx, sel, h.ID))
	if err != nil {
		return err
	}
	*h = *got
	return nil
}

// GetForUpdateTx loads a hold under an exclusive row lock.  Callers
// re-check status and expiry on the locked row; the values seen at
// selection time may be stale by the time the lock is granted.
func (r *HoldRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Hold, error) {
	const q = `SELECT ` + holdColumns + ` FROM holds WHERE id = ? FOR UPDATE`
	return scanHold(tx.QueryRowContext(ctx, q, id))
}

// UpdateStatusTx transitions a hold from one status to another.  The
// WHERE clause includes the expected current status, so a concurrent
// writer that already moved the hold makes this a zero-row update and
// the call returns ErrHoldNotActive.  Transitions not allowed by the
// state machine are rejected before touching the database.
func (r *HoldRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uint64, from, to model.HoldStatus) error {
	if !from.CanTransitionTo(to) {
		return ErrHoldNotActive
	}
	const q = `UPDATE holds SET status = ? WHERE id = ? AND status = ?`
	res, err := tx.ExecContext(ctx, q, string(to), id, string(from))
	if err != nil {
		return mapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrHoldNotActive
	}
	return nil
}

// ListExpired returns up to limit active holds whose expires_at is in
// the past, ordered by ascending id and starting after the given
// cursor.  The reclaim sweep pages through candidates this way so it
// never loads the full expired set into memory.  No locks are taken;
// each returned candidate is re-verified under its own row lock.
func (r *HoldRepo) ListExpired(ctx context.Context, afterID uint64, limit int) ([]model.Hold, error) {
	const q = `SELECT ` + holdColumns + ` FROM holds
	           WHERE status = ? AND expires_at < UTC_TIMESTAMP() AND id > ?
	           ORDER BY id ASC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, string(model.HoldStatusActive), afterID, limit)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()
	var holds []model.Hold
	for rows.Next() {
		var h model.Hold
		if err := rows.Scan(&h.ID, &h.ProductID, &h.Quantity, &h.Token, &h.ExpiresAt, &h.Status, &h.CreatedAt); err != nil {
			return nil, err
		}
		holds = append(holds, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return holds, nil
}
