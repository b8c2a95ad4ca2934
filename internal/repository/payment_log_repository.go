package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/ahmedabdellatifss/flash-sale-api/internal/model"
)

// PaymentLogRepo provides data access to the payment_logs table.  Each
// row records one processed external payment notification; the unique
// index on webhook_id is what makes the webhook endpoint safe under
// at-least-once delivery.
type PaymentLogRepo struct {
	db *sql.DB
}

// NewPaymentLogRepo returns a new PaymentLogRepo bound to the provided database.
func NewPaymentLogRepo(db *sql.DB) *PaymentLogRepo { return &PaymentLogRepo{db: db} }

const paymentLogColumns = `id, webhook_id, order_id, status, payload, created_at`

func scanPaymentLog(row *sql.Row) (*model.PaymentLog, error) {
	var (
		l       model.PaymentLog
		payload sql.NullString
	)
	err := row.Scan(&l.ID, &l.WebhookID, &l.OrderID, &l.Status, &payload, &l.CreatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	if payload.Valid {
		l.Payload = []byte(payload.String)
	}
	return &l, nil
}

// FindByWebhookID looks up the log entry for an idempotency key.  It
// returns (nil, nil) when no entry exists.  The lookup deliberately
// takes no lock; the unique index backstops the window between this
// check and a concurrent first-time insert.
func (r *PaymentLogRepo) FindByWebhookID(ctx context.Context, webhookID string) (*model.PaymentLog, error) {
	const q = `SELECT ` + paymentLogColumns + ` FROM payment_logs WHERE webhook_id = ?`
	l, err := scanPaymentLog(r.db.QueryRowContext(ctx, q, webhookID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return l, nil
}

// CreateTx inserts the payment log within the same transaction that
// settled the order, so the log commits atomically with the state
// change it records.  Losing a unique-index race on webhook_id returns
// ErrDuplicateWebhook; the caller rolls back and re-reads the winner.
func (r *PaymentLogRepo) CreateTx(ctx context.Context, tx *sql.Tx, l *model.PaymentLog) error {
	const q = `INSERT INTO payment_logs (webhook_id, order_id, status, payload) VALUES (?, ?, ?, ?)`
	var payload interface{}
	if len(l.Payload) > 0 {
		payload = string(l.Payload)
	}
	res, err := tx.ExecContext(ctx, q, l.WebhookID, l.OrderID, string(l.Status), payload)
	if err != nil {
		if isDuplicateEntry(err) {
			return ErrDuplicateWebhook
		}
		return mapError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	l.ID = uint64(id)
	// Query back the row to populate created_at.
	const sel = `SELECT ` + paymentLogColumns + ` FROM payment_logs WHERE id = ?`
	got, err := scanPaymentLog(tx.QueryRowContext(ctx, sel, l.ID))
	if err != nil {
		return err
	}
	*l = *got
	return nil
}
