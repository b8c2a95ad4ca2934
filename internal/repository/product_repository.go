package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/ahmedabdellatifss/flash-sale-api/internal/model"
)

// ProductRepo provides data access to the products table.  The product
// row is the single source of truth for sellable quantity, so every
// mutation of stock_remaining happens through GetForUpdateTx followed
// by UpdateStockTx inside the same transaction: the read and the write
// share one lock scope and no in-memory counter ever substitutes for
// the row.
type ProductRepo struct {
	db *sql.DB
}

// NewProductRepo returns a new ProductRepo bound to the provided database.
func NewProductRepo(db *sql.DB) *ProductRepo { return &ProductRepo{db: db} }

// DB exposes the underlying handle so handlers can open transactions.
func (r *ProductRepo) DB() *sql.DB { return r.db }

const productColumns = `id, name, price_cents, total_stock, stock_remaining, created_at, updated_at`

func scanProduct(row *sql.Row) (*model.Product, error) {
	var p model.Product
	err := row.Scan(&p.ID, &p.Name, &p.PriceCents, &p.TotalStock, &p.StockRemaining, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, mapError(err)
	}
	return &p, nil
}

// GetByID loads a product without any lock.  Reading stock_remaining
// this way is safe for display because every writer maintains the
// counter under a row lock.
func (r *ProductRepo) GetByID(ctx context.Context, id uint64) (*model.Product, error) {
	const q = `SELECT ` + productColumns + ` FROM products WHERE id = ?`
	return scanProduct(r.db.QueryRowContext(ctx, q, id))
}

// GetForUpdateTx loads a product under an exclusive row lock.  The lock
// is held until the supplied transaction commits or rolls back, which
// serializes all stock mutations for the product.
func (r *ProductRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Product, error) {
	const q = `SELECT ` + productColumns + ` FROM products WHERE id = ? FOR UPDATE`
	return scanProduct(tx.QueryRowContext(ctx, q, id))
}

// UpdateStockTx writes a new stock_remaining value for the product.
// Callers must hold the product's row lock via GetForUpdateTx in the
// same transaction and must have derived remaining from the locked read.
func (r *ProductRepo) UpdateStockTx(ctx context.Context, tx *sql.Tx, id uint64, remaining int) error {
	const q = `UPDATE products SET stock_remaining = ? WHERE id = ?`
	if _, err := tx.ExecContext(ctx, q, remaining, id); err != nil {
		return mapError(err)
	}
	return nil
}
