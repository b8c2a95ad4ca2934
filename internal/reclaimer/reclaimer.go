// Package reclaimer implements the background sweep that returns
// expired holds' stock to the pool.  It runs concurrently with all
// request-driven operations; correctness against a racing conversion
// comes from re-checking every candidate hold under its own row lock.
package reclaimer

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/ahmedabdellatifss/flash-sale-api/internal/metrics"
	"github.com/ahmedabdellatifss/flash-sale-api/internal/model"
	"github.com/ahmedabdellatifss/flash-sale-api/internal/queue"
	"github.com/ahmedabdellatifss/flash-sale-api/internal/repository"
)

// errHoldSkipped marks a candidate that no longer qualifies once
// locked: it was converted, already expired by another sweep, or its
// expiry was somehow refreshed between selection and locking.
var errHoldSkipped = errors.New("hold skipped")

// Reclaimer pages through expired active holds and releases each one in
// its own transaction.
type Reclaimer struct {
	holds     *repository.HoldRepo
	products  *repository.ProductRepo
	events    queue.Publisher // may be nil
	batchSize int
	log       zerolog.Logger
}

// New constructs a Reclaimer.  A non-positive batchSize falls back to
// the reference chunk size of 100.
func New(holds *repository.HoldRepo, products *repository.ProductRepo, events queue.Publisher, batchSize int, log zerolog.Logger) *Reclaimer {
	if holds == nil || products == nil {
		panic("nil repository passed to reclaimer.New")
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Reclaimer{holds: holds, products: products, events: events, batchSize: batchSize, log: log}
}

// Sweep releases all currently expired holds and returns how many were
// released.  Candidates are paged by ascending id so memory stays
// bounded no matter how many holds lapsed.  A single hold's failure is
// logged and skipped; it never aborts the batch.
func (r *Reclaimer) Sweep(ctx context.Context) (int, error) {
	released := 0
	var cursor uint64
	for {
		batch, err := r.holds.ListExpired(ctx, cursor, r.batchSize)
		if err != nil {
			return released, err
		}
		if len(batch) == 0 {
			return released, nil
		}
		for i := range batch {
			h := &batch[i]
			cursor = h.ID
			if err := r.release(ctx, h.ID); err != nil {
				if errors.Is(err, errHoldSkipped) {
					continue
				}
				r.log.Error().Err(err).Uint64("hold_id", h.ID).Msg("failed to release expired hold")
				continue
			}
			released++
			metrics.HoldsExpired.Inc()
			if r.events != nil {
				_ = r.events.PublishStockReleased(ctx, queue.StockReleasedEvent{
					HoldID:     h.ID,
					ProductID:  h.ProductID,
					Quantity:   h.Quantity,
					Reason:     "hold_expired",
					ReleasedAt: time.Now().UTC().Format(time.RFC3339),
				})
			}
		}
		if len(batch) < r.batchSize {
			return released, nil
		}
	}
}

// release expires a single hold and returns its stock, all inside one
// transaction.  Status and expiry are re-verified on the locked row:
// the hold may have been converted between selection and locking, and
// the lock + re-check guarantees its stock is returned at most once and
// never after a conversion won the race.
func (r *Reclaimer) release(ctx context.Context, holdID uint64) error {
	tx, err := r.holds.DB().BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	hold, err := r.holds.GetForUpdateTx(ctx, tx, holdID)
	if err != nil {
		if errors.Is(err, repository.ErrHoldNotFound) {
			return errHoldSkipped
		}
		return err
	}
	now := time.Now().UTC()
	if hold.Status != model.HoldStatusActive || hold.ExpiresAt.After(now) {
		return errHoldSkipped
	}

	if err := r.holds.UpdateStatusTx(ctx, tx, hold.ID, model.HoldStatusActive, model.HoldStatusExpired); err != nil {
		return err
	}

	// Hold lock first, product lock second, matching the global order.
	// A vanished product row forfeits the stock return but the hold is
	// still marked expired, as the reference behavior does.
	product, err := r.products.GetForUpdateTx(ctx, tx, hold.ProductID)
	switch {
	case errors.Is(err, repository.ErrProductNotFound):
		r.log.Warn().Uint64("hold_id", hold.ID).Uint64("product_id", hold.ProductID).
			Msg("product row missing; expiring hold without stock return")
	case err != nil:
		return err
	default:
		if err := r.products.UpdateStockTx(ctx, tx, product.ID, product.StockRemaining+hold.Quantity); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// Run invokes Sweep on the given interval until the context is
// cancelled.  Intended to be started as a goroutine alongside the HTTP
// server; external schedulers can use the reclaim CLI instead.
func (r *Reclaimer) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		n, err := r.Sweep(ctx)
		if err != nil {
			r.log.Error().Err(err).Int("released", n).Msg("expiry sweep failed")
			continue
		}
		if n > 0 {
			r.log.Info().Int("released", n).Msg("released expired holds")
		}
	}
}
