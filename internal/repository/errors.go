// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios. For
// example, ErrInsufficientStock means a hold asked for more units than
// the product has left, while ErrTxConflict signals that the store's
// lock-wait timeout or deadlock detection aborted the transaction and
// the caller may retry.
package repository

import (
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
)

// ErrProductNotFound is returned when the referenced product row does
// not exist. Handlers should translate this into an HTTP 404 response.
var ErrProductNotFound = errors.New("product not found")

// ErrHoldNotFound is returned when the referenced hold row does not
// exist.
var ErrHoldNotFound = errors.New("hold not found")

// ErrOrderNotFound is returned when the referenced order row does not
// exist.
var ErrOrderNotFound = errors.New("order not found")

// ErrInsufficientStock is returned when a hold requests more units than
// the product's remaining stock. The enclosing transaction must be
// rolled back so no partial decrement is observable.
var ErrInsufficientStock = errors.New("insufficient stock")

// ErrHoldNotActive is returned when an operation requires an active
// hold but the row is already expired or converted.
var ErrHoldNotActive = errors.New("hold is not active")

// ErrHoldExpired is returned when a conversion finds the hold's
// expires_at already in the past at lock time.
var ErrHoldExpired = errors.New("hold expired")

// ErrOrderSettled is returned when a status change expects a
// pending_payment order but the row is already paid or cancelled.
var ErrOrderSettled = errors.New("order already settled")

// ErrDuplicateWebhook is returned when inserting a payment log loses
// the race against another delivery carrying the same webhook_id. The
// caller should re-read the winning log and treat the notification as
// already processed.
var ErrDuplicateWebhook = errors.New("duplicate webhook id")

// ErrTxConflict is returned when MySQL reports a lock wait timeout or a
// deadlock. The operation left no partial writes and is safe to retry.
var ErrTxConflict = errors.New("transaction conflict")

const (
	mysqlErrDuplicateEntry  = 1062
	mysqlErrLockWaitTimeout = 1205
	mysqlErrDeadlock        = 1213
)

// mapError translates driver-level MySQL errors into the package
// sentinels so handlers never have to inspect error codes themselves.
// Errors with no special meaning pass through unchanged.
func mapError(err error) error {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case mysqlErrLockWaitTimeout, mysqlErrDeadlock:
			return fmt.Errorf("%w: %v", ErrTxConflict, err)
		}
	}
	return err
}

// isDuplicateEntry reports whether err is a MySQL unique-key violation.
func isDuplicateEntry(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == mysqlErrDuplicateEntry
}
