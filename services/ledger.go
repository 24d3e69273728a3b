package services

import (
	"context"
	"database/sql"

	"github.com/ilyosdev/smeta-api/models"
)

// LedgerService is the authoritative source of how much of a budget line has
// been used. All mutations lock the smeta_items row (SELECT ... FOR UPDATE)
// so two concurrent reservations can never both pass an overrun check on a
// stale remaining value. Methods take a Querier so they run inside the
// caller's transaction; reserve/release are never valid outside one.
type LedgerService struct{}

const ledgerLockQuery = `
	SELECT quantity, amount, consumed_qty, consumed_amount
	FROM smeta_items
	WHERE id = $1
	FOR UPDATE`

// GetRemaining returns the displayed headroom on a line: authorized minus
// consumed, clamped at zero. The stored consumed values are never clamped,
// so explicitly flagged overruns stay visible in the raw columns.
func (s LedgerService) GetRemaining(ctx context.Context, q Querier, itemID string) (models.Remaining, error) {
	var qty, amount, consumedQty, consumedAmount float64
	err := q.QueryRowContext(ctx, `
		SELECT quantity, amount, consumed_qty, consumed_amount
		FROM smeta_items
		WHERE id = $1
	`, itemID).Scan(&qty, &amount, &consumedQty, &consumedAmount)
	if err == sql.ErrNoRows {
		return models.Remaining{}, models.ErrNotFound
	}
	if err != nil {
		return models.Remaining{}, translateDBError(err)
	}

	return models.Remaining{
		Qty:    clampZero(qty - consumedQty),
		Amount: clampZero(amount - consumedAmount),
	}, nil
}

// Reserve increases the consumed quantity and amount of a line. When
// allowOverrun is false the reservation fails with ErrOverrun if either value
// would exceed the remaining budget; when true it succeeds unconditionally
// and the consumption is tracked past the authorized figures.
func (s LedgerService) Reserve(ctx context.Context, tx Querier, itemID string, qty, amount float64, allowOverrun bool) error {
	var authQty, authAmount, consumedQty, consumedAmount float64
	err := tx.QueryRowContext(ctx, ledgerLockQuery, itemID).Scan(&authQty, &authAmount, &consumedQty, &consumedAmount)
	if err == sql.ErrNoRows {
		return models.ErrNotFound
	}
	if err != nil {
		return translateDBError(err)
	}

	// Compare against the clamped remaining headroom, not raw arithmetic: a
	// line already driven past its authorization by a flagged overrun must
	// not make an unrelated zero-delta adjustment fail.
	if !allowOverrun {
		if qty > clampZero(authQty-consumedQty) || amount > clampZero(authAmount-consumedAmount) {
			return models.ErrOverrun
		}
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE smeta_items
		SET consumed_qty = consumed_qty + $1,
		    consumed_amount = consumed_amount + $2,
		    updated_at = NOW()
		WHERE id = $3
	`, qty, amount, itemID)
	return translateDBError(err)
}

// Release decreases consumed quantity and amount, flooring both at zero to
// guard against a double release. Used when a previously reserved request is
// reversed and by finalize when the reconciled amount shrinks.
func (s LedgerService) Release(ctx context.Context, tx Querier, itemID string, qty, amount float64) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE smeta_items
		SET consumed_qty = GREATEST(consumed_qty - $1, 0),
		    consumed_amount = GREATEST(consumed_amount - $2, 0),
		    updated_at = NOW()
		WHERE id = $3
	`, qty, amount, itemID)
	if err != nil {
		return translateDBError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return models.ErrNotFound
	}
	return nil
}

// Recompute refreshes amount = quantity * unit_price after an edit of the
// line itself. Consumption is untouched.
func (s LedgerService) Recompute(ctx context.Context, q Querier, itemID string) error {
	res, err := q.ExecContext(ctx, `
		UPDATE smeta_items
		SET amount = quantity * unit_price,
		    updated_at = NOW()
		WHERE id = $1
	`, itemID)
	if err != nil {
		return translateDBError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return models.ErrNotFound
	}
	return nil
}

func clampZero(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
