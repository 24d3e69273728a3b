package services

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ilyosdev/smeta-api/models"
)

const itemID = "9f6c1c0a-6f9e-4d64-9b7e-2c4c7d2a1b11"

func ledgerRow(qty, amount, consumedQty, consumedAmount float64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"quantity", "amount", "consumed_qty", "consumed_amount"}).
		AddRow(qty, amount, consumedQty, consumedAmount)
}

func TestGetRemaining(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT quantity, amount, consumed_qty, consumed_amount")).
		WithArgs(itemID).
		WillReturnRows(ledgerRow(100, 5000, 40, 2000))

	var ledger LedgerService
	remaining, err := ledger.GetRemaining(context.Background(), db, itemID)
	require.NoError(t, err)
	assert.Equal(t, 60.0, remaining.Qty)
	assert.Equal(t, 3000.0, remaining.Amount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// A line pushed past its authorization by a flagged overrun still reports
// zero remaining, never a negative value.
func TestGetRemainingClampsAtZero(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT quantity, amount, consumed_qty, consumed_amount")).
		WithArgs(itemID).
		WillReturnRows(ledgerRow(100, 5000, 120, 6200))

	var ledger LedgerService
	remaining, err := ledger.GetRemaining(context.Background(), db, itemID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, remaining.Qty)
	assert.Equal(t, 0.0, remaining.Amount)
}

func TestReserveWithinBudget(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("FOR UPDATE").
		WithArgs(itemID).
		WillReturnRows(ledgerRow(100, 5000, 40, 2000))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE smeta_items")).
		WithArgs(30.0, 1500.0, itemID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	var ledger LedgerService
	err = ledger.Reserve(context.Background(), db, itemID, 30, 1500, false)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReserveOverrunRejected(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("FOR UPDATE").
		WithArgs(itemID).
		WillReturnRows(ledgerRow(100, 5000, 90, 4800))

	var ledger LedgerService
	err = ledger.Reserve(context.Background(), db, itemID, 20, 200, false)
	assert.ErrorIs(t, err, models.ErrOverrun)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReserveAmountOverrunRejected(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("FOR UPDATE").
		WithArgs(itemID).
		WillReturnRows(ledgerRow(100, 5000, 10, 4900))

	var ledger LedgerService
	err = ledger.Reserve(context.Background(), db, itemID, 5, 500, false)
	assert.ErrorIs(t, err, models.ErrOverrun)
}

func TestReserveFlaggedOverrunAllowed(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("FOR UPDATE").
		WithArgs(itemID).
		WillReturnRows(ledgerRow(100, 5000, 90, 4800))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE smeta_items")).
		WithArgs(20.0, 1000.0, itemID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	var ledger LedgerService
	err = ledger.Reserve(context.Background(), db, itemID, 20, 1000, true)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// A zero-delta reservation must not fail just because an earlier flagged
// overrun already exhausted the line.
func TestReserveZeroDeltaOnOverrunLine(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("FOR UPDATE").
		WithArgs(itemID).
		WillReturnRows(ledgerRow(100, 5000, 120, 6200))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE smeta_items")).
		WithArgs(0.0, 0.0, itemID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	var ledger LedgerService
	err = ledger.Reserve(context.Background(), db, itemID, 0, 0, false)
	assert.NoError(t, err)
}

func TestReserveUnknownItem(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("FOR UPDATE").
		WithArgs(itemID).
		WillReturnError(sql.ErrNoRows)

	var ledger LedgerService
	err = ledger.Reserve(context.Background(), db, itemID, 1, 1, false)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestRelease(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("GREATEST(consumed_qty - $1, 0)")).
		WithArgs(10.0, 500.0, itemID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	var ledger LedgerService
	err = ledger.Release(context.Background(), db, itemID, 10, 500)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReleaseUnknownItem(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("GREATEST(consumed_qty - $1, 0)")).
		WithArgs(10.0, 500.0, itemID).
		WillReturnResult(sqlmock.NewResult(0, 0))

	var ledger LedgerService
	err = ledger.Release(context.Background(), db, itemID, 10, 500)
	assert.ErrorIs(t, err, models.ErrNotFound)
}
