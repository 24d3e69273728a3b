package services

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ilyosdev/smeta-api/models"
)

func TestApproveAndAssign(t *testing.T) {
	svc, mock, done := newService(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM purchase_requests").
		WithArgs(requestID, orgID).
		WillReturnRows(requestRow(rowOpts{status: models.StatusPending}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT org_id FROM users")).
		WithArgs(driverID).
		WillReturnRows(sqlmock.NewRows([]string{"org_id"}).AddRow(orgID))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE purchase_requests")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	req, err := svc.ApproveAndAssign(context.Background(), requestID, models.ApproveAndAssignInput{
		ApprovedQty:    8,
		ApprovedAmount: 400,
		DriverID:       driverID,
	}, tenant(adminID, models.RoleAdmin))

	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, req.Status)
	assert.Equal(t, 8.0, req.ApprovedQty.Float64)
	assert.Equal(t, driverID, req.DriverID.String)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Assigning a driver from a foreign organization fails like a missing user.
func TestApproveAndAssignForeignDriver(t *testing.T) {
	svc, mock, done := newService(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM purchase_requests").
		WithArgs(requestID, orgID).
		WillReturnRows(requestRow(rowOpts{status: models.StatusPending}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT org_id FROM users")).
		WithArgs(driverID).
		WillReturnRows(sqlmock.NewRows([]string{"org_id"}).AddRow(otherOrg))
	mock.ExpectRollback()

	_, err := svc.ApproveAndAssign(context.Background(), requestID, models.ApproveAndAssignInput{
		ApprovedQty: 8, ApprovedAmount: 400, DriverID: driverID,
	}, tenant(adminID, models.RoleAdmin))
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestMarkCollectedByAssignedDriver(t *testing.T) {
	svc, mock, done := newService(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM purchase_requests").
		WithArgs(requestID, orgID).
		WillReturnRows(requestRow(rowOpts{status: models.StatusApproved, driverID: driverID}))
	mock.ExpectExec(regexp.QuoteMeta("collected_qty = $1")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	req, err := svc.MarkCollected(context.Background(), requestID, models.CheckpointInput{
		Qty:      8,
		PhotoRef: "photos/pickup-42.jpg",
	}, tenant(driverID, models.RoleDriver))

	require.NoError(t, err)
	assert.Equal(t, 8.0, req.CollectedQty.Float64)
	assert.True(t, req.CollectedAt.Valid)
	assert.Equal(t, "photos/pickup-42.jpg", req.CollectedProof.String)
	// A checkpoint never changes the base status.
	assert.Equal(t, models.StatusApproved, req.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkCollectedWrongDriver(t *testing.T) {
	svc, mock, done := newService(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM purchase_requests").
		WithArgs(requestID, orgID).
		WillReturnRows(requestRow(rowOpts{status: models.StatusApproved, driverID: driverID}))
	mock.ExpectRollback()

	_, err := svc.MarkCollected(context.Background(), requestID, models.CheckpointInput{Qty: 8},
		tenant("another-driver", models.RoleDriver))
	assert.ErrorIs(t, err, models.ErrInsufficientPermissions)
}

func TestConfirmReceiptByForeman(t *testing.T) {
	svc, mock, done := newService(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM purchase_requests").
		WithArgs(requestID, orgID).
		WillReturnRows(requestRow(rowOpts{status: models.StatusFulfilled, driverID: driverID}))
	mock.ExpectExec(regexp.QuoteMeta("received_qty = $1")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	req, err := svc.ConfirmReceipt(context.Background(), requestID, models.CheckpointInput{Qty: 7.5},
		tenant(foremanID, models.RoleForeman))

	require.NoError(t, err)
	assert.Equal(t, 7.5, req.ReceivedQty.Float64)
}

// Finalize swaps the originally fulfilled amount for the reconciled one under
// the ledger lock: release the old charge, reserve the new.
func TestFinalizeAdjustsLedger(t *testing.T) {
	svc, mock, done := newService(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM purchase_requests").
		WithArgs(requestID, orgID).
		WillReturnRows(requestRow(rowOpts{status: models.StatusFulfilled, fulfilledAmount: 480.0}))
	mock.ExpectExec(regexp.QuoteMeta("GREATEST(consumed_qty - $1, 0)")).
		WithArgs(0.0, 480.0, itemID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM smeta_items").
		WithArgs(itemID).
		WillReturnRows(ledgerRow(100, 5000, 40, 1520))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE smeta_items")).
		WithArgs(0.0, 450.0, itemID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("final_amount = $1")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	req, err := svc.Finalize(context.Background(), requestID, models.FinalizeRequestInput{
		FinalAmount:    450,
		FinalUnitPrice: 45,
	}, tenant(adminID, models.RoleAdmin))

	require.NoError(t, err)
	assert.Equal(t, 450.0, req.FinalAmount.Float64)
	assert.Equal(t, 45.0, req.FinalUnitPrice.Float64)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// A second finalize releases the previous final amount, not the fulfilled one.
func TestFinalizeTwiceReleasesPreviousFinal(t *testing.T) {
	svc, mock, done := newService(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM purchase_requests").
		WithArgs(requestID, orgID).
		WillReturnRows(requestRow(rowOpts{
			status:          models.StatusFulfilled,
			fulfilledAmount: 480.0,
			finalAmount:     450.0,
		}))
	mock.ExpectExec(regexp.QuoteMeta("GREATEST(consumed_qty - $1, 0)")).
		WithArgs(0.0, 450.0, itemID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM smeta_items").
		WithArgs(itemID).
		WillReturnRows(ledgerRow(100, 5000, 40, 1550))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE smeta_items")).
		WithArgs(0.0, 460.0, itemID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("final_amount = $1")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	req, err := svc.Finalize(context.Background(), requestID, models.FinalizeRequestInput{
		FinalAmount:    460,
		FinalUnitPrice: 46,
	}, tenant(adminID, models.RoleAdmin))

	require.NoError(t, err)
	assert.Equal(t, 460.0, req.FinalAmount.Float64)
}

// An unflagged final amount past the remaining budget aborts the adjustment.
func TestFinalizeOverrunAborts(t *testing.T) {
	svc, mock, done := newService(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM purchase_requests").
		WithArgs(requestID, orgID).
		WillReturnRows(requestRow(rowOpts{status: models.StatusFulfilled, fulfilledAmount: 480.0}))
	mock.ExpectExec(regexp.QuoteMeta("GREATEST(consumed_qty - $1, 0)")).
		WithArgs(0.0, 480.0, itemID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM smeta_items").
		WithArgs(itemID).
		WillReturnRows(ledgerRow(100, 5000, 40, 4900))
	mock.ExpectRollback()

	_, err := svc.Finalize(context.Background(), requestID, models.FinalizeRequestInput{
		FinalAmount:    600,
		FinalUnitPrice: 60,
	}, tenant(adminID, models.RoleAdmin))
	assert.ErrorIs(t, err, models.ErrOverrun)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFinalizeRequiresFulfilled(t *testing.T) {
	svc, mock, done := newService(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM purchase_requests").
		WithArgs(requestID, orgID).
		WillReturnRows(requestRow(rowOpts{status: models.StatusApproved}))
	mock.ExpectRollback()

	_, err := svc.Finalize(context.Background(), requestID, models.FinalizeRequestInput{
		FinalAmount: 450, FinalUnitPrice: 45,
	}, tenant(adminID, models.RoleAdmin))
	assert.ErrorIs(t, err, models.ErrInvalidState)
}
