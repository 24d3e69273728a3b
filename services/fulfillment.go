package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/ilyosdev/smeta-api/models"
	"github.com/ilyosdev/smeta-api/utils"
)

// Physical-handling extension of the request lifecycle: driver assignment,
// collection, delivery, receipt confirmation and final reconciliation. The
// checkpoints are additive observations on top of the base status — the
// budget line is charged once at fulfillment and adjusted once at finalize,
// never at the checkpoints in between.

// ApproveAndAssign moves PENDING -> APPROVED, records the approved quantity
// and amount (procurement may approve less than asked) and assigns a driver
// for pickup. The driver must belong to the caller's organization.
func (s *RequestService) ApproveAndAssign(ctx context.Context, id string, input models.ApproveAndAssignInput, tctx models.TenantContext) (*models.PurchaseRequest, error) {
	var updated *models.PurchaseRequest
	err := utils.WithTransaction(s.db, func(tx *sql.Tx) error {
		req, err := s.lockRequest(ctx, tx, id, tctx.OrgID)
		if err != nil {
			return err
		}
		if err := CheckTransition(TransitionAssign, req.Status, tctx.Role); err != nil {
			return err
		}
		if err := s.guard.AssertUserInOrg(ctx, tx, input.DriverID, tctx.OrgID); err != nil {
			return err
		}

		if input.Note != "" {
			req.Note = input.Note
		}
		now := time.Now()
		_, err = tx.ExecContext(ctx, `
			UPDATE purchase_requests
			SET status = $1, approved_by = $2, approved_at = $3,
			    approved_qty = $4, approved_amount = $5,
			    driver_id = $6, note = $7, updated_at = $3
			WHERE id = $8
		`, models.StatusApproved, tctx.UserID, now, input.ApprovedQty,
			input.ApprovedAmount, input.DriverID, req.Note, req.ID)
		if err != nil {
			return translateDBError(err)
		}

		req.Status = models.StatusApproved
		req.ApprovedBy = sql.NullString{String: tctx.UserID, Valid: true}
		req.ApprovedAt = sql.NullTime{Time: now, Valid: true}
		req.ApprovedQty = sql.NullFloat64{Float64: input.ApprovedQty, Valid: true}
		req.ApprovedAmount = sql.NullFloat64{Float64: input.ApprovedAmount, Valid: true}
		req.DriverID = sql.NullString{String: input.DriverID, Valid: true}
		req.UpdatedAt = now
		updated = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// checkpointStage names the three physical observations.
type checkpointStage string

const (
	stageCollected checkpointStage = "collected"
	stageDelivered checkpointStage = "delivered"
	stageReceived  checkpointStage = "received"
)

var stageTransition = map[checkpointStage]Transition{
	stageCollected: TransitionCollect,
	stageDelivered: TransitionDeliver,
	stageReceived:  TransitionReceive,
}

// MarkCollected records the quantity picked up by the assigned driver.
func (s *RequestService) MarkCollected(ctx context.Context, id string, input models.CheckpointInput, tctx models.TenantContext) (*models.PurchaseRequest, error) {
	return s.recordCheckpoint(ctx, id, stageCollected, input, tctx)
}

// MarkDelivered records the quantity dropped off at the site.
func (s *RequestService) MarkDelivered(ctx context.Context, id string, input models.CheckpointInput, tctx models.TenantContext) (*models.PurchaseRequest, error) {
	return s.recordCheckpoint(ctx, id, stageDelivered, input, tctx)
}

// ConfirmReceipt records the receiver's final quantity confirmation.
func (s *RequestService) ConfirmReceipt(ctx context.Context, id string, input models.CheckpointInput, tctx models.TenantContext) (*models.PurchaseRequest, error) {
	return s.recordCheckpoint(ctx, id, stageReceived, input, tctx)
}

func (s *RequestService) recordCheckpoint(ctx context.Context, id string, stage checkpointStage, input models.CheckpointInput, tctx models.TenantContext) (*models.PurchaseRequest, error) {
	var updated *models.PurchaseRequest
	err := utils.WithTransaction(s.db, func(tx *sql.Tx) error {
		req, err := s.lockRequest(ctx, tx, id, tctx.OrgID)
		if err != nil {
			return err
		}
		if err := CheckTransition(stageTransition[stage], req.Status, tctx.Role); err != nil {
			return err
		}
		// A driver may only touch requests assigned to them; privileged roles
		// may correct any request.
		if tctx.Role == models.RoleDriver && (!req.DriverID.Valid || req.DriverID.String != tctx.UserID) {
			return models.ErrInsufficientPermissions
		}

		if input.Note != "" {
			req.Note = input.Note
		}
		now := time.Now()
		// stage is one of three fixed identifiers, never caller input.
		_, err = tx.ExecContext(ctx, `
			UPDATE purchase_requests
			SET `+string(stage)+`_qty = $1,
			    `+string(stage)+`_at = $2,
			    `+string(stage)+`_proof = NULLIF($3, ''),
			    note = $4, updated_at = $2
			WHERE id = $5
		`, input.Qty, now, input.PhotoRef, req.Note, req.ID)
		if err != nil {
			return translateDBError(err)
		}

		qty := sql.NullFloat64{Float64: input.Qty, Valid: true}
		at := sql.NullTime{Time: now, Valid: true}
		proof := sql.NullString{String: input.PhotoRef, Valid: input.PhotoRef != ""}
		switch stage {
		case stageCollected:
			req.CollectedQty, req.CollectedAt, req.CollectedProof = qty, at, proof
		case stageDelivered:
			req.DeliveredQty, req.DeliveredAt, req.DeliveredProof = qty, at, proof
		case stageReceived:
			req.ReceivedQty, req.ReceivedAt, req.ReceivedProof = qty, at, proof
		}
		req.UpdatedAt = now
		updated = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Finalize reconciles the final monetary amount once the physical
// confirmations are in. The originally fulfilled amount is released and the
// final amount reserved in its place, under the same ledger lock discipline
// as fulfillment; an unflagged increase past the authorized budget fails
// with ErrOverrun and aborts.
func (s *RequestService) Finalize(ctx context.Context, id string, input models.FinalizeRequestInput, tctx models.TenantContext) (*models.PurchaseRequest, error) {
	var updated *models.PurchaseRequest
	err := utils.WithTransaction(s.db, func(tx *sql.Tx) error {
		req, err := s.lockRequest(ctx, tx, id, tctx.OrgID)
		if err != nil {
			return err
		}
		if err := CheckTransition(TransitionFinalize, req.Status, tctx.Role); err != nil {
			return err
		}

		previous := req.FulfilledAmount.Float64
		if req.FinalAmount.Valid {
			previous = req.FinalAmount.Float64
		}
		if err := s.ledger.Release(ctx, tx, req.SmetaItemID, 0, previous); err != nil {
			return err
		}
		if err := s.ledger.Reserve(ctx, tx, req.SmetaItemID, 0, input.FinalAmount, req.IsOverrun); err != nil {
			return err
		}

		if input.Note != "" {
			req.Note = input.Note
		}
		now := time.Now()
		_, err = tx.ExecContext(ctx, `
			UPDATE purchase_requests
			SET final_amount = $1, final_unit_price = $2, note = $3, updated_at = $4
			WHERE id = $5
		`, input.FinalAmount, input.FinalUnitPrice, req.Note, now, req.ID)
		if err != nil {
			return translateDBError(err)
		}

		req.FinalAmount = sql.NullFloat64{Float64: input.FinalAmount, Valid: true}
		req.FinalUnitPrice = sql.NullFloat64{Float64: input.FinalUnitPrice, Valid: true}
		req.UpdatedAt = now
		updated = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
