package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/ilyosdev/smeta-api/models"
	"github.com/ilyosdev/smeta-api/utils"
)

// RequestService owns the purchase request record and every transition on it.
// All mutations run inside one transaction: the request row is locked first
// (FOR UPDATE), so only one terminal transition can ever win a race, and any
// ledger reservation failure aborts the whole operation.
type RequestService struct {
	db     *sql.DB
	guard  TenantGuard
	ledger LedgerService
}

func NewRequestService(db *sql.DB) *RequestService {
	return &RequestService{db: db}
}

const requestColumns = `id, smeta_item_id, org_id, requested_by,
	requested_qty, requested_amount, note,
	is_overrun, overrun_qty, overrun_percent, status,
	approved_by, approved_at, approved_qty, approved_amount, rejection_reason,
	fulfilled_by, fulfilled_at, fulfilled_qty, fulfilled_amount, supplier_name, proof_ref,
	driver_id, collected_qty, collected_at, collected_proof,
	delivered_qty, delivered_at, delivered_proof,
	received_qty, received_at, received_proof,
	final_amount, final_unit_price, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRequest(row rowScanner) (*models.PurchaseRequest, error) {
	var r models.PurchaseRequest
	err := row.Scan(
		&r.ID, &r.SmetaItemID, &r.OrgID, &r.RequestedBy,
		&r.RequestedQty, &r.RequestedAmount, &r.Note,
		&r.IsOverrun, &r.OverrunQty, &r.OverrunPercent, &r.Status,
		&r.ApprovedBy, &r.ApprovedAt, &r.ApprovedQty, &r.ApprovedAmount, &r.RejectionReason,
		&r.FulfilledBy, &r.FulfilledAt, &r.FulfilledQty, &r.FulfilledAmount, &r.SupplierName, &r.ProofRef,
		&r.DriverID, &r.CollectedQty, &r.CollectedAt, &r.CollectedProof,
		&r.DeliveredQty, &r.DeliveredAt, &r.DeliveredProof,
		&r.ReceivedQty, &r.ReceivedAt, &r.ReceivedProof,
		&r.FinalAmount, &r.FinalUnitPrice, &r.CreatedAt, &r.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, translateDBError(err)
	}
	return &r, nil
}

// lockRequest fetches a request scoped to the caller's organization and locks
// its row for the rest of the transaction. Absent and cross-tenant are both
// ErrNotFound.
func (s *RequestService) lockRequest(ctx context.Context, tx Querier, id, orgID string) (*models.PurchaseRequest, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT `+requestColumns+`
		FROM purchase_requests
		WHERE id = $1 AND org_id = $2
		FOR UPDATE
	`, id, orgID)
	return scanRequest(row)
}

// Create inserts a new PENDING request against a budget line of the caller's
// organization. Nothing is reserved on the ledger yet; reservation happens at
// fulfillment.
func (s *RequestService) Create(ctx context.Context, input models.CreateRequestInput, tctx models.TenantContext) (*models.PurchaseRequest, error) {
	if !RoleAllowed(TransitionCreate, tctx.Role) {
		return nil, models.ErrInsufficientPermissions
	}
	if err := s.guard.AssertItemOwned(ctx, s.db, input.SmetaItemID, tctx.OrgID); err != nil {
		return nil, err
	}

	req := &models.PurchaseRequest{
		ID:              uuid.New().String(),
		SmetaItemID:     input.SmetaItemID,
		OrgID:           tctx.OrgID,
		RequestedBy:     tctx.UserID,
		RequestedQty:    input.RequestedQty,
		RequestedAmount: input.RequestedAmount,
		Note:            input.Note,
		IsOverrun:       input.IsOverrun,
		OverrunQty:      input.OverrunQty,
		OverrunPercent:  input.OverrunPercent,
		Status:          models.StatusPending,
	}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO purchase_requests
			(id, smeta_item_id, org_id, requested_by, requested_qty, requested_amount,
			 note, is_overrun, overrun_qty, overrun_percent, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at
	`, req.ID, req.SmetaItemID, req.OrgID, req.RequestedBy, req.RequestedQty,
		req.RequestedAmount, req.Note, req.IsOverrun, req.OverrunQty,
		req.OverrunPercent, req.Status).Scan(&req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		return nil, translateDBError(err)
	}
	return req, nil
}

// Get fetches a single request visible to the caller's organization.
func (s *RequestService) Get(ctx context.Context, id string, tctx models.TenantContext) (*models.PurchaseRequest, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+requestColumns+`
		FROM purchase_requests
		WHERE id = $1 AND org_id = $2
	`, id, tctx.OrgID)
	return scanRequest(row)
}

// List returns a page of requests matching the filter. All filters AND
// together; the organization scope is always applied.
func (s *RequestService) List(ctx context.Context, filter models.RequestFilter, page models.Page, tctx models.TenantContext) (*models.RequestPage, error) {
	page = page.Normalize()

	where := []string{"org_id = $1"}
	args := []interface{}{tctx.OrgID}

	if statuses := filter.StatusSet(); len(statuses) > 0 {
		args = append(args, pq.Array(statuses))
		where = append(where, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	if filter.SmetaItemID != "" {
		args = append(args, filter.SmetaItemID)
		where = append(where, fmt.Sprintf("smeta_item_id = $%d", len(args)))
	}
	if filter.ProjectID != "" {
		args = append(args, filter.ProjectID)
		where = append(where, fmt.Sprintf(`smeta_item_id IN (
			SELECT si.id FROM smeta_items si
			JOIN smetas sm ON si.smeta_id = sm.id
			WHERE sm.project_id = $%d)`, len(args)))
	}

	whereClause := strings.Join(where, " AND ")

	var total int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM purchase_requests WHERE "+whereClause, args...).Scan(&total)
	if err != nil {
		return nil, translateDBError(err)
	}

	listArgs := append(args, page.Limit, page.Offset())
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s FROM purchase_requests
		WHERE %s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d
	`, requestColumns, whereClause, len(args)+1, len(args)+2), listArgs...)
	if err != nil {
		return nil, translateDBError(err)
	}
	defer rows.Close()

	data := []map[string]interface{}{}
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		data = append(data, req.View())
	}
	if err := rows.Err(); err != nil {
		return nil, translateDBError(err)
	}

	return &models.RequestPage{
		Data:  data,
		Total: total,
		Page:  page.Page,
		Limit: page.Limit,
	}, nil
}

// Update patches the editable fields of a PENDING request in place. A request
// that already left PENDING answers ErrConflict: the caller lost the race
// against a terminal transition.
func (s *RequestService) Update(ctx context.Context, id string, input models.UpdateRequestInput, tctx models.TenantContext) (*models.PurchaseRequest, error) {
	var updated *models.PurchaseRequest
	err := utils.WithTransaction(s.db, func(tx *sql.Tx) error {
		req, err := s.lockRequest(ctx, tx, id, tctx.OrgID)
		if err != nil {
			return err
		}
		if !RoleAllowed(TransitionUpdate, tctx.Role) {
			return models.ErrInsufficientPermissions
		}
		if req.Status != models.StatusPending {
			return models.ErrConflict
		}
		if !privileged(tctx.Role) && req.RequestedBy != tctx.UserID {
			return models.ErrInsufficientPermissions
		}

		if input.RequestedQty != nil {
			req.RequestedQty = *input.RequestedQty
		}
		if input.RequestedAmount != nil {
			req.RequestedAmount = *input.RequestedAmount
		}
		if input.Note != nil {
			req.Note = *input.Note
		}
		if input.IsOverrun != nil {
			req.IsOverrun = *input.IsOverrun
		}
		if input.OverrunQty != nil {
			req.OverrunQty = *input.OverrunQty
		}
		if input.OverrunPercent != nil {
			req.OverrunPercent = *input.OverrunPercent
		}
		req.UpdatedAt = time.Now()

		_, err = tx.ExecContext(ctx, `
			UPDATE purchase_requests
			SET requested_qty = $1, requested_amount = $2, note = $3,
			    is_overrun = $4, overrun_qty = $5, overrun_percent = $6,
			    updated_at = $7
			WHERE id = $8
		`, req.RequestedQty, req.RequestedAmount, req.Note, req.IsOverrun,
			req.OverrunQty, req.OverrunPercent, req.UpdatedAt, req.ID)
		if err != nil {
			return translateDBError(err)
		}
		updated = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Approve moves PENDING -> APPROVED and stamps the approver. No ledger effect.
func (s *RequestService) Approve(ctx context.Context, id string, tctx models.TenantContext) (*models.PurchaseRequest, error) {
	var updated *models.PurchaseRequest
	err := utils.WithTransaction(s.db, func(tx *sql.Tx) error {
		req, err := s.lockRequest(ctx, tx, id, tctx.OrgID)
		if err != nil {
			return err
		}
		if err := CheckTransition(TransitionApprove, req.Status, tctx.Role); err != nil {
			return err
		}

		now := time.Now()
		_, err = tx.ExecContext(ctx, `
			UPDATE purchase_requests
			SET status = $1, approved_by = $2, approved_at = $3, updated_at = $3
			WHERE id = $4
		`, models.StatusApproved, tctx.UserID, now, req.ID)
		if err != nil {
			return translateDBError(err)
		}

		req.Status = models.StatusApproved
		req.ApprovedBy = sql.NullString{String: tctx.UserID, Valid: true}
		req.ApprovedAt = sql.NullTime{Time: now, Valid: true}
		req.UpdatedAt = now
		updated = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Reject moves PENDING -> REJECTED with an optional reason. Nothing was ever
// reserved for a PENDING request, so the ledger is untouched.
func (s *RequestService) Reject(ctx context.Context, id, reason string, tctx models.TenantContext) (*models.PurchaseRequest, error) {
	var updated *models.PurchaseRequest
	err := utils.WithTransaction(s.db, func(tx *sql.Tx) error {
		req, err := s.lockRequest(ctx, tx, id, tctx.OrgID)
		if err != nil {
			return err
		}
		if err := CheckTransition(TransitionReject, req.Status, tctx.Role); err != nil {
			return err
		}

		now := time.Now()
		_, err = tx.ExecContext(ctx, `
			UPDATE purchase_requests
			SET status = $1, rejection_reason = $2, approved_by = $3, approved_at = $4, updated_at = $4
			WHERE id = $5
		`, models.StatusRejected, reason, tctx.UserID, now, req.ID)
		if err != nil {
			return translateDBError(err)
		}

		req.Status = models.StatusRejected
		req.RejectionReason = sql.NullString{String: reason, Valid: true}
		req.ApprovedBy = sql.NullString{String: tctx.UserID, Valid: true}
		req.ApprovedAt = sql.NullTime{Time: now, Valid: true}
		req.UpdatedAt = now
		updated = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Fulfill moves PENDING or APPROVED -> FULFILLED and reserves the fulfilled
// quantity and amount on the budget line inside the same transaction. The
// PENDING fast path covers supply roles with dual approval authority. This is
// the single point where the ledger is charged; the physical checkpoints that
// may follow only annotate.
func (s *RequestService) Fulfill(ctx context.Context, id string, input models.FulfillRequestInput, tctx models.TenantContext) (*models.PurchaseRequest, error) {
	var updated *models.PurchaseRequest
	err := utils.WithTransaction(s.db, func(tx *sql.Tx) error {
		req, err := s.lockRequest(ctx, tx, id, tctx.OrgID)
		if err != nil {
			return err
		}
		if err := CheckTransition(TransitionFulfill, req.Status, tctx.Role); err != nil {
			return err
		}

		if err := s.ledger.Reserve(ctx, tx, req.SmetaItemID, input.FulfilledQty, input.FulfilledAmount, req.IsOverrun); err != nil {
			return err
		}

		now := time.Now()
		_, err = tx.ExecContext(ctx, `
			UPDATE purchase_requests
			SET status = $1, fulfilled_by = $2, fulfilled_at = $3,
			    fulfilled_qty = $4, fulfilled_amount = $5,
			    supplier_name = $6, proof_ref = NULLIF($7, ''), updated_at = $3
			WHERE id = $8
		`, models.StatusFulfilled, tctx.UserID, now, input.FulfilledQty,
			input.FulfilledAmount, input.SupplierName, input.ProofRef, req.ID)
		if err != nil {
			return translateDBError(err)
		}

		req.Status = models.StatusFulfilled
		req.FulfilledBy = sql.NullString{String: tctx.UserID, Valid: true}
		req.FulfilledAt = sql.NullTime{Time: now, Valid: true}
		req.FulfilledQty = sql.NullFloat64{Float64: input.FulfilledQty, Valid: true}
		req.FulfilledAmount = sql.NullFloat64{Float64: input.FulfilledAmount, Valid: true}
		req.SupplierName = sql.NullString{String: input.SupplierName, Valid: true}
		if input.ProofRef != "" {
			req.ProofRef = sql.NullString{String: input.ProofRef, Valid: true}
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

// Delete removes a PENDING request. Only the creator or a privileged role may
// delete; nothing was reserved, so the ledger stays untouched.
func (s *RequestService) Delete(ctx context.Context, id string, tctx models.TenantContext) error {
	return utils.WithTransaction(s.db, func(tx *sql.Tx) error {
		req, err := s.lockRequest(ctx, tx, id, tctx.OrgID)
		if err != nil {
			return err
		}
		if err := CheckTransition(TransitionDelete, req.Status, tctx.Role); err != nil {
			return err
		}
		if !privileged(tctx.Role) && req.RequestedBy != tctx.UserID {
			return models.ErrInsufficientPermissions
		}

		_, err = tx.ExecContext(ctx, `DELETE FROM purchase_requests WHERE id = $1`, req.ID)
		return translateDBError(err)
	})
}

// privileged roles may act on requests they did not create.
func privileged(role string) bool {
	return role == models.RoleOwner || role == models.RoleAdmin
}
