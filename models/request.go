package models

import (
	"database/sql"
	"time"
)

// ============================================================================
// STATUSES
// ============================================================================

// Purchase request lifecycle statuses. REJECTED and FULFILLED are terminal for
// the base flow; the physical-handling checkpoints (collected/delivered/
// received) are recorded as fields, they never replace the base status.
const (
	StatusPending   = "PENDING"
	StatusApproved  = "APPROVED"
	StatusRejected  = "REJECTED"
	StatusFulfilled = "FULFILLED"
)

// ValidStatuses lists every status the list filter accepts.
var ValidStatuses = []string{StatusPending, StatusApproved, StatusRejected, StatusFulfilled}

func IsValidStatus(s string) bool {
	for _, v := range ValidStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// ============================================================================
// PURCHASE REQUEST MODEL
// ============================================================================

// PurchaseRequest is one procurement ask against exactly one smeta item.
// OrgID mirrors the owning item's organization so every tenant check is a
// single-column comparison.
type PurchaseRequest struct {
	ID          string `json:"id"`
	SmetaItemID string `json:"smeta_item_id"`
	OrgID       string `json:"org_id"`
	RequestedBy string `json:"requested_by"`

	RequestedQty    float64 `json:"requested_qty"`
	RequestedAmount float64 `json:"requested_amount"`
	Note            string  `json:"note,omitempty"`

	IsOverrun      bool    `json:"is_overrun"`
	OverrunQty     float64 `json:"overrun_qty,omitempty"`
	OverrunPercent float64 `json:"overrun_percent,omitempty"`

	Status string `json:"status"`

	ApprovedBy      sql.NullString  `json:"-"`
	ApprovedAt      sql.NullTime    `json:"-"`
	ApprovedQty     sql.NullFloat64 `json:"-"`
	ApprovedAmount  sql.NullFloat64 `json:"-"`
	RejectionReason sql.NullString  `json:"-"`

	FulfilledBy     sql.NullString  `json:"-"`
	FulfilledAt     sql.NullTime    `json:"-"`
	FulfilledQty    sql.NullFloat64 `json:"-"`
	FulfilledAmount sql.NullFloat64 `json:"-"`
	SupplierName    sql.NullString  `json:"-"`
	ProofRef        sql.NullString  `json:"-"`

	DriverID       sql.NullString  `json:"-"`
	CollectedQty   sql.NullFloat64 `json:"-"`
	CollectedAt    sql.NullTime    `json:"-"`
	CollectedProof sql.NullString  `json:"-"`
	DeliveredQty   sql.NullFloat64 `json:"-"`
	DeliveredAt    sql.NullTime    `json:"-"`
	DeliveredProof sql.NullString  `json:"-"`
	ReceivedQty    sql.NullFloat64 `json:"-"`
	ReceivedAt     sql.NullTime    `json:"-"`
	ReceivedProof  sql.NullString  `json:"-"`

	FinalAmount    sql.NullFloat64 `json:"-"`
	FinalUnitPrice sql.NullFloat64 `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// View flattens the nullable columns into an API-friendly shape.
func (r *PurchaseRequest) View() map[string]interface{} {
	view := map[string]interface{}{
		"id":               r.ID,
		"smeta_item_id":    r.SmetaItemID,
		"org_id":           r.OrgID,
		"requested_by":     r.RequestedBy,
		"requested_qty":    r.RequestedQty,
		"requested_amount": r.RequestedAmount,
		"note":             r.Note,
		"is_overrun":       r.IsOverrun,
		"overrun_qty":      r.OverrunQty,
		"overrun_percent":  r.OverrunPercent,
		"status":           r.Status,
		"created_at":       r.CreatedAt,
		"updated_at":       r.UpdatedAt,
	}
	if r.ApprovedBy.Valid {
		view["approved_by"] = r.ApprovedBy.String
		view["approved_at"] = r.ApprovedAt.Time
	}
	if r.ApprovedQty.Valid {
		view["approved_qty"] = r.ApprovedQty.Float64
		view["approved_amount"] = r.ApprovedAmount.Float64
	}
	if r.RejectionReason.Valid {
		view["rejection_reason"] = r.RejectionReason.String
	}
	if r.FulfilledBy.Valid {
		view["fulfilled_by"] = r.FulfilledBy.String
		view["fulfilled_at"] = r.FulfilledAt.Time
		view["fulfilled_qty"] = r.FulfilledQty.Float64
		view["fulfilled_amount"] = r.FulfilledAmount.Float64
		view["supplier_name"] = r.SupplierName.String
	}
	if r.ProofRef.Valid {
		view["proof_ref"] = r.ProofRef.String
	}
	if r.DriverID.Valid {
		view["driver_id"] = r.DriverID.String
	}
	if r.CollectedQty.Valid {
		view["collected_qty"] = r.CollectedQty.Float64
		view["collected_at"] = r.CollectedAt.Time
	}
	if r.CollectedProof.Valid {
		view["collected_proof"] = r.CollectedProof.String
	}
	if r.DeliveredQty.Valid {
		view["delivered_qty"] = r.DeliveredQty.Float64
		view["delivered_at"] = r.DeliveredAt.Time
	}
	if r.DeliveredProof.Valid {
		view["delivered_proof"] = r.DeliveredProof.String
	}
	if r.ReceivedQty.Valid {
		view["received_qty"] = r.ReceivedQty.Float64
		view["received_at"] = r.ReceivedAt.Time
	}
	if r.ReceivedProof.Valid {
		view["received_proof"] = r.ReceivedProof.String
	}
	if r.FinalAmount.Valid {
		view["final_amount"] = r.FinalAmount.Float64
	}
	if r.FinalUnitPrice.Valid {
		view["final_unit_price"] = r.FinalUnitPrice.Float64
	}
	return view
}

// ============================================================================
// INPUT DTOs
// ============================================================================

type CreateRequestInput struct {
	SmetaItemID     string  `json:"smeta_item_id" binding:"required,uuid"`
	RequestedQty    float64 `json:"requested_qty" binding:"required,gte=0"`
	RequestedAmount float64 `json:"requested_amount" binding:"required,gte=0"`
	Note            string  `json:"note"`
	IsOverrun       bool    `json:"is_overrun"`
	OverrunQty      float64 `json:"overrun_qty" binding:"omitempty,gte=0"`
	OverrunPercent  float64 `json:"overrun_percent" binding:"omitempty,gte=0"`
}

// UpdateRequestInput patches a PENDING request in place. Nil fields are left
// untouched.
type UpdateRequestInput struct {
	RequestedQty    *float64 `json:"requested_qty,omitempty" binding:"omitempty,gte=0"`
	RequestedAmount *float64 `json:"requested_amount,omitempty" binding:"omitempty,gte=0"`
	Note            *string  `json:"note,omitempty"`
	IsOverrun       *bool    `json:"is_overrun,omitempty"`
	OverrunQty      *float64 `json:"overrun_qty,omitempty" binding:"omitempty,gte=0"`
	OverrunPercent  *float64 `json:"overrun_percent,omitempty" binding:"omitempty,gte=0"`
}

type RejectRequestInput struct {
	Reason string `json:"reason"`
}

type FulfillRequestInput struct {
	FulfilledQty    float64 `json:"fulfilled_qty" binding:"required,gte=0"`
	FulfilledAmount float64 `json:"fulfilled_amount" binding:"required,gte=0"`
	SupplierName    string  `json:"supplier_name" binding:"required"`
	ProofRef        string  `json:"proof_ref"`
}

type ApproveAndAssignInput struct {
	ApprovedQty    float64 `json:"approved_qty" binding:"required,gte=0"`
	ApprovedAmount float64 `json:"approved_amount" binding:"required,gte=0"`
	DriverID       string  `json:"driver_id" binding:"required,uuid"`
	Note           string  `json:"note"`
}

// CheckpointInput records one physical-handling observation (collection,
// delivery or receipt) with an optional photo proof reference.
type CheckpointInput struct {
	Qty      float64 `json:"qty" binding:"required,gte=0"`
	Note     string  `json:"note"`
	PhotoRef string  `json:"photo_ref"`
}

type FinalizeRequestInput struct {
	FinalAmount    float64 `json:"final_amount" binding:"required,gte=0"`
	FinalUnitPrice float64 `json:"final_unit_price" binding:"required,gte=0"`
	Note           string  `json:"note"`
}

// ============================================================================
// LISTING
// ============================================================================

// RequestFilter narrows listRequests. Status and Statuses are combined into a
// single set; all present filters AND together.
type RequestFilter struct {
	Status      string
	Statuses    []string
	SmetaItemID string
	ProjectID   string
}

// StatusSet merges the single-status and multi-status filters, dropping
// duplicates and unknown values.
func (f RequestFilter) StatusSet() []string {
	seen := map[string]bool{}
	var out []string
	add := func(s string) {
		if s == "" || seen[s] || !IsValidStatus(s) {
			return
		}
		seen[s] = true
		out = append(out, s)
	}
	add(f.Status)
	for _, s := range f.Statuses {
		add(s)
	}
	return out
}

// Pagination defaults and bounds enforced server-side.
const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// Page is a 1-based page request. Normalize coerces out-of-range values to the
// defaults rather than erroring, and caps limit at MaxLimit.
type Page struct {
	Page  int
	Limit int
}

func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p
}

func (p Page) Offset() int {
	return (p.Page - 1) * p.Limit
}

// RequestPage is the paginated list envelope.
type RequestPage struct {
	Data  []map[string]interface{} `json:"data"`
	Total int                      `json:"total"`
	Page  int                      `json:"page"`
	Limit int                      `json:"limit"`
}
