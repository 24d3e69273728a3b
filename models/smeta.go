package models

import "time"

// ============================================================================
// ORGANIZATION / PROJECT / SMETA
// ============================================================================

type Organization struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type Project struct {
	ID        string    `json:"id"`
	OrgID     string    `json:"org_id"`
	Name      string    `json:"name" binding:"required"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Smeta is one approved cost estimate document inside a project.
type Smeta struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	OrgID     string    `json:"org_id"`
	Name      string    `json:"name" binding:"required"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ============================================================================
// SMETA ITEM (BUDGET LINE)
// ============================================================================

// SmetaItem is one priced line of a smeta: the authoritative budget line the
// ledger reserves against. OrgID is denormalized from the owning smeta on
// creation so tenant checks never need the smeta -> project -> org join chain.
type SmetaItem struct {
	ID             string    `json:"id"`
	SmetaID        string    `json:"smeta_id"`
	OrgID          string    `json:"org_id"`
	Name           string    `json:"name"`
	Unit           string    `json:"unit"`
	Category       string    `json:"category"`
	Quantity       float64   `json:"quantity"`
	UnitPrice      float64   `json:"unit_price"`
	Amount         float64   `json:"amount"` // quantity * unit_price, recomputed on edit
	ConsumedQty    float64   `json:"consumed_qty"`
	ConsumedAmount float64   `json:"consumed_amount"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Remaining is the displayed headroom on a budget line. Consumption may exceed
// the authorized values when overruns were explicitly flagged; the stored
// consumed figures are never clamped, only this view is.
type Remaining struct {
	Qty    float64 `json:"remaining_qty"`
	Amount float64 `json:"remaining_amount"`
}

// ============================================================================
// INPUT DTOs
// ============================================================================

type CreateSmetaRequest struct {
	ProjectID string `json:"project_id" binding:"required,uuid"`
	Name      string `json:"name" binding:"required"`
}

type CreateSmetaItemRequest struct {
	SmetaID   string  `json:"smeta_id" binding:"required,uuid"`
	Name      string  `json:"name" binding:"required"`
	Unit      string  `json:"unit" binding:"required"`
	Category  string  `json:"category"`
	Quantity  float64 `json:"quantity" binding:"required,gte=0"`
	UnitPrice float64 `json:"unit_price" binding:"required,gte=0"`
}

type UpdateSmetaItemRequest struct {
	Name      *string  `json:"name,omitempty"`
	Unit      *string  `json:"unit,omitempty"`
	Category  *string  `json:"category,omitempty"`
	Quantity  *float64 `json:"quantity,omitempty" binding:"omitempty,gte=0"`
	UnitPrice *float64 `json:"unit_price,omitempty" binding:"omitempty,gte=0"`
}
