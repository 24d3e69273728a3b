package models

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPageNormalize(t *testing.T) {
	tests := []struct {
		name      string
		in        Page
		wantPage  int
		wantLimit int
	}{
		{"defaults for zero values", Page{}, 1, 10},
		{"negative page coerced", Page{Page: -3, Limit: 20}, 1, 20},
		{"zero limit coerced", Page{Page: 4, Limit: 0}, 4, 10},
		{"limit capped", Page{Page: 1, Limit: 500}, 1, 100},
		{"in range untouched", Page{Page: 7, Limit: 25}, 7, 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in.Normalize()
			assert.Equal(t, tt.wantPage, got.Page)
			assert.Equal(t, tt.wantLimit, got.Limit)
		})
	}
}

func TestPageOffset(t *testing.T) {
	assert.Equal(t, 0, Page{Page: 1, Limit: 10}.Offset())
	assert.Equal(t, 10, Page{Page: 2, Limit: 10}.Offset())
	assert.Equal(t, 50, Page{Page: 3, Limit: 25}.Offset())
}

func TestStatusSetMergesAndDeduplicates(t *testing.T) {
	f := RequestFilter{
		Status:   StatusPending,
		Statuses: []string{StatusApproved, StatusPending, "BOGUS", ""},
	}
	assert.Equal(t, []string{StatusPending, StatusApproved}, f.StatusSet())
}

func TestStatusSetEmpty(t *testing.T) {
	assert.Empty(t, RequestFilter{}.StatusSet())
	assert.Empty(t, RequestFilter{Status: "nope"}.StatusSet())
}

func TestIsValidStatus(t *testing.T) {
	for _, s := range ValidStatuses {
		assert.True(t, IsValidStatus(s))
	}
	assert.False(t, IsValidStatus("pending"))
	assert.False(t, IsValidStatus(""))
}

// View only surfaces milestone fields once their columns are set, so a fresh
// PENDING request does not leak empty approval or fulfillment keys.
func TestViewOmitsUnsetMilestones(t *testing.T) {
	r := PurchaseRequest{
		ID:     "r1",
		Status: StatusPending,
	}
	view := r.View()

	assert.Equal(t, StatusPending, view["status"])
	assert.NotContains(t, view, "approved_by")
	assert.NotContains(t, view, "fulfilled_by")
	assert.NotContains(t, view, "rejection_reason")
	assert.NotContains(t, view, "collected_qty")
	assert.NotContains(t, view, "final_amount")
}

func TestViewFlattensMilestones(t *testing.T) {
	now := time.Now()
	r := PurchaseRequest{
		ID:              "r1",
		Status:          StatusFulfilled,
		ApprovedBy:      sql.NullString{String: "u-admin", Valid: true},
		ApprovedAt:      sql.NullTime{Time: now, Valid: true},
		FulfilledBy:     sql.NullString{String: "u-supplier", Valid: true},
		FulfilledAt:     sql.NullTime{Time: now, Valid: true},
		FulfilledQty:    sql.NullFloat64{Float64: 10, Valid: true},
		FulfilledAmount: sql.NullFloat64{Float64: 480, Valid: true},
		SupplierName:    sql.NullString{String: "Stroymarket LLC", Valid: true},
		FinalAmount:     sql.NullFloat64{Float64: 450, Valid: true},
	}
	view := r.View()

	assert.Equal(t, "u-admin", view["approved_by"])
	assert.Equal(t, "u-supplier", view["fulfilled_by"])
	assert.Equal(t, 480.0, view["fulfilled_amount"])
	assert.Equal(t, "Stroymarket LLC", view["supplier_name"])
	assert.Equal(t, 450.0, view["final_amount"])
	assert.NotContains(t, view, "rejection_reason")
}
