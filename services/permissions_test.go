package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ilyosdev/smeta-api/models"
)

func TestCheckTransition(t *testing.T) {
	tests := []struct {
		name       string
		transition Transition
		status     string
		role       string
		wantErr    error
	}{
		{"admin approves pending", TransitionApprove, models.StatusPending, models.RoleAdmin, nil},
		{"owner rejects pending", TransitionReject, models.StatusPending, models.RoleOwner, nil},
		{"foreman cannot approve", TransitionApprove, models.StatusPending, models.RoleForeman, models.ErrInsufficientPermissions},
		{"supplier cannot reject", TransitionReject, models.StatusPending, models.RoleSupplier, models.ErrInsufficientPermissions},
		{"driver cannot fulfill", TransitionFulfill, models.StatusApproved, models.RoleDriver, models.ErrInsufficientPermissions},
		{"supplier fulfills approved", TransitionFulfill, models.StatusApproved, models.RoleSupplier, nil},
		{"supplier fulfills pending fast path", TransitionFulfill, models.StatusPending, models.RoleSupplier, nil},
		{"approve from approved", TransitionApprove, models.StatusApproved, models.RoleAdmin, models.ErrInvalidState},
		{"approve from rejected", TransitionApprove, models.StatusRejected, models.RoleAdmin, models.ErrInvalidState},
		{"fulfill from fulfilled", TransitionFulfill, models.StatusFulfilled, models.RoleAdmin, models.ErrInvalidState},
		{"reject from fulfilled", TransitionReject, models.StatusFulfilled, models.RoleOwner, models.ErrInvalidState},
		{"delete non-pending", TransitionDelete, models.StatusApproved, models.RoleAdmin, models.ErrInvalidState},
		{"driver collects approved", TransitionCollect, models.StatusApproved, models.RoleDriver, nil},
		{"driver cannot receive", TransitionReceive, models.StatusApproved, models.RoleDriver, models.ErrInsufficientPermissions},
		{"foreman receives fulfilled", TransitionReceive, models.StatusFulfilled, models.RoleForeman, nil},
		{"finalize needs fulfilled", TransitionFinalize, models.StatusApproved, models.RoleSupplier, models.ErrInvalidState},
		{"supplier finalizes fulfilled", TransitionFinalize, models.StatusFulfilled, models.RoleSupplier, nil},
		{"collect from pending", TransitionCollect, models.StatusPending, models.RoleDriver, models.ErrInvalidState},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckTransition(tt.transition, tt.status, tt.role)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

// An unauthorized role must get the permission error even when the status
// would also have been rejected, so the caller learns nothing about the
// request's current state.
func TestCheckTransitionRoleCheckedFirst(t *testing.T) {
	err := CheckTransition(TransitionApprove, models.StatusFulfilled, models.RoleDriver)
	assert.ErrorIs(t, err, models.ErrInsufficientPermissions)
}

func TestRoleAllowed(t *testing.T) {
	assert.True(t, RoleAllowed(TransitionCreate, models.RoleForeman))
	assert.False(t, RoleAllowed(TransitionCreate, models.RoleDriver))
	assert.False(t, RoleAllowed(TransitionAssign, models.RoleSupplier))
	assert.False(t, RoleAllowed(TransitionApprove, "unknown"))
}

func TestStatusAllows(t *testing.T) {
	assert.True(t, StatusAllows(TransitionFulfill, models.StatusPending))
	assert.True(t, StatusAllows(TransitionFulfill, models.StatusApproved))
	assert.False(t, StatusAllows(TransitionFulfill, models.StatusRejected))
	assert.False(t, StatusAllows(TransitionUpdate, models.StatusApproved))
	assert.False(t, StatusAllows(TransitionCreate, models.StatusPending))
}
