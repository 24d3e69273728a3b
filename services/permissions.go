package services

import (
	"github.com/ilyosdev/smeta-api/models"
)

// Transition names every mutation of a purchase request. The valid-role and
// valid-source-status sets are declared once here and evaluated by the state
// machine, instead of scattering role checks across call sites.
type Transition string

const (
	TransitionCreate   Transition = "create"
	TransitionUpdate   Transition = "update"
	TransitionApprove  Transition = "approve"
	TransitionReject   Transition = "reject"
	TransitionFulfill  Transition = "fulfill"
	TransitionDelete   Transition = "delete"
	TransitionAssign   Transition = "approve_assign"
	TransitionCollect  Transition = "collect"
	TransitionDeliver  Transition = "deliver"
	TransitionReceive  Transition = "receive"
	TransitionFinalize Transition = "finalize"
)

// transitionRoles is the permission table keyed by transition. A role absent
// from a transition's set gets ErrInsufficientPermissions.
var transitionRoles = map[Transition][]string{
	TransitionCreate:   {models.RoleOwner, models.RoleAdmin, models.RoleForeman, models.RoleSupplier},
	TransitionUpdate:   {models.RoleOwner, models.RoleAdmin, models.RoleForeman, models.RoleSupplier},
	TransitionApprove:  {models.RoleOwner, models.RoleAdmin},
	TransitionReject:   {models.RoleOwner, models.RoleAdmin},
	TransitionFulfill:  {models.RoleOwner, models.RoleAdmin, models.RoleSupplier},
	TransitionDelete:   {models.RoleOwner, models.RoleAdmin, models.RoleForeman, models.RoleSupplier},
	TransitionAssign:   {models.RoleOwner, models.RoleAdmin},
	TransitionCollect:  {models.RoleOwner, models.RoleAdmin, models.RoleDriver},
	TransitionDeliver:  {models.RoleOwner, models.RoleAdmin, models.RoleDriver},
	TransitionReceive:  {models.RoleOwner, models.RoleAdmin, models.RoleForeman},
	TransitionFinalize: {models.RoleOwner, models.RoleAdmin, models.RoleSupplier},
}

// transitionFrom is the set of statuses each transition may start from.
// Terminal statuses (REJECTED, FULFILLED for the base flow) appear in no
// entry except the physical-handling checkpoints, which only annotate.
var transitionFrom = map[Transition][]string{
	TransitionUpdate:   {models.StatusPending},
	TransitionApprove:  {models.StatusPending},
	TransitionReject:   {models.StatusPending},
	TransitionFulfill:  {models.StatusPending, models.StatusApproved},
	TransitionDelete:   {models.StatusPending},
	TransitionAssign:   {models.StatusPending},
	TransitionCollect:  {models.StatusApproved, models.StatusFulfilled},
	TransitionDeliver:  {models.StatusApproved, models.StatusFulfilled},
	TransitionReceive:  {models.StatusApproved, models.StatusFulfilled},
	TransitionFinalize: {models.StatusFulfilled},
}

// RoleAllowed reports whether role may perform t at all.
func RoleAllowed(t Transition, role string) bool {
	for _, r := range transitionRoles[t] {
		if r == role {
			return true
		}
	}
	return false
}

// StatusAllows reports whether t may start from status.
func StatusAllows(t Transition, status string) bool {
	for _, s := range transitionFrom[t] {
		if s == status {
			return true
		}
	}
	return false
}

// CheckTransition is the single gate every state-machine mutation goes
// through. Role is verified before status so that an unauthorized caller
// learns nothing about the request's current state.
func CheckTransition(t Transition, status, role string) error {
	if !RoleAllowed(t, role) {
		return models.ErrInsufficientPermissions
	}
	if !StatusAllows(t, status) {
		return models.ErrInvalidState
	}
	return nil
}
