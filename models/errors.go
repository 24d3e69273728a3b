package models

import "errors"

// Engine error taxonomy. Handlers map these to HTTP statuses; services never
// translate them and never retry on behalf of the caller.
var (
	// ErrNotFound covers both absent entities and cross-tenant references.
	// The two cases are deliberately indistinguishable so that callers cannot
	// probe for other organizations' data.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState means the transition is not permitted from the request's
	// current status (e.g. approving an already rejected request).
	ErrInvalidState = errors.New("invalid state")

	// ErrInsufficientPermissions means the caller's role is not allowed to
	// perform the transition.
	ErrInsufficientPermissions = errors.New("insufficient permissions")

	// ErrOverrun means the reservation would exceed the remaining budget and
	// the request was not flagged as an overrun.
	ErrOverrun = errors.New("budget overrun")

	// ErrConflict means two transitions raced against the same request or
	// ledger row. The operation was not applied; the caller may retry.
	ErrConflict = errors.New("conflict")
)
