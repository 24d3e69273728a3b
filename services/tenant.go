package services

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"github.com/ilyosdev/smeta-api/models"
)

// Querier is the subset of database/sql shared by *sql.DB and *sql.Tx, so
// guard and ledger operations compose into a caller's transaction.
type Querier interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// TenantGuard verifies that entities referenced by an operation belong to the
// caller's organization. Every entity table carries a denormalized org_id
// written at creation time, so ownership resolution is a single-column read
// rather than a smeta -> project -> organization join chain.
type TenantGuard struct{}

// AssertItemOwned fails with ErrNotFound when the smeta item does not exist
// or belongs to another organization. The two cases are deliberately the same
// error so cross-tenant probes cannot enumerate data.
func (g TenantGuard) AssertItemOwned(ctx context.Context, q Querier, itemID, callerOrgID string) error {
	return g.assertOwned(ctx, q, "smeta_items", itemID, callerOrgID)
}

// AssertSmetaOwned is the same check for smeta documents.
func (g TenantGuard) AssertSmetaOwned(ctx context.Context, q Querier, smetaID, callerOrgID string) error {
	return g.assertOwned(ctx, q, "smetas", smetaID, callerOrgID)
}

// AssertProjectOwned is the same check for projects.
func (g TenantGuard) AssertProjectOwned(ctx context.Context, q Querier, projectID, callerOrgID string) error {
	return g.assertOwned(ctx, q, "projects", projectID, callerOrgID)
}

// AssertUserInOrg verifies a user (e.g. a driver being assigned) belongs to
// the caller's organization.
func (g TenantGuard) AssertUserInOrg(ctx context.Context, q Querier, userID, callerOrgID string) error {
	return g.assertOwned(ctx, q, "users", userID, callerOrgID)
}

func (g TenantGuard) assertOwned(ctx context.Context, q Querier, table, id, callerOrgID string) error {
	var orgID string
	err := q.QueryRowContext(ctx, "SELECT org_id FROM "+table+" WHERE id = $1", id).Scan(&orgID)
	if err == sql.ErrNoRows {
		return models.ErrNotFound
	}
	if err != nil {
		return translateDBError(err)
	}
	if orgID != callerOrgID {
		return models.ErrNotFound
	}
	return nil
}

// translateDBError maps driver-level failures onto the engine taxonomy.
// Serialization failures and deadlocks become ErrConflict, which callers may
// retry; everything else propagates unchanged.
func translateDBError(err error) error {
	if err == nil {
		return nil
	}
	if err == sql.ErrNoRows {
		return models.ErrNotFound
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code {
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return models.ErrConflict
		case "22P02": // invalid uuid in a path parameter, treat as absent
			return models.ErrNotFound
		}
	}
	return err
}
