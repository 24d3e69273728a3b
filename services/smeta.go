package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/ilyosdev/smeta-api/models"
	"github.com/ilyosdev/smeta-api/utils"
)

// SmetaService manages the budget document chain the engine consumes:
// projects, smetas and smeta items. Item writes keep the derived amount and
// the denormalized org_id in step; item deletion is refused while any
// purchase request still references the line.
type SmetaService struct {
	db     *sql.DB
	guard  TenantGuard
	ledger LedgerService
}

func NewSmetaService(db *sql.DB) *SmetaService {
	return &SmetaService{db: db}
}

func (s *SmetaService) CreateProject(ctx context.Context, name string, tctx models.TenantContext) (*models.Project, error) {
	if !privileged(tctx.Role) {
		return nil, models.ErrInsufficientPermissions
	}

	p := &models.Project{ID: uuid.New().String(), OrgID: tctx.OrgID, Name: name}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO projects (id, org_id, name)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at
	`, p.ID, p.OrgID, p.Name).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, translateDBError(err)
	}
	return p, nil
}

func (s *SmetaService) ListProjects(ctx context.Context, tctx models.TenantContext) ([]models.Project, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, org_id, name, created_at, updated_at
		FROM projects
		WHERE org_id = $1
		ORDER BY created_at DESC
	`, tctx.OrgID)
	if err != nil {
		return nil, translateDBError(err)
	}
	defer rows.Close()

	projects := []models.Project{}
	for rows.Next() {
		var p models.Project
		if err := rows.Scan(&p.ID, &p.OrgID, &p.Name, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func (s *SmetaService) CreateSmeta(ctx context.Context, input models.CreateSmetaRequest, tctx models.TenantContext) (*models.Smeta, error) {
	if !privileged(tctx.Role) {
		return nil, models.ErrInsufficientPermissions
	}
	if err := s.guard.AssertProjectOwned(ctx, s.db, input.ProjectID, tctx.OrgID); err != nil {
		return nil, err
	}

	sm := &models.Smeta{ID: uuid.New().String(), ProjectID: input.ProjectID, OrgID: tctx.OrgID, Name: input.Name}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO smetas (id, project_id, org_id, name)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`, sm.ID, sm.ProjectID, sm.OrgID, sm.Name).Scan(&sm.CreatedAt, &sm.UpdatedAt)
	if err != nil {
		return nil, translateDBError(err)
	}
	return sm, nil
}

// CreateItem adds a budget line. The owning organization is resolved from the
// smeta once, here, and stored on the line so every later tenant check is a
// single-column comparison. Amount is derived, never taken from input.
func (s *SmetaService) CreateItem(ctx context.Context, input models.CreateSmetaItemRequest, tctx models.TenantContext) (*models.SmetaItem, error) {
	if !privileged(tctx.Role) {
		return nil, models.ErrInsufficientPermissions
	}
	if err := s.guard.AssertSmetaOwned(ctx, s.db, input.SmetaID, tctx.OrgID); err != nil {
		return nil, err
	}

	item := &models.SmetaItem{
		ID:        uuid.New().String(),
		SmetaID:   input.SmetaID,
		OrgID:     tctx.OrgID,
		Name:      input.Name,
		Unit:      input.Unit,
		Category:  input.Category,
		Quantity:  input.Quantity,
		UnitPrice: input.UnitPrice,
		Amount:    input.Quantity * input.UnitPrice,
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO smeta_items (id, smeta_id, org_id, name, unit, category, quantity, unit_price, amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`, item.ID, item.SmetaID, item.OrgID, item.Name, item.Unit, item.Category,
		item.Quantity, item.UnitPrice, item.Amount).Scan(&item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, translateDBError(err)
	}
	return item, nil
}

func (s *SmetaService) GetItem(ctx context.Context, id string, tctx models.TenantContext) (*models.SmetaItem, error) {
	var item models.SmetaItem
	err := s.db.QueryRowContext(ctx, `
		SELECT id, smeta_id, org_id, name, unit, category, quantity, unit_price,
		       amount, consumed_qty, consumed_amount, created_at, updated_at
		FROM smeta_items
		WHERE id = $1 AND org_id = $2
	`, id, tctx.OrgID).Scan(&item.ID, &item.SmetaID, &item.OrgID, &item.Name,
		&item.Unit, &item.Category, &item.Quantity, &item.UnitPrice, &item.Amount,
		&item.ConsumedQty, &item.ConsumedAmount, &item.CreatedAt, &item.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, translateDBError(err)
	}
	return &item, nil
}

func (s *SmetaService) ListItems(ctx context.Context, smetaID string, tctx models.TenantContext) ([]models.SmetaItem, error) {
	if err := s.guard.AssertSmetaOwned(ctx, s.db, smetaID, tctx.OrgID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, smeta_id, org_id, name, unit, category, quantity, unit_price,
		       amount, consumed_qty, consumed_amount, created_at, updated_at
		FROM smeta_items
		WHERE smeta_id = $1
		ORDER BY created_at ASC
	`, smetaID)
	if err != nil {
		return nil, translateDBError(err)
	}
	defer rows.Close()

	items := []models.SmetaItem{}
	for rows.Next() {
		var item models.SmetaItem
		if err := rows.Scan(&item.ID, &item.SmetaID, &item.OrgID, &item.Name,
			&item.Unit, &item.Category, &item.Quantity, &item.UnitPrice, &item.Amount,
			&item.ConsumedQty, &item.ConsumedAmount, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// UpdateItem edits the line itself (not its consumption) and recomputes the
// derived amount whenever quantity or unit price changed.
func (s *SmetaService) UpdateItem(ctx context.Context, id string, input models.UpdateSmetaItemRequest, tctx models.TenantContext) (*models.SmetaItem, error) {
	if !privileged(tctx.Role) {
		return nil, models.ErrInsufficientPermissions
	}

	var updated *models.SmetaItem
	err := utils.WithTransaction(s.db, func(tx *sql.Tx) error {
		var item models.SmetaItem
		err := tx.QueryRowContext(ctx, `
			SELECT id, smeta_id, org_id, name, unit, category, quantity, unit_price,
			       amount, consumed_qty, consumed_amount, created_at, updated_at
			FROM smeta_items
			WHERE id = $1 AND org_id = $2
			FOR UPDATE
		`, id, tctx.OrgID).Scan(&item.ID, &item.SmetaID, &item.OrgID, &item.Name,
			&item.Unit, &item.Category, &item.Quantity, &item.UnitPrice, &item.Amount,
			&item.ConsumedQty, &item.ConsumedAmount, &item.CreatedAt, &item.UpdatedAt)
		if err == sql.ErrNoRows {
			return models.ErrNotFound
		}
		if err != nil {
			return translateDBError(err)
		}

		if input.Name != nil {
			item.Name = *input.Name
		}
		if input.Unit != nil {
			item.Unit = *input.Unit
		}
		if input.Category != nil {
			item.Category = *input.Category
		}
		recompute := false
		if input.Quantity != nil {
			item.Quantity = *input.Quantity
			recompute = true
		}
		if input.UnitPrice != nil {
			item.UnitPrice = *input.UnitPrice
			recompute = true
		}
		item.UpdatedAt = time.Now()

		_, err = tx.ExecContext(ctx, `
			UPDATE smeta_items
			SET name = $1, unit = $2, category = $3, quantity = $4, unit_price = $5, updated_at = $6
			WHERE id = $7
		`, item.Name, item.Unit, item.Category, item.Quantity, item.UnitPrice, item.UpdatedAt, item.ID)
		if err != nil {
			return translateDBError(err)
		}

		if recompute {
			if err := s.ledger.Recompute(ctx, tx, item.ID); err != nil {
				return err
			}
			item.Amount = item.Quantity * item.UnitPrice
		}
		updated = &item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteItem removes a budget line, but only if no purchase request still
// references it. Referential integrity is enforced here rather than left to
// cascade: a line with history answers ErrConflict.
func (s *SmetaService) DeleteItem(ctx context.Context, id string, tctx models.TenantContext) error {
	if !privileged(tctx.Role) {
		return models.ErrInsufficientPermissions
	}

	return utils.WithTransaction(s.db, func(tx *sql.Tx) error {
		if err := s.guard.AssertItemOwned(ctx, tx, id, tctx.OrgID); err != nil {
			return err
		}

		var count int
		err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM purchase_requests WHERE smeta_item_id = $1`, id).Scan(&count)
		if err != nil {
			return translateDBError(err)
		}
		if count > 0 {
			return models.ErrConflict
		}

		_, err = tx.ExecContext(ctx, `DELETE FROM smeta_items WHERE id = $1`, id)
		return translateDBError(err)
	})
}

// ItemRemaining exposes the ledger's remaining view after a tenant check.
func (s *SmetaService) ItemRemaining(ctx context.Context, id string, tctx models.TenantContext) (models.Remaining, error) {
	if err := s.guard.AssertItemOwned(ctx, s.db, id, tctx.OrgID); err != nil {
		return models.Remaining{}, err
	}
	return s.ledger.GetRemaining(ctx, s.db, id)
}
