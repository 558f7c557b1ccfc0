package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/ogurasousui/org-directory/internal/core/costcenter"
	pgdb "github.com/ogurasousui/org-directory/internal/platform/db/postgres"
)

const costCenterColumns = `cc.id, cc.code, cc.name, cc.client_id, cc.responsible_id, cc.valid_from, cc.valid_to, cc.created_at, cc.updated_at`

// CostCenterRepository は PostgreSQL を利用した原価センタ永続化の実装です。
type CostCenterRepository struct {
	pool pgdb.Queryer
}

// NewCostCenterRepository は CostCenterRepository を生成します。
func NewCostCenterRepository(pool pgdb.Queryer) *CostCenterRepository {
	return &CostCenterRepository{pool: pool}
}

// Create は原価センタを新規作成します。
func (r *CostCenterRepository) Create(ctx context.Context, c *costcenter.CostCenter) (*costcenter.CostCenter, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO cost_centers AS cc (id, code, name, client_id, responsible_id, valid_from, valid_to, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING `+costCenterColumns,
		ensureID(c.ID),
		c.Code,
		c.Name,
		c.ClientID,
		c.ResponsibleID,
		dateOnly(c.ValidFrom),
		nullableDate(c.ValidTo),
		c.CreatedAt,
		c.UpdatedAt,
	)

	created, err := scanCostCenter(row)
	if err != nil {
		return nil, translateCostCenterPgError(err)
	}
	return created, nil
}

// Update は原価センタを更新します。取引先は変更しません。
func (r *CostCenterRepository) Update(ctx context.Context, c *costcenter.CostCenter) (*costcenter.CostCenter, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        UPDATE cost_centers AS cc
           SET code = $1,
               name = $2,
               responsible_id = $3,
               valid_from = $4,
               valid_to = $5,
               updated_at = $6
         WHERE cc.id = $7
        RETURNING `+costCenterColumns,
		c.Code,
		c.Name,
		c.ResponsibleID,
		dateOnly(c.ValidFrom),
		nullableDate(c.ValidTo),
		c.UpdatedAt,
		c.ID,
	)

	updated, err := scanCostCenter(row)
	if err != nil {
		return nil, translateCostCenterPgError(err)
	}
	return updated, nil
}

// SetResponsible は責任者のみを更新します。
func (r *CostCenterRepository) SetResponsible(ctx context.Context, id, employeeID string, updatedAt time.Time) error {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `UPDATE cost_centers SET responsible_id = $1, updated_at = $2 WHERE id = $3`, employeeID, updatedAt, id)
	if err != nil {
		return translateCostCenterPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return costcenter.ErrCostCenterNotFound
	}
	return nil
}

// Delete は原価センタを削除します。割当は ON DELETE CASCADE で削除されます。
func (r *CostCenterRepository) Delete(ctx context.Context, id string) error {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `DELETE FROM cost_centers WHERE id = $1`, id)
	if err != nil {
		return translateCostCenterPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return costcenter.ErrCostCenterNotFound
	}
	return nil
}

// FindByID は ID で原価センタを取得します。
func (r *CostCenterRepository) FindByID(ctx context.Context, id string) (*costcenter.CostCenter, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `SELECT `+costCenterColumns+` FROM cost_centers cc WHERE cc.id = $1`, id)

	found, err := scanCostCenter(row)
	if err != nil {
		return nil, translateCostCenterPgError(err)
	}
	return found, nil
}

// FindByCode は取引先内のコードで原価センタを取得します。
func (r *CostCenterRepository) FindByCode(ctx context.Context, clientID, code string) (*costcenter.CostCenter, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `SELECT `+costCenterColumns+` FROM cost_centers cc WHERE cc.client_id = $1 AND cc.code = $2`, clientID, code)

	found, err := scanCostCenter(row)
	if err != nil {
		return nil, translateCostCenterPgError(err)
	}
	return found, nil
}

// List は原価センタの一覧を取得します。
func (r *CostCenterRepository) List(ctx context.Context, filter costcenter.ListCostCentersFilter) ([]*costcenter.CostCenter, string, error) {
	var cond conditions
	if filter.ClientID != "" {
		cond.add("cc.client_id = ", filter.ClientID)
	}
	cond.companies("c.company_id", filter.RestrictCompanies, filter.CompanyIDs)

	query := `
        SELECT ` + costCenterColumns + `
          FROM cost_centers cc
          JOIN clients c ON c.id = cc.client_id` + cond.where() + `
         ORDER BY cc.created_at DESC, cc.id DESC
         LIMIT ` + cond.bind(filter.Limit+1) + `
        OFFSET ` + cond.bind(filter.Offset)

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, query, cond.args...)
	if err != nil {
		return nil, "", translateCostCenterPgError(err)
	}
	defer rows.Close()

	var costCenters []*costcenter.CostCenter
	for rows.Next() {
		c, err := scanCostCenter(rows)
		if err != nil {
			return nil, "", translateCostCenterPgError(err)
		}
		costCenters = append(costCenters, c)
	}
	if err := rows.Err(); err != nil {
		return nil, "", translateCostCenterPgError(err)
	}

	page, next := paginate(costCenters, filter.Limit, filter.Offset)
	return page, next, nil
}

// CountByResponsible は指定社員が責任者となっている原価センタ数を返します。
func (r *CostCenterRepository) CountByResponsible(ctx context.Context, employeeID string) (int, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	var n int
	if err := exec.QueryRow(ctx, `SELECT count(*) FROM cost_centers WHERE responsible_id = $1`, employeeID).Scan(&n); err != nil {
		return 0, translateCostCenterPgError(err)
	}
	return n, nil
}

func scanCostCenter(row pgx.Row) (*costcenter.CostCenter, error) {
	var (
		c         costcenter.CostCenter
		validFrom time.Time
		validTo   sql.NullTime
	)

	if err := row.Scan(
		&c.ID,
		&c.Code,
		&c.Name,
		&c.ClientID,
		&c.ResponsibleID,
		&validFrom,
		&validTo,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, costcenter.ErrCostCenterNotFound
		}
		return nil, err
	}

	c.ValidFrom = dateOnly(validFrom)
	c.ValidTo = datePtr(validTo)
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	return &c, nil
}

func translateCostCenterPgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return costcenter.ErrCostCenterNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case invalidTextRepresentationCode:
			return costcenter.ErrCostCenterNotFound
		case uniqueViolationCode:
			return costcenter.ErrCodeAlreadyExists
		case foreignKeyViolationCode:
			if pgErr.ConstraintName == "employees_cost_center_id_fkey" {
				return costcenter.ErrCostCenterInUse
			}
		case checkViolationCode:
			return costcenter.ErrInvalidDateRange
		}
	}
	return err
}
