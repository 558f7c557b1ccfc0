package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/ogurasousui/org-directory/internal/core/assignment"
	pgdb "github.com/ogurasousui/org-directory/internal/platform/db/postgres"
)

const assignmentColumns = `a.id, a.employee_id, a.cost_center_id, a.client_id, a.valid_from, a.valid_to, a.is_responsible, a.created_at, a.updated_at`

// AssignmentRepository は PostgreSQL を利用した割当永続化の実装です。
type AssignmentRepository struct {
	pool pgdb.Queryer
}

// NewAssignmentRepository は AssignmentRepository を生成します。
func NewAssignmentRepository(pool pgdb.Queryer) *AssignmentRepository {
	return &AssignmentRepository{pool: pool}
}

// Create は割当を新規作成します。
func (r *AssignmentRepository) Create(ctx context.Context, a *assignment.Assignment) (*assignment.Assignment, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO assignments AS a (id, employee_id, cost_center_id, client_id, valid_from, valid_to, is_responsible, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING `+assignmentColumns,
		ensureID(a.ID),
		a.EmployeeID,
		a.CostCenterID,
		a.ClientID,
		dateOnly(a.ValidFrom),
		nullableDate(a.ValidTo),
		a.IsResponsible,
		a.CreatedAt,
		a.UpdatedAt,
	)

	created, err := scanAssignment(row)
	if err != nil {
		return nil, translateAssignmentPgError(err)
	}
	return created, nil
}

// Update は割当の期間と責任者フラグを更新します。参照先は変更しません。
func (r *AssignmentRepository) Update(ctx context.Context, a *assignment.Assignment) (*assignment.Assignment, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        UPDATE assignments AS a
           SET valid_from = $1,
               valid_to = $2,
               is_responsible = $3,
               updated_at = $4
         WHERE a.id = $5
        RETURNING `+assignmentColumns,
		dateOnly(a.ValidFrom),
		nullableDate(a.ValidTo),
		a.IsResponsible,
		a.UpdatedAt,
		a.ID,
	)

	updated, err := scanAssignment(row)
	if err != nil {
		return nil, translateAssignmentPgError(err)
	}
	return updated, nil
}

// Delete は割当を削除します。
func (r *AssignmentRepository) Delete(ctx context.Context, id string) error {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `DELETE FROM assignments WHERE id = $1`, id)
	if err != nil {
		return translateAssignmentPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return assignment.ErrAssignmentNotFound
	}
	return nil
}

// FindByID は ID で割当を取得します。
func (r *AssignmentRepository) FindByID(ctx context.Context, id string) (*assignment.Assignment, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `SELECT `+assignmentColumns+` FROM assignments a WHERE a.id = $1`, id)

	found, err := scanAssignment(row)
	if err != nil {
		return nil, translateAssignmentPgError(err)
	}
	return found, nil
}

// List は割当の一覧を取得します。
func (r *AssignmentRepository) List(ctx context.Context, filter assignment.ListAssignmentsFilter) ([]*assignment.Assignment, string, error) {
	var cond conditions
	if filter.ClientID != "" {
		cond.add("a.client_id = ", filter.ClientID)
	}
	if filter.EmployeeID != "" {
		cond.add("a.employee_id = ", filter.EmployeeID)
	}
	if filter.CostCenterID != "" {
		cond.add("a.cost_center_id = ", filter.CostCenterID)
	}
	cond.companies("c.company_id", filter.RestrictCompanies, filter.CompanyIDs)

	query := `
        SELECT ` + assignmentColumns + `
          FROM assignments a
          JOIN clients c ON c.id = a.client_id` + cond.where() + `
         ORDER BY a.valid_from DESC, a.id DESC
         LIMIT ` + cond.bind(filter.Limit+1) + `
        OFFSET ` + cond.bind(filter.Offset)

	assignments, err := r.query(ctx, query, cond.args...)
	if err != nil {
		return nil, "", err
	}
	page, next := paginate(assignments, filter.Limit, filter.Offset)
	return page, next, nil
}

// ListByEmployee は社員の全割当を開始日の昇順で返します。
func (r *AssignmentRepository) ListByEmployee(ctx context.Context, employeeID string) ([]*assignment.Assignment, error) {
	return r.query(ctx, `SELECT `+assignmentColumns+` FROM assignments a WHERE a.employee_id = $1 ORDER BY a.valid_from, a.created_at, a.id`, employeeID)
}

// ListByCostCenter は原価センタの全割当を開始日の昇順で返します。
func (r *AssignmentRepository) ListByCostCenter(ctx context.Context, costCenterID string) ([]*assignment.Assignment, error) {
	return r.query(ctx, `SELECT `+assignmentColumns+` FROM assignments a WHERE a.cost_center_id = $1 ORDER BY a.valid_from, a.created_at, a.id`, costCenterID)
}

func (r *AssignmentRepository) query(ctx context.Context, query string, args ...any) ([]*assignment.Assignment, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, query, args...)
	if err != nil {
		return nil, translateAssignmentPgError(err)
	}
	defer rows.Close()

	var assignments []*assignment.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, translateAssignmentPgError(err)
		}
		assignments = append(assignments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, translateAssignmentPgError(err)
	}
	return assignments, nil
}

func scanAssignment(row pgx.Row) (*assignment.Assignment, error) {
	var (
		a         assignment.Assignment
		validFrom time.Time
		validTo   sql.NullTime
	)

	if err := row.Scan(
		&a.ID,
		&a.EmployeeID,
		&a.CostCenterID,
		&a.ClientID,
		&validFrom,
		&validTo,
		&a.IsResponsible,
		&a.CreatedAt,
		&a.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, assignment.ErrAssignmentNotFound
		}
		return nil, err
	}

	a.ValidFrom = dateOnly(validFrom)
	a.ValidTo = datePtr(validTo)
	a.CreatedAt = a.CreatedAt.UTC()
	a.UpdatedAt = a.UpdatedAt.UTC()
	return &a, nil
}

func translateAssignmentPgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return assignment.ErrAssignmentNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case invalidTextRepresentationCode:
			return assignment.ErrAssignmentNotFound
		case checkViolationCode:
			return assignment.ErrInvalidDateRange
		}
	}
	return err
}
