package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/ogurasousui/org-directory/internal/core/employee"
	pgdb "github.com/ogurasousui/org-directory/internal/platform/db/postgres"
)

const employeeColumns = `e.id, e.employee_id, e.first_name, e.last_name, e.email, e.entry_date, e.exit_date, e.status,
               e.employment_type, e.is_manager, e.client_id, e.manager_id, e.cost_center_id, e.location_id,
               e.anonymized_at, e.created_at, e.updated_at`

// EmployeeRepository は PostgreSQL を利用した社員永続化の実装です。
type EmployeeRepository struct {
	pool pgdb.Queryer
}

// NewEmployeeRepository は EmployeeRepository を生成します。
func NewEmployeeRepository(pool pgdb.Queryer) *EmployeeRepository {
	return &EmployeeRepository{pool: pool}
}

// Create は社員を新規作成します。
func (r *EmployeeRepository) Create(ctx context.Context, e *employee.Employee) (*employee.Employee, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO employees AS e (id, employee_id, first_name, last_name, email, entry_date, exit_date, status,
                                    employment_type, is_manager, client_id, manager_id, cost_center_id, location_id,
                                    anonymized_at, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
        RETURNING `+employeeColumns,
		ensureID(e.ID),
		e.EmployeeID,
		e.FirstName,
		e.LastName,
		nullableString(e.Email),
		dateOnly(e.EntryDate),
		nullableDate(e.ExitDate),
		string(e.Status),
		nullableString(e.EmploymentType),
		e.IsManager,
		e.ClientID,
		nullableString(e.ManagerID),
		nullableString(e.CostCenterID),
		e.LocationID,
		e.AnonymizedAt,
		e.CreatedAt,
		e.UpdatedAt,
	)

	created, err := scanEmployee(row)
	if err != nil {
		return nil, translateEmployeePgError(err)
	}
	return created, nil
}

// Update は社員情報を更新します。取引先と社員番号は変更しません。
func (r *EmployeeRepository) Update(ctx context.Context, e *employee.Employee) (*employee.Employee, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        UPDATE employees AS e
           SET first_name = $1,
               last_name = $2,
               email = $3,
               entry_date = $4,
               exit_date = $5,
               status = $6,
               employment_type = $7,
               is_manager = $8,
               manager_id = $9,
               cost_center_id = $10,
               location_id = $11,
               anonymized_at = $12,
               updated_at = $13
         WHERE e.id = $14
        RETURNING `+employeeColumns,
		e.FirstName,
		e.LastName,
		nullableString(e.Email),
		dateOnly(e.EntryDate),
		nullableDate(e.ExitDate),
		string(e.Status),
		nullableString(e.EmploymentType),
		e.IsManager,
		nullableString(e.ManagerID),
		nullableString(e.CostCenterID),
		e.LocationID,
		e.AnonymizedAt,
		e.UpdatedAt,
		e.ID,
	)

	updated, err := scanEmployee(row)
	if err != nil {
		return nil, translateEmployeePgError(err)
	}
	return updated, nil
}

// SetManager は上長のみを更新します。
func (r *EmployeeRepository) SetManager(ctx context.Context, id, managerID string, updatedAt time.Time) error {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `UPDATE employees SET manager_id = $1, updated_at = $2 WHERE id = $3`, managerID, updatedAt, id)
	if err != nil {
		return translateEmployeePgError(err)
	}
	if tag.RowsAffected() == 0 {
		return employee.ErrEmployeeNotFound
	}
	return nil
}

// Delete は社員を削除します。割当は外部キーの ON DELETE CASCADE で削除されます。
func (r *EmployeeRepository) Delete(ctx context.Context, id string) error {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `DELETE FROM employees WHERE id = $1`, id)
	if err != nil {
		return translateEmployeePgError(err)
	}
	if tag.RowsAffected() == 0 {
		return employee.ErrEmployeeNotFound
	}
	return nil
}

// FindByID は ID で社員を取得します。
func (r *EmployeeRepository) FindByID(ctx context.Context, id string) (*employee.Employee, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `SELECT `+employeeColumns+` FROM employees e WHERE e.id = $1`, id)

	found, err := scanEmployee(row)
	if err != nil {
		return nil, translateEmployeePgError(err)
	}
	return found, nil
}

// FindByEmployeeID は取引先内の社員番号で社員を取得します。
func (r *EmployeeRepository) FindByEmployeeID(ctx context.Context, clientID, employeeID string) (*employee.Employee, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `SELECT `+employeeColumns+` FROM employees e WHERE e.client_id = $1 AND e.employee_id = $2`, clientID, employeeID)

	found, err := scanEmployee(row)
	if err != nil {
		return nil, translateEmployeePgError(err)
	}
	return found, nil
}

// List は社員の一覧を取得します。
func (r *EmployeeRepository) List(ctx context.Context, filter employee.ListEmployeesFilter) ([]*employee.Employee, string, error) {
	var cond conditions
	if filter.ClientID != "" {
		cond.add("e.client_id = ", filter.ClientID)
	}
	if filter.Status != nil {
		cond.add("e.status = ", string(*filter.Status))
	}
	cond.companies("c.company_id", filter.RestrictCompanies, filter.CompanyIDs)

	query := `
        SELECT ` + employeeColumns + `
          FROM employees e
          JOIN clients c ON c.id = e.client_id` + cond.where() + `
         ORDER BY e.created_at DESC, e.id DESC
         LIMIT ` + cond.bind(filter.Limit+1) + `
        OFFSET ` + cond.bind(filter.Offset)

	employees, err := r.query(ctx, query, cond.args...)
	if err != nil {
		return nil, "", err
	}
	page, next := paginate(employees, filter.Limit, filter.Offset)
	return page, next, nil
}

// ListByCostCenter は原価センタに直接所属する社員を返します。
func (r *EmployeeRepository) ListByCostCenter(ctx context.Context, costCenterID string) ([]*employee.Employee, error) {
	return r.query(ctx, `SELECT `+employeeColumns+` FROM employees e WHERE e.cost_center_id = $1 ORDER BY e.created_at, e.id`, costCenterID)
}

// ListAnonymizable は匿名化対象の社員を退職日の古い順に返します。
func (r *EmployeeRepository) ListAnonymizable(ctx context.Context, filter employee.AnonymizeFilter) ([]*employee.Employee, error) {
	var cond conditions
	cond.exprs = append(cond.exprs, "e.anonymized_at IS NULL")
	cond.add("e.exit_date < ", dateOnly(filter.Before))
	cond.companies("c.company_id", filter.RestrictCompanies, filter.CompanyIDs)

	query := `
        SELECT ` + employeeColumns + `
          FROM employees e
          JOIN clients c ON c.id = e.client_id` + cond.where() + `
         ORDER BY e.exit_date, e.id
         LIMIT ` + cond.bind(filter.Limit) + `
           FOR UPDATE OF e`

	return r.query(ctx, query, cond.args...)
}

// CountByCostCenter は原価センタに所属する社員数を返します。
func (r *EmployeeRepository) CountByCostCenter(ctx context.Context, costCenterID string) (int, error) {
	return r.count(ctx, `SELECT count(*) FROM employees WHERE cost_center_id = $1`, costCenterID)
}

// CountByLocation は勤務地に所属する社員数を返します。
func (r *EmployeeRepository) CountByLocation(ctx context.Context, locationID string) (int, error) {
	return r.count(ctx, `SELECT count(*) FROM employees WHERE location_id = $1`, locationID)
}

// CountByManager は指定社員を上長とする社員数を返します。
func (r *EmployeeRepository) CountByManager(ctx context.Context, managerID string) (int, error) {
	return r.count(ctx, `SELECT count(*) FROM employees WHERE manager_id = $1`, managerID)
}

func (r *EmployeeRepository) query(ctx context.Context, query string, args ...any) ([]*employee.Employee, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, query, args...)
	if err != nil {
		return nil, translateEmployeePgError(err)
	}
	defer rows.Close()

	var employees []*employee.Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, translateEmployeePgError(err)
		}
		employees = append(employees, e)
	}
	if err := rows.Err(); err != nil {
		return nil, translateEmployeePgError(err)
	}
	return employees, nil
}

func (r *EmployeeRepository) count(ctx context.Context, query string, arg any) (int, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	var n int
	if err := exec.QueryRow(ctx, query, arg).Scan(&n); err != nil {
		return 0, translateEmployeePgError(err)
	}
	return n, nil
}

func scanEmployee(row pgx.Row) (*employee.Employee, error) {
	var (
		e              employee.Employee
		email          sql.NullString
		entryDate      time.Time
		exitDate       sql.NullTime
		status         string
		employmentType sql.NullString
		managerID      sql.NullString
		costCenterID   sql.NullString
		anonymizedAt   sql.NullTime
		createdAt      time.Time
		updatedAt      time.Time
	)

	if err := row.Scan(
		&e.ID,
		&e.EmployeeID,
		&e.FirstName,
		&e.LastName,
		&email,
		&entryDate,
		&exitDate,
		&status,
		&employmentType,
		&e.IsManager,
		&e.ClientID,
		&managerID,
		&costCenterID,
		&e.LocationID,
		&anonymizedAt,
		&createdAt,
		&updatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, employee.ErrEmployeeNotFound
		}
		return nil, err
	}

	e.Email = stringPtr(email)
	e.EntryDate = dateOnly(entryDate)
	e.ExitDate = datePtr(exitDate)
	e.Status = employee.Status(status)
	e.EmploymentType = stringPtr(employmentType)
	e.ManagerID = stringPtr(managerID)
	e.CostCenterID = stringPtr(costCenterID)
	e.AnonymizedAt = timePtr(anonymizedAt)
	e.CreatedAt = createdAt.UTC()
	e.UpdatedAt = updatedAt.UTC()
	return &e, nil
}

func translateEmployeePgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return employee.ErrEmployeeNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case invalidTextRepresentationCode:
			return employee.ErrEmployeeNotFound
		case uniqueViolationCode:
			return employee.ErrEmployeeIDAlreadyExists
		case foreignKeyViolationCode:
			switch pgErr.ConstraintName {
			case "cost_centers_responsible_id_fkey":
				return employee.ErrEmployeeInUse
			case "employees_manager_id_fkey":
				return employee.ErrEmployeeHasReports
			default:
				return err
			}
		case checkViolationCode:
			switch pgErr.ConstraintName {
			case "employees_manager_self_check":
				return employee.ErrSelfManagement
			case "employees_status_check":
				return employee.ErrInvalidStatus
			default:
				return employee.ErrInvalidDateRange
			}
		}
	}
	return err
}
