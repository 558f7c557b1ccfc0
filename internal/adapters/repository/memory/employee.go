package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/ogurasousui/org-directory/internal/core/employee"
)

// EmployeeRepository はメモリ上の社員リポジトリです。
type EmployeeRepository struct {
	store *Store
}

var _ employee.Repository = (*EmployeeRepository)(nil)

func employeeIDTaken(st *state, e *employee.Employee) bool {
	for _, existing := range st.employees {
		if existing.ID != e.ID && existing.ClientID == e.ClientID && existing.EmployeeID == e.EmployeeID {
			return true
		}
	}
	return false
}

// Create は社員を追加します。
func (r *EmployeeRepository) Create(ctx context.Context, e *employee.Employee) (*employee.Employee, error) {
	var out *employee.Employee
	err := r.store.view(ctx, func(st *state) error {
		rec := cloneEmployee(e)
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		if employeeIDTaken(st, rec) {
			return employee.ErrEmployeeIDAlreadyExists
		}
		st.employees[rec.ID] = rec
		out = cloneEmployee(rec)
		return nil
	})
	return out, err
}

// Update は社員を更新します。
func (r *EmployeeRepository) Update(ctx context.Context, e *employee.Employee) (*employee.Employee, error) {
	var out *employee.Employee
	err := r.store.view(ctx, func(st *state) error {
		if _, ok := st.employees[e.ID]; !ok {
			return employee.ErrEmployeeNotFound
		}
		if employeeIDTaken(st, e) {
			return employee.ErrEmployeeIDAlreadyExists
		}
		st.employees[e.ID] = cloneEmployee(e)
		out = cloneEmployee(e)
		return nil
	})
	return out, err
}

// Delete は社員と社員の割当を削除します。
func (r *EmployeeRepository) Delete(ctx context.Context, id string) error {
	return r.store.view(ctx, func(st *state) error {
		if _, ok := st.employees[id]; !ok {
			return employee.ErrEmployeeNotFound
		}
		for k, a := range st.assignments {
			if a.EmployeeID == id {
				delete(st.assignments, k)
			}
		}
		delete(st.employees, id)
		return nil
	})
}

// FindByID は ID で社員を取得します。
func (r *EmployeeRepository) FindByID(ctx context.Context, id string) (*employee.Employee, error) {
	var out *employee.Employee
	err := r.store.view(ctx, func(st *state) error {
		e, ok := st.employees[id]
		if !ok {
			return employee.ErrEmployeeNotFound
		}
		out = cloneEmployee(e)
		return nil
	})
	return out, err
}

// FindByEmployeeID は取引先内の社員番号で社員を取得します。
func (r *EmployeeRepository) FindByEmployeeID(ctx context.Context, clientID, employeeID string) (*employee.Employee, error) {
	var out *employee.Employee
	err := r.store.view(ctx, func(st *state) error {
		for _, e := range st.employees {
			if e.ClientID == clientID && e.EmployeeID == employeeID {
				out = cloneEmployee(e)
				return nil
			}
		}
		return employee.ErrEmployeeNotFound
	})
	return out, err
}

// List は社員の一覧を返します。
func (r *EmployeeRepository) List(ctx context.Context, filter employee.ListEmployeesFilter) ([]*employee.Employee, string, error) {
	var (
		out  []*employee.Employee
		next string
	)
	err := r.store.view(ctx, func(st *state) error {
		companies := newCompanyFilter(filter.RestrictCompanies, filter.CompanyIDs)
		matched := make([]*employee.Employee, 0)
		for _, e := range st.employees {
			if filter.ClientID != "" && e.ClientID != filter.ClientID {
				continue
			}
			if filter.Status != nil && e.Status != *filter.Status {
				continue
			}
			if !companies.allows(st.companyOf(e.ClientID)) {
				continue
			}
			matched = append(matched, cloneEmployee(e))
		}
		out, next = page(matched, func(e *employee.Employee) (time.Time, string) { return e.CreatedAt, e.ID }, filter.Limit, filter.Offset)
		return nil
	})
	return out, next, err
}

// ListByCostCenter は原価センタに直接所属する社員を返します。
func (r *EmployeeRepository) ListByCostCenter(ctx context.Context, costCenterID string) ([]*employee.Employee, error) {
	var out []*employee.Employee
	err := r.store.view(ctx, func(st *state) error {
		for _, e := range st.employees {
			if e.CostCenterID != nil && *e.CostCenterID == costCenterID {
				out = append(out, cloneEmployee(e))
			}
		}
		return nil
	})
	return out, err
}

// CountByCostCenter は原価センタに直接所属する社員数を返します。
func (r *EmployeeRepository) CountByCostCenter(ctx context.Context, costCenterID string) (int, error) {
	return r.count(ctx, func(e *employee.Employee) bool {
		return e.CostCenterID != nil && *e.CostCenterID == costCenterID
	})
}

// CountByLocation は勤務地を参照する社員数を返します。
func (r *EmployeeRepository) CountByLocation(ctx context.Context, locationID string) (int, error) {
	return r.count(ctx, func(e *employee.Employee) bool { return e.LocationID == locationID })
}

// CountByManager は指定社員を上長とする社員数を返します。
func (r *EmployeeRepository) CountByManager(ctx context.Context, managerID string) (int, error) {
	return r.count(ctx, func(e *employee.Employee) bool {
		return e.ManagerID != nil && *e.ManagerID == managerID
	})
}

func (r *EmployeeRepository) count(ctx context.Context, match func(*employee.Employee) bool) (int, error) {
	n := 0
	err := r.store.view(ctx, func(st *state) error {
		for _, e := range st.employees {
			if match(e) {
				n++
			}
		}
		return nil
	})
	return n, err
}

// SetManager は上長のみを更新します。
func (r *EmployeeRepository) SetManager(ctx context.Context, id, managerID string, updatedAt time.Time) error {
	return r.store.view(ctx, func(st *state) error {
		e, ok := st.employees[id]
		if !ok {
			return employee.ErrEmployeeNotFound
		}
		m := managerID
		e.ManagerID = &m
		e.UpdatedAt = updatedAt
		return nil
	})
}

// ListAnonymizable は匿名化対象の社員を退職日の古い順に返します。
func (r *EmployeeRepository) ListAnonymizable(ctx context.Context, filter employee.AnonymizeFilter) ([]*employee.Employee, error) {
	var out []*employee.Employee
	err := r.store.view(ctx, func(st *state) error {
		companies := newCompanyFilter(filter.RestrictCompanies, filter.CompanyIDs)
		for _, e := range st.employees {
			if e.AnonymizedAt != nil || e.ExitDate == nil || !e.ExitDate.Before(filter.Before) {
				continue
			}
			if !companies.allows(st.companyOf(e.ClientID)) {
				continue
			}
			out = append(out, cloneEmployee(e))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sortByExitDate(out)
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func sortByExitDate(items []*employee.Employee) {
	sort.Slice(items, func(i, j int) bool {
		if !items[i].ExitDate.Equal(*items[j].ExitDate) {
			return items[i].ExitDate.Before(*items[j].ExitDate)
		}
		return items[i].ID < items[j].ID
	})
}
