package memory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ogurasousui/org-directory/internal/core/assignment"
)

// AssignmentRepository はメモリ上の割当リポジトリです。
type AssignmentRepository struct {
	store *Store
}

var _ assignment.Repository = (*AssignmentRepository)(nil)

// Create は割当を追加します。
func (r *AssignmentRepository) Create(ctx context.Context, a *assignment.Assignment) (*assignment.Assignment, error) {
	var out *assignment.Assignment
	err := r.store.view(ctx, func(st *state) error {
		rec := cloneAssignment(a)
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		st.assignments[rec.ID] = rec
		out = cloneAssignment(rec)
		return nil
	})
	return out, err
}

// Update は割当を更新します。
func (r *AssignmentRepository) Update(ctx context.Context, a *assignment.Assignment) (*assignment.Assignment, error) {
	var out *assignment.Assignment
	err := r.store.view(ctx, func(st *state) error {
		if _, ok := st.assignments[a.ID]; !ok {
			return assignment.ErrAssignmentNotFound
		}
		st.assignments[a.ID] = cloneAssignment(a)
		out = cloneAssignment(a)
		return nil
	})
	return out, err
}

// Delete は割当を削除します。
func (r *AssignmentRepository) Delete(ctx context.Context, id string) error {
	return r.store.view(ctx, func(st *state) error {
		if _, ok := st.assignments[id]; !ok {
			return assignment.ErrAssignmentNotFound
		}
		delete(st.assignments, id)
		return nil
	})
}

// FindByID は ID で割当を取得します。
func (r *AssignmentRepository) FindByID(ctx context.Context, id string) (*assignment.Assignment, error) {
	var out *assignment.Assignment
	err := r.store.view(ctx, func(st *state) error {
		a, ok := st.assignments[id]
		if !ok {
			return assignment.ErrAssignmentNotFound
		}
		out = cloneAssignment(a)
		return nil
	})
	return out, err
}

// List は割当の一覧を返します。
func (r *AssignmentRepository) List(ctx context.Context, filter assignment.ListAssignmentsFilter) ([]*assignment.Assignment, string, error) {
	var (
		out  []*assignment.Assignment
		next string
	)
	err := r.store.view(ctx, func(st *state) error {
		companies := newCompanyFilter(filter.RestrictCompanies, filter.CompanyIDs)
		matched := make([]*assignment.Assignment, 0)
		for _, a := range st.assignments {
			if filter.ClientID != "" && a.ClientID != filter.ClientID {
				continue
			}
			if filter.EmployeeID != "" && a.EmployeeID != filter.EmployeeID {
				continue
			}
			if filter.CostCenterID != "" && a.CostCenterID != filter.CostCenterID {
				continue
			}
			if !companies.allows(st.companyOf(a.ClientID)) {
				continue
			}
			matched = append(matched, cloneAssignment(a))
		}
		out, next = page(matched, func(a *assignment.Assignment) (time.Time, string) { return a.CreatedAt, a.ID }, filter.Limit, filter.Offset)
		return nil
	})
	return out, next, err
}

// ListByEmployee は社員の全割当を返します。
func (r *AssignmentRepository) ListByEmployee(ctx context.Context, employeeID string) ([]*assignment.Assignment, error) {
	return r.collect(ctx, func(a *assignment.Assignment) bool { return a.EmployeeID == employeeID })
}

// ListByCostCenter は原価センタの全割当を返します。
func (r *AssignmentRepository) ListByCostCenter(ctx context.Context, costCenterID string) ([]*assignment.Assignment, error) {
	return r.collect(ctx, func(a *assignment.Assignment) bool { return a.CostCenterID == costCenterID })
}

func (r *AssignmentRepository) collect(ctx context.Context, match func(*assignment.Assignment) bool) ([]*assignment.Assignment, error) {
	var out []*assignment.Assignment
	err := r.store.view(ctx, func(st *state) error {
		for _, a := range st.assignments {
			if match(a) {
				out = append(out, cloneAssignment(a))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	out, _ = page(out, func(a *assignment.Assignment) (time.Time, string) { return a.ValidFrom, a.ID }, 0, 0)
	return out, nil
}
