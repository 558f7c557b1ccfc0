package memory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ogurasousui/org-directory/internal/core/costcenter"
)

// CostCenterRepository はメモリ上の原価センタリポジトリです。
type CostCenterRepository struct {
	store *Store
}

var _ costcenter.Repository = (*CostCenterRepository)(nil)

func codeTaken(st *state, c *costcenter.CostCenter) bool {
	for _, existing := range st.costCenters {
		if existing.ID != c.ID && existing.ClientID == c.ClientID && existing.Code == c.Code {
			return true
		}
	}
	return false
}

// Create は原価センタを追加します。
func (r *CostCenterRepository) Create(ctx context.Context, c *costcenter.CostCenter) (*costcenter.CostCenter, error) {
	var out *costcenter.CostCenter
	err := r.store.view(ctx, func(st *state) error {
		rec := cloneCostCenter(c)
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		if codeTaken(st, rec) {
			return costcenter.ErrCodeAlreadyExists
		}
		st.costCenters[rec.ID] = rec
		out = cloneCostCenter(rec)
		return nil
	})
	return out, err
}

// Update は原価センタを更新します。
func (r *CostCenterRepository) Update(ctx context.Context, c *costcenter.CostCenter) (*costcenter.CostCenter, error) {
	var out *costcenter.CostCenter
	err := r.store.view(ctx, func(st *state) error {
		if _, ok := st.costCenters[c.ID]; !ok {
			return costcenter.ErrCostCenterNotFound
		}
		if codeTaken(st, c) {
			return costcenter.ErrCodeAlreadyExists
		}
		st.costCenters[c.ID] = cloneCostCenter(c)
		out = cloneCostCenter(c)
		return nil
	})
	return out, err
}

// Delete は原価センタと過去の割当を削除します。
func (r *CostCenterRepository) Delete(ctx context.Context, id string) error {
	return r.store.view(ctx, func(st *state) error {
		if _, ok := st.costCenters[id]; !ok {
			return costcenter.ErrCostCenterNotFound
		}
		for k, a := range st.assignments {
			if a.CostCenterID == id {
				delete(st.assignments, k)
			}
		}
		delete(st.costCenters, id)
		return nil
	})
}

// FindByID は ID で原価センタを取得します。
func (r *CostCenterRepository) FindByID(ctx context.Context, id string) (*costcenter.CostCenter, error) {
	var out *costcenter.CostCenter
	err := r.store.view(ctx, func(st *state) error {
		c, ok := st.costCenters[id]
		if !ok {
			return costcenter.ErrCostCenterNotFound
		}
		out = cloneCostCenter(c)
		return nil
	})
	return out, err
}

// FindByCode は取引先内のコードで原価センタを取得します。
func (r *CostCenterRepository) FindByCode(ctx context.Context, clientID, code string) (*costcenter.CostCenter, error) {
	var out *costcenter.CostCenter
	err := r.store.view(ctx, func(st *state) error {
		for _, c := range st.costCenters {
			if c.ClientID == clientID && c.Code == code {
				out = cloneCostCenter(c)
				return nil
			}
		}
		return costcenter.ErrCostCenterNotFound
	})
	return out, err
}

// List は原価センタの一覧を返します。
func (r *CostCenterRepository) List(ctx context.Context, filter costcenter.ListCostCentersFilter) ([]*costcenter.CostCenter, string, error) {
	var (
		out  []*costcenter.CostCenter
		next string
	)
	err := r.store.view(ctx, func(st *state) error {
		companies := newCompanyFilter(filter.RestrictCompanies, filter.CompanyIDs)
		matched := make([]*costcenter.CostCenter, 0)
		for _, c := range st.costCenters {
			if filter.ClientID != "" && c.ClientID != filter.ClientID {
				continue
			}
			if !companies.allows(st.companyOf(c.ClientID)) {
				continue
			}
			matched = append(matched, cloneCostCenter(c))
		}
		out, next = page(matched, func(c *costcenter.CostCenter) (time.Time, string) { return c.CreatedAt, c.ID }, filter.Limit, filter.Offset)
		return nil
	})
	return out, next, err
}

// CountByResponsible は指定社員が責任者である原価センタ数を返します。
func (r *CostCenterRepository) CountByResponsible(ctx context.Context, employeeID string) (int, error) {
	n := 0
	err := r.store.view(ctx, func(st *state) error {
		for _, c := range st.costCenters {
			if c.ResponsibleID == employeeID {
				n++
			}
		}
		return nil
	})
	return n, err
}

// SetResponsible は責任者のみを更新します。
func (r *CostCenterRepository) SetResponsible(ctx context.Context, id, employeeID string, updatedAt time.Time) error {
	return r.store.view(ctx, func(st *state) error {
		c, ok := st.costCenters[id]
		if !ok {
			return costcenter.ErrCostCenterNotFound
		}
		c.ResponsibleID = employeeID
		c.UpdatedAt = updatedAt
		return nil
	})
}
