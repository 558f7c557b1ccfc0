package memory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ogurasousui/org-directory/internal/core/client"
)

// ClientRepository はメモリ上の取引先リポジトリです。
type ClientRepository struct {
	store *Store
}

var _ client.Repository = (*ClientRepository)(nil)

// Create は取引先を追加します。
func (r *ClientRepository) Create(ctx context.Context, c *client.Client) (*client.Client, error) {
	var out *client.Client
	err := r.store.view(ctx, func(st *state) error {
		for _, existing := range st.clients {
			if existing.CompanyID == c.CompanyID {
				return client.ErrCompanyIDAlreadyExists
			}
		}
		rec := cloneClient(c)
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		st.clients[rec.ID] = rec
		out = cloneClient(rec)
		return nil
	})
	return out, err
}

// Update は取引先を更新します。
func (r *ClientRepository) Update(ctx context.Context, c *client.Client) (*client.Client, error) {
	var out *client.Client
	err := r.store.view(ctx, func(st *state) error {
		if _, ok := st.clients[c.ID]; !ok {
			return client.ErrClientNotFound
		}
		for _, existing := range st.clients {
			if existing.ID != c.ID && existing.CompanyID == c.CompanyID {
				return client.ErrCompanyIDAlreadyExists
			}
		}
		st.clients[c.ID] = cloneClient(c)
		out = cloneClient(c)
		return nil
	})
	return out, err
}

// Delete は取引先と配下のレコードを削除します。
func (r *ClientRepository) Delete(ctx context.Context, id string) error {
	return r.store.view(ctx, func(st *state) error {
		if _, ok := st.clients[id]; !ok {
			return client.ErrClientNotFound
		}
		for k, v := range st.assignments {
			if v.ClientID == id {
				delete(st.assignments, k)
			}
		}
		for k, v := range st.employees {
			if v.ClientID == id {
				delete(st.employees, k)
			}
		}
		for k, v := range st.costCenters {
			if v.ClientID == id {
				delete(st.costCenters, k)
			}
		}
		for k, v := range st.locations {
			if v.ClientID == id {
				delete(st.locations, k)
			}
		}
		delete(st.counters, id)
		delete(st.clients, id)
		return nil
	})
}

// FindByID は ID で取引先を取得します。
func (r *ClientRepository) FindByID(ctx context.Context, id string) (*client.Client, error) {
	var out *client.Client
	err := r.store.view(ctx, func(st *state) error {
		c, ok := st.clients[id]
		if !ok {
			return client.ErrClientNotFound
		}
		out = cloneClient(c)
		return nil
	})
	return out, err
}

// FindByCompanyID は CompanyID で取引先を取得します。
func (r *ClientRepository) FindByCompanyID(ctx context.Context, companyID string) (*client.Client, error) {
	var out *client.Client
	err := r.store.view(ctx, func(st *state) error {
		for _, c := range st.clients {
			if c.CompanyID == companyID {
				out = cloneClient(c)
				return nil
			}
		}
		return client.ErrClientNotFound
	})
	return out, err
}

// List は取引先の一覧を返します。
func (r *ClientRepository) List(ctx context.Context, filter client.ListClientsFilter) ([]*client.Client, string, error) {
	var (
		out  []*client.Client
		next string
	)
	err := r.store.view(ctx, func(st *state) error {
		companies := newCompanyFilter(filter.RestrictCompanies, filter.CompanyIDs)
		matched := make([]*client.Client, 0, len(st.clients))
		for _, c := range st.clients {
			if companies.allows(c.CompanyID) {
				matched = append(matched, cloneClient(c))
			}
		}
		out, next = page(matched, func(c *client.Client) (time.Time, string) { return c.CreatedAt, c.ID }, filter.Limit, filter.Offset)
		return nil
	})
	return out, next, err
}

// CountChildren は取引先配下のレコード件数を返します。
func (r *ClientRepository) CountChildren(ctx context.Context, id string) (client.ChildCounts, error) {
	var counts client.ChildCounts
	err := r.store.view(ctx, func(st *state) error {
		if _, ok := st.clients[id]; !ok {
			return client.ErrClientNotFound
		}
		for _, v := range st.employees {
			if v.ClientID == id {
				counts.Employees++
			}
		}
		for _, v := range st.costCenters {
			if v.ClientID == id {
				counts.CostCenters++
			}
		}
		for _, v := range st.locations {
			if v.ClientID == id {
				counts.Locations++
			}
		}
		for _, v := range st.assignments {
			if v.ClientID == id {
				counts.Assignments++
			}
		}
		return nil
	})
	return counts, err
}
