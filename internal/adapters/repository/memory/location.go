package memory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ogurasousui/org-directory/internal/core/location"
)

// LocationRepository はメモリ上の勤務地リポジトリです。
type LocationRepository struct {
	store *Store
}

var _ location.Repository = (*LocationRepository)(nil)

// Create は勤務地を追加します。
func (r *LocationRepository) Create(ctx context.Context, l *location.Location) (*location.Location, error) {
	var out *location.Location
	err := r.store.view(ctx, func(st *state) error {
		rec := cloneLocation(l)
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		st.locations[rec.ID] = rec
		out = cloneLocation(rec)
		return nil
	})
	return out, err
}

// Update は勤務地を更新します。
func (r *LocationRepository) Update(ctx context.Context, l *location.Location) (*location.Location, error) {
	var out *location.Location
	err := r.store.view(ctx, func(st *state) error {
		if _, ok := st.locations[l.ID]; !ok {
			return location.ErrLocationNotFound
		}
		st.locations[l.ID] = cloneLocation(l)
		out = cloneLocation(l)
		return nil
	})
	return out, err
}

// Delete は勤務地を削除します。
func (r *LocationRepository) Delete(ctx context.Context, id string) error {
	return r.store.view(ctx, func(st *state) error {
		if _, ok := st.locations[id]; !ok {
			return location.ErrLocationNotFound
		}
		delete(st.locations, id)
		return nil
	})
}

// FindByID は ID で勤務地を取得します。
func (r *LocationRepository) FindByID(ctx context.Context, id string) (*location.Location, error) {
	var out *location.Location
	err := r.store.view(ctx, func(st *state) error {
		l, ok := st.locations[id]
		if !ok {
			return location.ErrLocationNotFound
		}
		out = cloneLocation(l)
		return nil
	})
	return out, err
}

// List は勤務地の一覧を返します。
func (r *LocationRepository) List(ctx context.Context, filter location.ListLocationsFilter) ([]*location.Location, string, error) {
	var (
		out  []*location.Location
		next string
	)
	err := r.store.view(ctx, func(st *state) error {
		companies := newCompanyFilter(filter.RestrictCompanies, filter.CompanyIDs)
		matched := make([]*location.Location, 0)
		for _, l := range st.locations {
			if filter.ClientID != "" && l.ClientID != filter.ClientID {
				continue
			}
			if !companies.allows(st.companyOf(l.ClientID)) {
				continue
			}
			matched = append(matched, cloneLocation(l))
		}
		out, next = page(matched, func(l *location.Location) (time.Time, string) { return l.CreatedAt, l.ID }, filter.Limit, filter.Offset)
		return nil
	})
	return out, next, err
}
