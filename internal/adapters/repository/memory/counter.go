package memory

import (
	"context"

	"github.com/ogurasousui/org-directory/internal/core/client"
	"github.com/ogurasousui/org-directory/internal/core/costcenter"
)

// CounterRepository はメモリ上の社員番号カウンタです。排他はストアのトランザクションが担います。
type CounterRepository struct {
	store *Store
}

// LockCounter は現在のカウンタ値を返します。
func (r *CounterRepository) LockCounter(ctx context.Context, clientID string) (int, error) {
	var v int
	err := r.store.view(ctx, func(st *state) error {
		v = st.counters[clientID]
		return nil
	})
	return v, err
}

// SaveCounter はカウンタ値を保存します。
func (r *CounterRepository) SaveCounter(ctx context.Context, clientID string, value int) error {
	return r.store.view(ctx, func(st *state) error {
		st.counters[clientID] = value
		return nil
	})
}

// CompanyLookup は取引先・原価センタから会社コードを解決します。
type CompanyLookup struct {
	store *Store
}

// CompanyOfClient は取引先の CompanyID を返します。
func (l *CompanyLookup) CompanyOfClient(ctx context.Context, clientID string) (string, error) {
	var code string
	err := l.store.view(ctx, func(st *state) error {
		c, ok := st.clients[clientID]
		if !ok {
			return client.ErrClientNotFound
		}
		code = c.CompanyID
		return nil
	})
	return code, err
}

// ClientOfCostCenter は原価センタの取引先 ID を返します。
func (l *CompanyLookup) ClientOfCostCenter(ctx context.Context, costCenterID string) (string, error) {
	var id string
	err := l.store.view(ctx, func(st *state) error {
		c, ok := st.costCenters[costCenterID]
		if !ok {
			return costcenter.ErrCostCenterNotFound
		}
		id = c.ClientID
		return nil
	})
	return id, err
}
