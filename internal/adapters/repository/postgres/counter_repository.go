package postgres

import (
	"context"

	pgdb "github.com/ogurasousui/org-directory/internal/platform/db/postgres"
)

// CounterRepository は取引先ごとの社員番号カウンタを行ロックで管理します。
// 呼び出しは読み書きトランザクション内で行う必要があります。
type CounterRepository struct {
	pool pgdb.Queryer
}

// NewCounterRepository は CounterRepository を生成します。
func NewCounterRepository(pool pgdb.Queryer) *CounterRepository {
	return &CounterRepository{pool: pool}
}

// LockCounter はカウンタ行を作成（未作成時）したうえで FOR UPDATE で読み取ります。
func (r *CounterRepository) LockCounter(ctx context.Context, clientID string) (int, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	if _, err := exec.Exec(ctx, `
        INSERT INTO employee_id_counters (client_id, last_value)
        VALUES ($1, 0)
        ON CONFLICT (client_id) DO NOTHING`, clientID); err != nil {
		return 0, translateClientPgError(err)
	}

	var value int
	err := exec.QueryRow(ctx, `SELECT last_value FROM employee_id_counters WHERE client_id = $1 FOR UPDATE`, clientID).Scan(&value)
	if err != nil {
		return 0, translateClientPgError(err)
	}
	return value, nil
}

// SaveCounter はカウンタ値を保存します。
func (r *CounterRepository) SaveCounter(ctx context.Context, clientID string, value int) error {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	_, err := exec.Exec(ctx, `UPDATE employee_id_counters SET last_value = $1 WHERE client_id = $2`, value, clientID)
	return err
}

// CompanyLookup は取引先・原価センタから会社コードを解決します。
type CompanyLookup struct {
	pool pgdb.Queryer
}

// NewCompanyLookup は CompanyLookup を生成します。
func NewCompanyLookup(pool pgdb.Queryer) *CompanyLookup {
	return &CompanyLookup{pool: pool}
}

// CompanyOfClient は取引先の CompanyID を返します。
func (l *CompanyLookup) CompanyOfClient(ctx context.Context, clientID string) (string, error) {
	exec := pgdb.QueryerFromContext(ctx, l.pool)
	var code string
	if err := exec.QueryRow(ctx, `SELECT company_id FROM clients WHERE id = $1`, clientID).Scan(&code); err != nil {
		return "", translateClientPgError(err)
	}
	return code, nil
}

// ClientOfCostCenter は原価センタの取引先 ID を返します。
func (l *CompanyLookup) ClientOfCostCenter(ctx context.Context, costCenterID string) (string, error) {
	exec := pgdb.QueryerFromContext(ctx, l.pool)
	var id string
	if err := exec.QueryRow(ctx, `SELECT client_id FROM cost_centers WHERE id = $1`, costCenterID).Scan(&id); err != nil {
		return "", translateCostCenterPgError(err)
	}
	return id, nil
}
