package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/ogurasousui/org-directory/internal/core/client"
	pgdb "github.com/ogurasousui/org-directory/internal/platform/db/postgres"
)

const clientColumns = `id, company_id, name, country_code, created_at, updated_at`

// ClientRepository は PostgreSQL を利用した取引先永続化の実装です。
type ClientRepository struct {
	pool pgdb.Queryer
}

// NewClientRepository は ClientRepository を生成します。
func NewClientRepository(pool pgdb.Queryer) *ClientRepository {
	return &ClientRepository{pool: pool}
}

// Create は取引先を新規作成します。
func (r *ClientRepository) Create(ctx context.Context, c *client.Client) (*client.Client, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO clients (id, company_id, name, country_code, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING `+clientColumns,
		ensureID(c.ID), c.CompanyID, c.Name, nullableString(c.CountryCode), c.CreatedAt, c.UpdatedAt)

	created, err := scanClient(row)
	if err != nil {
		return nil, translateClientPgError(err)
	}
	return created, nil
}

// Update は取引先を更新します。CompanyID は変更しません。
func (r *ClientRepository) Update(ctx context.Context, c *client.Client) (*client.Client, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        UPDATE clients
           SET name = $1,
               country_code = $2,
               updated_at = $3
         WHERE id = $4
        RETURNING `+clientColumns,
		c.Name, nullableString(c.CountryCode), c.UpdatedAt, c.ID)

	updated, err := scanClient(row)
	if err != nil {
		return nil, translateClientPgError(err)
	}
	return updated, nil
}

// Delete は取引先を削除します。配下のレコードは外部キーの ON DELETE CASCADE で削除されます。
func (r *ClientRepository) Delete(ctx context.Context, id string) error {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `DELETE FROM clients WHERE id = $1`, id)
	if err != nil {
		return translateClientPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return client.ErrClientNotFound
	}
	return nil
}

// FindByID は ID で取引先を取得します。
func (r *ClientRepository) FindByID(ctx context.Context, id string) (*client.Client, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = $1`, id)

	found, err := scanClient(row)
	if err != nil {
		return nil, translateClientPgError(err)
	}
	return found, nil
}

// FindByCompanyID は会社コードで取引先を取得します。
func (r *ClientRepository) FindByCompanyID(ctx context.Context, companyID string) (*client.Client, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `SELECT `+clientColumns+` FROM clients WHERE company_id = $1`, companyID)

	found, err := scanClient(row)
	if err != nil {
		return nil, translateClientPgError(err)
	}
	return found, nil
}

// List は取引先の一覧を取得します。
func (r *ClientRepository) List(ctx context.Context, filter client.ListClientsFilter) ([]*client.Client, string, error) {
	var cond conditions
	cond.companies("company_id", filter.RestrictCompanies, filter.CompanyIDs)

	query := `SELECT ` + clientColumns + ` FROM clients` + cond.where() + `
         ORDER BY created_at DESC, id DESC
         LIMIT ` + cond.bind(filter.Limit+1) + `
        OFFSET ` + cond.bind(filter.Offset)

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, query, cond.args...)
	if err != nil {
		return nil, "", translateClientPgError(err)
	}
	defer rows.Close()

	clients := make([]*client.Client, 0, filter.Limit+1)
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, "", translateClientPgError(err)
		}
		clients = append(clients, c)
	}
	if err := rows.Err(); err != nil {
		return nil, "", translateClientPgError(err)
	}

	page, next := paginate(clients, filter.Limit, filter.Offset)
	return page, next, nil
}

// CountChildren は取引先配下のレコード件数を返します。
func (r *ClientRepository) CountChildren(ctx context.Context, id string) (client.ChildCounts, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT (SELECT count(*) FROM employees WHERE client_id = $1),
               (SELECT count(*) FROM cost_centers WHERE client_id = $1),
               (SELECT count(*) FROM locations WHERE client_id = $1),
               (SELECT count(*) FROM assignments WHERE client_id = $1)
    `, id)

	var counts client.ChildCounts
	if err := row.Scan(&counts.Employees, &counts.CostCenters, &counts.Locations, &counts.Assignments); err != nil {
		return client.ChildCounts{}, translateClientPgError(err)
	}
	return counts, nil
}

func scanClient(row pgx.Row) (*client.Client, error) {
	var (
		c       client.Client
		country sql.NullString
		created time.Time
		updated time.Time
	)
	if err := row.Scan(&c.ID, &c.CompanyID, &c.Name, &country, &created, &updated); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, client.ErrClientNotFound
		}
		return nil, err
	}
	c.CountryCode = stringPtr(country)
	c.CreatedAt = created.UTC()
	c.UpdatedAt = updated.UTC()
	return &c, nil
}

func translateClientPgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return client.ErrClientNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case invalidTextRepresentationCode:
			return client.ErrClientNotFound
		case uniqueViolationCode:
			return client.ErrCompanyIDAlreadyExists
		}
	}
	return err
}
