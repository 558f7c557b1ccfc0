package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/ogurasousui/org-directory/internal/core/location"
	pgdb "github.com/ogurasousui/org-directory/internal/platform/db/postgres"
)

const locationColumns = `l.id, l.city, l.country_code, l.zip_code, l.street, l.client_id, l.valid_from, l.valid_to, l.created_at, l.updated_at`

// LocationRepository は PostgreSQL を利用した勤務地永続化の実装です。
type LocationRepository struct {
	pool pgdb.Queryer
}

// NewLocationRepository は LocationRepository を生成します。
func NewLocationRepository(pool pgdb.Queryer) *LocationRepository {
	return &LocationRepository{pool: pool}
}

// Create は勤務地を新規作成します。
func (r *LocationRepository) Create(ctx context.Context, l *location.Location) (*location.Location, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO locations AS l (id, city, country_code, zip_code, street, client_id, valid_from, valid_to, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        RETURNING `+locationColumns,
		ensureID(l.ID),
		l.City,
		l.CountryCode,
		l.ZipCode,
		l.Street,
		l.ClientID,
		dateOnly(l.ValidFrom),
		nullableDate(l.ValidTo),
		l.CreatedAt,
		l.UpdatedAt,
	)

	created, err := scanLocation(row)
	if err != nil {
		return nil, translateLocationPgError(err)
	}
	return created, nil
}

// Update は勤務地を更新します。勤務地は取引先の付け替えを許容します。
func (r *LocationRepository) Update(ctx context.Context, l *location.Location) (*location.Location, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        UPDATE locations AS l
           SET city = $1,
               country_code = $2,
               zip_code = $3,
               street = $4,
               client_id = $5,
               valid_from = $6,
               valid_to = $7,
               updated_at = $8
         WHERE l.id = $9
        RETURNING `+locationColumns,
		l.City,
		l.CountryCode,
		l.ZipCode,
		l.Street,
		l.ClientID,
		dateOnly(l.ValidFrom),
		nullableDate(l.ValidTo),
		l.UpdatedAt,
		l.ID,
	)

	updated, err := scanLocation(row)
	if err != nil {
		return nil, translateLocationPgError(err)
	}
	return updated, nil
}

// Delete は勤務地を削除します。
func (r *LocationRepository) Delete(ctx context.Context, id string) error {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `DELETE FROM locations WHERE id = $1`, id)
	if err != nil {
		return translateLocationPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return location.ErrLocationNotFound
	}
	return nil
}

// FindByID は ID で勤務地を取得します。
func (r *LocationRepository) FindByID(ctx context.Context, id string) (*location.Location, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `SELECT `+locationColumns+` FROM locations l WHERE l.id = $1`, id)

	found, err := scanLocation(row)
	if err != nil {
		return nil, translateLocationPgError(err)
	}
	return found, nil
}

// List は勤務地の一覧を取得します。
func (r *LocationRepository) List(ctx context.Context, filter location.ListLocationsFilter) ([]*location.Location, string, error) {
	var cond conditions
	if filter.ClientID != "" {
		cond.add("l.client_id = ", filter.ClientID)
	}
	cond.companies("c.company_id", filter.RestrictCompanies, filter.CompanyIDs)

	query := `
        SELECT ` + locationColumns + `
          FROM locations l
          JOIN clients c ON c.id = l.client_id` + cond.where() + `
         ORDER BY l.created_at DESC, l.id DESC
         LIMIT ` + cond.bind(filter.Limit+1) + `
        OFFSET ` + cond.bind(filter.Offset)

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, query, cond.args...)
	if err != nil {
		return nil, "", translateLocationPgError(err)
	}
	defer rows.Close()

	var locations []*location.Location
	for rows.Next() {
		l, err := scanLocation(rows)
		if err != nil {
			return nil, "", translateLocationPgError(err)
		}
		locations = append(locations, l)
	}
	if err := rows.Err(); err != nil {
		return nil, "", translateLocationPgError(err)
	}

	page, next := paginate(locations, filter.Limit, filter.Offset)
	return page, next, nil
}

func scanLocation(row pgx.Row) (*location.Location, error) {
	var (
		l         location.Location
		validFrom time.Time
		validTo   sql.NullTime
	)

	if err := row.Scan(
		&l.ID,
		&l.City,
		&l.CountryCode,
		&l.ZipCode,
		&l.Street,
		&l.ClientID,
		&validFrom,
		&validTo,
		&l.CreatedAt,
		&l.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, location.ErrLocationNotFound
		}
		return nil, err
	}

	l.ValidFrom = dateOnly(validFrom)
	l.ValidTo = datePtr(validTo)
	l.CreatedAt = l.CreatedAt.UTC()
	l.UpdatedAt = l.UpdatedAt.UTC()
	return &l, nil
}

func translateLocationPgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return location.ErrLocationNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case invalidTextRepresentationCode:
			return location.ErrLocationNotFound
		case foreignKeyViolationCode:
			if pgErr.ConstraintName == "employees_location_id_fkey" {
				return location.ErrLocationInUse
			}
		case checkViolationCode:
			return location.ErrInvalidDateRange
		}
	}
	return err
}
