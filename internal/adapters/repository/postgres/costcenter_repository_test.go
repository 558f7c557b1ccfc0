package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/ogurasousui/org-directory/internal/core/assignment"
	"github.com/ogurasousui/org-directory/internal/core/costcenter"
	"github.com/ogurasousui/org-directory/internal/core/location"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func TestCostCenterRepository_FindByCode(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	validFrom := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	validTo := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM cost_centers cc WHERE cc.client_id = $1 AND cc.code = $2`)).
		WithArgs("client-1", "CC1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "code", "name", "client_id", "responsible_id", "valid_from", "valid_to", "created_at", "updated_at"}).
			AddRow("cc-1", "CC1", "Sales", "client-1", "emp-1", validFrom, validTo, now, now))

	found, err := NewCostCenterRepository(mock).FindByCode(context.Background(), "client-1", "CC1")
	if err != nil {
		t.Fatalf("FindByCode returned error: %v", err)
	}
	if found.ResponsibleID != "emp-1" || found.ValidTo == nil || !found.ValidTo.Equal(validTo) {
		t.Fatalf("unexpected cost center %+v", found)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCostCenterRepository_SetResponsible(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	updatedAt := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE cost_centers SET responsible_id = $1, updated_at = $2 WHERE id = $3`)).
		WithArgs("emp-2", updatedAt, "cc-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	if err := NewCostCenterRepository(mock).SetResponsible(context.Background(), "cc-1", "emp-2", updatedAt); err != nil {
		t.Fatalf("SetResponsible returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestLocationRepository_List_ByClient(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	query := regexp.QuoteMeta(`FROM locations l JOIN clients c ON c.id = l.client_id WHERE l.client_id = $1 ORDER BY l.created_at DESC, l.id DESC LIMIT $2 OFFSET $3`)
	validFrom := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now := time.Now().UTC()
	mock.ExpectQuery(query).
		WithArgs("client-1", 11, 10).
		WillReturnRows(pgxmock.NewRows([]string{"id", "city", "country_code", "zip_code", "street", "client_id", "valid_from", "valid_to", "created_at", "updated_at"}).
			AddRow("loc-1", "Berlin", "DE", "10115", "Invalidenstr. 1", "client-1", validFrom, nil, now, now))

	locations, next, err := NewLocationRepository(mock).List(context.Background(), location.ListLocationsFilter{
		ClientID: "client-1",
		Limit:    10,
		Offset:   10,
	})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(locations) != 1 || next != "" {
		t.Fatalf("unexpected page: %d locations, token %q", len(locations), next)
	}
	if locations[0].ValidTo != nil {
		t.Fatalf("expected open-ended validity")
	}
}

func TestAssignmentRepository_ListByEmployee(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	now := time.Now().UTC()
	columns := []string{"id", "employee_id", "cost_center_id", "client_id", "valid_from", "valid_to", "is_responsible", "created_at", "updated_at"}

	mock.ExpectQuery(regexp.QuoteMeta(`FROM assignments a WHERE a.employee_id = $1 ORDER BY a.valid_from, a.created_at, a.id`)).
		WithArgs("emp-1").
		WillReturnRows(pgxmock.NewRows(columns).
			AddRow("a-1", "emp-1", "cc-1", "client-1", from, to, true, now, now).
			AddRow("a-2", "emp-1", "cc-2", "client-1", to.AddDate(0, 0, 1), nil, false, now, now))

	assignments, err := NewAssignmentRepository(mock).ListByEmployee(context.Background(), "emp-1")
	if err != nil {
		t.Fatalf("ListByEmployee returned error: %v", err)
	}
	if len(assignments) != 2 {
		t.Fatalf("expected 2 assignments, got %d", len(assignments))
	}
	if !assignments[0].IsResponsible || !assignments[0].ActiveOn(to) || assignments[0].ActiveOn(to.AddDate(0, 0, 1)) {
		t.Fatalf("unexpected first assignment %+v", assignments[0])
	}
}

func TestTranslatePgErrors_ByEntity(t *testing.T) {
	t.Parallel()

	if !errors.Is(translateCostCenterPgError(&pgconn.PgError{Code: uniqueViolationCode}), costcenter.ErrCodeAlreadyExists) {
		t.Fatalf("expected cost center unique violation to map to ErrCodeAlreadyExists")
	}
	if !errors.Is(translateCostCenterPgError(&pgconn.PgError{Code: foreignKeyViolationCode, ConstraintName: "employees_cost_center_id_fkey"}), costcenter.ErrCostCenterInUse) {
		t.Fatalf("expected employee reference to map to ErrCostCenterInUse")
	}
	if !errors.Is(translateLocationPgError(&pgconn.PgError{Code: foreignKeyViolationCode, ConstraintName: "employees_location_id_fkey"}), location.ErrLocationInUse) {
		t.Fatalf("expected employee reference to map to ErrLocationInUse")
	}
	if !errors.Is(translateAssignmentPgError(&pgconn.PgError{Code: checkViolationCode}), assignment.ErrInvalidDateRange) {
		t.Fatalf("expected check violation to map to ErrInvalidDateRange")
	}

	malformed := &pgconn.PgError{Code: invalidTextRepresentationCode}
	if !errors.Is(translateCostCenterPgError(malformed), costcenter.ErrCostCenterNotFound) {
		t.Fatalf("expected malformed id to map to ErrCostCenterNotFound")
	}
	if !errors.Is(translateLocationPgError(malformed), location.ErrLocationNotFound) {
		t.Fatalf("expected malformed id to map to ErrLocationNotFound")
	}
	if !errors.Is(translateAssignmentPgError(malformed), assignment.ErrAssignmentNotFound) {
		t.Fatalf("expected malformed id to map to ErrAssignmentNotFound")
	}
}
