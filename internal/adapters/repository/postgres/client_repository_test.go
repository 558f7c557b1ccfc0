package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/ogurasousui/org-directory/internal/core/client"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func TestClientRepository_List_RestrictedToEmptyCompanySet(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	query := regexp.QuoteMeta(`FROM clients WHERE company_id = ANY($1) ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`)
	mock.ExpectQuery(query).
		WithArgs([]string{}, 51, 0).
		WillReturnRows(pgxmock.NewRows([]string{"id", "company_id", "name", "country_code", "created_at", "updated_at"}))

	clients, next, err := NewClientRepository(mock).List(context.Background(), client.ListClientsFilter{
		RestrictCompanies: true,
		Limit:             50,
	})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(clients) != 0 || next != "" {
		t.Fatalf("expected empty page, got %d clients and token %q", len(clients), next)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestClientRepository_FindByCompanyID(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM clients WHERE company_id = $1`)).
		WithArgs("COMP-001").
		WillReturnRows(pgxmock.NewRows([]string{"id", "company_id", "name", "country_code", "created_at", "updated_at"}).
			AddRow("client-1", "COMP-001", "ACME", nil, now, now))

	found, err := NewClientRepository(mock).FindByCompanyID(context.Background(), "COMP-001")
	if err != nil {
		t.Fatalf("FindByCompanyID returned error: %v", err)
	}
	if found.ID != "client-1" || found.CountryCode != nil {
		t.Fatalf("unexpected client %+v", found)
	}
}

func TestClientRepository_CountChildren(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT (SELECT count(*) FROM employees WHERE client_id = $1)`)).
		WithArgs("client-1").
		WillReturnRows(pgxmock.NewRows([]string{"employees", "cost_centers", "locations", "assignments"}).AddRow(3, 1, 2, 4))

	counts, err := NewClientRepository(mock).CountChildren(context.Background(), "client-1")
	if err != nil {
		t.Fatalf("CountChildren returned error: %v", err)
	}
	if counts != (client.ChildCounts{Employees: 3, CostCenters: 1, Locations: 2, Assignments: 4}) {
		t.Fatalf("unexpected counts %+v", counts)
	}
}

func TestClientRepository_Delete_NotFound(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM clients WHERE id = $1`)).
		WithArgs("missing").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	if err := NewClientRepository(mock).Delete(context.Background(), "missing"); !errors.Is(err, client.ErrClientNotFound) {
		t.Fatalf("expected ErrClientNotFound, got %v", err)
	}
}

func TestClientRepository_FindByID_MalformedID(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT ` + clientColumns + ` FROM clients WHERE id = $1`)).
		WithArgs("not-a-uuid").
		WillReturnError(&pgconn.PgError{Code: invalidTextRepresentationCode, Message: `invalid input syntax for type uuid: "not-a-uuid"`})

	if _, err := NewClientRepository(mock).FindByID(context.Background(), "not-a-uuid"); !errors.Is(err, client.ErrClientNotFound) {
		t.Fatalf("expected ErrClientNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTranslateClientPgError(t *testing.T) {
	t.Parallel()

	uniqueErr := &pgconn.PgError{Code: uniqueViolationCode, ConstraintName: "clients_company_id_key"}
	if !errors.Is(translateClientPgError(uniqueErr), client.ErrCompanyIDAlreadyExists) {
		t.Fatalf("expected unique violation to map to ErrCompanyIDAlreadyExists")
	}

	other := errors.New("other")
	if translateClientPgError(other) != other {
		t.Fatalf("unexpected translation for generic error")
	}
}
