package directory

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/ogurasousui/org-directory/internal/adapters/repository/memory"
	"github.com/ogurasousui/org-directory/internal/core/assignment"
	"github.com/ogurasousui/org-directory/internal/core/client"
	"github.com/ogurasousui/org-directory/internal/core/costcenter"
	"github.com/ogurasousui/org-directory/internal/core/employee"
	"github.com/ogurasousui/org-directory/internal/core/lifecycle"
	"github.com/ogurasousui/org-directory/internal/core/location"
	"github.com/ogurasousui/org-directory/internal/core/reqctx"
	"github.com/stretchr/testify/require"
)

// steppingClock は呼び出しごとに1秒進む時計です。日付は変わりません。
type steppingClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *steppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

var testToday = time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)

func day(offset int) *time.Time {
	d := testToday.AddDate(0, 0, offset)
	return &d
}

func str(v string) *string { return &v }

func boolPtr(v bool) *bool { return &v }

type fixture struct {
	store *memory.Store
	svc   *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithEmployees(t, nil)
}

// newFixtureWithEmployees は社員リポジトリを差し替えた fixture を生成します。
func newFixtureWithEmployees(t *testing.T, wrap func(employee.Repository) employee.Repository) *fixture {
	t.Helper()

	store := memory.NewStore()
	var employees employee.Repository = store.Employees()
	if wrap != nil {
		employees = wrap(employees)
	}
	svc, err := NewService(Repositories{
		Clients:     store.Clients(),
		Employees:   employees,
		CostCenters: store.CostCenters(),
		Locations:   store.Locations(),
		Assignments: store.Assignments(),
		Counters:    store.Counters(),
		Companies:   store.Companies(),
	}, Options{
		Clock:              &steppingClock{now: testToday.Add(9 * time.Hour)},
		TransactionManager: store,
		CompanyIDPattern:   regexp.MustCompile(`^[A-Z0-9-]{1,16}$`),
		AnonymizeBatchSize: 2,
	})
	require.NoError(t, err)
	return &fixture{store: store, svc: svc}
}

func adminCtx() context.Context {
	return reqctx.WithRequest(context.Background(), reqctx.Request{
		Principal: &reqctx.Principal{Subject: "admin", Roles: []string{"HRAdmin"}},
	})
}

func userCtx(role string, companies ...string) context.Context {
	return reqctx.WithRequest(context.Background(), reqctx.Request{
		Principal: &reqctx.Principal{
			Subject:    "user",
			Roles:      []string{role},
			Attributes: map[string][]string{"CompanyCode": companies},
		},
	})
}

func (f *fixture) client(t *testing.T, companyID string) *client.Client {
	t.Helper()
	c, err := f.svc.CreateClient(adminCtx(), CreateClientInput{ClientPatch: lifecycle.ClientPatch{
		CompanyID: str(companyID),
		Name:      str("Client " + companyID),
	}})
	require.NoError(t, err)
	return c
}

func (f *fixture) location(t *testing.T, clientID string) *location.Location {
	t.Helper()
	l, err := f.svc.CreateLocation(adminCtx(), CreateLocationInput{LocationPatch: lifecycle.LocationPatch{
		City:        str("Berlin"),
		CountryCode: str("de"),
		ZipCode:     str("10115"),
		Street:      str("Invalidenstr. 1"),
		ClientID:    str(clientID),
		ValidFrom:   day(-365),
	}})
	require.NoError(t, err)
	return l
}

func (f *fixture) manager(t *testing.T, clientID, locationID, name string) *employee.Employee {
	t.Helper()
	return f.employee(t, lifecycle.EmployeePatch{
		FirstName:  str(name),
		LastName:   str("Manager"),
		EntryDate:  day(-100),
		IsManager:  boolPtr(true),
		ClientID:   str(clientID),
		LocationID: str(locationID),
	})
}

func (f *fixture) employee(t *testing.T, patch lifecycle.EmployeePatch) *employee.Employee {
	t.Helper()
	e, err := f.svc.CreateEmployee(adminCtx(), CreateEmployeeInput{EmployeePatch: patch})
	require.NoError(t, err)
	return e
}

func (f *fixture) costCenter(t *testing.T, clientID, code, responsibleID string) *costcenter.CostCenter {
	t.Helper()
	cc, err := f.svc.CreateCostCenter(adminCtx(), CreateCostCenterInput{CostCenterPatch: lifecycle.CostCenterPatch{
		Code:          str(code),
		Name:          str("Cost center " + code),
		ClientID:      str(clientID),
		ResponsibleID: str(responsibleID),
		ValidFrom:     day(-365),
	}})
	require.NoError(t, err)
	return cc
}

func (f *fixture) assign(t *testing.T, clientID, employeeID, costCenterID string, from int, responsible bool) *assignment.Assignment {
	t.Helper()
	a, err := f.svc.CreateAssignment(adminCtx(), CreateAssignmentInput{AssignmentPatch: lifecycle.AssignmentPatch{
		EmployeeID:    str(employeeID),
		CostCenterID:  str(costCenterID),
		ClientID:      str(clientID),
		ValidFrom:     day(from),
		IsResponsible: boolPtr(responsible),
	}})
	require.NoError(t, err)
	return a
}

func (f *fixture) reloadEmployee(t *testing.T, id string) *employee.Employee {
	t.Helper()
	e, err := f.svc.GetEmployee(adminCtx(), GetEmployeeInput{ID: id})
	require.NoError(t, err)
	return e
}

func (f *fixture) reloadCostCenter(t *testing.T, id string) *costcenter.CostCenter {
	t.Helper()
	cc, err := f.svc.GetCostCenter(adminCtx(), GetCostCenterInput{ID: id})
	require.NoError(t, err)
	return cc
}
