package directory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/ogurasousui/org-directory/internal/core/apperr"
	"github.com/ogurasousui/org-directory/internal/core/authz"
	"github.com/ogurasousui/org-directory/internal/core/employee"
	"github.com/ogurasousui/org-directory/internal/core/identifier"
	"github.com/ogurasousui/org-directory/internal/core/integrity"
	"github.com/ogurasousui/org-directory/internal/core/lifecycle"
	"github.com/stretchr/testify/require"
)

func TestEmployee_ConcurrentCreatesGetDistinctIDs(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	c := f.client(t, "1010")
	loc := f.location(t, c.ID)

	const n = 20
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		ids  = make(map[string]struct{}, n)
		errs []error
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			e, err := f.svc.CreateEmployee(adminCtx(), CreateEmployeeInput{EmployeePatch: lifecycle.EmployeePatch{
				FirstName:  str(fmt.Sprintf("Worker%d", i)),
				LastName:   str("Parallel"),
				EntryDate:  day(0),
				ClientID:   str(c.ID),
				LocationID: str(loc.ID),
			}})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			ids[e.EmployeeID] = struct{}{}
		}(i)
	}
	wg.Wait()

	require.Empty(t, errs)
	require.Len(t, ids, n)
	for i := 1; i <= n; i++ {
		require.Contains(t, ids, fmt.Sprintf("1010-%04d", i))
	}
}

// collidingEmployees は Create の先頭 remaining 回を社員番号の重複として失敗させます。
type collidingEmployees struct {
	employee.Repository

	mu        sync.Mutex
	remaining int
	calls     int
}

func (r *collidingEmployees) Create(ctx context.Context, e *employee.Employee) (*employee.Employee, error) {
	r.mu.Lock()
	r.calls++
	if r.remaining > 0 {
		r.remaining--
		r.mu.Unlock()
		return nil, employee.ErrEmployeeIDAlreadyExists
	}
	r.mu.Unlock()
	return r.Repository.Create(ctx, e)
}

func (r *collidingEmployees) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func TestEmployee_CreateRetriesGeneratedIDCollisions(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		collisions int
		explicitID *string
		wantCalls  int
		wantErr    error
	}{
		{name: "gives up after max attempts", collisions: 100, wantCalls: identifier.MaxAttempts, wantErr: identifier.ErrExhausted},
		{name: "succeeds after one collision", collisions: 1, wantCalls: 2},
		{name: "explicit id is not retried", collisions: 1, explicitID: str("1010-0042"), wantCalls: 1, wantErr: employee.ErrEmployeeIDAlreadyExists},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			repo := &collidingEmployees{}
			f := newFixtureWithEmployees(t, func(inner employee.Repository) employee.Repository {
				repo.Repository = inner
				return repo
			})
			c := f.client(t, "1010")
			loc := f.location(t, c.ID)

			repo.mu.Lock()
			repo.remaining = tc.collisions
			repo.mu.Unlock()

			e, err := f.svc.CreateEmployee(adminCtx(), CreateEmployeeInput{EmployeePatch: lifecycle.EmployeePatch{
				EmployeeID: tc.explicitID,
				FirstName:  str("Retry"),
				LastName:   str("Loop"),
				EntryDate:  day(0),
				ClientID:   str(c.ID),
				LocationID: str(loc.ID),
			}})
			require.Equal(t, tc.wantCalls, repo.Calls())

			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				if errors.Is(tc.wantErr, identifier.ErrExhausted) {
					require.Equal(t, apperr.KindInternal, apperr.KindOf(err))
				}
				return
			}
			require.NoError(t, err)
			require.Regexp(t, `^1010-\d{4}$`, e.EmployeeID)
			require.Equal(t, e.ID, f.reloadEmployee(t, e.ID).ID)
		})
	}
}

func TestEmployee_ExplicitIDs(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	c := f.client(t, "1010")
	loc := f.location(t, c.ID)

	base := lifecycle.EmployeePatch{
		FirstName:  str("Explicit"),
		LastName:   str("Id"),
		EntryDate:  day(0),
		ClientID:   str(c.ID),
		LocationID: str(loc.ID),
	}

	patch := base
	patch.EmployeeID = str(" 1010-0042 ")
	e := f.employee(t, patch)
	require.Equal(t, "1010-0042", e.EmployeeID)

	_, err := f.svc.CreateEmployee(adminCtx(), CreateEmployeeInput{EmployeePatch: patch})
	require.ErrorIs(t, err, employee.ErrEmployeeIDAlreadyExists)
	require.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	patch.EmployeeID = str("2020-0001")
	_, err = f.svc.CreateEmployee(adminCtx(), CreateEmployeeInput{EmployeePatch: patch})
	require.ErrorIs(t, err, employee.ErrInvalidEmployeeID)

	// 明示的な番号はカウンタを進めない。
	generated := f.employee(t, base)
	require.Equal(t, "1010-0001", generated.EmployeeID)
}

func TestEmployee_EmployeeIDImmutable(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	c := f.client(t, "1010")
	loc := f.location(t, c.ID)
	e := f.manager(t, c.ID, loc.ID, "Immutable")

	for _, candidate := range []string{"", "   ", "1010-0099"} {
		_, err := f.svc.UpdateEmployee(adminCtx(), UpdateEmployeeInput{
			ID:              e.ID,
			ExpectedVersion: &e.UpdatedAt,
			EmployeePatch:   lifecycle.EmployeePatch{EmployeeID: str(candidate)},
		})
		require.ErrorIs(t, err, employee.ErrEmployeeIDImmutable, "candidate %q", candidate)
	}

	// employeeId: null の明示指定は省略とは区別する。
	_, err := f.svc.UpdateEmployee(adminCtx(), UpdateEmployeeInput{
		ID:              e.ID,
		ExpectedVersion: &e.UpdatedAt,
		EmployeePatch:   lifecycle.EmployeePatch{EmployeeIDSet: true, FirstName: str("Z")},
	})
	require.ErrorIs(t, err, employee.ErrEmployeeIDImmutable)

	updated, err := f.svc.UpdateEmployee(adminCtx(), UpdateEmployeeInput{
		ID:              e.ID,
		ExpectedVersion: &e.UpdatedAt,
		EmployeePatch: lifecycle.EmployeePatch{
			EmployeeID: str(e.EmployeeID),
			FirstName:  str("Renamed"),
		},
	})
	require.NoError(t, err)
	require.Equal(t, "Renamed", updated.FirstName)
	require.Equal(t, e.EmployeeID, updated.EmployeeID)
}

func TestEmployee_CreateRules(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	c := f.client(t, "1010")
	loc := f.location(t, c.ID)
	boss := f.manager(t, c.ID, loc.ID, "Boss")
	other := f.manager(t, c.ID, loc.ID, "Other")
	cc := f.costCenter(t, c.ID, "OPS", boss.ID)

	inactive := employee.StatusInactive
	cases := []struct {
		name   string
		modify func(p *lifecycle.EmployeePatch)
		want   error
	}{
		{
			name:   "entry date required",
			modify: func(p *lifecycle.EmployeePatch) { p.EntryDate = nil },
			want:   employee.ErrInvalidEntryDate,
		},
		{
			name:   "exit before entry",
			modify: func(p *lifecycle.EmployeePatch) { p.ExitDate = day(-20) },
			want:   employee.ErrInvalidDateRange,
		},
		{
			name:   "inactive without exit date",
			modify: func(p *lifecycle.EmployeePatch) { p.Status = &inactive },
			want:   employee.ErrStatusExitDateMismatch,
		},
		{
			name:   "invalid email",
			modify: func(p *lifecycle.EmployeePatch) { p.Email = str("not-an-email") },
			want:   employee.ErrInvalidEmail,
		},
		{
			name: "manager differs from responsible",
			modify: func(p *lifecycle.EmployeePatch) {
				p.CostCenterID = str(cc.ID)
				p.ManagerID = str(other.ID)
			},
			want: employee.ErrManagerMismatch,
		},
		{
			name:   "location required",
			modify: func(p *lifecycle.EmployeePatch) { p.LocationID = nil },
			want:   employee.ErrLocationRequired,
		},
	}
	for _, tc := range cases {
		patch := lifecycle.EmployeePatch{
			FirstName:  str("Rule"),
			LastName:   str("Case"),
			EntryDate:  day(-10),
			ClientID:   str(c.ID),
			LocationID: str(loc.ID),
		}
		tc.modify(&patch)
		_, err := f.svc.CreateEmployee(adminCtx(), CreateEmployeeInput{EmployeePatch: patch})
		require.ErrorIs(t, err, tc.want, tc.name)
		require.Equal(t, apperr.KindValidation, apperr.KindOf(err), tc.name)
	}
}

func TestEmployee_InheritsManagerCostCenterOnCreate(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	c := f.client(t, "1010")
	loc := f.location(t, c.ID)
	boss := f.manager(t, c.ID, loc.ID, "Boss")
	cc := f.costCenter(t, c.ID, "OPS", boss.ID)

	lead := f.employee(t, lifecycle.EmployeePatch{
		FirstName:    str("Lead"),
		LastName:     str("Member"),
		EntryDate:    day(-10),
		IsManager:    boolPtr(true),
		ClientID:     str(c.ID),
		CostCenterID: str(cc.ID),
		LocationID:   str(loc.ID),
	})
	require.Equal(t, boss.ID, *lead.ManagerID)

	// 上長の原価センタを引き継ぐため、上長は原価センタの責任者と一致しなければならない。
	_, err := f.svc.CreateEmployee(adminCtx(), CreateEmployeeInput{EmployeePatch: lifecycle.EmployeePatch{
		FirstName:  str("Report"),
		LastName:   str("Member"),
		EntryDate:  day(-10),
		ClientID:   str(c.ID),
		ManagerID:  str(lead.ID),
		LocationID: str(loc.ID),
	}})
	require.ErrorIs(t, err, employee.ErrManagerMismatch)

	report := f.employee(t, lifecycle.EmployeePatch{
		FirstName:  str("Report"),
		LastName:   str("Member"),
		EntryDate:  day(-10),
		ClientID:   str(c.ID),
		ManagerID:  str(boss.ID),
		LocationID: str(loc.ID),
	})
	require.Nil(t, report.CostCenterID, "boss has no cost center to inherit")
}

func TestEmployee_ClientInferredFromCostCenter(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	c := f.client(t, "1010")
	loc := f.location(t, c.ID)
	boss := f.manager(t, c.ID, loc.ID, "Boss")
	cc := f.costCenter(t, c.ID, "OPS", boss.ID)

	e := f.employee(t, lifecycle.EmployeePatch{
		FirstName:    str("No"),
		LastName:     str("Client"),
		EntryDate:    day(0),
		CostCenterID: str(cc.ID),
		LocationID:   str(loc.ID),
	})
	require.Equal(t, c.ID, e.ClientID)
	require.Equal(t, boss.ID, *e.ManagerID)
}

func TestEmployee_MissingClientReportedBeforeScope(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.client(t, "1010")

	patch := lifecycle.EmployeePatch{
		FirstName: str("No"),
		LastName:  str("Target"),
		EntryDate: day(0),
	}
	for _, ctx := range []context.Context{adminCtx(), userCtx("HRManager", "1010"), userCtx("HRViewer", "1010")} {
		_, err := f.svc.CreateEmployee(ctx, CreateEmployeeInput{EmployeePatch: patch})
		require.ErrorIs(t, err, employee.ErrInvalidClientID)
		require.Equal(t, 400, apperr.KindOf(err).Status())
	}
}

func TestEmployee_CrossClientReferenceRejected(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	c1 := f.client(t, "1010")
	c2 := f.client(t, "2020")
	loc1 := f.location(t, c1.ID)
	loc2 := f.location(t, c2.ID)
	foreign := f.manager(t, c2.ID, loc2.ID, "Foreign")

	_, err := f.svc.CreateEmployee(adminCtx(), CreateEmployeeInput{EmployeePatch: lifecycle.EmployeePatch{
		FirstName:  str("Cross"),
		LastName:   str("Ref"),
		EntryDate:  day(0),
		ClientID:   str(c1.ID),
		ManagerID:  str(foreign.ID),
		LocationID: str(loc1.ID),
	}})
	require.ErrorIs(t, err, integrity.ErrCrossClientReference)
}

func TestEmployee_UpdateRules(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	c := f.client(t, "1010")
	loc := f.location(t, c.ID)
	boss := f.manager(t, c.ID, loc.ID, "Boss")
	f.costCenter(t, c.ID, "OPS", boss.ID)

	_, err := f.svc.UpdateEmployee(adminCtx(), UpdateEmployeeInput{
		ID:              boss.ID,
		ExpectedVersion: &boss.UpdatedAt,
		EmployeePatch:   lifecycle.EmployeePatch{ManagerID: str(boss.ID)},
	})
	require.ErrorIs(t, err, employee.ErrSelfManagement)

	_, err = f.svc.UpdateEmployee(adminCtx(), UpdateEmployeeInput{
		ID:              boss.ID,
		ExpectedVersion: &boss.UpdatedAt,
		EmployeePatch:   lifecycle.EmployeePatch{IsManager: boolPtr(false)},
	})
	require.ErrorIs(t, err, employee.ErrStillResponsible)

	left, err := f.svc.UpdateEmployee(adminCtx(), UpdateEmployeeInput{
		ID:              boss.ID,
		ExpectedVersion: &boss.UpdatedAt,
		EmployeePatch:   lifecycle.EmployeePatch{ExitDate: day(5), ExitDateSet: true},
	})
	require.NoError(t, err)
	require.Equal(t, employee.StatusInactive, left.Status)
}

func TestEmployee_Delete(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	c := f.client(t, "1010")
	loc := f.location(t, c.ID)
	boss := f.manager(t, c.ID, loc.ID, "Boss")
	cc := f.costCenter(t, c.ID, "OPS", boss.ID)
	member := f.employee(t, lifecycle.EmployeePatch{
		FirstName:    str("Member"),
		LastName:     str("One"),
		EntryDate:    day(-10),
		ClientID:     str(c.ID),
		CostCenterID: str(cc.ID),
		LocationID:   str(loc.ID),
	})
	a := f.assign(t, c.ID, member.ID, cc.ID, -5, false)

	err := f.svc.DeleteEmployee(adminCtx(), DeleteEmployeeInput{ID: boss.ID})
	require.ErrorIs(t, err, employee.ErrEmployeeInUse)

	require.NoError(t, f.svc.DeleteEmployee(adminCtx(), DeleteEmployeeInput{ID: member.ID}))
	_, err = f.svc.GetEmployee(adminCtx(), GetEmployeeInput{ID: member.ID})
	require.ErrorIs(t, err, employee.ErrEmployeeNotFound)
	_, err = f.svc.GetAssignment(adminCtx(), GetAssignmentInput{ID: a.ID})
	require.Error(t, err)
}

func TestEmployee_DeleteRejectedWhenCascadeRepromotes(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	c := f.client(t, "1010")
	loc := f.location(t, c.ID)
	x := f.manager(t, c.ID, loc.ID, "X")
	y := f.manager(t, c.ID, loc.ID, "Y")
	cc := f.costCenter(t, c.ID, "OPS", x.ID)

	first := f.assign(t, c.ID, x.ID, cc.ID, -20, true)
	second := f.assign(t, c.ID, x.ID, cc.ID, -10, true)
	require.Equal(t, x.ID, f.reloadCostCenter(t, cc.ID).ResponsibleID)

	current := f.reloadCostCenter(t, cc.ID)
	_, err := f.svc.UpdateCostCenter(adminCtx(), UpdateCostCenterInput{
		ID:              cc.ID,
		ExpectedVersion: &current.UpdatedAt,
		CostCenterPatch: lifecycle.CostCenterPatch{ResponsibleID: str(y.ID)},
	})
	require.NoError(t, err)

	// 1件目の割当削除で2件目が昇格し、X が再び責任者になる
	err = f.svc.DeleteEmployee(adminCtx(), DeleteEmployeeInput{ID: x.ID})
	require.ErrorIs(t, err, employee.ErrEmployeeInUse)

	require.Equal(t, y.ID, f.reloadCostCenter(t, cc.ID).ResponsibleID)
	require.Equal(t, x.ID, f.reloadEmployee(t, x.ID).ID)
	for _, a := range []string{first.ID, second.ID} {
		_, err := f.svc.GetAssignment(adminCtx(), GetAssignmentInput{ID: a})
		require.NoError(t, err, "assignment deletion must be rolled back")
	}
}

func TestEmployee_ListPaging(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	c := f.client(t, "1010")
	loc := f.location(t, c.ID)
	for i := 0; i < 5; i++ {
		f.manager(t, c.ID, loc.ID, fmt.Sprintf("M%d", i))
	}

	first, err := f.svc.ListEmployees(adminCtx(), ListEmployeesInput{ClientID: c.ID, PageSize: 3})
	require.NoError(t, err)
	require.Len(t, first.Employees, 3)
	require.Equal(t, "3", first.NextPageToken)

	second, err := f.svc.ListEmployees(adminCtx(), ListEmployeesInput{ClientID: c.ID, PageSize: 3, PageToken: first.NextPageToken})
	require.NoError(t, err)
	require.Len(t, second.Employees, 2)
	require.Empty(t, second.NextPageToken)

	_, err = f.svc.ListEmployees(adminCtx(), ListEmployeesInput{PageSize: 500})
	require.ErrorIs(t, err, ErrInvalidPageSize)
}

func TestEmployee_AnonymizeFormerEmployees(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	c := f.client(t, "1010")
	loc := f.location(t, c.ID)

	for i := 0; i < 3; i++ {
		f.employee(t, lifecycle.EmployeePatch{
			FirstName:  str(fmt.Sprintf("Former%d", i)),
			LastName:   str("Employee"),
			Email:      str(fmt.Sprintf("former%d@example.com", i)),
			EntryDate:  day(-400),
			ExitDate:   day(-100),
			ClientID:   str(c.ID),
			LocationID: str(loc.ID),
		})
	}
	stay := f.employee(t, lifecycle.EmployeePatch{
		FirstName:  str("Recent"),
		LastName:   str("Leaver"),
		EntryDate:  day(-400),
		ExitDate:   day(-1),
		ClientID:   str(c.ID),
		LocationID: str(loc.ID),
	})

	_, err := f.svc.AnonymizeFormerEmployees(adminCtx(), AnonymizeFormerEmployeesInput{})
	require.ErrorIs(t, err, employee.ErrInvalidAnonymizationDate)

	count, err := f.svc.AnonymizeFormerEmployees(adminCtx(), AnonymizeFormerEmployeesInput{Before: *day(-30)})
	require.NoError(t, err)
	require.Equal(t, 3, count)

	again, err := f.svc.AnonymizeFormerEmployees(adminCtx(), AnonymizeFormerEmployeesInput{Before: *day(-30)})
	require.NoError(t, err)
	require.Zero(t, again)

	require.Equal(t, "Recent", f.reloadEmployee(t, stay.ID).FirstName)

	list, err := f.svc.ListEmployees(adminCtx(), ListEmployeesInput{ClientID: c.ID})
	require.NoError(t, err)
	anonymized := 0
	for _, e := range list.Employees {
		if e.AnonymizedAt != nil {
			anonymized++
			require.Equal(t, "Anonymized", e.FirstName)
			require.Nil(t, e.Email)
		}
	}
	require.Equal(t, 3, anonymized)

	_, err = f.svc.AnonymizeFormerEmployees(userCtx("HRViewer", "1010"), AnonymizeFormerEmployeesInput{Before: *day(0)})
	require.ErrorIs(t, err, authz.ErrForbiddenRole)
}
