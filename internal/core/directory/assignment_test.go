package directory

import (
	"testing"

	"github.com/ogurasousui/org-directory/internal/core/assignment"
	"github.com/ogurasousui/org-directory/internal/core/lifecycle"
	"github.com/stretchr/testify/require"
)

func TestDirectory_EndToEndResponsibleScenario(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	c := f.client(t, "COMP-001")
	loc := f.location(t, c.ID)

	e1 := f.manager(t, c.ID, loc.ID, "E1")
	require.Nil(t, e1.CostCenterID)
	require.Equal(t, "COMP-001-0001", e1.EmployeeID)

	cc1 := f.costCenter(t, c.ID, "cc1", e1.ID)
	require.Equal(t, "CC1", cc1.Code)

	e2 := f.employee(t, lifecycle.EmployeePatch{
		FirstName:    str("E2"),
		LastName:     str("Member"),
		EntryDate:    day(-10),
		ClientID:     str(c.ID),
		CostCenterID: str(cc1.ID),
		LocationID:   str(loc.ID),
	})
	require.NotNil(t, e2.ManagerID)
	require.Equal(t, e1.ID, *e2.ManagerID)
	require.Equal(t, "COMP-001-0002", e2.EmployeeID)

	f.assign(t, c.ID, e1.ID, cc1.ID, 0, true)

	require.Equal(t, e1.ID, f.reloadCostCenter(t, cc1.ID).ResponsibleID)
	require.Equal(t, e1.ID, *f.reloadEmployee(t, e2.ID).ManagerID)
}

func TestCascade_PromotesMostRecentlyStartedResponsible(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	c := f.client(t, "1010")
	loc := f.location(t, c.ID)

	e1 := f.manager(t, c.ID, loc.ID, "E1")
	e3 := f.manager(t, c.ID, loc.ID, "E3")
	e4 := f.manager(t, c.ID, loc.ID, "E4")
	cc := f.costCenter(t, c.ID, "OPS", e1.ID)

	member := f.employee(t, lifecycle.EmployeePatch{
		FirstName:  str("Member"),
		LastName:   str("One"),
		EntryDate:  day(-60),
		ClientID:   str(c.ID),
		LocationID: str(loc.ID),
	})
	f.assign(t, c.ID, member.ID, cc.ID, -30, false)

	a4 := f.assign(t, c.ID, e4.ID, cc.ID, -20, true)
	require.Equal(t, e4.ID, f.reloadCostCenter(t, cc.ID).ResponsibleID)
	require.Equal(t, e4.ID, *f.reloadEmployee(t, member.ID).ManagerID)

	a1 := f.assign(t, c.ID, e1.ID, cc.ID, -10, true)
	a3 := f.assign(t, c.ID, e3.ID, cc.ID, -5, true)
	require.Equal(t, e3.ID, f.reloadCostCenter(t, cc.ID).ResponsibleID)
	require.Equal(t, e3.ID, *f.reloadEmployee(t, member.ID).ManagerID)

	require.NoError(t, f.svc.DeleteAssignment(adminCtx(), DeleteAssignmentInput{ID: a3.ID}))
	require.Equal(t, e1.ID, f.reloadCostCenter(t, cc.ID).ResponsibleID, "latest validFrom among remaining wins")
	require.Equal(t, e1.ID, *f.reloadEmployee(t, member.ID).ManagerID)

	require.NoError(t, f.svc.DeleteAssignment(adminCtx(), DeleteAssignmentInput{ID: a1.ID}))
	require.Equal(t, e4.ID, f.reloadCostCenter(t, cc.ID).ResponsibleID)

	require.NoError(t, f.svc.DeleteAssignment(adminCtx(), DeleteAssignmentInput{ID: a4.ID}))
	require.Equal(t, e4.ID, f.reloadCostCenter(t, cc.ID).ResponsibleID, "responsible is kept without a successor")
}

func TestCascade_UnsetResponsibleFlagPromotesSuccessor(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	c := f.client(t, "1010")
	loc := f.location(t, c.ID)
	e1 := f.manager(t, c.ID, loc.ID, "E1")
	e2 := f.manager(t, c.ID, loc.ID, "E2")
	cc := f.costCenter(t, c.ID, "OPS", e1.ID)

	f.assign(t, c.ID, e1.ID, cc.ID, -20, true)
	a2 := f.assign(t, c.ID, e2.ID, cc.ID, -10, true)
	require.Equal(t, e2.ID, f.reloadCostCenter(t, cc.ID).ResponsibleID)

	_, err := f.svc.UpdateAssignment(adminCtx(), UpdateAssignmentInput{
		ID:              a2.ID,
		ExpectedVersion: &a2.UpdatedAt,
		AssignmentPatch: lifecycle.AssignmentPatch{IsResponsible: boolPtr(false)},
	})
	require.NoError(t, err)
	require.Equal(t, e1.ID, f.reloadCostCenter(t, cc.ID).ResponsibleID)
}

func TestCascade_FutureResponsibleIsDormant(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	c := f.client(t, "1010")
	loc := f.location(t, c.ID)
	e1 := f.manager(t, c.ID, loc.ID, "E1")
	e2 := f.manager(t, c.ID, loc.ID, "E2")
	cc := f.costCenter(t, c.ID, "OPS", e1.ID)

	f.assign(t, c.ID, e2.ID, cc.ID, 10, true)
	require.Equal(t, e1.ID, f.reloadCostCenter(t, cc.ID).ResponsibleID)
}

func TestAssignment_NonManagerOverlapRejected(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	c := f.client(t, "1010")
	loc := f.location(t, c.ID)
	boss := f.manager(t, c.ID, loc.ID, "Boss")
	cc1 := f.costCenter(t, c.ID, "A", boss.ID)
	cc2 := f.costCenter(t, c.ID, "B", boss.ID)

	worker := f.employee(t, lifecycle.EmployeePatch{
		FirstName:  str("Worker"),
		LastName:   str("Bee"),
		EntryDate:  day(-60),
		ClientID:   str(c.ID),
		LocationID: str(loc.ID),
	})
	first, err := f.svc.CreateAssignment(adminCtx(), CreateAssignmentInput{AssignmentPatch: lifecycle.AssignmentPatch{
		EmployeeID:   str(worker.ID),
		CostCenterID: str(cc1.ID),
		ClientID:     str(c.ID),
		ValidFrom:    day(-30),
		ValidTo:      day(-1),
	}})
	require.NoError(t, err)

	_, err = f.svc.CreateAssignment(adminCtx(), CreateAssignmentInput{AssignmentPatch: lifecycle.AssignmentPatch{
		EmployeeID:   str(worker.ID),
		CostCenterID: str(cc2.ID),
		ClientID:     str(c.ID),
		ValidFrom:    day(-1),
	}})
	require.ErrorIs(t, err, assignment.ErrOverlappingAssignment)

	_, err = f.svc.CreateAssignment(adminCtx(), CreateAssignmentInput{AssignmentPatch: lifecycle.AssignmentPatch{
		EmployeeID:   str(worker.ID),
		CostCenterID: str(cc2.ID),
		ClientID:     str(c.ID),
		ValidFrom:    day(0),
	}})
	require.NoError(t, err)

	// 自分自身との重なりは更新時に無視される。
	_, err = f.svc.UpdateAssignment(adminCtx(), UpdateAssignmentInput{
		ID:              first.ID,
		ExpectedVersion: &first.UpdatedAt,
		AssignmentPatch: lifecycle.AssignmentPatch{ValidFrom: day(-40)},
	})
	require.NoError(t, err)

	// マネージャーは重複が許可される。
	f.assign(t, c.ID, boss.ID, cc1.ID, -30, false)
	f.assign(t, c.ID, boss.ID, cc2.ID, -30, false)
}

func TestAssignment_Rules(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	c := f.client(t, "1010")
	loc := f.location(t, c.ID)
	boss := f.manager(t, c.ID, loc.ID, "Boss")
	cc := f.costCenter(t, c.ID, "A", boss.ID)
	worker := f.employee(t, lifecycle.EmployeePatch{
		FirstName:  str("Worker"),
		LastName:   str("Bee"),
		EntryDate:  day(-60),
		ClientID:   str(c.ID),
		LocationID: str(loc.ID),
	})

	cases := []struct {
		name  string
		patch lifecycle.AssignmentPatch
		want  error
	}{
		{
			name:  "responsible requires manager",
			patch: lifecycle.AssignmentPatch{EmployeeID: str(worker.ID), ValidFrom: day(0), IsResponsible: boolPtr(true)},
			want:  assignment.ErrResponsibleNotManager,
		},
		{
			name:  "starts before cost center",
			patch: lifecycle.AssignmentPatch{EmployeeID: str(worker.ID), ValidFrom: day(-400)},
			want:  assignment.ErrStartsBeforeCostCenter,
		},
		{
			name:  "end before start",
			patch: lifecycle.AssignmentPatch{EmployeeID: str(worker.ID), ValidFrom: day(0), ValidTo: day(-1)},
			want:  assignment.ErrInvalidDateRange,
		},
		{
			name:  "valid from required",
			patch: lifecycle.AssignmentPatch{EmployeeID: str(worker.ID)},
			want:  assignment.ErrInvalidValidFrom,
		},
	}
	for _, tc := range cases {
		tc.patch.CostCenterID = str(cc.ID)
		tc.patch.ClientID = str(c.ID)
		_, err := f.svc.CreateAssignment(adminCtx(), CreateAssignmentInput{AssignmentPatch: tc.patch})
		require.ErrorIs(t, err, tc.want, tc.name)
	}
}

func TestAssignment_CostCenterWindow(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	c := f.client(t, "1010")
	loc := f.location(t, c.ID)
	boss := f.manager(t, c.ID, loc.ID, "Boss")

	cc, err := f.svc.CreateCostCenter(adminCtx(), CreateCostCenterInput{CostCenterPatch: lifecycle.CostCenterPatch{
		Code:          str("TMP"),
		Name:          str("Temporary"),
		ClientID:      str(c.ID),
		ResponsibleID: str(boss.ID),
		ValidFrom:     day(-10),
		ValidTo:       day(10),
	}})
	require.NoError(t, err)

	patch := lifecycle.AssignmentPatch{
		EmployeeID:   str(boss.ID),
		CostCenterID: str(cc.ID),
		ClientID:     str(c.ID),
		ValidFrom:    day(0),
	}
	_, err = f.svc.CreateAssignment(adminCtx(), CreateAssignmentInput{AssignmentPatch: patch})
	require.ErrorIs(t, err, assignment.ErrEndRequired)

	patch.ValidTo = day(11)
	_, err = f.svc.CreateAssignment(adminCtx(), CreateAssignmentInput{AssignmentPatch: patch})
	require.ErrorIs(t, err, assignment.ErrEndsAfterCostCenter)

	patch.ValidTo = day(10)
	_, err = f.svc.CreateAssignment(adminCtx(), CreateAssignmentInput{AssignmentPatch: patch})
	require.NoError(t, err)
}

func TestAssignment_ReferencesImmutable(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	c := f.client(t, "1010")
	loc := f.location(t, c.ID)
	boss := f.manager(t, c.ID, loc.ID, "Boss")
	other := f.manager(t, c.ID, loc.ID, "Other")
	cc := f.costCenter(t, c.ID, "A", boss.ID)
	a := f.assign(t, c.ID, boss.ID, cc.ID, -1, false)

	_, err := f.svc.UpdateAssignment(adminCtx(), UpdateAssignmentInput{
		ID:              a.ID,
		ExpectedVersion: &a.UpdatedAt,
		AssignmentPatch: lifecycle.AssignmentPatch{EmployeeID: str(other.ID)},
	})
	require.ErrorIs(t, err, assignment.ErrReferenceImmutable)
}
