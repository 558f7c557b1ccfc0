package lifecycle

import (
	"context"
	"strings"
	"time"

	"github.com/ogurasousui/org-directory/internal/core/assignment"
	"github.com/ogurasousui/org-directory/internal/core/reqctx"
)

// AssignmentPatch は割当の入力項目です。
type AssignmentPatch struct {
	EmployeeID    *string
	CostCenterID  *string
	ClientID      *string
	ValidFrom     *time.Time
	ValidTo       *time.Time
	ValidToSet    bool
	IsResponsible *bool
}

// AssignmentChange は割当検証の入力です。
type AssignmentChange struct {
	Event     Event
	Incoming  AssignmentPatch
	Existing  *assignment.Assignment
	Principal *reqctx.Principal
}

// Assignment は割当の入力を正規化・検証し、保存すべきレコードを返します。
func (v *Validators) Assignment(ctx context.Context, c AssignmentChange) (*assignment.Assignment, error) {
	in := c.Incoming
	var (
		rec *assignment.Assignment
		err error
	)

	if c.Event == EventCreate {
		rec = &assignment.Assignment{}
		if rec.EmployeeID, err = requiredText(in.EmployeeID, assignment.ErrInvalidEmployeeID); err != nil {
			return nil, err
		}
		if rec.CostCenterID, err = requiredText(in.CostCenterID, assignment.ErrInvalidCostCenterID); err != nil {
			return nil, err
		}
		if rec.ClientID, err = requiredText(in.ClientID, assignment.ErrInvalidClientID); err != nil {
			return nil, err
		}
		if rec.ValidFrom, err = requiredDate(in.ValidFrom, assignment.ErrInvalidValidFrom); err != nil {
			return nil, err
		}
		rec.ValidTo = normalizeDatePtr(in.ValidTo)
	} else {
		if c.Existing == nil {
			return nil, assignment.ErrAssignmentNotFound
		}
		copied := *c.Existing
		copied.ValidTo = cloneTimePtr(c.Existing.ValidTo)
		rec = &copied

		if changed(in.EmployeeID, rec.EmployeeID) || changed(in.CostCenterID, rec.CostCenterID) || changed(in.ClientID, rec.ClientID) {
			return nil, assignment.ErrReferenceImmutable
		}
		if in.ValidFrom != nil {
			if rec.ValidFrom, err = requiredDate(in.ValidFrom, assignment.ErrInvalidValidFrom); err != nil {
				return nil, err
			}
		}
		if in.ValidToSet || in.ValidTo != nil {
			rec.ValidTo = normalizeDatePtr(in.ValidTo)
		}
	}
	if in.IsResponsible != nil {
		rec.IsResponsible = *in.IsResponsible
	}

	if err := checkRange(rec.ValidFrom, rec.ValidTo, assignment.ErrInvalidDateRange); err != nil {
		return nil, err
	}

	center, err := v.CostCenters.FindByID(ctx, rec.CostCenterID)
	if err != nil {
		return nil, err
	}
	if rec.ValidFrom.Before(center.ValidFrom) {
		return nil, assignment.ErrStartsBeforeCostCenter
	}
	if center.ValidTo != nil {
		if rec.ValidTo == nil {
			return nil, assignment.ErrEndRequired
		}
		if rec.ValidTo.After(*center.ValidTo) {
			return nil, assignment.ErrEndsAfterCostCenter
		}
	}

	emp, err := v.Employees.FindByID(ctx, rec.EmployeeID)
	if err != nil {
		return nil, err
	}
	if rec.IsResponsible && !emp.IsManager {
		return nil, assignment.ErrResponsibleNotManager
	}

	if !emp.IsManager {
		others, err := v.Assignments.ListByEmployee(ctx, rec.EmployeeID)
		if err != nil {
			return nil, err
		}
		for _, other := range others {
			if other.ID == rec.ID {
				continue
			}
			if Overlaps(rec.ValidFrom, rec.ValidTo, other.ValidFrom, other.ValidTo) {
				return nil, assignment.ErrOverlappingAssignment
			}
		}
	}

	return rec, nil
}

func changed(incoming *string, current string) bool {
	return incoming != nil && strings.TrimSpace(*incoming) != current
}
