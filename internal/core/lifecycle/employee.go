package lifecycle

import (
	"context"
	"strings"
	"time"

	"github.com/ogurasousui/org-directory/internal/core/employee"
	"github.com/ogurasousui/org-directory/internal/core/identifier"
	"github.com/ogurasousui/org-directory/internal/core/reqctx"
)

// EmployeePatch は社員の入力項目です。XxxSet が true で値が nil の場合はクリアを表します。
type EmployeePatch struct {
	EmployeeID        *string
	EmployeeIDSet     bool
	FirstName         *string
	LastName          *string
	Email             *string
	EmailSet          bool
	EntryDate         *time.Time
	ExitDate          *time.Time
	ExitDateSet       bool
	Status            *employee.Status
	EmploymentType    *string
	EmploymentTypeSet bool
	IsManager         *bool
	ClientID          *string
	ManagerID         *string
	ManagerIDSet      bool
	CostCenterID      *string
	CostCenterIDSet   bool
	LocationID        *string
}

// GeneratesEmployeeID は作成時に社員番号をカウンタから生成するかを返します。
func (p EmployeePatch) GeneratesEmployeeID() bool {
	return p.EmployeeID == nil || strings.TrimSpace(*p.EmployeeID) == ""
}

func (p EmployeePatch) managerSupplied() bool {
	return p.ManagerIDSet || p.ManagerID != nil
}

func (p EmployeePatch) costCenterSupplied() bool {
	return p.CostCenterIDSet || p.CostCenterID != nil
}

// EmployeeChange は社員検証の入力です。
type EmployeeChange struct {
	Event     Event
	Incoming  EmployeePatch
	Existing  *employee.Employee
	Principal *reqctx.Principal
}

// Employee は社員の入力を正規化・検証し、保存すべきレコードを返します。
// 作成時は最後に社員番号を確定するため、呼び出しはトランザクション内で行います。
func (v *Validators) Employee(ctx context.Context, c EmployeeChange) (*employee.Employee, error) {
	if c.Event == EventCreate {
		return v.createEmployee(ctx, c.Incoming)
	}
	if c.Existing == nil {
		return nil, employee.ErrEmployeeNotFound
	}
	return v.updateEmployee(ctx, c.Incoming, c.Existing)
}

func (v *Validators) createEmployee(ctx context.Context, in EmployeePatch) (*employee.Employee, error) {
	rec := &employee.Employee{}

	clientID, err := requiredText(in.ClientID, employee.ErrInvalidClientID)
	if err != nil {
		return nil, err
	}
	rec.ClientID = clientID

	if rec.FirstName, err = requiredText(in.FirstName, employee.ErrInvalidFirstName); err != nil {
		return nil, err
	}
	if rec.LastName, err = requiredText(in.LastName, employee.ErrInvalidLastName); err != nil {
		return nil, err
	}
	if rec.Email, err = normalizeEmail(in.Email); err != nil {
		return nil, err
	}

	if rec.EntryDate, err = requiredDate(in.EntryDate, employee.ErrInvalidEntryDate); err != nil {
		return nil, err
	}
	rec.ExitDate = normalizeDatePtr(in.ExitDate)
	if err := checkRange(rec.EntryDate, rec.ExitDate, employee.ErrInvalidDateRange); err != nil {
		return nil, err
	}
	if rec.Status, err = resolveStatus(in.Status, rec.ExitDate); err != nil {
		return nil, err
	}

	rec.EmploymentType = optionalText(in.EmploymentType)
	if in.IsManager != nil {
		rec.IsManager = *in.IsManager
	}

	if rec.LocationID, err = requiredText(in.LocationID, employee.ErrLocationRequired); err != nil {
		return nil, err
	}

	manager := optionalText(in.ManagerID)
	costCenterID := optionalText(in.CostCenterID)

	// 作成時のみ、上長の原価センタを1段階だけ引き継ぐ。
	if costCenterID == nil && manager != nil {
		m, err := v.Employees.FindByID(ctx, *manager)
		if err != nil {
			return nil, err
		}
		costCenterID = cloneStringPtr(m.CostCenterID)
	}

	if costCenterID != nil {
		center, err := v.CostCenters.FindByID(ctx, *costCenterID)
		if err != nil {
			return nil, err
		}
		if responsible := center.ResponsibleID; responsible != "" {
			if manager == nil {
				manager = &responsible
			} else if *manager != responsible {
				return nil, employee.ErrManagerMismatch
			}
		}
	}
	rec.ManagerID = manager
	rec.CostCenterID = costCenterID

	c, err := v.Clients.FindByID(ctx, clientID)
	if err != nil {
		return nil, err
	}
	alloc, err := v.Identifiers.Ensure(ctx, clientID, c.CompanyID, in.EmployeeID)
	if err != nil {
		return nil, err
	}
	rec.EmployeeID = alloc.ID

	return rec, nil
}

func (v *Validators) updateEmployee(ctx context.Context, in EmployeePatch, existing *employee.Employee) (*employee.Employee, error) {
	rec := cloneEmployee(existing)

	if in.ClientID != nil && strings.TrimSpace(*in.ClientID) != existing.ClientID {
		return nil, employee.ErrClientImmutable
	}
	if in.EmployeeID == nil && in.EmployeeIDSet {
		return nil, employee.ErrEmployeeIDImmutable
	}
	if in.EmployeeID != nil && identifier.Normalize(*in.EmployeeID) != existing.EmployeeID {
		return nil, employee.ErrEmployeeIDImmutable
	}

	var err error
	if in.FirstName != nil {
		if rec.FirstName, err = requiredText(in.FirstName, employee.ErrInvalidFirstName); err != nil {
			return nil, err
		}
	}
	if in.LastName != nil {
		if rec.LastName, err = requiredText(in.LastName, employee.ErrInvalidLastName); err != nil {
			return nil, err
		}
	}
	if in.EmailSet || in.Email != nil {
		if rec.Email, err = normalizeEmail(in.Email); err != nil {
			return nil, err
		}
	}

	if in.EntryDate != nil {
		if rec.EntryDate, err = requiredDate(in.EntryDate, employee.ErrInvalidEntryDate); err != nil {
			return nil, err
		}
	}
	if in.ExitDateSet || in.ExitDate != nil {
		rec.ExitDate = normalizeDatePtr(in.ExitDate)
	}
	if err := checkRange(rec.EntryDate, rec.ExitDate, employee.ErrInvalidDateRange); err != nil {
		return nil, err
	}
	if rec.Status, err = resolveStatus(in.Status, rec.ExitDate); err != nil {
		return nil, err
	}

	if in.EmploymentTypeSet || in.EmploymentType != nil {
		rec.EmploymentType = optionalText(in.EmploymentType)
	}

	if in.IsManager != nil {
		if existing.IsManager && !*in.IsManager {
			n, err := v.CostCenters.CountByResponsible(ctx, existing.ID)
			if err != nil {
				return nil, err
			}
			if n > 0 {
				return nil, employee.ErrStillResponsible
			}
		}
		rec.IsManager = *in.IsManager
	}

	if in.LocationID != nil {
		if rec.LocationID, err = requiredText(in.LocationID, employee.ErrLocationRequired); err != nil {
			return nil, err
		}
	}

	if in.managerSupplied() {
		rec.ManagerID = optionalText(in.ManagerID)
	}
	if rec.ManagerID != nil && *rec.ManagerID == existing.ID {
		return nil, employee.ErrSelfManagement
	}

	if in.costCenterSupplied() {
		rec.CostCenterID = optionalText(in.CostCenterID)
	}

	// 原価センタが付け替えられた場合のみ責任者との整合を確認する。上長変更で原価センタは変えない。
	if !sameID(rec.CostCenterID, existing.CostCenterID) && rec.CostCenterID != nil {
		center, err := v.CostCenters.FindByID(ctx, *rec.CostCenterID)
		if err != nil {
			return nil, err
		}
		responsible := center.ResponsibleID
		if responsible != "" && responsible != existing.ID {
			if !in.managerSupplied() {
				rec.ManagerID = &responsible
			} else if rec.ManagerID == nil || *rec.ManagerID != responsible {
				return nil, employee.ErrManagerMismatch
			}
		}
	}

	return rec, nil
}

func resolveStatus(explicit *employee.Status, exitDate *time.Time) (employee.Status, error) {
	derived := employee.StatusActive
	if exitDate != nil {
		derived = employee.StatusInactive
	}
	if explicit == nil {
		return derived, nil
	}

	status := employee.Status(strings.ToLower(strings.TrimSpace(string(*explicit))))
	if !employee.IsValidStatus(status) {
		return "", employee.ErrInvalidStatus
	}
	if status != derived {
		return "", employee.ErrStatusExitDateMismatch
	}
	return status, nil
}

func normalizeEmail(raw *string) (*string, error) {
	if raw == nil {
		return nil, nil
	}
	email := strings.ToLower(strings.TrimSpace(*raw))
	if email == "" {
		return nil, nil
	}
	if err := validate.Var(email, "email"); err != nil {
		return nil, employee.ErrInvalidEmail
	}
	return &email, nil
}

func cloneEmployee(e *employee.Employee) *employee.Employee {
	c := *e
	c.Email = cloneStringPtr(e.Email)
	c.ExitDate = cloneTimePtr(e.ExitDate)
	c.EmploymentType = cloneStringPtr(e.EmploymentType)
	c.ManagerID = cloneStringPtr(e.ManagerID)
	c.CostCenterID = cloneStringPtr(e.CostCenterID)
	c.AnonymizedAt = cloneTimePtr(e.AnonymizedAt)
	return &c
}
