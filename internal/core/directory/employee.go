package directory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ogurasousui/org-directory/internal/core/authz"
	"github.com/ogurasousui/org-directory/internal/core/employee"
	"github.com/ogurasousui/org-directory/internal/core/identifier"
	"github.com/ogurasousui/org-directory/internal/core/integrity"
	"github.com/ogurasousui/org-directory/internal/core/lifecycle"
	"go.uber.org/zap"
)

// EmployeeUseCase は社員ユースケースの公開インターフェースです。
type EmployeeUseCase interface {
	CreateEmployee(ctx context.Context, in CreateEmployeeInput) (*employee.Employee, error)
	GetEmployee(ctx context.Context, in GetEmployeeInput) (*employee.Employee, error)
	ListEmployees(ctx context.Context, in ListEmployeesInput) (*ListEmployeesResult, error)
	UpdateEmployee(ctx context.Context, in UpdateEmployeeInput) (*employee.Employee, error)
	DeleteEmployee(ctx context.Context, in DeleteEmployeeInput) error
	AnonymizeFormerEmployees(ctx context.Context, in AnonymizeFormerEmployeesInput) (int, error)
}

var _ EmployeeUseCase = (*Service)(nil)

// CreateEmployeeInput は社員作成時の入力です。ClientID 未指定時は CostCenterID から取引先を推定します。
type CreateEmployeeInput struct {
	lifecycle.EmployeePatch
}

// UpdateEmployeeInput は社員更新時の入力です。
type UpdateEmployeeInput struct {
	ID              string
	ExpectedVersion *time.Time
	lifecycle.EmployeePatch
}

// DeleteEmployeeInput は社員削除時の入力です。
type DeleteEmployeeInput struct {
	ID string
}

// GetEmployeeInput は社員取得時の入力です。
type GetEmployeeInput struct {
	ID string
}

// ListEmployeesInput は一覧取得時の入力です。
type ListEmployeesInput struct {
	ClientID  string
	Status    *employee.Status
	PageSize  int
	PageToken string
}

// ListEmployeesResult は一覧取得結果を表します。
type ListEmployeesResult struct {
	Employees     []*employee.Employee
	NextPageToken string
}

// CreateEmployee は社員を作成します。
// 生成した社員番号が挿入時に一意制約へ衝突した場合に限り、トランザクション全体を再試行します。
func (s *Service) CreateEmployee(ctx context.Context, in CreateEmployeeInput) (*employee.Employee, error) {
	var created *employee.Employee
	if err := s.withScope(ctx, "CreateEmployee", func(ctx context.Context, scope *authz.Scope) error {
		alloc := identifier.Allocation{Generated: in.GeneratesEmployeeID()}
		for attempt := 1; attempt <= identifier.MaxAttempts; attempt++ {
			err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
				result, err := s.createEmployee(txCtx, scope, in.EmployeePatch)
				if err != nil {
					return err
				}
				created = result
				return nil
			})
			if err == nil {
				return nil
			}
			if !identifier.IsRetryable(alloc, err) {
				return err
			}
			identifier.RecordRetry()
			s.logger.Warn("generated employee id collided on insert, retrying",
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
		}
		return identifier.ErrExhausted
	}); err != nil {
		return nil, err
	}

	return created, nil
}

func (s *Service) createEmployee(ctx context.Context, scope *authz.Scope, patch lifecycle.EmployeePatch) (*employee.Employee, error) {
	clientID := trimmed(patch.ClientID)
	if clientID == "" {
		if costCenterID := trimmed(patch.CostCenterID); costCenterID != "" {
			inferred, err := scope.ClientOfCostCenter(ctx, costCenterID)
			if err != nil {
				return nil, err
			}
			clientID = inferred
			patch.ClientID = &inferred
		}
	}

	if clientID == "" {
		return nil, employee.ErrInvalidClientID
	}

	if err := scope.Check(ctx, authz.ClientTarget(clientID)); err != nil {
		return nil, err
	}
	if err := s.authorizeRole(scope, authz.EntityEmployee, authz.ActionCreate); err != nil {
		return nil, err
	}

	if err := s.integrity.Check(ctx, clientID,
		integrity.Ref{Kind: integrity.KindClient, ID: clientID},
		integrity.RefPtr(integrity.KindManager, patch.ManagerID),
		integrity.RefPtr(integrity.KindCostCenter, patch.CostCenterID),
		integrity.RefPtr(integrity.KindLocation, patch.LocationID),
	); err != nil {
		return nil, err
	}

	rec, err := s.validators.Employee(ctx, lifecycle.EmployeeChange{
		Event:     lifecycle.EventCreate,
		Incoming:  patch,
		Principal: scope.Principal(),
	})
	if err != nil {
		return nil, err
	}

	now := s.now()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	return s.repos.Employees.Create(ctx, rec)
}

// UpdateEmployee は社員を更新します。
func (s *Service) UpdateEmployee(ctx context.Context, in UpdateEmployeeInput) (*employee.Employee, error) {
	if strings.TrimSpace(in.ID) == "" {
		return nil, fmt.Errorf("id: %w", employee.ErrInvalidID)
	}

	var updated *employee.Employee
	if err := s.mutation(ctx, "UpdateEmployee", func(ctx context.Context, scope *authz.Scope) error {
		existing, err := s.repos.Employees.FindByID(ctx, in.ID)
		if err != nil {
			return err
		}
		if err := scope.Check(ctx, authz.ClientTarget(existing.ClientID)); err != nil {
			return err
		}
		if err := s.authorizeRole(scope, authz.EntityEmployee, authz.ActionUpdate); err != nil {
			return err
		}
		if err := s.guard.CheckRequest(ctx, authz.EntityEmployee, existing.ID, in.ExpectedVersion); err != nil {
			return err
		}
		if err := s.integrity.Check(ctx, existing.ClientID,
			integrity.RefPtr(integrity.KindManager, in.ManagerID),
			integrity.RefPtr(integrity.KindCostCenter, in.CostCenterID),
			integrity.RefPtr(integrity.KindLocation, in.LocationID),
		); err != nil {
			return err
		}

		rec, err := s.validators.Employee(ctx, lifecycle.EmployeeChange{
			Event:     lifecycle.EventUpdate,
			Incoming:  in.EmployeePatch,
			Existing:  existing,
			Principal: scope.Principal(),
		})
		if err != nil {
			return err
		}
		rec.UpdatedAt = s.now()

		result, err := s.repos.Employees.Update(ctx, rec)
		if err != nil {
			return err
		}
		updated = result
		return nil
	}); err != nil {
		return nil, err
	}

	return updated, nil
}

// DeleteEmployee は社員を削除します。原価センタの責任者や他の社員の上長である間は削除できません。
func (s *Service) DeleteEmployee(ctx context.Context, in DeleteEmployeeInput) error {
	if strings.TrimSpace(in.ID) == "" {
		return fmt.Errorf("id: %w", employee.ErrInvalidID)
	}

	return s.mutation(ctx, "DeleteEmployee", func(ctx context.Context, scope *authz.Scope) error {
		existing, err := s.repos.Employees.FindByID(ctx, in.ID)
		if err != nil {
			return err
		}
		if err := scope.Check(ctx, authz.ClientTarget(existing.ClientID)); err != nil {
			return err
		}
		if err := s.authorizeRole(scope, authz.EntityEmployee, authz.ActionDelete); err != nil {
			return err
		}

		if err := s.ensureUnreferenced(ctx, existing.ID); err != nil {
			return err
		}

		assignments, err := s.repos.Assignments.ListByEmployee(ctx, existing.ID)
		if err != nil {
			return err
		}
		for _, a := range assignments {
			if err := s.repos.Assignments.Delete(ctx, a.ID); err != nil {
				return err
			}
			if err := s.cascade.AfterDelete(ctx, a); err != nil {
				return err
			}
		}

		// 割当削除のカスケードが本人の別の責任者割当を昇格させることがあるため再確認する。
		if err := s.ensureUnreferenced(ctx, existing.ID); err != nil {
			return err
		}

		return s.repos.Employees.Delete(ctx, existing.ID)
	})
}

// ensureUnreferenced は社員が原価センタの責任者や他の社員の上長として参照されていないことを確認します。
func (s *Service) ensureUnreferenced(ctx context.Context, employeeID string) error {
	responsible, err := s.repos.CostCenters.CountByResponsible(ctx, employeeID)
	if err != nil {
		return err
	}
	if responsible > 0 {
		return employee.ErrEmployeeInUse
	}
	reports, err := s.repos.Employees.CountByManager(ctx, employeeID)
	if err != nil {
		return err
	}
	if reports > 0 {
		return employee.ErrEmployeeHasReports
	}
	return nil
}

// GetEmployee は社員を取得します。
func (s *Service) GetEmployee(ctx context.Context, in GetEmployeeInput) (*employee.Employee, error) {
	if strings.TrimSpace(in.ID) == "" {
		return nil, fmt.Errorf("id: %w", employee.ErrInvalidID)
	}

	var result *employee.Employee
	if err := s.query(ctx, "GetEmployee", authz.EntityEmployee, func(ctx context.Context, filter authz.Filter) error {
		found, err := s.repos.Employees.FindByID(ctx, in.ID)
		if err != nil {
			return err
		}
		if err := s.visible(ctx, filter, found.ClientID, employee.ErrEmployeeNotFound); err != nil {
			return err
		}
		result = found
		return nil
	}); err != nil {
		return nil, err
	}

	return result, nil
}

// ListEmployees は社員の一覧を取得します。
func (s *Service) ListEmployees(ctx context.Context, in ListEmployeesInput) (*ListEmployeesResult, error) {
	limit, offset, err := pagination(in.PageSize, in.PageToken)
	if err != nil {
		return nil, err
	}

	var statusPtr *employee.Status
	if in.Status != nil {
		status := employee.Status(strings.ToLower(strings.TrimSpace(string(*in.Status))))
		if !employee.IsValidStatus(status) {
			return nil, employee.ErrInvalidStatus
		}
		statusPtr = &status
	}

	var (
		employees []*employee.Employee
		nextToken string
	)
	if err := s.query(ctx, "ListEmployees", authz.EntityEmployee, func(ctx context.Context, filter authz.Filter) error {
		found, token, err := s.repos.Employees.List(ctx, employee.ListEmployeesFilter{
			ClientID:          strings.TrimSpace(in.ClientID),
			Status:            statusPtr,
			CompanyIDs:        filter.CompanyIDs,
			RestrictCompanies: filter.Restrict,
			Limit:             limit,
			Offset:            offset,
		})
		if err != nil {
			return err
		}
		employees = found
		nextToken = token
		return nil
	}); err != nil {
		return nil, err
	}

	return &ListEmployeesResult{Employees: employees, NextPageToken: nextToken}, nil
}

// AnonymizeFormerEmployeesInput は匿名化処理の入力です。
type AnonymizeFormerEmployeesInput struct {
	Before time.Time
}

const (
	anonymizedFirstName = "Anonymized"
	anonymizedLastName  = "Employee"
)

// AnonymizeFormerEmployees は退職日が Before より前の未匿名化社員の個人情報を消去し、処理件数を返します。
// 対象は操作主体の会社スコープ内に限られ、バッチごとに別トランザクションで処理します。
func (s *Service) AnonymizeFormerEmployees(ctx context.Context, in AnonymizeFormerEmployeesInput) (int, error) {
	if in.Before.IsZero() {
		return 0, employee.ErrInvalidAnonymizationDate
	}
	before := lifecycle.NormalizeDate(in.Before)

	total := 0
	err := s.withScope(ctx, "AnonymizeFormerEmployees", func(ctx context.Context, scope *authz.Scope) error {
		if err := s.authorizeRole(scope, authz.EntityEmployee, authz.ActionAnonymize); err != nil {
			return err
		}

		companies := scope.Companies()
		filter := employee.AnonymizeFilter{
			Before:            before,
			CompanyIDs:        companies.Codes(),
			RestrictCompanies: !companies.All(),
			Limit:             s.batchSize,
		}

		for {
			processed := 0
			if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
				batch, err := s.repos.Employees.ListAnonymizable(txCtx, filter)
				if err != nil {
					return err
				}
				now := s.now()
				for _, e := range batch {
					e.FirstName = anonymizedFirstName
					e.LastName = anonymizedLastName
					e.Email = nil
					e.AnonymizedAt = &now
					e.UpdatedAt = now
					if _, err := s.repos.Employees.Update(txCtx, e); err != nil {
						return err
					}
				}
				processed = len(batch)
				return nil
			}); err != nil {
				return err
			}

			total += processed
			if processed < s.batchSize {
				break
			}
		}

		s.logger.Info("former employees anonymized",
			zap.Time("before", before),
			zap.Int("count", total),
		)
		return nil
	})
	return total, err
}

func trimmed(v *string) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(*v)
}
