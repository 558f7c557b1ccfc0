package directory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ogurasousui/org-directory/internal/core/assignment"
	"github.com/ogurasousui/org-directory/internal/core/authz"
	"github.com/ogurasousui/org-directory/internal/core/integrity"
	"github.com/ogurasousui/org-directory/internal/core/lifecycle"
)

// AssignmentUseCase は割当ユースケースの公開インターフェースです。
type AssignmentUseCase interface {
	CreateAssignment(ctx context.Context, in CreateAssignmentInput) (*assignment.Assignment, error)
	GetAssignment(ctx context.Context, in GetAssignmentInput) (*assignment.Assignment, error)
	ListAssignments(ctx context.Context, in ListAssignmentsInput) (*ListAssignmentsResult, error)
	UpdateAssignment(ctx context.Context, in UpdateAssignmentInput) (*assignment.Assignment, error)
	DeleteAssignment(ctx context.Context, in DeleteAssignmentInput) error
}

var _ AssignmentUseCase = (*Service)(nil)

type CreateAssignmentInput struct {
	lifecycle.AssignmentPatch
}

type UpdateAssignmentInput struct {
	ID              string
	ExpectedVersion *time.Time
	lifecycle.AssignmentPatch
}

type DeleteAssignmentInput struct {
	ID string
}

type GetAssignmentInput struct {
	ID string
}

type ListAssignmentsInput struct {
	ClientID     string
	EmployeeID   string
	CostCenterID string
	PageSize     int
	PageToken    string
}

type ListAssignmentsResult struct {
	Assignments   []*assignment.Assignment
	NextPageToken string
}

// CreateAssignment は割当を作成し、同一トランザクションで責任者カスケードを適用します。
func (s *Service) CreateAssignment(ctx context.Context, in CreateAssignmentInput) (*assignment.Assignment, error) {
	clientID := trimmed(in.ClientID)
	if clientID == "" {
		return nil, assignment.ErrInvalidClientID
	}

	var created *assignment.Assignment
	if err := s.mutation(ctx, "CreateAssignment", func(ctx context.Context, scope *authz.Scope) error {
		if err := scope.Check(ctx, authz.ClientTarget(clientID)); err != nil {
			return err
		}
		if err := s.authorizeRole(scope, authz.EntityAssignment, authz.ActionCreate); err != nil {
			return err
		}
		if err := s.integrity.Check(ctx, clientID,
			integrity.Ref{Kind: integrity.KindClient, ID: clientID},
			integrity.RefPtr(integrity.KindEmployee, in.EmployeeID),
			integrity.RefPtr(integrity.KindCostCenter, in.CostCenterID),
		); err != nil {
			return err
		}

		rec, err := s.validators.Assignment(ctx, lifecycle.AssignmentChange{
			Event:     lifecycle.EventCreate,
			Incoming:  in.AssignmentPatch,
			Principal: scope.Principal(),
		})
		if err != nil {
			return err
		}

		now := s.now()
		rec.CreatedAt = now
		rec.UpdatedAt = now

		result, err := s.repos.Assignments.Create(ctx, rec)
		if err != nil {
			return err
		}
		if err := s.cascade.AfterWrite(ctx, nil, result); err != nil {
			return err
		}
		created = result
		return nil
	}); err != nil {
		return nil, err
	}

	return created, nil
}

// UpdateAssignment は割当の期間と責任者フラグを更新します。社員・原価センタ・取引先は変更できません。
func (s *Service) UpdateAssignment(ctx context.Context, in UpdateAssignmentInput) (*assignment.Assignment, error) {
	if strings.TrimSpace(in.ID) == "" {
		return nil, fmt.Errorf("id: %w", assignment.ErrInvalidID)
	}

	var updated *assignment.Assignment
	if err := s.mutation(ctx, "UpdateAssignment", func(ctx context.Context, scope *authz.Scope) error {
		existing, err := s.repos.Assignments.FindByID(ctx, in.ID)
		if err != nil {
			return err
		}
		if err := scope.Check(ctx, authz.ClientTarget(existing.ClientID)); err != nil {
			return err
		}
		if err := s.authorizeRole(scope, authz.EntityAssignment, authz.ActionUpdate); err != nil {
			return err
		}
		if err := s.guard.CheckRequest(ctx, authz.EntityAssignment, existing.ID, in.ExpectedVersion); err != nil {
			return err
		}
		if err := s.integrity.Check(ctx, existing.ClientID,
			integrity.RefPtr(integrity.KindEmployee, in.EmployeeID),
			integrity.RefPtr(integrity.KindCostCenter, in.CostCenterID),
		); err != nil {
			return err
		}

		rec, err := s.validators.Assignment(ctx, lifecycle.AssignmentChange{
			Event:     lifecycle.EventUpdate,
			Incoming:  in.AssignmentPatch,
			Existing:  existing,
			Principal: scope.Principal(),
		})
		if err != nil {
			return err
		}
		rec.UpdatedAt = s.now()

		result, err := s.repos.Assignments.Update(ctx, rec)
		if err != nil {
			return err
		}
		if err := s.cascade.AfterWrite(ctx, existing, result); err != nil {
			return err
		}
		updated = result
		return nil
	}); err != nil {
		return nil, err
	}

	return updated, nil
}

// DeleteAssignment は割当を削除し、責任者であった場合は後任を昇格させます。
func (s *Service) DeleteAssignment(ctx context.Context, in DeleteAssignmentInput) error {
	if strings.TrimSpace(in.ID) == "" {
		return fmt.Errorf("id: %w", assignment.ErrInvalidID)
	}

	return s.mutation(ctx, "DeleteAssignment", func(ctx context.Context, scope *authz.Scope) error {
		existing, err := s.repos.Assignments.FindByID(ctx, in.ID)
		if err != nil {
			return err
		}
		if err := scope.Check(ctx, authz.ClientTarget(existing.ClientID)); err != nil {
			return err
		}
		if err := s.authorizeRole(scope, authz.EntityAssignment, authz.ActionDelete); err != nil {
			return err
		}

		if err := s.repos.Assignments.Delete(ctx, existing.ID); err != nil {
			return err
		}
		return s.cascade.AfterDelete(ctx, existing)
	})
}

// GetAssignment は割当を取得します。
func (s *Service) GetAssignment(ctx context.Context, in GetAssignmentInput) (*assignment.Assignment, error) {
	if strings.TrimSpace(in.ID) == "" {
		return nil, fmt.Errorf("id: %w", assignment.ErrInvalidID)
	}

	var result *assignment.Assignment
	if err := s.query(ctx, "GetAssignment", authz.EntityAssignment, func(ctx context.Context, filter authz.Filter) error {
		found, err := s.repos.Assignments.FindByID(ctx, in.ID)
		if err != nil {
			return err
		}
		if err := s.visible(ctx, filter, found.ClientID, assignment.ErrAssignmentNotFound); err != nil {
			return err
		}
		result = found
		return nil
	}); err != nil {
		return nil, err
	}

	return result, nil
}

// ListAssignments は割当の一覧を取得します。
func (s *Service) ListAssignments(ctx context.Context, in ListAssignmentsInput) (*ListAssignmentsResult, error) {
	limit, offset, err := pagination(in.PageSize, in.PageToken)
	if err != nil {
		return nil, err
	}

	var (
		assignments []*assignment.Assignment
		nextToken   string
	)
	if err := s.query(ctx, "ListAssignments", authz.EntityAssignment, func(ctx context.Context, filter authz.Filter) error {
		found, token, err := s.repos.Assignments.List(ctx, assignment.ListAssignmentsFilter{
			ClientID:          strings.TrimSpace(in.ClientID),
			EmployeeID:        strings.TrimSpace(in.EmployeeID),
			CostCenterID:      strings.TrimSpace(in.CostCenterID),
			CompanyIDs:        filter.CompanyIDs,
			RestrictCompanies: filter.Restrict,
			Limit:             limit,
			Offset:            offset,
		})
		if err != nil {
			return err
		}
		assignments = found
		nextToken = token
		return nil
	}); err != nil {
		return nil, err
	}

	return &ListAssignmentsResult{Assignments: assignments, NextPageToken: nextToken}, nil
}
