package directory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ogurasousui/org-directory/internal/core/authz"
	"github.com/ogurasousui/org-directory/internal/core/costcenter"
	"github.com/ogurasousui/org-directory/internal/core/integrity"
	"github.com/ogurasousui/org-directory/internal/core/lifecycle"
)

// CostCenterUseCase は原価センタユースケースの公開インターフェースです。
type CostCenterUseCase interface {
	CreateCostCenter(ctx context.Context, in CreateCostCenterInput) (*costcenter.CostCenter, error)
	GetCostCenter(ctx context.Context, in GetCostCenterInput) (*costcenter.CostCenter, error)
	ListCostCenters(ctx context.Context, in ListCostCentersInput) (*ListCostCentersResult, error)
	UpdateCostCenter(ctx context.Context, in UpdateCostCenterInput) (*costcenter.CostCenter, error)
	DeleteCostCenter(ctx context.Context, in DeleteCostCenterInput) error
}

var _ CostCenterUseCase = (*Service)(nil)

type CreateCostCenterInput struct {
	lifecycle.CostCenterPatch
}

type UpdateCostCenterInput struct {
	ID              string
	ExpectedVersion *time.Time
	lifecycle.CostCenterPatch
}

type DeleteCostCenterInput struct {
	ID string
}

type GetCostCenterInput struct {
	ID string
}

type ListCostCentersInput struct {
	ClientID  string
	PageSize  int
	PageToken string
}

type ListCostCentersResult struct {
	CostCenters   []*costcenter.CostCenter
	NextPageToken string
}

// CreateCostCenter は原価センタを作成します。
func (s *Service) CreateCostCenter(ctx context.Context, in CreateCostCenterInput) (*costcenter.CostCenter, error) {
	clientID := trimmed(in.ClientID)
	if clientID == "" {
		return nil, costcenter.ErrInvalidClientID
	}

	var created *costcenter.CostCenter
	if err := s.mutation(ctx, "CreateCostCenter", func(ctx context.Context, scope *authz.Scope) error {
		if err := scope.Check(ctx, authz.ClientTarget(clientID)); err != nil {
			return err
		}
		if err := s.authorizeRole(scope, authz.EntityCostCenter, authz.ActionCreate); err != nil {
			return err
		}
		if err := s.integrity.Check(ctx, clientID,
			integrity.Ref{Kind: integrity.KindClient, ID: clientID},
			integrity.RefPtr(integrity.KindResponsible, in.ResponsibleID),
		); err != nil {
			return err
		}

		rec, err := s.validators.CostCenter(ctx, lifecycle.CostCenterChange{
			Event:     lifecycle.EventCreate,
			Incoming:  in.CostCenterPatch,
			Principal: scope.Principal(),
		})
		if err != nil {
			return err
		}

		now := s.now()
		rec.CreatedAt = now
		rec.UpdatedAt = now

		result, err := s.repos.CostCenters.Create(ctx, rec)
		if err != nil {
			return err
		}
		created = result
		return nil
	}); err != nil {
		return nil, err
	}

	return created, nil
}

// UpdateCostCenter は原価センタを更新します。所属取引先の変更はできません。
func (s *Service) UpdateCostCenter(ctx context.Context, in UpdateCostCenterInput) (*costcenter.CostCenter, error) {
	if strings.TrimSpace(in.ID) == "" {
		return nil, fmt.Errorf("id: %w", costcenter.ErrInvalidID)
	}

	var updated *costcenter.CostCenter
	if err := s.mutation(ctx, "UpdateCostCenter", func(ctx context.Context, scope *authz.Scope) error {
		existing, err := s.repos.CostCenters.FindByID(ctx, in.ID)
		if err != nil {
			return err
		}
		if err := scope.Check(ctx, authz.ClientTarget(existing.ClientID)); err != nil {
			return err
		}
		if err := s.authorizeRole(scope, authz.EntityCostCenter, authz.ActionUpdate); err != nil {
			return err
		}
		if err := s.guard.CheckRequest(ctx, authz.EntityCostCenter, existing.ID, in.ExpectedVersion); err != nil {
			return err
		}
		if err := s.integrity.Check(ctx, existing.ClientID,
			integrity.RefPtr(integrity.KindResponsible, in.ResponsibleID),
		); err != nil {
			return err
		}

		rec, err := s.validators.CostCenter(ctx, lifecycle.CostCenterChange{
			Event:     lifecycle.EventUpdate,
			Incoming:  in.CostCenterPatch,
			Existing:  existing,
			Principal: scope.Principal(),
		})
		if err != nil {
			return err
		}
		rec.UpdatedAt = s.now()

		result, err := s.repos.CostCenters.Update(ctx, rec)
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

// DeleteCostCenter は原価センタを削除します。
// 現在有効な割当または所属社員が残っている場合は削除できず、過去・将来の割当は併せて削除されます。
func (s *Service) DeleteCostCenter(ctx context.Context, in DeleteCostCenterInput) error {
	if strings.TrimSpace(in.ID) == "" {
		return fmt.Errorf("id: %w", costcenter.ErrInvalidID)
	}

	return s.mutation(ctx, "DeleteCostCenter", func(ctx context.Context, scope *authz.Scope) error {
		existing, err := s.repos.CostCenters.FindByID(ctx, in.ID)
		if err != nil {
			return err
		}
		if err := scope.Check(ctx, authz.ClientTarget(existing.ClientID)); err != nil {
			return err
		}
		if err := s.authorizeRole(scope, authz.EntityCostCenter, authz.ActionDelete); err != nil {
			return err
		}

		assignments, err := s.repos.Assignments.ListByCostCenter(ctx, existing.ID)
		if err != nil {
			return err
		}
		today := s.today()
		for _, a := range assignments {
			if a.ActiveOn(today) {
				return costcenter.ErrCostCenterInUse
			}
		}
		members, err := s.repos.Employees.CountByCostCenter(ctx, existing.ID)
		if err != nil {
			return err
		}
		if members > 0 {
			return costcenter.ErrCostCenterInUse
		}

		return s.repos.CostCenters.Delete(ctx, existing.ID)
	})
}

// GetCostCenter は原価センタを取得します。
func (s *Service) GetCostCenter(ctx context.Context, in GetCostCenterInput) (*costcenter.CostCenter, error) {
	if strings.TrimSpace(in.ID) == "" {
		return nil, fmt.Errorf("id: %w", costcenter.ErrInvalidID)
	}

	var result *costcenter.CostCenter
	if err := s.query(ctx, "GetCostCenter", authz.EntityCostCenter, func(ctx context.Context, filter authz.Filter) error {
		found, err := s.repos.CostCenters.FindByID(ctx, in.ID)
		if err != nil {
			return err
		}
		if err := s.visible(ctx, filter, found.ClientID, costcenter.ErrCostCenterNotFound); err != nil {
			return err
		}
		result = found
		return nil
	}); err != nil {
		return nil, err
	}

	return result, nil
}

// ListCostCenters は原価センタの一覧を取得します。
func (s *Service) ListCostCenters(ctx context.Context, in ListCostCentersInput) (*ListCostCentersResult, error) {
	limit, offset, err := pagination(in.PageSize, in.PageToken)
	if err != nil {
		return nil, err
	}

	var (
		centers   []*costcenter.CostCenter
		nextToken string
	)
	if err := s.query(ctx, "ListCostCenters", authz.EntityCostCenter, func(ctx context.Context, filter authz.Filter) error {
		found, token, err := s.repos.CostCenters.List(ctx, costcenter.ListCostCentersFilter{
			ClientID:          strings.TrimSpace(in.ClientID),
			CompanyIDs:        filter.CompanyIDs,
			RestrictCompanies: filter.Restrict,
			Limit:             limit,
			Offset:            offset,
		})
		if err != nil {
			return err
		}
		centers = found
		nextToken = token
		return nil
	}); err != nil {
		return nil, err
	}

	return &ListCostCentersResult{CostCenters: centers, NextPageToken: nextToken}, nil
}
