package directory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ogurasousui/org-directory/internal/core/authz"
	"github.com/ogurasousui/org-directory/internal/core/integrity"
	"github.com/ogurasousui/org-directory/internal/core/lifecycle"
	"github.com/ogurasousui/org-directory/internal/core/location"
)

// LocationUseCase は勤務地ユースケースの公開インターフェースです。
type LocationUseCase interface {
	CreateLocation(ctx context.Context, in CreateLocationInput) (*location.Location, error)
	GetLocation(ctx context.Context, in GetLocationInput) (*location.Location, error)
	ListLocations(ctx context.Context, in ListLocationsInput) (*ListLocationsResult, error)
	UpdateLocation(ctx context.Context, in UpdateLocationInput) (*location.Location, error)
	DeleteLocation(ctx context.Context, in DeleteLocationInput) error
}

var _ LocationUseCase = (*Service)(nil)

type CreateLocationInput struct {
	lifecycle.LocationPatch
}

type UpdateLocationInput struct {
	ID              string
	ExpectedVersion *time.Time
	lifecycle.LocationPatch
}

type DeleteLocationInput struct {
	ID string
}

type GetLocationInput struct {
	ID string
}

type ListLocationsInput struct {
	ClientID  string
	PageSize  int
	PageToken string
}

type ListLocationsResult struct {
	Locations     []*location.Location
	NextPageToken string
}

// CreateLocation は勤務地を作成します。
func (s *Service) CreateLocation(ctx context.Context, in CreateLocationInput) (*location.Location, error) {
	clientID := trimmed(in.ClientID)
	if clientID == "" {
		return nil, location.ErrInvalidClientID
	}

	var created *location.Location
	if err := s.mutation(ctx, "CreateLocation", func(ctx context.Context, scope *authz.Scope) error {
		if err := scope.Check(ctx, authz.ClientTarget(clientID)); err != nil {
			return err
		}
		if err := s.authorizeRole(scope, authz.EntityLocation, authz.ActionCreate); err != nil {
			return err
		}
		if err := s.integrity.Check(ctx, clientID, integrity.Ref{Kind: integrity.KindClient, ID: clientID}); err != nil {
			return err
		}

		rec, err := s.validators.Location(ctx, lifecycle.LocationChange{
			Event:     lifecycle.EventCreate,
			Incoming:  in.LocationPatch,
			Principal: scope.Principal(),
		})
		if err != nil {
			return err
		}

		now := s.now()
		rec.CreatedAt = now
		rec.UpdatedAt = now

		result, err := s.repos.Locations.Create(ctx, rec)
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

// UpdateLocation は勤務地を更新します。取引先を変更する場合は変更先の会社にも権限が必要です。
func (s *Service) UpdateLocation(ctx context.Context, in UpdateLocationInput) (*location.Location, error) {
	if strings.TrimSpace(in.ID) == "" {
		return nil, fmt.Errorf("id: %w", location.ErrInvalidID)
	}

	var updated *location.Location
	if err := s.mutation(ctx, "UpdateLocation", func(ctx context.Context, scope *authz.Scope) error {
		existing, err := s.repos.Locations.FindByID(ctx, in.ID)
		if err != nil {
			return err
		}

		targets := []authz.Target{authz.ClientTarget(existing.ClientID)}
		newClientID := trimmed(in.ClientID)
		if newClientID != "" && newClientID != existing.ClientID {
			targets = append(targets, authz.ClientTarget(newClientID))
		}
		if err := scope.Check(ctx, targets...); err != nil {
			return err
		}
		if err := s.authorizeRole(scope, authz.EntityLocation, authz.ActionUpdate); err != nil {
			return err
		}
		if err := s.guard.CheckRequest(ctx, authz.EntityLocation, existing.ID, in.ExpectedVersion); err != nil {
			return err
		}
		if newClientID != "" && newClientID != existing.ClientID {
			if err := s.integrity.Check(ctx, newClientID, integrity.Ref{Kind: integrity.KindClient, ID: newClientID}); err != nil {
				return err
			}
		}

		rec, err := s.validators.Location(ctx, lifecycle.LocationChange{
			Event:     lifecycle.EventUpdate,
			Incoming:  in.LocationPatch,
			Existing:  existing,
			Principal: scope.Principal(),
		})
		if err != nil {
			return err
		}
		rec.UpdatedAt = s.now()

		result, err := s.repos.Locations.Update(ctx, rec)
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

// DeleteLocation は勤務地を削除します。社員が所属している間は削除できません。
func (s *Service) DeleteLocation(ctx context.Context, in DeleteLocationInput) error {
	if strings.TrimSpace(in.ID) == "" {
		return fmt.Errorf("id: %w", location.ErrInvalidID)
	}

	return s.mutation(ctx, "DeleteLocation", func(ctx context.Context, scope *authz.Scope) error {
		existing, err := s.repos.Locations.FindByID(ctx, in.ID)
		if err != nil {
			return err
		}
		if err := scope.Check(ctx, authz.ClientTarget(existing.ClientID)); err != nil {
			return err
		}
		if err := s.authorizeRole(scope, authz.EntityLocation, authz.ActionDelete); err != nil {
			return err
		}

		n, err := s.repos.Employees.CountByLocation(ctx, existing.ID)
		if err != nil {
			return err
		}
		if n > 0 {
			return location.ErrLocationInUse
		}
		return s.repos.Locations.Delete(ctx, existing.ID)
	})
}

// GetLocation は勤務地を取得します。
func (s *Service) GetLocation(ctx context.Context, in GetLocationInput) (*location.Location, error) {
	if strings.TrimSpace(in.ID) == "" {
		return nil, fmt.Errorf("id: %w", location.ErrInvalidID)
	}

	var result *location.Location
	if err := s.query(ctx, "GetLocation", authz.EntityLocation, func(ctx context.Context, filter authz.Filter) error {
		found, err := s.repos.Locations.FindByID(ctx, in.ID)
		if err != nil {
			return err
		}
		if err := s.visible(ctx, filter, found.ClientID, location.ErrLocationNotFound); err != nil {
			return err
		}
		result = found
		return nil
	}); err != nil {
		return nil, err
	}

	return result, nil
}

// ListLocations は勤務地の一覧を取得します。
func (s *Service) ListLocations(ctx context.Context, in ListLocationsInput) (*ListLocationsResult, error) {
	limit, offset, err := pagination(in.PageSize, in.PageToken)
	if err != nil {
		return nil, err
	}

	var (
		locations []*location.Location
		nextToken string
	)
	if err := s.query(ctx, "ListLocations", authz.EntityLocation, func(ctx context.Context, filter authz.Filter) error {
		found, token, err := s.repos.Locations.List(ctx, location.ListLocationsFilter{
			ClientID:          strings.TrimSpace(in.ClientID),
			CompanyIDs:        filter.CompanyIDs,
			RestrictCompanies: filter.Restrict,
			Limit:             limit,
			Offset:            offset,
		})
		if err != nil {
			return err
		}
		locations = found
		nextToken = token
		return nil
	}); err != nil {
		return nil, err
	}

	return &ListLocationsResult{Locations: locations, NextPageToken: nextToken}, nil
}
