package directory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ogurasousui/org-directory/internal/core/authz"
	"github.com/ogurasousui/org-directory/internal/core/client"
	"github.com/ogurasousui/org-directory/internal/core/lifecycle"
	"go.uber.org/zap"
)

// ClientUseCase は取引先ユースケースの公開インターフェースです。
type ClientUseCase interface {
	CreateClient(ctx context.Context, in CreateClientInput) (*client.Client, error)
	GetClient(ctx context.Context, in GetClientInput) (*client.Client, error)
	ListClients(ctx context.Context, in ListClientsInput) (*ListClientsResult, error)
	UpdateClient(ctx context.Context, in UpdateClientInput) (*client.Client, error)
	DeleteClient(ctx context.Context, in DeleteClientInput) error
	PreviewClientDeletion(ctx context.Context, in DeleteClientInput) (client.ChildCounts, error)
}

var _ ClientUseCase = (*Service)(nil)

// CreateClientInput は取引先作成時の入力です。
type CreateClientInput struct {
	lifecycle.ClientPatch
}

// UpdateClientInput は取引先更新時の入力です。
// ExpectedVersion はトランスポートを経由しない呼び出しでのみ参照されます。
type UpdateClientInput struct {
	ID              string
	ExpectedVersion *time.Time
	lifecycle.ClientPatch
}

// DeleteClientInput は取引先削除（およびプレビュー）時の入力です。
type DeleteClientInput struct {
	ID string
}

// GetClientInput は取引先取得時の入力です。
type GetClientInput struct {
	ID string
}

// ListClientsInput は一覧取得時の入力です。
type ListClientsInput struct {
	PageSize  int
	PageToken string
}

// ListClientsResult は一覧取得結果を表します。
type ListClientsResult struct {
	Clients       []*client.Client
	NextPageToken string
}

// CreateClient は取引先を作成します。
func (s *Service) CreateClient(ctx context.Context, in CreateClientInput) (*client.Client, error) {
	companyID := ""
	if in.CompanyID != nil {
		companyID = authz.NormalizeCompanyCode(*in.CompanyID)
	}
	if companyID == "" {
		return nil, client.ErrInvalidCompanyID
	}

	var created *client.Client
	if err := s.mutation(ctx, "CreateClient", func(ctx context.Context, scope *authz.Scope) error {
		if err := scope.Check(ctx, authz.CompanyTarget(companyID)); err != nil {
			return err
		}
		if err := s.authorizeRole(scope, authz.EntityClient, authz.ActionCreate); err != nil {
			return err
		}

		rec, err := s.validators.Client(ctx, lifecycle.ClientChange{
			Event:     lifecycle.EventCreate,
			Incoming:  in.ClientPatch,
			Principal: scope.Principal(),
		})
		if err != nil {
			return err
		}

		now := s.now()
		rec.CreatedAt = now
		rec.UpdatedAt = now

		result, err := s.repos.Clients.Create(ctx, rec)
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

// UpdateClient は取引先を更新します。
func (s *Service) UpdateClient(ctx context.Context, in UpdateClientInput) (*client.Client, error) {
	if strings.TrimSpace(in.ID) == "" {
		return nil, fmt.Errorf("id: %w", client.ErrInvalidID)
	}

	var updated *client.Client
	if err := s.mutation(ctx, "UpdateClient", func(ctx context.Context, scope *authz.Scope) error {
		existing, err := s.repos.Clients.FindByID(ctx, in.ID)
		if err != nil {
			return err
		}

		targets := []authz.Target{authz.CompanyTarget(existing.CompanyID)}
		if in.CompanyID != nil {
			targets = append(targets, authz.CompanyTarget(*in.CompanyID))
		}
		if err := scope.Check(ctx, targets...); err != nil {
			return err
		}
		if err := s.authorizeRole(scope, authz.EntityClient, authz.ActionUpdate); err != nil {
			return err
		}
		if err := s.guard.CheckRequest(ctx, authz.EntityClient, existing.ID, in.ExpectedVersion); err != nil {
			return err
		}

		rec, err := s.validators.Client(ctx, lifecycle.ClientChange{
			Event:     lifecycle.EventUpdate,
			Incoming:  in.ClientPatch,
			Existing:  existing,
			Principal: scope.Principal(),
		})
		if err != nil {
			return err
		}
		rec.UpdatedAt = s.now()

		result, err := s.repos.Clients.Update(ctx, rec)
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

// DeleteClient は取引先と配下のすべてのレコードを1トランザクションで削除します。
func (s *Service) DeleteClient(ctx context.Context, in DeleteClientInput) error {
	if strings.TrimSpace(in.ID) == "" {
		return fmt.Errorf("id: %w", client.ErrInvalidID)
	}

	return s.mutation(ctx, "DeleteClient", func(ctx context.Context, scope *authz.Scope) error {
		existing, err := s.repos.Clients.FindByID(ctx, in.ID)
		if err != nil {
			return err
		}
		if err := scope.Check(ctx, authz.CompanyTarget(existing.CompanyID)); err != nil {
			return err
		}
		if err := s.authorizeRole(scope, authz.EntityClient, authz.ActionDelete); err != nil {
			return err
		}

		counts, err := s.repos.Clients.CountChildren(ctx, existing.ID)
		if err != nil {
			return err
		}
		if err := s.repos.Clients.Delete(ctx, existing.ID); err != nil {
			return err
		}

		s.logger.Info("client deleted",
			zap.String("client_id", existing.ID),
			zap.String("company_id", existing.CompanyID),
			zap.Int("employees", counts.Employees),
			zap.Int("cost_centers", counts.CostCenters),
			zap.Int("locations", counts.Locations),
			zap.Int("assignments", counts.Assignments),
		)
		return nil
	})
}

// PreviewClientDeletion は取引先削除時に併せて削除される子レコードの件数を返します。
func (s *Service) PreviewClientDeletion(ctx context.Context, in DeleteClientInput) (client.ChildCounts, error) {
	if strings.TrimSpace(in.ID) == "" {
		return client.ChildCounts{}, fmt.Errorf("id: %w", client.ErrInvalidID)
	}

	var counts client.ChildCounts
	if err := s.query(ctx, "PreviewClientDeletion", authz.EntityClient, func(ctx context.Context, filter authz.Filter) error {
		existing, err := s.repos.Clients.FindByID(ctx, in.ID)
		if err != nil {
			return err
		}
		if !filter.Allows(existing.CompanyID) {
			return client.ErrClientNotFound
		}

		result, err := s.repos.Clients.CountChildren(ctx, existing.ID)
		if err != nil {
			return err
		}
		counts = result
		return nil
	}); err != nil {
		return client.ChildCounts{}, err
	}

	return counts, nil
}

// GetClient は取引先を取得します。
func (s *Service) GetClient(ctx context.Context, in GetClientInput) (*client.Client, error) {
	if strings.TrimSpace(in.ID) == "" {
		return nil, fmt.Errorf("id: %w", client.ErrInvalidID)
	}

	var result *client.Client
	if err := s.query(ctx, "GetClient", authz.EntityClient, func(ctx context.Context, filter authz.Filter) error {
		found, err := s.repos.Clients.FindByID(ctx, in.ID)
		if err != nil {
			return err
		}
		if !filter.Allows(found.CompanyID) {
			return client.ErrClientNotFound
		}
		result = found
		return nil
	}); err != nil {
		return nil, err
	}

	return result, nil
}

// ListClients は取引先の一覧を取得します。
func (s *Service) ListClients(ctx context.Context, in ListClientsInput) (*ListClientsResult, error) {
	limit, offset, err := pagination(in.PageSize, in.PageToken)
	if err != nil {
		return nil, err
	}

	var (
		clients   []*client.Client
		nextToken string
	)
	if err := s.query(ctx, "ListClients", authz.EntityClient, func(ctx context.Context, filter authz.Filter) error {
		found, token, err := s.repos.Clients.List(ctx, client.ListClientsFilter{
			CompanyIDs:        filter.CompanyIDs,
			RestrictCompanies: filter.Restrict,
			Limit:             limit,
			Offset:            offset,
		})
		if err != nil {
			return err
		}
		clients = found
		nextToken = token
		return nil
	}); err != nil {
		return nil, err
	}

	return &ListClientsResult{Clients: clients, NextPageToken: nextToken}, nil
}
