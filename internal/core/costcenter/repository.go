package costcenter

import (
	"context"
	"time"
)

// Repository は原価センタ永続化の抽象です。
type Repository interface {
	Create(ctx context.Context, costCenter *CostCenter) (*CostCenter, error)
	Update(ctx context.Context, costCenter *CostCenter) (*CostCenter, error)
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*CostCenter, error)
	FindByCode(ctx context.Context, clientID, code string) (*CostCenter, error)
	List(ctx context.Context, filter ListCostCentersFilter) ([]*CostCenter, string, error)
	CountByResponsible(ctx context.Context, employeeID string) (int, error)
	// SetResponsible は責任者のみを更新します。責任者カスケードから利用されます。
	SetResponsible(ctx context.Context, id, employeeID string, updatedAt time.Time) error
}

// ListCostCentersFilter は一覧取得用フィルタです。
type ListCostCentersFilter struct {
	ClientID          string
	CompanyIDs        []string
	RestrictCompanies bool
	Limit             int
	Offset            int
}
