package employee

import (
	"context"
	"time"
)

// Repository は社員永続化の抽象です。
type Repository interface {
	Create(ctx context.Context, employee *Employee) (*Employee, error)
	Update(ctx context.Context, employee *Employee) (*Employee, error)
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*Employee, error)
	FindByEmployeeID(ctx context.Context, clientID, employeeID string) (*Employee, error)
	List(ctx context.Context, filter ListEmployeesFilter) ([]*Employee, string, error)
	ListByCostCenter(ctx context.Context, costCenterID string) ([]*Employee, error)
	CountByCostCenter(ctx context.Context, costCenterID string) (int, error)
	CountByLocation(ctx context.Context, locationID string) (int, error)
	CountByManager(ctx context.Context, managerID string) (int, error)
	// SetManager は上長のみを更新します。責任者カスケードから利用されます。
	SetManager(ctx context.Context, id, managerID string, updatedAt time.Time) error
	ListAnonymizable(ctx context.Context, filter AnonymizeFilter) ([]*Employee, error)
}

// ListEmployeesFilter は一覧取得用フィルタです。
type ListEmployeesFilter struct {
	ClientID          string
	Status            *Status
	CompanyIDs        []string
	RestrictCompanies bool
	Limit             int
	Offset            int
}

// AnonymizeFilter は匿名化対象（退職日が Before より前かつ未匿名化）の抽出条件です。
type AnonymizeFilter struct {
	Before            time.Time
	CompanyIDs        []string
	RestrictCompanies bool
	Limit             int
}
