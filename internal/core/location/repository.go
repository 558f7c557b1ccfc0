package location

import "context"

// Repository は勤務地永続化の抽象です。
type Repository interface {
	Create(ctx context.Context, location *Location) (*Location, error)
	Update(ctx context.Context, location *Location) (*Location, error)
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*Location, error)
	List(ctx context.Context, filter ListLocationsFilter) ([]*Location, string, error)
}

// ListLocationsFilter は一覧取得用フィルタです。
type ListLocationsFilter struct {
	ClientID          string
	CompanyIDs        []string
	RestrictCompanies bool
	Limit             int
	Offset            int
}
