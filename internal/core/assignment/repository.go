package assignment

import "context"

// Repository は割当永続化の抽象です。
type Repository interface {
	Create(ctx context.Context, assignment *Assignment) (*Assignment, error)
	Update(ctx context.Context, assignment *Assignment) (*Assignment, error)
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*Assignment, error)
	List(ctx context.Context, filter ListAssignmentsFilter) ([]*Assignment, string, error)
	ListByEmployee(ctx context.Context, employeeID string) ([]*Assignment, error)
	ListByCostCenter(ctx context.Context, costCenterID string) ([]*Assignment, error)
}

// ListAssignmentsFilter は一覧取得用フィルタです。
type ListAssignmentsFilter struct {
	ClientID          string
	EmployeeID        string
	CostCenterID      string
	CompanyIDs        []string
	RestrictCompanies bool
	Limit             int
	Offset            int
}
