package client

import "context"

// Repository は取引先永続化の抽象です。
type Repository interface {
	Create(ctx context.Context, client *Client) (*Client, error)
	Update(ctx context.Context, client *Client) (*Client, error)
	// Delete は取引先と配下の全レコードを削除します。
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*Client, error)
	FindByCompanyID(ctx context.Context, companyID string) (*Client, error)
	List(ctx context.Context, filter ListClientsFilter) ([]*Client, string, error)
	CountChildren(ctx context.Context, id string) (ChildCounts, error)
}

// ListClientsFilter は一覧取得時の検索条件です。
// RestrictCompanies が true の場合 CompanyIDs に含まれる取引先のみ対象とし、空であれば何も返しません。
type ListClientsFilter struct {
	CompanyIDs        []string
	RestrictCompanies bool
	Limit             int
	Offset            int
}
