package client

import "time"

// Client は取引先企業（テナント）エンティティです。CompanyID がテナントを識別する業務キーです。
type Client struct {
	ID          string
	CompanyID   string
	Name        string
	CountryCode *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ChildCounts は削除影響プレビュー用の子レコード件数です。
type ChildCounts struct {
	Employees   int
	CostCenters int
	Locations   int
	Assignments int
}

// Total は子レコードの合計件数を返します。
func (c ChildCounts) Total() int {
	return c.Employees + c.CostCenters + c.Locations + c.Assignments
}
