package costcenter

import "time"

// CostCenter は原価センタエンティティです。ResponsibleID は同一取引先の管理職社員を指します。
type CostCenter struct {
	ID            string
	Code          string
	Name          string
	ClientID      string
	ResponsibleID string
	ValidFrom     time.Time
	ValidTo       *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
