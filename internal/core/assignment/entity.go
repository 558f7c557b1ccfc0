package assignment

import "time"

// Assignment は社員と原価センタの期間付き割当です。
type Assignment struct {
	ID            string
	EmployeeID    string
	CostCenterID  string
	ClientID      string
	ValidFrom     time.Time
	ValidTo       *time.Time
	IsResponsible bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ActiveOn は day が [ValidFrom, ValidTo] に含まれるかを返します。ValidTo が nil の場合は無期限です。
func (a *Assignment) ActiveOn(day time.Time) bool {
	if a == nil {
		return false
	}
	if day.Before(a.ValidFrom) {
		return false
	}
	return a.ValidTo == nil || !day.After(*a.ValidTo)
}
