package employee

import "time"

// Status は社員の在籍状態を表します。
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Employee は社員エンティティです。
type Employee struct {
	ID             string
	EmployeeID     string
	FirstName      string
	LastName       string
	Email          *string
	EntryDate      time.Time
	ExitDate       *time.Time
	Status         Status
	EmploymentType *string
	IsManager      bool
	ClientID       string
	ManagerID      *string
	CostCenterID   *string
	LocationID     string
	AnonymizedAt   *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsValidStatus は status が定義済みの値かを返します。
func IsValidStatus(status Status) bool {
	switch status {
	case StatusActive, StatusInactive:
		return true
	default:
		return false
	}
}
