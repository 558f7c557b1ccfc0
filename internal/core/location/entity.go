package location

import "time"

// Location は勤務地エンティティです。
type Location struct {
	ID          string
	City        string
	CountryCode string
	ZipCode     string
	Street      string
	ClientID    string
	ValidFrom   time.Time
	ValidTo     *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
