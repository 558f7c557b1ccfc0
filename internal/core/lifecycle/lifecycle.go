package lifecycle

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ogurasousui/org-directory/internal/core/assignment"
	"github.com/ogurasousui/org-directory/internal/core/client"
	"github.com/ogurasousui/org-directory/internal/core/costcenter"
	"github.com/ogurasousui/org-directory/internal/core/employee"
	"github.com/ogurasousui/org-directory/internal/core/identifier"
	"github.com/ogurasousui/org-directory/internal/core/location"
)

// Event は変更種別です。
type Event string

const (
	EventCreate Event = "CREATE"
	EventUpdate Event = "UPDATE"
)

// DefaultCompanyIDPattern は取引先 CompanyID の既定形式（4桁数字）です。
var DefaultCompanyIDPattern = regexp.MustCompile(`^\d{4}$`)

var validate = validator.New()

// IdentifierAllocator は社員番号の払い出しを行います。
type IdentifierAllocator interface {
	Ensure(ctx context.Context, clientID, companyID string, candidate *string) (identifier.Allocation, error)
}

// Validators は各エンティティの検証関数が参照する読み取りポートをまとめます。
type Validators struct {
	Clients          client.Repository
	Employees        employee.Repository
	CostCenters      costcenter.Repository
	Locations        location.Repository
	Assignments      assignment.Repository
	Identifiers      IdentifierAllocator
	CompanyIDPattern *regexp.Regexp
}

func (v *Validators) companyIDPattern() *regexp.Regexp {
	if v.CompanyIDPattern == nil {
		return DefaultCompanyIDPattern
	}
	return v.CompanyIDPattern
}

// NormalizeDate は時刻を UTC 0 時の日付に正規化します。
func NormalizeDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func normalizeDatePtr(t *time.Time) *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	normalized := NormalizeDate(*t)
	return &normalized
}

func requiredDate(t *time.Time, errInvalid error) (time.Time, error) {
	if t == nil || t.IsZero() {
		return time.Time{}, errInvalid
	}
	return NormalizeDate(*t), nil
}

func checkRange(from time.Time, to *time.Time, errInvalid error) error {
	if to != nil && to.Before(from) {
		return errInvalid
	}
	return nil
}

// Overlaps は2つの期間が重なるかを判定します。終了日 nil は無期限として扱います。
func Overlaps(startA time.Time, endA *time.Time, startB time.Time, endB *time.Time) bool {
	if endB != nil && startA.After(*endB) {
		return false
	}
	if endA != nil && startB.After(*endA) {
		return false
	}
	return true
}

func requiredText(v *string, errInvalid error) (string, error) {
	if v == nil {
		return "", errInvalid
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return "", errInvalid
	}
	return trimmed, nil
}

func optionalText(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func sameID(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func normalizeCountryCode(raw string, errInvalid error) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if code == "" {
		return "", errInvalid
	}
	if err := validate.Var(code, "iso3166_1_alpha2"); err != nil {
		return "", errInvalid
	}
	return code, nil
}

func cloneTimePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func cloneStringPtr(s *string) *string {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
