package identifier

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ogurasousui/org-directory/internal/core/apperr"
	"github.com/ogurasousui/org-directory/internal/core/employee"
	"go.uber.org/zap"
)

const (
	// MaxAttempts は採番ループおよび呼び出し側の再試行の上限回数です。
	MaxAttempts = 5
	// Capacity は4桁連番の上限値です。超過時は折り返さずに失敗します。
	Capacity = 9999
)

var (
	// ErrCapacityExhausted は連番が上限に達した場合に返却されます。
	ErrCapacityExhausted = apperr.Validation("EMPLOYEE_ID_CAPACITY_EXHAUSTED", "employee id counter capacity exhausted")
	// ErrExhausted は再試行上限まで一意な社員番号を得られなかった場合に返却されます。
	ErrExhausted = apperr.Internal("EMPLOYEE_ID_EXHAUSTED", "failed to generate a unique identifier")
)

// CounterRepository は取引先ごとの社員番号カウンタを扱います。
type CounterRepository interface {
	// LockCounter は排他ロック付きでカウンタを読み取ります。未作成の場合は 0 を返します。
	LockCounter(ctx context.Context, clientID string) (int, error)
	SaveCounter(ctx context.Context, clientID string, value int) error
}

// EmployeeFinder は社員番号の重複確認に利用します。
type EmployeeFinder interface {
	FindByEmployeeID(ctx context.Context, clientID, employeeID string) (*employee.Employee, error)
}

// Allocation は採番結果です。Generated はカウンタから生成した場合に true になります。
type Allocation struct {
	ID        string
	Generated bool
}

// Allocator は取引先単位で一意な社員番号を払い出します。
type Allocator struct {
	counters  CounterRepository
	employees EmployeeFinder
	logger    *zap.Logger
}

// NewAllocator は Allocator を生成します。
func NewAllocator(counters CounterRepository, employees EmployeeFinder, logger *zap.Logger) *Allocator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Allocator{counters: counters, employees: employees, logger: logger}
}

// Ensure は candidate を検証して利用するか、未指定であればカウンタから新しい社員番号を生成します。
// 呼び出しはトランザクション内で行う必要があります。
func (a *Allocator) Ensure(ctx context.Context, clientID, companyID string, candidate *string) (Allocation, error) {
	prefix := strings.ToUpper(strings.TrimSpace(companyID))
	if prefix == "" {
		return Allocation{}, fmt.Errorf("company id: %w", employee.ErrInvalidEmployeeID)
	}

	if candidate != nil && strings.TrimSpace(*candidate) != "" {
		return a.useExplicit(ctx, clientID, prefix, *candidate)
	}
	return a.generate(ctx, clientID, prefix)
}

func (a *Allocator) useExplicit(ctx context.Context, clientID, prefix, raw string) (Allocation, error) {
	id := Normalize(raw)
	if !Matches(prefix, id) {
		return Allocation{}, employee.ErrInvalidEmployeeID
	}

	taken, err := a.exists(ctx, clientID, id)
	if err != nil {
		return Allocation{}, err
	}
	if taken {
		allocationsTotal.WithLabelValues("conflict").Inc()
		return Allocation{}, employee.ErrEmployeeIDAlreadyExists
	}

	allocationsTotal.WithLabelValues("explicit").Inc()
	return Allocation{ID: id}, nil
}

func (a *Allocator) generate(ctx context.Context, clientID, prefix string) (Allocation, error) {
	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		last, err := a.counters.LockCounter(ctx, clientID)
		if err != nil {
			return Allocation{}, fmt.Errorf("identifier: lock counter: %w", err)
		}

		next := last + 1
		if next > Capacity {
			allocationsTotal.WithLabelValues("capacity_exhausted").Inc()
			return Allocation{}, ErrCapacityExhausted
		}

		id := Format(prefix, next)
		taken, err := a.exists(ctx, clientID, id)
		if err != nil {
			return Allocation{}, err
		}

		// スキップした番号も再利用しないよう、重複時もカウンタを進める。
		if err := a.counters.SaveCounter(ctx, clientID, next); err != nil {
			return Allocation{}, fmt.Errorf("identifier: save counter: %w", err)
		}

		if taken {
			allocationsTotal.WithLabelValues("skipped").Inc()
			a.logger.Warn("employee id already in use, advancing counter",
				zap.String("client_id", clientID),
				zap.String("employee_id", id),
				zap.Int("attempt", attempt),
			)
			continue
		}

		allocationsTotal.WithLabelValues("generated").Inc()
		return Allocation{ID: id, Generated: true}, nil
	}

	allocationsTotal.WithLabelValues("exhausted").Inc()
	return Allocation{}, ErrExhausted
}

func (a *Allocator) exists(ctx context.Context, clientID, id string) (bool, error) {
	found, err := a.employees.FindByEmployeeID(ctx, clientID, id)
	if err != nil {
		if errors.Is(err, employee.ErrEmployeeNotFound) {
			return false, nil
		}
		return false, err
	}
	return found != nil, nil
}

// Normalize は社員番号を比較・保存用に正規化します。
func Normalize(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// Format は `{prefix}-{NNNN}` 形式の社員番号を組み立てます。
func Format(prefix string, counter int) string {
	return fmt.Sprintf("%s-%04d", prefix, counter)
}

// Matches は id が `{prefix}-{4桁数字}` 形式かを判定します。
func Matches(prefix, id string) bool {
	suffix, ok := strings.CutPrefix(id, prefix+"-")
	if !ok || len(suffix) != 4 {
		return false
	}
	for _, r := range suffix {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// IsRetryable は外側の再試行対象となるエラーかを判定します。
// 生成した番号が挿入時の一意制約に衝突した場合のみ再試行します。
func IsRetryable(alloc Allocation, err error) bool {
	return alloc.Generated && errors.Is(err, employee.ErrEmployeeIDAlreadyExists)
}

// RecordRetry は外側の再試行を計測します。
func RecordRetry() {
	retriesTotal.Inc()
}
