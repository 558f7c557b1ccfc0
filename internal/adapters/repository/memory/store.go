package memory

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/ogurasousui/org-directory/internal/core/assignment"
	"github.com/ogurasousui/org-directory/internal/core/client"
	"github.com/ogurasousui/org-directory/internal/core/costcenter"
	"github.com/ogurasousui/org-directory/internal/core/employee"
	"github.com/ogurasousui/org-directory/internal/core/location"
)

type state struct {
	clients     map[string]*client.Client
	employees   map[string]*employee.Employee
	costCenters map[string]*costcenter.CostCenter
	locations   map[string]*location.Location
	assignments map[string]*assignment.Assignment
	counters    map[string]int
}

func newState() *state {
	return &state{
		clients:     make(map[string]*client.Client),
		employees:   make(map[string]*employee.Employee),
		costCenters: make(map[string]*costcenter.CostCenter),
		locations:   make(map[string]*location.Location),
		assignments: make(map[string]*assignment.Assignment),
		counters:    make(map[string]int),
	}
}

func (s *state) clone() *state {
	out := newState()
	for k, v := range s.clients {
		out.clients[k] = cloneClient(v)
	}
	for k, v := range s.employees {
		out.employees[k] = cloneEmployee(v)
	}
	for k, v := range s.costCenters {
		out.costCenters[k] = cloneCostCenter(v)
	}
	for k, v := range s.locations {
		out.locations[k] = cloneLocation(v)
	}
	for k, v := range s.assignments {
		out.assignments[k] = cloneAssignment(v)
	}
	for k, v := range s.counters {
		out.counters[k] = v
	}
	return out
}

func (s *state) companyOf(clientID string) string {
	if c, ok := s.clients[clientID]; ok {
		return c.CompanyID
	}
	return ""
}

type txContextKey struct{}

// Store はプロセス内メモリに全エンティティを保持するストアです。
// 読み書きトランザクションはミューテックスで直列化し、エラー時はスナップショットへ戻します。
type Store struct {
	mu sync.Mutex
	st *state
}

// NewStore は空の Store を生成します。
func NewStore() *Store {
	return &Store{st: newState()}
}

// WithinReadOnly は fn をストアのロック下で実行します。
func (s *Store) WithinReadOnly(ctx context.Context, fn func(context.Context) error) error {
	return s.within(ctx, false, fn)
}

// WithinReadWrite は fn をストアのロック下で実行し、エラー時は変更を破棄します。
func (s *Store) WithinReadWrite(ctx context.Context, fn func(context.Context) error) error {
	return s.within(ctx, true, fn)
}

func (s *Store) within(ctx context.Context, write bool, fn func(context.Context) error) error {
	if fn == nil {
		return errors.New("memory: transaction function is required")
	}
	if s.inTx(ctx) {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var snapshot *state
	if write {
		snapshot = s.st.clone()
	}
	err := fn(context.WithValue(ctx, txContextKey{}, s))
	if err != nil && write {
		s.st = snapshot
	}
	return err
}

func (s *Store) inTx(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	owner, ok := ctx.Value(txContextKey{}).(*Store)
	return ok && owner == s
}

// view はトランザクション外であればロックを取得して fn を実行します。
func (s *Store) view(ctx context.Context, fn func(*state) error) error {
	if s.inTx(ctx) {
		return fn(s.st)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.st)
}

// Clients は取引先リポジトリを返します。
func (s *Store) Clients() *ClientRepository { return &ClientRepository{store: s} }

// Employees は社員リポジトリを返します。
func (s *Store) Employees() *EmployeeRepository { return &EmployeeRepository{store: s} }

// CostCenters は原価センタリポジトリを返します。
func (s *Store) CostCenters() *CostCenterRepository { return &CostCenterRepository{store: s} }

// Locations は勤務地リポジトリを返します。
func (s *Store) Locations() *LocationRepository { return &LocationRepository{store: s} }

// Assignments は割当リポジトリを返します。
func (s *Store) Assignments() *AssignmentRepository { return &AssignmentRepository{store: s} }

// Counters は社員番号カウンタリポジトリを返します。
func (s *Store) Counters() *CounterRepository { return &CounterRepository{store: s} }

// Companies は会社コード解決用のリポジトリを返します。
func (s *Store) Companies() *CompanyLookup { return &CompanyLookup{store: s} }

type companyFilter struct {
	restrict bool
	allowed  map[string]struct{}
}

func newCompanyFilter(restrict bool, codes []string) companyFilter {
	f := companyFilter{restrict: restrict, allowed: make(map[string]struct{}, len(codes))}
	for _, c := range codes {
		f.allowed[c] = struct{}{}
	}
	return f
}

func (f companyFilter) allows(code string) bool {
	if !f.restrict {
		return true
	}
	_, ok := f.allowed[code]
	return ok
}

// page は created_at 降順・ID 降順に並べた上で offset/limit を適用し、次ページトークンを返します。
func page[T any](items []T, created func(T) (time.Time, string), limit, offset int) ([]T, string) {
	sort.SliceStable(items, func(i, j int) bool {
		ti, idi := created(items[i])
		tj, idj := created(items[j])
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return idi > idj
	})

	if offset >= len(items) {
		return []T{}, ""
	}
	end := len(items)
	next := ""
	if limit > 0 && offset+limit < len(items) {
		end = offset + limit
		next = strconv.Itoa(offset + limit)
	}
	return items[offset:end], next
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

func cloneClient(c *client.Client) *client.Client {
	out := *c
	out.CountryCode = cloneString(c.CountryCode)
	return &out
}

func cloneEmployee(e *employee.Employee) *employee.Employee {
	out := *e
	out.Email = cloneString(e.Email)
	out.ExitDate = cloneTime(e.ExitDate)
	out.EmploymentType = cloneString(e.EmploymentType)
	out.ManagerID = cloneString(e.ManagerID)
	out.CostCenterID = cloneString(e.CostCenterID)
	out.AnonymizedAt = cloneTime(e.AnonymizedAt)
	return &out
}

func cloneCostCenter(c *costcenter.CostCenter) *costcenter.CostCenter {
	out := *c
	out.ValidTo = cloneTime(c.ValidTo)
	return &out
}

func cloneLocation(l *location.Location) *location.Location {
	out := *l
	out.ValidTo = cloneTime(l.ValidTo)
	return &out
}

func cloneAssignment(a *assignment.Assignment) *assignment.Assignment {
	out := *a
	out.ValidTo = cloneTime(a.ValidTo)
	return &out
}
