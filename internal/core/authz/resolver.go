package authz

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ogurasousui/org-directory/internal/core/apperr"
	"github.com/ogurasousui/org-directory/internal/core/reqctx"
)

const (
	// DefaultAdminRole は全取引先へのアクセスを許可されるロールです。
	DefaultAdminRole = "HRAdmin"
)

// DefaultCompanyAttributes は会社コードを保持する Principal 属性名です。
var DefaultCompanyAttributes = []string{"CompanyCode", "companyCodes"}

var (
	// ErrUnauthenticated は Principal が存在しない場合に返却されます。
	ErrUnauthenticated = apperr.New(apperr.KindUnauthenticated, "UNAUTHENTICATED", "authentication is required")
	// ErrUnauthorizedCompany は対象の会社へのアクセス権がない場合に返却されます。
	ErrUnauthorizedCompany = apperr.New(apperr.KindUnauthorizedCompany, "UNAUTHORIZED_COMPANY", "not authorized for this company")
)

// CompanyLookup は取引先および原価センタから会社コードを解決します。
type CompanyLookup interface {
	CompanyOfClient(ctx context.Context, clientID string) (string, error)
	ClientOfCostCenter(ctx context.Context, costCenterID string) (string, error)
}

// NormalizeCompanyCode は会社コードを比較・保存用に正規化します。
func NormalizeCompanyCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// CompanySet は Principal が操作可能な会社コードの集合です。all が true の場合は全社を表します。
type CompanySet struct {
	all   bool
	codes map[string]struct{}
}

// NewCompanySet は codes を正規化して CompanySet を生成します。
func NewCompanySet(codes ...string) CompanySet {
	set := CompanySet{codes: make(map[string]struct{}, len(codes))}
	for _, c := range codes {
		if n := NormalizeCompanyCode(c); n != "" {
			set.codes[n] = struct{}{}
		}
	}
	return set
}

// AllCompanies は全社を表す CompanySet を返します。
func AllCompanies() CompanySet {
	return CompanySet{all: true}
}

// All は全社アクセスかを返します。
func (s CompanySet) All() bool { return s.all }

// Empty は会社コードを1件も持たないかを返します。
func (s CompanySet) Empty() bool { return !s.all && len(s.codes) == 0 }

// Contains は code が集合に含まれるかを判定します。
func (s CompanySet) Contains(code string) bool {
	if s.all {
		return true
	}
	_, ok := s.codes[NormalizeCompanyCode(code)]
	return ok
}

// Codes は会社コードを昇順で返します。
func (s CompanySet) Codes() []string {
	out := make([]string, 0, len(s.codes))
	for c := range s.codes {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Resolver は Principal のロール・属性から会社スコープを導出します。
type Resolver struct {
	adminRole  string
	attributes []string
}

// NewResolver は Resolver を生成します。空の値は既定値で補完します。
func NewResolver(adminRole string, attributes []string) *Resolver {
	if strings.TrimSpace(adminRole) == "" {
		adminRole = DefaultAdminRole
	}
	if len(attributes) == 0 {
		attributes = DefaultCompanyAttributes
	}
	return &Resolver{adminRole: adminRole, attributes: attributes}
}

// AdminRole は管理者ロール名を返します。
func (r *Resolver) AdminRole() string { return r.adminRole }

// IsAdmin は p が管理者ロールを保持しているかを返します。
func (r *Resolver) IsAdmin(p *reqctx.Principal) bool {
	return p.HasRole(r.adminRole)
}

// AllowedCompanies は書き込み操作で利用する会社スコープを返します。
// 管理者は全社、それ以外は属性から収集し、空集合であれば ErrUnauthorizedCompany を返します。
func (r *Resolver) AllowedCompanies(p *reqctx.Principal) (CompanySet, error) {
	if p == nil {
		return CompanySet{}, ErrUnauthenticated
	}
	set := r.collect(p)
	if set.Empty() {
		return CompanySet{}, fmt.Errorf("principal %q has no company codes: %w", p.Subject, ErrUnauthorizedCompany)
	}
	return set, nil
}

func (r *Resolver) collect(p *reqctx.Principal) CompanySet {
	if r.IsAdmin(p) {
		return AllCompanies()
	}
	var codes []string
	for _, name := range r.attributes {
		codes = append(codes, p.Attribute(name)...)
	}
	return NewCompanySet(codes...)
}

// Filter は読み取り時に適用する会社条件です。
// Restrict が true の場合 CompanyIDs に含まれる会社のみが対象で、空であれば何も一致しません。
type Filter struct {
	Restrict   bool
	CompanyIDs []string
}

// Allows は companyID がフィルタを通過するかを判定します。
func (f Filter) Allows(companyID string) bool {
	if !f.Restrict {
		return true
	}
	n := NormalizeCompanyCode(companyID)
	for _, c := range f.CompanyIDs {
		if c == n {
			return true
		}
	}
	return false
}

// ReadFilter は読み取り用のフィルタを返します。会社コードを持たない Principal には何も一致しないフィルタを返します。
func (r *Resolver) ReadFilter(p *reqctx.Principal) (Filter, error) {
	if p == nil {
		return Filter{}, ErrUnauthenticated
	}
	set := r.collect(p)
	if set.All() {
		return Filter{}, nil
	}
	return Filter{Restrict: true, CompanyIDs: set.Codes()}, nil
}

// NewScope はリクエスト単位の認可スコープを生成します。解決結果のキャッシュはスコープ内でのみ共有されます。
func (r *Resolver) NewScope(p *reqctx.Principal, lookup CompanyLookup) (*Scope, error) {
	set, err := r.AllowedCompanies(p)
	if err != nil {
		return nil, err
	}
	return &Scope{
		principal:        p,
		set:              set,
		lookup:           lookup,
		clientCompany:    make(map[string]string),
		costCenterClient: make(map[string]string),
	}, nil
}
