package authz

import (
	"fmt"
	"strings"
	"sync"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"
	"github.com/ogurasousui/org-directory/internal/core/apperr"
	"github.com/ogurasousui/org-directory/internal/core/reqctx"
)

// 操作種別です。
const (
	ActionRead      = "read"
	ActionCreate    = "create"
	ActionUpdate    = "update"
	ActionDelete    = "delete"
	ActionAnonymize = "anonymize"
)

// 認可対象のエンティティ名です。
const (
	EntityClient     = "client"
	EntityEmployee   = "employee"
	EntityCostCenter = "costCenter"
	EntityLocation   = "location"
	EntityAssignment = "assignment"
)

// ErrForbiddenRole はロールに操作権限がない場合に返却されます。
var ErrForbiddenRole = apperr.New(apperr.KindForbidden, "FORBIDDEN_ROLE", "role is not allowed to perform this action")

const policyModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && keyMatch(r.obj, p.obj) && keyMatch(r.act, p.act)
`

// DefaultPolicies はポリシーファイル未指定時に適用するロール権限です。
var DefaultPolicies = [][]string{
	{"HRManager", "*", "*"},
	{"HREditor", EntityEmployee, "*"},
	{"HREditor", EntityAssignment, "*"},
	{"HREditor", "*", ActionRead},
	{"HRViewer", "*", ActionRead},
}

// Policy はロールごとの操作権限を casbin で判定します。
type Policy struct {
	enforcer  *casbin.Enforcer
	adminRole string
	mu        sync.RWMutex
}

// NewPolicy は Policy を生成します。policyPath が空の場合は DefaultPolicies を利用します。
func NewPolicy(adminRole, policyPath string) (*Policy, error) {
	m, err := model.NewModelFromString(policyModel)
	if err != nil {
		return nil, fmt.Errorf("authz: parse policy model: %w", err)
	}

	var enf *casbin.Enforcer
	if strings.TrimSpace(policyPath) != "" {
		enf, err = casbin.NewEnforcer(m, fileadapter.NewAdapter(policyPath))
		if err != nil {
			return nil, fmt.Errorf("authz: failed to initialize enforcer: %w", err)
		}
		if err := enf.LoadPolicy(); err != nil {
			return nil, fmt.Errorf("authz: failed to load policies: %w", err)
		}
	} else {
		enf, err = casbin.NewEnforcer(m)
		if err != nil {
			return nil, fmt.Errorf("authz: failed to initialize enforcer: %w", err)
		}
		if _, err := enf.AddPolicies(DefaultPolicies); err != nil {
			return nil, fmt.Errorf("authz: failed to add default policies: %w", err)
		}
	}

	if strings.TrimSpace(adminRole) == "" {
		adminRole = DefaultAdminRole
	}
	return &Policy{enforcer: enf, adminRole: adminRole}, nil
}

// Authorize は p のいずれかのロールが entity に対する action を許可されていれば nil を返します。
func (p *Policy) Authorize(principal *reqctx.Principal, entity, action string) error {
	if principal == nil {
		return ErrUnauthenticated
	}
	if principal.HasRole(p.adminRole) {
		return nil
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	for _, role := range principal.Roles {
		allowed, err := p.enforcer.Enforce(strings.TrimSpace(role), entity, action)
		if err != nil {
			return fmt.Errorf("authz: enforce failed: %w", err)
		}
		if allowed {
			return nil
		}
	}
	return fmt.Errorf("%s %s: %w", action, entity, ErrForbiddenRole)
}
