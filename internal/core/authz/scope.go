package authz

import (
	"context"
	"fmt"
	"strings"

	"github.com/ogurasousui/org-directory/internal/core/reqctx"
)

// Target は認可対象の行です。CompanyID、ClientID、CostCenterID の順に解決に利用します。
type Target struct {
	CompanyID    string
	ClientID     string
	CostCenterID string
}

// CompanyTarget は会社コードを直接持つ行（取引先）を表します。
func CompanyTarget(companyID string) Target { return Target{CompanyID: companyID} }

// ClientTarget は取引先 ID を持つ行を表します。
func ClientTarget(clientID string) Target { return Target{ClientID: clientID} }

// CostCenterTarget は原価センタ経由で取引先を推定する行を表します。
func CostCenterTarget(costCenterID string) Target { return Target{CostCenterID: costCenterID} }

// Scope はリクエスト単位の認可判定です。並行利用はできません。
type Scope struct {
	principal        *reqctx.Principal
	set              CompanySet
	lookup           CompanyLookup
	clientCompany    map[string]string
	costCenterClient map[string]string
}

// Principal は Scope の Principal を返します。
func (s *Scope) Principal() *reqctx.Principal { return s.principal }

// Companies は Scope の会社集合を返します。
func (s *Scope) Companies() CompanySet { return s.set }

// Check はすべての targets が会社スコープ内にあることを検証します。
func (s *Scope) Check(ctx context.Context, targets ...Target) error {
	if s.set.All() {
		return nil
	}
	for _, target := range targets {
		companyID, err := s.resolve(ctx, target)
		if err != nil {
			return err
		}
		if !s.set.Contains(companyID) {
			return fmt.Errorf("company %q: %w", NormalizeCompanyCode(companyID), ErrUnauthorizedCompany)
		}
	}
	return nil
}

func (s *Scope) resolve(ctx context.Context, target Target) (string, error) {
	if code := strings.TrimSpace(target.CompanyID); code != "" {
		return code, nil
	}

	clientID := strings.TrimSpace(target.ClientID)
	if clientID == "" && strings.TrimSpace(target.CostCenterID) != "" {
		resolved, err := s.ClientOfCostCenter(ctx, target.CostCenterID)
		if err != nil {
			return "", err
		}
		clientID = resolved
	}
	if clientID == "" {
		return "", fmt.Errorf("target without owning client: %w", ErrUnauthorizedCompany)
	}
	return s.CompanyOfClient(ctx, clientID)
}

// CompanyOfClient は取引先の会社コードをキャッシュ付きで解決します。
func (s *Scope) CompanyOfClient(ctx context.Context, clientID string) (string, error) {
	if code, ok := s.clientCompany[clientID]; ok {
		return code, nil
	}
	code, err := s.lookup.CompanyOfClient(ctx, clientID)
	if err != nil {
		return "", err
	}
	s.clientCompany[clientID] = code
	return code, nil
}

// ClientOfCostCenter は原価センタの取引先 ID をキャッシュ付きで解決します。
func (s *Scope) ClientOfCostCenter(ctx context.Context, costCenterID string) (string, error) {
	if id, ok := s.costCenterClient[costCenterID]; ok {
		return id, nil
	}
	id, err := s.lookup.ClientOfCostCenter(ctx, costCenterID)
	if err != nil {
		return "", err
	}
	s.costCenterClient[costCenterID] = id
	return id, nil
}
