package integrity

import (
	"context"
	"fmt"
	"strings"

	"github.com/ogurasousui/org-directory/internal/core/apperr"
	"github.com/ogurasousui/org-directory/internal/core/client"
	"github.com/ogurasousui/org-directory/internal/core/costcenter"
	"github.com/ogurasousui/org-directory/internal/core/employee"
	"github.com/ogurasousui/org-directory/internal/core/location"
)

// Kind は参照の種類です。
type Kind string

const (
	KindManager     Kind = "manager"
	KindCostCenter  Kind = "costCenter"
	KindResponsible Kind = "responsible"
	KindLocation    Kind = "location"
	KindEmployee    Kind = "employee"
	KindClient      Kind = "client"
)

// ErrCrossClientReference は参照先が別の取引先に属する場合に返却されます。
var ErrCrossClientReference = apperr.Validation("REFERENTIAL_INTEGRITY", "referenced record belongs to another client")

// Ref は検証対象の参照です。ID が空の参照は無視されます。
type Ref struct {
	Kind Kind
	ID   string
}

// RefPtr は任意項目の参照を Ref に変換します。
func RefPtr(kind Kind, id *string) Ref {
	if id == nil {
		return Ref{Kind: kind}
	}
	return Ref{Kind: kind, ID: *id}
}

type clientFinder interface {
	FindByID(ctx context.Context, id string) (*client.Client, error)
}

type employeeFinder interface {
	FindByID(ctx context.Context, id string) (*employee.Employee, error)
}

type costCenterFinder interface {
	FindByID(ctx context.Context, id string) (*costcenter.CostCenter, error)
}

type locationFinder interface {
	FindByID(ctx context.Context, id string) (*location.Location, error)
}

// Checker は参照先が所有者と同じ取引先に属することを検証します。
type Checker struct {
	clients     clientFinder
	employees   employeeFinder
	costCenters costCenterFinder
	locations   locationFinder
}

// NewChecker は Checker を生成します。
func NewChecker(clients clientFinder, employees employeeFinder, costCenters costCenterFinder, locations locationFinder) *Checker {
	return &Checker{clients: clients, employees: employees, costCenters: costCenters, locations: locations}
}

// Check は refs の参照先をすべて解決し、存在しなければ NotFound、
// ownerClientID と異なる取引先に属していれば ErrCrossClientReference を返します。
func (c *Checker) Check(ctx context.Context, ownerClientID string, refs ...Ref) error {
	for _, ref := range refs {
		id := strings.TrimSpace(ref.ID)
		if id == "" {
			continue
		}

		clientID, err := c.clientOf(ctx, ref.Kind, id)
		if err != nil {
			return fmt.Errorf("%s %s: %w", ref.Kind, id, err)
		}
		if clientID != ownerClientID {
			return fmt.Errorf("%s %s: %w", ref.Kind, id, ErrCrossClientReference)
		}
	}
	return nil
}

func (c *Checker) clientOf(ctx context.Context, kind Kind, id string) (string, error) {
	switch kind {
	case KindManager, KindResponsible, KindEmployee:
		found, err := c.employees.FindByID(ctx, id)
		if err != nil {
			return "", err
		}
		return found.ClientID, nil
	case KindCostCenter:
		found, err := c.costCenters.FindByID(ctx, id)
		if err != nil {
			return "", err
		}
		return found.ClientID, nil
	case KindLocation:
		found, err := c.locations.FindByID(ctx, id)
		if err != nil {
			return "", err
		}
		return found.ClientID, nil
	case KindClient:
		found, err := c.clients.FindByID(ctx, id)
		if err != nil {
			return "", err
		}
		return found.ID, nil
	default:
		return "", fmt.Errorf("integrity: unknown reference kind %q", kind)
	}
}
