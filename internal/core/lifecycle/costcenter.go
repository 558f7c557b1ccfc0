package lifecycle

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ogurasousui/org-directory/internal/core/costcenter"
	"github.com/ogurasousui/org-directory/internal/core/reqctx"
)

// CostCenterPatch は原価センタの入力項目です。
type CostCenterPatch struct {
	Code          *string
	Name          *string
	ClientID      *string
	ResponsibleID *string
	ValidFrom     *time.Time
	ValidTo       *time.Time
	ValidToSet    bool
}

// CostCenterChange は原価センタ検証の入力です。
type CostCenterChange struct {
	Event     Event
	Incoming  CostCenterPatch
	Existing  *costcenter.CostCenter
	Principal *reqctx.Principal
}

// CostCenter は原価センタの入力を正規化・検証し、保存すべきレコードを返します。
func (v *Validators) CostCenter(ctx context.Context, c CostCenterChange) (*costcenter.CostCenter, error) {
	in := c.Incoming
	var (
		rec *costcenter.CostCenter
		err error
	)

	if c.Event == EventCreate {
		rec = &costcenter.CostCenter{}
		if rec.ClientID, err = requiredText(in.ClientID, costcenter.ErrInvalidClientID); err != nil {
			return nil, err
		}
		if rec.Code, err = requiredCode(in.Code); err != nil {
			return nil, err
		}
		if rec.Name, err = requiredText(in.Name, costcenter.ErrInvalidName); err != nil {
			return nil, err
		}
		if rec.ResponsibleID, err = requiredText(in.ResponsibleID, costcenter.ErrResponsibleRequired); err != nil {
			return nil, err
		}
		if rec.ValidFrom, err = requiredDate(in.ValidFrom, costcenter.ErrInvalidValidFrom); err != nil {
			return nil, err
		}
		rec.ValidTo = normalizeDatePtr(in.ValidTo)
	} else {
		if c.Existing == nil {
			return nil, costcenter.ErrCostCenterNotFound
		}
		copied := *c.Existing
		copied.ValidTo = cloneTimePtr(c.Existing.ValidTo)
		rec = &copied

		if in.ClientID != nil && strings.TrimSpace(*in.ClientID) != rec.ClientID {
			return nil, costcenter.ErrClientImmutable
		}
		if in.Code != nil {
			if rec.Code, err = requiredCode(in.Code); err != nil {
				return nil, err
			}
		}
		if in.Name != nil {
			if rec.Name, err = requiredText(in.Name, costcenter.ErrInvalidName); err != nil {
				return nil, err
			}
		}
		if in.ResponsibleID != nil {
			if rec.ResponsibleID, err = requiredText(in.ResponsibleID, costcenter.ErrResponsibleRequired); err != nil {
				return nil, err
			}
		}
		if in.ValidFrom != nil {
			if rec.ValidFrom, err = requiredDate(in.ValidFrom, costcenter.ErrInvalidValidFrom); err != nil {
				return nil, err
			}
		}
		if in.ValidToSet || in.ValidTo != nil {
			rec.ValidTo = normalizeDatePtr(in.ValidTo)
		}
	}

	if err := checkRange(rec.ValidFrom, rec.ValidTo, costcenter.ErrInvalidDateRange); err != nil {
		return nil, err
	}

	if c.Existing == nil || rec.Code != c.Existing.Code {
		if err := v.ensureCodeFree(ctx, rec); err != nil {
			return nil, err
		}
	}

	if c.Existing == nil || rec.ResponsibleID != c.Existing.ResponsibleID {
		responsible, err := v.Employees.FindByID(ctx, rec.ResponsibleID)
		if err != nil {
			return nil, err
		}
		if !responsible.IsManager {
			return nil, costcenter.ErrResponsibleNotManager
		}
	}

	return rec, nil
}

func (v *Validators) ensureCodeFree(ctx context.Context, rec *costcenter.CostCenter) error {
	found, err := v.CostCenters.FindByCode(ctx, rec.ClientID, rec.Code)
	if err != nil {
		if errors.Is(err, costcenter.ErrCostCenterNotFound) {
			return nil
		}
		return err
	}
	if found != nil && found.ID != rec.ID {
		return costcenter.ErrCodeAlreadyExists
	}
	return nil
}

func requiredCode(raw *string) (string, error) {
	code, err := requiredText(raw, costcenter.ErrInvalidCode)
	if err != nil {
		return "", err
	}
	return strings.ToUpper(code), nil
}
