package lifecycle

import (
	"context"
	"errors"
	"strings"

	"github.com/ogurasousui/org-directory/internal/core/authz"
	"github.com/ogurasousui/org-directory/internal/core/client"
	"github.com/ogurasousui/org-directory/internal/core/reqctx"
)

// ClientPatch は取引先の入力項目です。CompanyIDSet はキーが明示的に null 指定されたことを表します。
type ClientPatch struct {
	CompanyID      *string
	CompanyIDSet   bool
	Name           *string
	CountryCode    *string
	CountryCodeSet bool
}

// ClientChange は取引先検証の入力です。
type ClientChange struct {
	Event     Event
	Incoming  ClientPatch
	Existing  *client.Client
	Principal *reqctx.Principal
}

// Client は取引先の入力を正規化・検証し、保存すべきレコードを返します。
func (v *Validators) Client(ctx context.Context, c ClientChange) (*client.Client, error) {
	in := c.Incoming
	if c.Event == EventCreate {
		rec := &client.Client{}

		name, err := requiredText(in.Name, client.ErrInvalidName)
		if err != nil {
			return nil, err
		}
		rec.Name = name

		companyID := ""
		if in.CompanyID != nil {
			companyID = authz.NormalizeCompanyCode(*in.CompanyID)
		}
		if companyID == "" || !v.companyIDPattern().MatchString(companyID) {
			return nil, client.ErrInvalidCompanyID
		}
		rec.CompanyID = companyID

		if err := v.ensureCompanyIDFree(ctx, companyID); err != nil {
			return nil, err
		}

		country, err := optionalCountry(in.CountryCode)
		if err != nil {
			return nil, err
		}
		rec.CountryCode = country
		return rec, nil
	}

	if c.Existing == nil {
		return nil, client.ErrClientNotFound
	}
	rec := *c.Existing
	rec.CountryCode = cloneStringPtr(c.Existing.CountryCode)

	if in.CompanyID == nil && in.CompanyIDSet {
		return nil, client.ErrCompanyIDImmutable
	}
	if in.CompanyID != nil && authz.NormalizeCompanyCode(*in.CompanyID) != rec.CompanyID {
		return nil, client.ErrCompanyIDImmutable
	}

	if in.Name != nil {
		name, err := requiredText(in.Name, client.ErrInvalidName)
		if err != nil {
			return nil, err
		}
		rec.Name = name
	}

	if in.CountryCodeSet || in.CountryCode != nil {
		country, err := optionalCountry(in.CountryCode)
		if err != nil {
			return nil, err
		}
		rec.CountryCode = country
	}
	return &rec, nil
}

func (v *Validators) ensureCompanyIDFree(ctx context.Context, companyID string) error {
	found, err := v.Clients.FindByCompanyID(ctx, companyID)
	if err != nil {
		if errors.Is(err, client.ErrClientNotFound) {
			return nil
		}
		return err
	}
	if found != nil {
		return client.ErrCompanyIDAlreadyExists
	}
	return nil
}

func optionalCountry(raw *string) (*string, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	code, err := normalizeCountryCode(*raw, client.ErrInvalidCountryCode)
	if err != nil {
		return nil, err
	}
	return &code, nil
}
