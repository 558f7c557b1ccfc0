package lifecycle

import (
	"context"
	"strings"
	"time"

	"github.com/ogurasousui/org-directory/internal/core/location"
	"github.com/ogurasousui/org-directory/internal/core/reqctx"
)

// LocationPatch は勤務地の入力項目です。
type LocationPatch struct {
	City        *string
	CountryCode *string
	ZipCode     *string
	Street      *string
	ClientID    *string
	ValidFrom   *time.Time
	ValidTo     *time.Time
	ValidToSet  bool
}

// LocationChange は勤務地検証の入力です。
type LocationChange struct {
	Event     Event
	Incoming  LocationPatch
	Existing  *location.Location
	Principal *reqctx.Principal
}

// Location は勤務地の入力を正規化・検証し、保存すべきレコードを返します。
func (v *Validators) Location(ctx context.Context, c LocationChange) (*location.Location, error) {
	in := c.Incoming
	var (
		rec *location.Location
		err error
	)

	if c.Event == EventCreate {
		rec = &location.Location{}
		if rec.ClientID, err = requiredText(in.ClientID, location.ErrInvalidClientID); err != nil {
			return nil, err
		}
		if rec.City, err = requiredText(in.City, location.ErrInvalidCity); err != nil {
			return nil, err
		}
		if in.CountryCode == nil {
			return nil, location.ErrInvalidCountryCode
		}
		if rec.CountryCode, err = normalizeCountryCode(*in.CountryCode, location.ErrInvalidCountryCode); err != nil {
			return nil, err
		}
		if rec.ZipCode, err = requiredText(in.ZipCode, location.ErrInvalidZipCode); err != nil {
			return nil, err
		}
		if rec.Street, err = requiredText(in.Street, location.ErrInvalidStreet); err != nil {
			return nil, err
		}
		if rec.ValidFrom, err = requiredDate(in.ValidFrom, location.ErrInvalidValidFrom); err != nil {
			return nil, err
		}
		rec.ValidTo = normalizeDatePtr(in.ValidTo)
	} else {
		if c.Existing == nil {
			return nil, location.ErrLocationNotFound
		}
		copied := *c.Existing
		copied.ValidTo = cloneTimePtr(c.Existing.ValidTo)
		rec = &copied

		if in.ClientID != nil {
			clientID, err := requiredText(in.ClientID, location.ErrInvalidClientID)
			if err != nil {
				return nil, err
			}
			if clientID != rec.ClientID {
				n, err := v.Employees.CountByLocation(ctx, rec.ID)
				if err != nil {
					return nil, err
				}
				if n > 0 {
					return nil, location.ErrClientChangeInUse
				}
				rec.ClientID = clientID
			}
		}
		if in.City != nil {
			if rec.City, err = requiredText(in.City, location.ErrInvalidCity); err != nil {
				return nil, err
			}
		}
		if in.CountryCode != nil {
			if rec.CountryCode, err = normalizeCountryCode(*in.CountryCode, location.ErrInvalidCountryCode); err != nil {
				return nil, err
			}
		}
		if in.ZipCode != nil {
			if rec.ZipCode, err = requiredText(in.ZipCode, location.ErrInvalidZipCode); err != nil {
				return nil, err
			}
		}
		if in.Street != nil {
			if rec.Street, err = requiredText(in.Street, location.ErrInvalidStreet); err != nil {
				return nil, err
			}
		}
		if in.ValidFrom != nil {
			if rec.ValidFrom, err = requiredDate(in.ValidFrom, location.ErrInvalidValidFrom); err != nil {
				return nil, err
			}
		}
		if in.ValidToSet || in.ValidTo != nil {
			rec.ValidTo = normalizeDatePtr(in.ValidTo)
		}
	}

	if err := checkRange(rec.ValidFrom, rec.ValidTo, location.ErrInvalidDateRange); err != nil {
		return nil, err
	}
	rec.ZipCode = strings.ToUpper(rec.ZipCode)
	return rec, nil
}
