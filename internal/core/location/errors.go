package location

import "github.com/ogurasousui/org-directory/internal/core/apperr"

var (
	ErrInvalidID          = apperr.Validation("LOCATION_INVALID_ID", "location: invalid id")
	ErrInvalidCity        = apperr.Validation("LOCATION_INVALID_CITY", "location: city is required")
	ErrInvalidCountryCode = apperr.Validation("LOCATION_INVALID_COUNTRY_CODE", "location: country code must be ISO 3166-1 alpha-2")
	ErrInvalidZipCode     = apperr.Validation("LOCATION_INVALID_ZIP_CODE", "location: zip code is required")
	ErrInvalidStreet      = apperr.Validation("LOCATION_INVALID_STREET", "location: street is required")
	ErrInvalidClientID    = apperr.Validation("LOCATION_INVALID_CLIENT_ID", "location: client is required")
	ErrInvalidValidFrom   = apperr.Validation("LOCATION_VALID_FROM_REQUIRED", "location: valid from is required")
	ErrInvalidDateRange   = apperr.Validation("LOCATION_INVALID_DATE_RANGE", "location: valid to must not be before valid from")
	ErrClientChangeInUse  = apperr.Validation("LOCATION_CLIENT_CHANGE_IN_USE", "location: client cannot change while employees reference the location")
	ErrLocationInUse      = apperr.Conflict("LOCATION_IN_USE", "location: employees still reference the location")
	ErrLocationNotFound   = apperr.NotFound("LOCATION_NOT_FOUND", "location: not found")
)
