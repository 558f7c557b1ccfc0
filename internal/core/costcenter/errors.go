package costcenter

import "github.com/ogurasousui/org-directory/internal/core/apperr"

var (
	ErrInvalidID             = apperr.Validation("COST_CENTER_INVALID_ID", "cost center: invalid id")
	ErrInvalidCode           = apperr.Validation("COST_CENTER_INVALID_CODE", "cost center: code is required")
	ErrInvalidName           = apperr.Validation("COST_CENTER_INVALID_NAME", "cost center: name is required")
	ErrInvalidClientID       = apperr.Validation("COST_CENTER_INVALID_CLIENT_ID", "cost center: client is required")
	ErrClientImmutable       = apperr.Validation("COST_CENTER_CLIENT_IMMUTABLE", "cost center: client cannot be changed")
	ErrResponsibleRequired   = apperr.Validation("COST_CENTER_RESPONSIBLE_REQUIRED", "cost center: responsible is required")
	ErrResponsibleNotManager = apperr.Validation("COST_CENTER_RESPONSIBLE_NOT_MANAGER", "cost center: responsible must be a manager")
	ErrInvalidValidFrom      = apperr.Validation("COST_CENTER_VALID_FROM_REQUIRED", "cost center: valid from is required")
	ErrInvalidDateRange      = apperr.Validation("COST_CENTER_INVALID_DATE_RANGE", "cost center: valid to must not be before valid from")
	ErrCodeAlreadyExists     = apperr.Conflict("COST_CENTER_CODE_TAKEN", "cost center: code already exists")
	ErrCostCenterInUse       = apperr.Conflict("COST_CENTER_IN_USE", "cost center: cost center still has active assignments or employees")
	ErrCostCenterNotFound    = apperr.NotFound("COST_CENTER_NOT_FOUND", "cost center: not found")
)
