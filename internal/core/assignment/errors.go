package assignment

import "github.com/ogurasousui/org-directory/internal/core/apperr"

var (
	ErrInvalidID              = apperr.Validation("ASSIGNMENT_INVALID_ID", "assignment: invalid id")
	ErrInvalidEmployeeID      = apperr.Validation("ASSIGNMENT_EMPLOYEE_REQUIRED", "assignment: employee is required")
	ErrInvalidCostCenterID    = apperr.Validation("ASSIGNMENT_COST_CENTER_REQUIRED", "assignment: cost center is required")
	ErrInvalidClientID        = apperr.Validation("ASSIGNMENT_CLIENT_REQUIRED", "assignment: client is required")
	ErrInvalidValidFrom       = apperr.Validation("ASSIGNMENT_VALID_FROM_REQUIRED", "assignment: valid from is required")
	ErrInvalidDateRange       = apperr.Validation("ASSIGNMENT_INVALID_DATE_RANGE", "assignment: valid to must not be before valid from")
	ErrReferenceImmutable     = apperr.Validation("ASSIGNMENT_REFERENCE_IMMUTABLE", "assignment: employee, cost center and client cannot be changed")
	ErrStartsBeforeCostCenter = apperr.Validation("ASSIGNMENT_STARTS_BEFORE_COST_CENTER", "assignment: starts before the cost center is valid")
	ErrEndRequired            = apperr.Validation("ASSIGNMENT_END_REQUIRED", "assignment: an end date is required because the cost center has one")
	ErrEndsAfterCostCenter    = apperr.Validation("ASSIGNMENT_ENDS_AFTER_COST_CENTER", "assignment: ends after the cost center validity")
	ErrResponsibleNotManager  = apperr.Validation("ASSIGNMENT_RESPONSIBLE_NOT_MANAGER", "assignment: only managers can be responsible")
	ErrOverlappingAssignment  = apperr.Validation("ASSIGNMENT_OVERLAP", "assignment: overlaps another assignment of this employee")
	ErrAssignmentNotFound     = apperr.NotFound("ASSIGNMENT_NOT_FOUND", "assignment: not found")
)
