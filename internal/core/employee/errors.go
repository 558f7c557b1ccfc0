package employee

import "github.com/ogurasousui/org-directory/internal/core/apperr"

var (
	ErrInvalidID                = apperr.Validation("EMPLOYEE_INVALID_ID", "employee: invalid id")
	ErrInvalidClientID          = apperr.Validation("EMPLOYEE_INVALID_CLIENT_ID", "employee: client is required")
	ErrClientImmutable          = apperr.Validation("EMPLOYEE_CLIENT_IMMUTABLE", "employee: client cannot be changed")
	ErrInvalidEmployeeID        = apperr.Validation("EMPLOYEE_INVALID_EMPLOYEE_ID", "employee: invalid employee id")
	ErrEmployeeIDImmutable      = apperr.Validation("EMPLOYEE_ID_IMMUTABLE", "employee: employee id cannot be changed")
	ErrInvalidFirstName         = apperr.Validation("EMPLOYEE_INVALID_FIRST_NAME", "employee: first name is required")
	ErrInvalidLastName          = apperr.Validation("EMPLOYEE_INVALID_LAST_NAME", "employee: last name is required")
	ErrInvalidEmail             = apperr.Validation("EMPLOYEE_INVALID_EMAIL", "employee: invalid email")
	ErrInvalidEntryDate         = apperr.Validation("EMPLOYEE_ENTRY_DATE_REQUIRED", "employee: entry date is required")
	ErrInvalidDateRange         = apperr.Validation("EMPLOYEE_INVALID_DATE_RANGE", "employee: exit date must not be before entry date")
	ErrInvalidStatus            = apperr.Validation("EMPLOYEE_INVALID_STATUS", "employee: invalid status")
	ErrStatusExitDateMismatch   = apperr.Validation("EMPLOYEE_STATUS_EXIT_DATE_MISMATCH", "employee: status must be inactive exactly when an exit date is set")
	ErrLocationRequired         = apperr.Validation("EMPLOYEE_LOCATION_REQUIRED", "employee: location is required")
	ErrSelfManagement           = apperr.Validation("EMPLOYEE_SELF_MANAGEMENT", "employee: an employee cannot manage themselves")
	ErrManagerMismatch          = apperr.Validation("EMPLOYEE_MANAGER_MISMATCH", "employee: manager must be the responsible of the cost center")
	ErrStillResponsible         = apperr.Validation("EMPLOYEE_STILL_RESPONSIBLE", "employee: manager flag cannot be removed while responsible for a cost center")
	ErrEmployeeInUse            = apperr.Conflict("EMPLOYEE_IN_USE", "employee: employee is responsible for a cost center")
	ErrEmployeeHasReports       = apperr.Conflict("EMPLOYEE_HAS_REPORTS", "employee: other employees still report to this employee")
	ErrEmployeeIDAlreadyExists  = apperr.Conflict("EMPLOYEE_ID_TAKEN", "employee: employee id already exists")
	ErrEmployeeNotFound         = apperr.NotFound("EMPLOYEE_NOT_FOUND", "employee: not found")
	ErrInvalidAnonymizationDate = apperr.Validation("EMPLOYEE_INVALID_ANONYMIZATION_DATE", "employee: anonymization cutoff date is required")
)
