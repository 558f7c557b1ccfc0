package client

import "github.com/ogurasousui/org-directory/internal/core/apperr"

var (
	// ErrClientNotFound は取引先が存在しない場合に返却されます。
	ErrClientNotFound = apperr.NotFound("CLIENT_NOT_FOUND", "client: not found")
	// ErrCompanyIDAlreadyExists は CompanyID 重複時に返却されます。
	ErrCompanyIDAlreadyExists = apperr.Conflict("COMPANY_ID_TAKEN", "client: company id already exists")
	// ErrInvalidID は ID が不正な場合に返却されます。
	ErrInvalidID = apperr.Validation("CLIENT_INVALID_ID", "client: invalid id")
	// ErrInvalidName は名称が不正な場合に返却されます。
	ErrInvalidName = apperr.Validation("CLIENT_INVALID_NAME", "client: name is required")
	// ErrInvalidCompanyID は CompanyID の形式が不正な場合に返却されます。
	ErrInvalidCompanyID = apperr.Validation("CLIENT_INVALID_COMPANY_ID", "client: invalid company id")
	// ErrCompanyIDImmutable は設定済みの CompanyID を変更しようとした場合に返却されます。
	ErrCompanyIDImmutable = apperr.Validation("CLIENT_COMPANY_ID_IMMUTABLE", "client: company id cannot be changed")
	// ErrInvalidCountryCode は国コードが ISO 3166-1 alpha-2 でない場合に返却されます。
	ErrInvalidCountryCode = apperr.Validation("CLIENT_INVALID_COUNTRY_CODE", "client: invalid country code")
)
