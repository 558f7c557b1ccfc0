package apperr

import (
	"errors"
	"fmt"
)

// Kind はエラーの分類です。トランスポート層はこの値でステータスを決定します。
type Kind string

const (
	KindValidation          Kind = "VALIDATION"
	KindUnauthenticated     Kind = "UNAUTHENTICATED"
	KindUnauthorizedCompany Kind = "UNAUTHORIZED_COMPANY"
	KindForbidden           Kind = "FORBIDDEN"
	KindNotFound            Kind = "NOT_FOUND"
	KindConflict            Kind = "CONFLICT"
	KindPreconditionFailed  Kind = "PRECONDITION_FAILED"
	KindInternal            Kind = "INTERNAL"
)

// Status は Kind に対応する HTTP 相当のステータスコードを返します。
func (k Kind) Status() int {
	switch k {
	case KindValidation:
		return 400
	case KindUnauthenticated:
		return 401
	case KindUnauthorizedCompany, KindForbidden:
		return 403
	case KindNotFound:
		return 404
	case KindConflict:
		return 409
	case KindPreconditionFailed:
		return 412
	default:
		return 500
	}
}

// Error は分類・機械可読コード・メッセージを持つエラーです。
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New は Error を生成します。
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Wrap は原因エラーを保持した Error を生成します。
func Wrap(kind Kind, code, message string, cause error) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Cause: cause}
}

func Validation(code, message string) *Error { return New(KindValidation, code, message) }
func NotFound(code, message string) *Error   { return New(KindNotFound, code, message) }
func Conflict(code, message string) *Error   { return New(KindConflict, code, message) }
func Internal(code, message string) *Error   { return New(KindInternal, code, message) }

// KindOf は err に含まれる最初の Error の Kind を返します。該当しなければ KindInternal です。
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// CodeOf は err に含まれる最初の Error のコードを返します。
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return "INTERNAL"
}

// Is は err が指定の Kind に分類されるかを判定します。
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
