package handler

import (
	"context"
	"errors"
	"strconv"

	"github.com/ogurasousui/org-directory/internal/core/apperr"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const errorDomain = "orgdirectory"

func codeForKind(kind apperr.Kind) codes.Code {
	switch kind {
	case apperr.KindValidation:
		return codes.InvalidArgument
	case apperr.KindUnauthenticated:
		return codes.Unauthenticated
	case apperr.KindUnauthorizedCompany, apperr.KindForbidden:
		return codes.PermissionDenied
	case apperr.KindNotFound:
		return codes.NotFound
	case apperr.KindConflict:
		return codes.AlreadyExists
	case apperr.KindPreconditionFailed:
		return codes.FailedPrecondition
	default:
		return codes.Internal
	}
}

// toStatusError はドメインエラーを gRPC ステータスに変換します。
// 内部エラーのメッセージはクライアントに返さず、ErrorInfo に機械可読コードを付与します。
func toStatusError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}

	kind := apperr.KindOf(err)
	code := apperr.CodeOf(err)
	message := err.Error()
	if kind == apperr.KindInternal {
		message = "internal error"
	}

	st := status.New(codeForKind(kind), message)
	detailed, detailErr := st.WithDetails(&errdetails.ErrorInfo{
		Reason:   code,
		Domain:   errorDomain,
		Metadata: map[string]string{"kind": string(kind), "httpStatus": httpStatus(kind)},
	})
	if detailErr != nil {
		return st.Err()
	}
	return detailed.Err()
}

func httpStatus(kind apperr.Kind) string {
	return strconv.Itoa(kind.Status())
}

// ErrorReason は gRPC ステータスに付与された機械可読コードを返します。
func ErrorReason(err error) string {
	st, ok := status.FromError(err)
	if !ok {
		return ""
	}
	for _, d := range st.Details() {
		if info, ok := d.(*errdetails.ErrorInfo); ok {
			return info.GetReason()
		}
	}
	return ""
}
