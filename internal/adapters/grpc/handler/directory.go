package handler

import (
	"context"
	"time"

	"github.com/ogurasousui/org-directory/internal/core/concurrency"
	"github.com/ogurasousui/org-directory/internal/core/directory"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// HeaderETag は応答でバージョントークンを返すヘッダ名です。
const HeaderETag = "etag"

// UseCase は DirectoryHandler が利用するユースケースです。
type UseCase interface {
	directory.ClientUseCase
	directory.EmployeeUseCase
	directory.CostCenterUseCase
	directory.LocationUseCase
	directory.AssignmentUseCase
}

// DirectoryHandler は DirectoryService の gRPC 実装です。
type DirectoryHandler struct {
	svc UseCase
}

var _ DirectoryServer = (*DirectoryHandler)(nil)

// NewDirectoryHandler は DirectoryHandler を生成します。
func NewDirectoryHandler(svc UseCase) *DirectoryHandler {
	return &DirectoryHandler{svc: svc}
}

func requireRequest(in *structpb.Struct) error {
	if in == nil {
		return status.Error(codes.InvalidArgument, "request is required")
	}
	return nil
}

// respond は record のバージョンを etag ヘッダに設定して応答を組み立てます。
func respond(ctx context.Context, version time.Time, body object) (*structpb.Struct, error) {
	// gRPC サーバー外から直接呼ばれた場合は SetHeader が失敗するため無視する
	_ = grpc.SetHeader(ctx, metadata.Pairs(HeaderETag, concurrency.FormatVersion(version)))
	return body.toStruct()
}

func empty() (*structpb.Struct, error) {
	return &structpb.Struct{Fields: map[string]*structpb.Value{}}, nil
}
