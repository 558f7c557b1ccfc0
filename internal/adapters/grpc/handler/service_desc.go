package handler

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName は公開する gRPC サービスの完全修飾名です。
const ServiceName = "orgdirectory.v1.DirectoryService"

// DirectoryServer は DirectoryService の各メソッドです。要求・応答はすべて google.protobuf.Struct です。
type DirectoryServer interface {
	CreateClient(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	GetClient(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	ListClients(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	UpdateClient(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	DeleteClient(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	PreviewClientDeletion(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)

	CreateEmployee(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	GetEmployee(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	ListEmployees(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	UpdateEmployee(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	DeleteEmployee(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	AnonymizeFormerEmployees(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)

	CreateCostCenter(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	GetCostCenter(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	ListCostCenters(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	UpdateCostCenter(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	DeleteCostCenter(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)

	CreateLocation(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	GetLocation(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	ListLocations(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	UpdateLocation(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	DeleteLocation(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)

	CreateAssignment(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	GetAssignment(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	ListAssignments(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	UpdateAssignment(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	DeleteAssignment(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

type structMethod func(DirectoryServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

// DirectoryServiceDesc は protoc 生成コードを使わずに DirectoryService を登録するための記述子です。
var DirectoryServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DirectoryServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("CreateClient", DirectoryServer.CreateClient),
		unary("GetClient", DirectoryServer.GetClient),
		unary("ListClients", DirectoryServer.ListClients),
		unary("UpdateClient", DirectoryServer.UpdateClient),
		unary("DeleteClient", DirectoryServer.DeleteClient),
		unary("PreviewClientDeletion", DirectoryServer.PreviewClientDeletion),
		unary("CreateEmployee", DirectoryServer.CreateEmployee),
		unary("GetEmployee", DirectoryServer.GetEmployee),
		unary("ListEmployees", DirectoryServer.ListEmployees),
		unary("UpdateEmployee", DirectoryServer.UpdateEmployee),
		unary("DeleteEmployee", DirectoryServer.DeleteEmployee),
		unary("AnonymizeFormerEmployees", DirectoryServer.AnonymizeFormerEmployees),
		unary("CreateCostCenter", DirectoryServer.CreateCostCenter),
		unary("GetCostCenter", DirectoryServer.GetCostCenter),
		unary("ListCostCenters", DirectoryServer.ListCostCenters),
		unary("UpdateCostCenter", DirectoryServer.UpdateCostCenter),
		unary("DeleteCostCenter", DirectoryServer.DeleteCostCenter),
		unary("CreateLocation", DirectoryServer.CreateLocation),
		unary("GetLocation", DirectoryServer.GetLocation),
		unary("ListLocations", DirectoryServer.ListLocations),
		unary("UpdateLocation", DirectoryServer.UpdateLocation),
		unary("DeleteLocation", DirectoryServer.DeleteLocation),
		unary("CreateAssignment", DirectoryServer.CreateAssignment),
		unary("GetAssignment", DirectoryServer.GetAssignment),
		unary("ListAssignments", DirectoryServer.ListAssignments),
		unary("UpdateAssignment", DirectoryServer.UpdateAssignment),
		unary("DeleteAssignment", DirectoryServer.DeleteAssignment),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "orgdirectory/v1/directory.proto",
}

// RegisterDirectoryServer は srv を DirectoryService として登録します。
func RegisterDirectoryServer(s grpc.ServiceRegistrar, srv DirectoryServer) {
	s.RegisterService(&DirectoryServiceDesc, srv)
}

// FullMethod はメソッド名から gRPC の完全メソッドパスを返します。
func FullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

func unary(name string, call structMethod) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(DirectoryServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(DirectoryServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}
