package grpcserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "equipfind.v1.Locator"

// Full method names, as used by clients with grpc.ClientConn.Invoke.
const (
	MethodSearch  = "/" + ServiceName + "/Search"
	MethodSuggest = "/" + ServiceName + "/Suggest"
	MethodFilters = "/" + ServiceName + "/Filters"
	MethodVersion = "/" + ServiceName + "/Version"
)

// LocatorServer is the Locator service. Messages are google.protobuf.Struct
// documents shaped like the HTTP API's JSON bodies.
type LocatorServer interface {
	Search(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Suggest(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Filters(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Version(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// RegisterLocatorServer registers srv on s.
func RegisterLocatorServer(s grpc.ServiceRegistrar, srv LocatorServer) {
	s.RegisterService(&locatorServiceDesc, srv)
}

type unaryMethod func(LocatorServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call unaryMethod) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(LocatorServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(LocatorServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var locatorServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*LocatorServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Search", Handler: unaryHandler(MethodSearch, LocatorServer.Search)},
		{MethodName: "Suggest", Handler: unaryHandler(MethodSuggest, LocatorServer.Suggest)},
		{MethodName: "Filters", Handler: unaryHandler(MethodFilters, LocatorServer.Filters)},
		{MethodName: "Version", Handler: unaryHandler(MethodVersion, LocatorServer.Version)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "equipfind/v1/locator.proto",
}
