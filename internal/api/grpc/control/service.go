package control

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Service and method names.
const (
	ServiceName        = "sentinel.v1.ControlService"
	GetVariableMethod  = "/" + ServiceName + "/GetVariable"
	CallFunctionMethod = "/" + ServiceName + "/CallFunction"
)

// Metadata keys carrying the caller identity.
const (
	HostnameKey = "x-sentinel-hostname"
	UsernameKey = "x-sentinel-username"
)

// Request field names of CallFunction.
const (
	FieldName     = "name"
	FieldArgument = "argument"
)

// ControlServer is the server API of the control service.
type ControlServer interface {
	GetVariable(ctx context.Context, name *wrapperspb.StringValue) (*structpb.Value, error)
	CallFunction(ctx context.Context, call *structpb.Struct) (*wrapperspb.Int64Value, error)
}

// ServiceDesc describes the control service for grpc.Server.RegisterService.
//
//nolint:gochecknoglobals // Service descriptors are static by nature.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ControlServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetVariable",
			Handler:    getVariableHandler,
		},
		{
			MethodName: "CallFunction",
			Handler:    callFunctionHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "sentinel/v1/control.proto",
}

// Register adds srv to registrar.
func Register(registrar grpc.ServiceRegistrar, srv ControlServer) {
	registrar.RegisterService(&ServiceDesc, srv)
}

//nolint:forcetypeassert // The registrar guarantees srv implements ControlServer.
func getVariableHandler(
	srv any,
	ctx context.Context, //nolint:revive // Signature is fixed by grpc.MethodHandler.
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(ControlServer).GetVariable(ctx, in)
	}

	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: GetVariableMethod,
	}

	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ControlServer).GetVariable(ctx, req.(*wrapperspb.StringValue))
	}

	return interceptor(ctx, in, info, handler)
}

//nolint:forcetypeassert // The registrar guarantees srv implements ControlServer.
func callFunctionHandler(
	srv any,
	ctx context.Context, //nolint:revive // Signature is fixed by grpc.MethodHandler.
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(ControlServer).CallFunction(ctx, in)
	}

	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: CallFunctionMethod,
	}

	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ControlServer).CallFunction(ctx, req.(*structpb.Struct))
	}

	return interceptor(ctx, in, info, handler)
}
