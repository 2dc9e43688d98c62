package security

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "catpoint.v1.SecurityService"

// Full method names.
const (
	MethodGetStatus              = "/" + ServiceName + "/GetStatus"
	MethodSetArmingStatus        = "/" + ServiceName + "/SetArmingStatus"
	MethodChangeSensorActivation = "/" + ServiceName + "/ChangeSensorActivation"
	MethodProcessImage           = "/" + ServiceName + "/ProcessImage"
	MethodAddSensor              = "/" + ServiceName + "/AddSensor"
	MethodRemoveSensor           = "/" + ServiceName + "/RemoveSensor"
)

// SecurityServiceServer is the server API of the security service.
type SecurityServiceServer interface {
	GetStatus(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
	SetArmingStatus(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error)
	ChangeSensorActivation(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ProcessImage(ctx context.Context, req *wrapperspb.BytesValue) (*wrapperspb.BoolValue, error)
	AddSensor(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	RemoveSensor(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// RegisterSecurityServiceServer registers srv on the gRPC registrar.
func RegisterSecurityServiceServer(registrar grpc.ServiceRegistrar, srv SecurityServiceServer) {
	registrar.RegisterService(&SecurityServiceDesc, srv)
}

// SecurityServiceDesc describes the service for grpc.Server.RegisterService.
//
//nolint:gochecknoglobals // Service descriptors are package-level by convention.
var SecurityServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SecurityServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetStatus", Handler: getStatusHandler},
		{MethodName: "SetArmingStatus", Handler: setArmingStatusHandler},
		{MethodName: "ChangeSensorActivation", Handler: changeSensorActivationHandler},
		{MethodName: "ProcessImage", Handler: processImageHandler},
		{MethodName: "AddSensor", Handler: addSensorHandler},
		{MethodName: "RemoveSensor", Handler: removeSensorHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "catpoint/v1/security.proto",
}

// unaryHandler decodes the request into a fresh In and dispatches to call,
// going through the interceptor when one is installed.
func unaryHandler[In any, Out any](
	fullMethod string,
	call func(SecurityServiceServer, context.Context, *In) (*Out, error),
) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(In)
		if err := dec(in); err != nil {
			return nil, err
		}

		server, _ := srv.(SecurityServiceServer)

		if interceptor == nil {
			return call(server, ctx, in)
		}

		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}

		handler := func(ctx context.Context, req any) (any, error) {
			typed, _ := req.(*In)

			return call(server, ctx, typed)
		}

		return interceptor(ctx, in, info, handler)
	}
}

//nolint:gochecknoglobals // Handlers are referenced by SecurityServiceDesc.
var (
	getStatusHandler = unaryHandler(MethodGetStatus,
		func(s SecurityServiceServer, ctx context.Context, in *emptypb.Empty) (*structpb.Struct, error) {
			return s.GetStatus(ctx, in)
		})
	setArmingStatusHandler = unaryHandler(MethodSetArmingStatus,
		func(s SecurityServiceServer, ctx context.Context, in *wrapperspb.StringValue) (*structpb.Struct, error) {
			return s.SetArmingStatus(ctx, in)
		})
	changeSensorActivationHandler = unaryHandler(MethodChangeSensorActivation,
		func(s SecurityServiceServer, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
			return s.ChangeSensorActivation(ctx, in)
		})
	processImageHandler = unaryHandler(MethodProcessImage,
		func(s SecurityServiceServer, ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BoolValue, error) {
			return s.ProcessImage(ctx, in)
		})
	addSensorHandler = unaryHandler(MethodAddSensor,
		func(s SecurityServiceServer, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
			return s.AddSensor(ctx, in)
		})
	removeSensorHandler = unaryHandler(MethodRemoveSensor,
		func(s SecurityServiceServer, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
			return s.RemoveSensor(ctx, in)
		})
)
