package security

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// SecurityServiceClient is the client API of the security service.
type SecurityServiceClient interface {
	GetStatus(ctx context.Context, req *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
	SetArmingStatus(ctx context.Context, req *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error)
	ChangeSensorActivation(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	ProcessImage(ctx context.Context, req *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BoolValue, error)
	AddSensor(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	RemoveSensor(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

// securityServiceClient invokes the service over a client connection.
type securityServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewSecurityServiceClient creates a client over cc.
func NewSecurityServiceClient(cc grpc.ClientConnInterface) SecurityServiceClient {
	return &securityServiceClient{cc: cc}
}

// GetStatus returns the current snapshot.
func (c *securityServiceClient) GetStatus(
	ctx context.Context,
	req *emptypb.Empty,
	opts ...grpc.CallOption,
) (*structpb.Struct, error) {
	return invoke[structpb.Struct](ctx, c.cc, MethodGetStatus, req, opts)
}

// SetArmingStatus changes the arming status.
func (c *securityServiceClient) SetArmingStatus(
	ctx context.Context,
	req *wrapperspb.StringValue,
	opts ...grpc.CallOption,
) (*structpb.Struct, error) {
	return invoke[structpb.Struct](ctx, c.cc, MethodSetArmingStatus, req, opts)
}

// ChangeSensorActivation activates or deactivates a sensor.
func (c *securityServiceClient) ChangeSensorActivation(
	ctx context.Context,
	req *structpb.Struct,
	opts ...grpc.CallOption,
) (*structpb.Struct, error) {
	return invoke[structpb.Struct](ctx, c.cc, MethodChangeSensorActivation, req, opts)
}

// ProcessImage submits a camera image.
func (c *securityServiceClient) ProcessImage(
	ctx context.Context,
	req *wrapperspb.BytesValue,
	opts ...grpc.CallOption,
) (*wrapperspb.BoolValue, error) {
	return invoke[wrapperspb.BoolValue](ctx, c.cc, MethodProcessImage, req, opts)
}

// AddSensor registers a sensor.
func (c *securityServiceClient) AddSensor(
	ctx context.Context,
	req *structpb.Struct,
	opts ...grpc.CallOption,
) (*structpb.Struct, error) {
	return invoke[structpb.Struct](ctx, c.cc, MethodAddSensor, req, opts)
}

// RemoveSensor deletes a sensor.
func (c *securityServiceClient) RemoveSensor(
	ctx context.Context,
	req *structpb.Struct,
	opts ...grpc.CallOption,
) (*structpb.Struct, error) {
	return invoke[structpb.Struct](ctx, c.cc, MethodRemoveSensor, req, opts)
}

// invoke performs a unary call and allocates the response.
func invoke[Out any](
	ctx context.Context,
	cc grpc.ClientConnInterface,
	method string,
	req any,
	opts []grpc.CallOption,
) (*Out, error) {
	out := new(Out)

	if err := cc.Invoke(ctx, method, req, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}
