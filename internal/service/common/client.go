//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	api "github.com/oshokin/catpoint/internal/api/grpc/security"
	"github.com/oshokin/catpoint/internal/codec"
	"github.com/oshokin/catpoint/internal/config"
	domain "github.com/oshokin/catpoint/internal/domain/security"
)

// Client wraps the gRPC SecurityService client and speaks domain types.
type Client struct {
	// conn is the underlying gRPC connection to the security server.
	conn *grpc.ClientConn
	// api is the SecurityService client interface.
	api api.SecurityServiceClient
	// actor is attached to every call for the server audit log.
	actor *Actor

	// callTimeout is the default timeout for individual RPC calls.
	callTimeout time.Duration
}

// Option configures client behaviour.
type Option func(*Client)

// WithCallTimeout sets a default timeout for service calls.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

// WithActor identifies the caller on every request.
func WithActor(actor *Actor) Option {
	return func(c *Client) {
		c.actor = actor
	}
}

// errAddressRequired is returned when a required address value is missing.
var errAddressRequired = errors.New("address must be provided")

// Dial establishes a gRPC connection to the security server.
// Note: this uses insecure transport credentials; deploy on a trusted network
// or terminate TLS in a proxy until native TLS is added.
func Dial(_ context.Context, address string, opts ...Option) (*Client, error) {
	if address == "" {
		return nil, errAddressRequired
	}

	conn, err := grpc.NewClient(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial security server: %w", err)
	}

	client := &Client{
		conn:        conn,
		api:         api.NewSecurityServiceClient(conn),
		callTimeout: config.DefaultTimeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}

	return c.conn.Close()
}

// Status retrieves the current snapshot.
func (c *Client) Status(ctx context.Context) (*domain.Snapshot, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	response, err := c.api.GetStatus(callCtx, new(emptypb.Empty))
	if err != nil {
		return nil, fmt.Errorf("get status: %w", err)
	}

	return decodeSnapshot(response)
}

// SetArmingStatus changes the arming status.
func (c *Client) SetArmingStatus(ctx context.Context, status domain.ArmingStatus) (*domain.Snapshot, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	response, err := c.api.SetArmingStatus(callCtx, wrapperspb.String(string(status)))
	if err != nil {
		return nil, fmt.Errorf("set arming status: %w", err)
	}

	return decodeSnapshot(response)
}

// ChangeSensorActivation activates or deactivates a sensor.
func (c *Client) ChangeSensorActivation(
	ctx context.Context,
	key domain.SensorKey,
	active bool,
) (*domain.Snapshot, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	request := codec.SensorToStruct(domain.Sensor{Name: key.Name, Type: key.Type, Active: active})

	response, err := c.api.ChangeSensorActivation(callCtx, request)
	if err != nil {
		return nil, fmt.Errorf("change sensor activation: %w", err)
	}

	return decodeSnapshot(response)
}

// ProcessImage submits a camera image and reports whether it contained a cat.
func (c *Client) ProcessImage(ctx context.Context, image []byte) (bool, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	response, err := c.api.ProcessImage(callCtx, wrapperspb.Bytes(image))
	if err != nil {
		return false, fmt.Errorf("process image: %w", err)
	}

	return response.GetValue(), nil
}

// AddSensor registers an inactive sensor.
func (c *Client) AddSensor(ctx context.Context, key domain.SensorKey) (*domain.Snapshot, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	response, err := c.api.AddSensor(callCtx, codec.SensorToStruct(domain.Sensor{Name: key.Name, Type: key.Type}))
	if err != nil {
		return nil, fmt.Errorf("add sensor: %w", err)
	}

	return decodeSnapshot(response)
}

// RemoveSensor deletes a sensor.
func (c *Client) RemoveSensor(ctx context.Context, key domain.SensorKey) (*domain.Snapshot, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	response, err := c.api.RemoveSensor(callCtx, codec.SensorToStruct(domain.Sensor{Name: key.Name, Type: key.Type}))
	if err != nil {
		return nil, fmt.Errorf("remove sensor: %w", err)
	}

	return decodeSnapshot(response)
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline. The actor is
// attached as outgoing metadata.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = AppendActor(ctx, c.actor)

	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}

// decodeSnapshot converts a response into the domain snapshot.
func decodeSnapshot(response *structpb.Struct) (*domain.Snapshot, error) {
	snapshot, err := codec.SnapshotFromStruct(response)
	if err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}

	return snapshot, nil
}
