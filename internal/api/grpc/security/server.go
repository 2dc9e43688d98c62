package security

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/oshokin/catpoint/internal/codec"
	domain "github.com/oshokin/catpoint/internal/domain/security"
	"github.com/oshokin/catpoint/internal/image"
	"github.com/oshokin/catpoint/internal/logger"
	repository "github.com/oshokin/catpoint/internal/repository/security"
)

// Service abstracts the business operations the transport layer depends on.
type Service interface {
	SetArmingStatus(ctx context.Context, status domain.ArmingStatus) error
	ChangeSensorActivationStatus(ctx context.Context, sensor domain.Sensor, active bool) error
	ProcessImage(ctx context.Context, img []byte) (bool, error)
	Snapshot(ctx context.Context) (*domain.Snapshot, error)
}

// SensorRegistry adds and removes sensors.
type SensorRegistry interface {
	AddSensor(ctx context.Context, sensor domain.Sensor) error
	RemoveSensor(ctx context.Context, key domain.SensorKey) error
}

// Server implements the SecurityService gRPC API.
type Server struct {
	// service provides the alarm state machine.
	service Service
	// sensors owns the sensor lifecycle.
	sensors SensorRegistry
}

// NewServer wires the provided implementations into a gRPC handler.
func NewServer(service Service, sensors SensorRegistry) *Server {
	return &Server{
		service: service,
		sensors: sensors,
	}
}

// GetStatus returns the current snapshot.
func (s *Server) GetStatus(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return s.snapshot(ctx)
}

// SetArmingStatus changes the arming status and returns the resulting snapshot.
func (s *Server) SetArmingStatus(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	arming, err := domain.ParseArmingStatus(req.GetValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	if err = s.service.SetArmingStatus(ctx, arming); err != nil {
		return nil, toStatusError(ctx, "unable to set arming status", err)
	}

	return s.snapshot(ctx)
}

// ChangeSensorActivation activates or deactivates a sensor and returns the resulting snapshot.
// The request carries the sensor identity and the desired active flag.
func (s *Server) ChangeSensorActivation(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	requested, err := codec.SensorFromStruct(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	// A sensor unknown to the store is assumed to have been inactive.
	sensor := domain.Sensor{
		Name: requested.Name,
		Type: requested.Type,
	}

	if err = s.service.ChangeSensorActivationStatus(ctx, sensor, requested.Active); err != nil {
		return nil, toStatusError(ctx, "unable to change sensor activation", err)
	}

	return s.snapshot(ctx)
}

// ProcessImage classifies an image and reports whether it contained a cat.
func (s *Server) ProcessImage(ctx context.Context, req *wrapperspb.BytesValue) (*wrapperspb.BoolValue, error) {
	if len(req.GetValue()) == 0 {
		return nil, status.Error(codes.InvalidArgument, "image is required")
	}

	containsCat, err := s.service.ProcessImage(ctx, req.GetValue())
	if err != nil {
		return nil, toStatusError(ctx, "unable to process image", err)
	}

	return wrapperspb.Bool(containsCat), nil
}

// AddSensor registers a sensor and returns the resulting snapshot.
func (s *Server) AddSensor(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sensor, err := codec.SensorFromStruct(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	if err = s.sensors.AddSensor(ctx, sensor); err != nil {
		return nil, toStatusError(ctx, "unable to add sensor", err)
	}

	logger.InfoKV(ctx, "Sensor added", "sensor", sensor.Key().String())

	return s.snapshot(ctx)
}

// RemoveSensor deletes a sensor and returns the resulting snapshot.
func (s *Server) RemoveSensor(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sensor, err := codec.SensorFromStruct(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	if err = s.sensors.RemoveSensor(ctx, sensor.Key()); err != nil {
		return nil, toStatusError(ctx, "unable to remove sensor", err)
	}

	logger.InfoKV(ctx, "Sensor removed", "sensor", sensor.Key().String())

	return s.snapshot(ctx)
}

// snapshot reads and encodes the current state.
func (s *Server) snapshot(ctx context.Context) (*structpb.Struct, error) {
	snapshot, err := s.service.Snapshot(ctx)
	if err != nil {
		return nil, toStatusError(ctx, "unable to read state", err)
	}

	return codec.SnapshotToStruct(snapshot), nil
}

// toStatusError maps business errors to gRPC status codes.
// Internal failures are logged and reported without details.
func toStatusError(ctx context.Context, message string, err error) error {
	switch {
	case errors.Is(err, domain.ErrUnknownArmingStatus),
		errors.Is(err, domain.ErrUnknownSensorType),
		errors.Is(err, domain.ErrSensorNameRequired),
		errors.Is(err, image.ErrEmptyImage),
		errors.Is(err, image.ErrInvalidImage):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, repository.ErrSensorNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, repository.ErrSensorExists):
		return status.Error(codes.AlreadyExists, err.Error())
	default:
		logger.ErrorKV(ctx, message, "error", err)

		return status.Error(codes.Internal, message)
	}
}
