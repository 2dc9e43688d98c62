package codec

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	domain "github.com/oshokin/catpoint/internal/domain/security"
)

// Field names shared by the wire format and the state file.
const (
	FieldName         = "name"
	FieldType         = "type"
	FieldActive       = "active"
	FieldArmingStatus = "arming_status"
	FieldAlarmStatus  = "alarm_status"
	FieldSensors      = "sensors"
)

// ErrEmptyMessage is returned when a nil or empty struct is decoded.
var ErrEmptyMessage = errors.New("empty message")

// SensorToStruct encodes a sensor.
func SensorToStruct(sensor domain.Sensor) *structpb.Struct {
	return &structpb.Struct{
		Fields: map[string]*structpb.Value{
			FieldName:   structpb.NewStringValue(sensor.Name),
			FieldType:   structpb.NewStringValue(string(sensor.Type)),
			FieldActive: structpb.NewBoolValue(sensor.Active),
		},
	}
}

// SensorFromStruct decodes and validates a sensor. A missing active field means inactive.
func SensorFromStruct(message *structpb.Struct) (domain.Sensor, error) {
	if len(message.GetFields()) == 0 {
		return domain.Sensor{}, ErrEmptyMessage
	}

	fields := message.GetFields()

	sensorType, err := domain.ParseSensorType(fields[FieldType].GetStringValue())
	if err != nil {
		return domain.Sensor{}, err
	}

	sensor := domain.Sensor{
		Name:   fields[FieldName].GetStringValue(),
		Type:   sensorType,
		Active: fields[FieldActive].GetBoolValue(),
	}

	if err = sensor.Validate(); err != nil {
		return domain.Sensor{}, err
	}

	return sensor, nil
}

// SnapshotToStruct encodes a snapshot.
func SnapshotToStruct(snapshot *domain.Snapshot) *structpb.Struct {
	if snapshot == nil {
		return &structpb.Struct{}
	}

	sensors := make([]*structpb.Value, 0, len(snapshot.Sensors))
	for _, sensor := range snapshot.Sensors {
		sensors = append(sensors, structpb.NewStructValue(SensorToStruct(sensor)))
	}

	return &structpb.Struct{
		Fields: map[string]*structpb.Value{
			FieldArmingStatus: structpb.NewStringValue(string(snapshot.ArmingStatus)),
			FieldAlarmStatus:  structpb.NewStringValue(string(snapshot.AlarmStatus)),
			FieldSensors:      structpb.NewListValue(&structpb.ListValue{Values: sensors}),
		},
	}
}

// SnapshotFromStruct decodes and validates a snapshot.
func SnapshotFromStruct(message *structpb.Struct) (*domain.Snapshot, error) {
	if len(message.GetFields()) == 0 {
		return nil, ErrEmptyMessage
	}

	fields := message.GetFields()

	arming, err := domain.ParseArmingStatus(fields[FieldArmingStatus].GetStringValue())
	if err != nil {
		return nil, err
	}

	alarm, err := domain.ParseAlarmStatus(fields[FieldAlarmStatus].GetStringValue())
	if err != nil {
		return nil, err
	}

	values := fields[FieldSensors].GetListValue().GetValues()
	snapshot := &domain.Snapshot{
		ArmingStatus: arming,
		AlarmStatus:  alarm,
		Sensors:      make([]domain.Sensor, 0, len(values)),
	}

	for i, value := range values {
		sensor, err := SensorFromStruct(value.GetStructValue())
		if err != nil {
			return nil, fmt.Errorf("sensor %d: %w", i, err)
		}

		snapshot.Sensors = append(snapshot.Sensors, sensor)
	}

	return snapshot, nil
}

// MarshalSnapshot renders a snapshot as indented protobuf JSON.
func MarshalSnapshot(snapshot *domain.Snapshot) ([]byte, error) {
	options := protojson.MarshalOptions{
		Multiline:       true,
		Indent:          "  ",
		EmitUnpopulated: true,
	}

	data, err := options.Marshal(SnapshotToStruct(snapshot))
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}

	return data, nil
}

// UnmarshalSnapshot parses protobuf JSON produced by MarshalSnapshot.
func UnmarshalSnapshot(data []byte) (*domain.Snapshot, error) {
	var message structpb.Struct
	if err := protojson.Unmarshal(data, &message); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}

	return SnapshotFromStruct(&message)
}
