package codec

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"

	domain "github.com/oshokin/catpoint/internal/domain/security"
)

// TestSnapshotJSON checks that the state file format survives a write and a read.
func TestSnapshotJSON(t *testing.T) {
	t.Parallel()

	want := &domain.Snapshot{
		ArmingStatus: domain.ArmingStatusArmedHome,
		AlarmStatus:  domain.AlarmStatusPending,
		Sensors: []domain.Sensor{
			{Name: "front door", Type: domain.SensorTypeDoor, Active: true},
			{Name: "hall", Type: domain.SensorTypeMotion},
		},
	}

	data, err := MarshalSnapshot(want)
	require.NoError(t, err)
	require.Contains(t, string(data), "ARMED_HOME")

	got, err := UnmarshalSnapshot(data)
	require.NoError(t, err)

	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

// TestSensorFromStruct_Validation rejects incomplete or malformed sensors.
func TestSensorFromStruct_Validation(t *testing.T) {
	t.Parallel()

	_, err := SensorFromStruct(nil)
	require.ErrorIs(t, err, ErrEmptyMessage)

	message, err := structpb.NewStruct(map[string]any{FieldName: "door", FieldType: "gate"})
	require.NoError(t, err)

	_, err = SensorFromStruct(message)
	require.ErrorIs(t, err, domain.ErrUnknownSensorType)

	message, err = structpb.NewStruct(map[string]any{FieldType: "door"})
	require.NoError(t, err)

	_, err = SensorFromStruct(message)
	require.ErrorIs(t, err, domain.ErrSensorNameRequired)

	// Active defaults to false and type is case-insensitive.
	message, err = structpb.NewStruct(map[string]any{FieldName: "door", FieldType: "door"})
	require.NoError(t, err)

	sensor, err := SensorFromStruct(message)
	require.NoError(t, err)
	require.Equal(t, domain.Sensor{Name: "door", Type: domain.SensorTypeDoor}, sensor)
}

// TestSnapshotFromStruct_RejectsUnknownStatus reports invalid statuses and sensors.
func TestSnapshotFromStruct_RejectsUnknownStatus(t *testing.T) {
	t.Parallel()

	message, err := structpb.NewStruct(map[string]any{
		FieldArmingStatus: "ARMED_NIGHT",
		FieldAlarmStatus:  "NO_ALARM",
	})
	require.NoError(t, err)

	_, err = SnapshotFromStruct(message)
	require.ErrorIs(t, err, domain.ErrUnknownArmingStatus)

	message, err = structpb.NewStruct(map[string]any{
		FieldArmingStatus: "DISARMED",
		FieldAlarmStatus:  "NO_ALARM",
		FieldSensors:      []any{map[string]any{FieldName: "x", FieldType: "lamp"}},
	})
	require.NoError(t, err)

	_, err = SnapshotFromStruct(message)
	require.ErrorIs(t, err, domain.ErrUnknownSensorType)
}
