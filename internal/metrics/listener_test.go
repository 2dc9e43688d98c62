package metrics

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	domain "github.com/oshokin/catpoint/internal/domain/security"
)

// TestListener_AlarmStatus verifies the one-hot status gauge and the write counter.
func TestListener_AlarmStatus(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	l := NewListener(prometheus.NewRegistry())

	l.SetAlarmStatus(domain.AlarmStatusNoAlarm)
	require.InDelta(t, 1, testutil.ToFloat64(l.alarmStatus.WithLabelValues("NO_ALARM")), 0)
	require.InDelta(t, 0, testutil.ToFloat64(l.alarmStatus.WithLabelValues("ALARM")), 0)

	l.AlarmStatusChanged(ctx, domain.AlarmStatusAlarm)
	l.AlarmStatusChanged(ctx, domain.AlarmStatusAlarm)

	require.InDelta(t, 0, testutil.ToFloat64(l.alarmStatus.WithLabelValues("NO_ALARM")), 0)
	require.InDelta(t, 1, testutil.ToFloat64(l.alarmStatus.WithLabelValues("ALARM")), 0)
	require.InDelta(t, 2, testutil.ToFloat64(l.alarmWrites.WithLabelValues("ALARM")), 0)
}

// TestListener_CatDetected verifies images are counted per result.
func TestListener_CatDetected(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	l := NewListener(prometheus.NewRegistry())

	l.CatDetected(ctx, true)
	l.CatDetected(ctx, false)
	l.CatDetected(ctx, false)

	require.InDelta(t, 1, testutil.ToFloat64(l.imagesProcessed.WithLabelValues(resultCat)), 0)
	require.InDelta(t, 2, testutil.ToFloat64(l.imagesProcessed.WithLabelValues(resultNoCat)), 0)
}

// TestListener_SensorsActive verifies the active sensor gauge follows updates per key.
func TestListener_SensorsActive(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	l := NewListener(prometheus.NewRegistry())

	door := domain.Sensor{Name: "front", Type: domain.SensorTypeDoor, Active: true}
	motion := domain.Sensor{Name: "hall", Type: domain.SensorTypeMotion, Active: true}

	l.SensorStatusChanged(ctx, door)
	l.SensorStatusChanged(ctx, door)
	l.SensorStatusChanged(ctx, motion)
	require.InDelta(t, 2, testutil.ToFloat64(l.sensorsActive), 0)

	door.Active = false
	l.SensorStatusChanged(ctx, door)
	require.InDelta(t, 1, testutil.ToFloat64(l.sensorsActive), 0)
	require.InDelta(t, 2, testutil.ToFloat64(l.sensorUpdates.WithLabelValues("DOOR", "true")), 0)
	require.InDelta(t, 1, testutil.ToFloat64(l.sensorUpdates.WithLabelValues("DOOR", "false")), 0)
}

// TestNewListener_Registers ensures the collectors are visible through the registry.
func TestNewListener_Registers(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	l := NewListener(reg)
	l.SetAlarmStatus(domain.AlarmStatusPending)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}

	require.Contains(t, names, "catpoint_alarm_status")
	require.Contains(t, names, "catpoint_sensors_active")

	// A second listener on the same registry is a duplicate registration.
	require.Panics(t, func() { NewListener(reg) })
}
