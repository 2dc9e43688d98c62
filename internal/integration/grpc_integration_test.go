package integration

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/oshokin/catpoint/internal/config"
	domain "github.com/oshokin/catpoint/internal/domain/security"
	"github.com/oshokin/catpoint/internal/service/common"
	"github.com/oshokin/catpoint/internal/service/server"
)

// reservePort returns a free local address.
func reservePort(t *testing.T) string {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	addr := l.Addr().String()
	_ = l.Close()

	return addr
}

// writeSettings saves a configuration for addr and returns its path.
func writeSettings(t *testing.T, settings *config.Config) string {
	t.Helper()

	cfgPath := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, config.Save(cfgPath, settings))

	return cfgPath
}

// startServer runs the security server with the settings until the returned stop function is called.
func startServer(t *testing.T, settings *config.Config) (stop func()) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	cfgPath := writeSettings(t, settings)
	done := make(chan error, 1)

	go func() {
		done <- server.Run(ctx, &server.Options{ConfigPath: cfgPath})
	}()

	// Wait for the listener.
	require.Eventually(t, func() bool {
		conn, err := net.DialTimeout("tcp", settings.ServerAddress, 50*time.Millisecond)
		if err != nil {
			return false
		}

		_ = conn.Close()

		return true
	}, 5*time.Second, 20*time.Millisecond)

	return func() {
		cancel()
		require.NoError(t, <-done)
	}
}

// dial connects a client to addr.
func dial(t *testing.T, addr string) *common.Client {
	t.Helper()

	c, err := common.Dial(context.Background(), addr,
		common.WithCallTimeout(3*time.Second),
		common.WithActor(&common.Actor{Hostname: "test-hostname", Username: "test-user"}))
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = c.Close()
	})

	return c
}

// pngImage encodes a small PNG.
func pngImage(t *testing.T) []byte {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))))

	return buf.Bytes()
}

// baseSettings returns settings for a server on addr.
func baseSettings(addr string, storage config.Storage, classifier string) *config.Config {
	return &config.Config{
		ServerAddress: addr,
		Timeout:       5 * time.Second,
		LogLevel:      "warn",
		Storage:       storage,
		Classifier:    config.Classifier{Mode: classifier},
		Sensors: []config.Sensor{
			{Name: "front", Type: "door"},
			{Name: "hall", Type: "motion"},
		},
	}
}

// TestGRPC_SensorFlow drives the alarm through pending, alarm and disarm over the wire.
func TestGRPC_SensorFlow(t *testing.T) {
	t.Parallel()

	addr := reservePort(t)
	stop := startServer(t, baseSettings(addr, config.Storage{Driver: config.DriverMemory}, config.ClassifierNever))

	defer stop()

	ctx := context.Background()
	c := dial(t, addr)

	front := domain.SensorKey{Name: "front", Type: domain.SensorTypeDoor}
	hall := domain.SensorKey{Name: "hall", Type: domain.SensorTypeMotion}

	snapshot, err := c.Status(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.ArmingStatusDisarmed, snapshot.ArmingStatus)
	require.Equal(t, domain.AlarmStatusNoAlarm, snapshot.AlarmStatus)
	require.Len(t, snapshot.Sensors, 2)

	// Disarmed: activation is stored but does not alarm.
	snapshot, err = c.ChangeSensorActivation(ctx, front, true)
	require.NoError(t, err)
	require.Equal(t, domain.AlarmStatusNoAlarm, snapshot.AlarmStatus)

	// Arming resets every sensor.
	snapshot, err = c.SetArmingStatus(ctx, domain.ArmingStatusArmedAway)
	require.NoError(t, err)
	require.False(t, domain.AnyActive(snapshot.Sensors))

	snapshot, err = c.ChangeSensorActivation(ctx, front, true)
	require.NoError(t, err)
	require.Equal(t, domain.AlarmStatusPending, snapshot.AlarmStatus)

	snapshot, err = c.ChangeSensorActivation(ctx, hall, true)
	require.NoError(t, err)
	require.Equal(t, domain.AlarmStatusAlarm, snapshot.AlarmStatus)

	// ALARM is sticky for sensor changes.
	_, err = c.ChangeSensorActivation(ctx, front, false)
	require.NoError(t, err)

	snapshot, err = c.ChangeSensorActivation(ctx, hall, false)
	require.NoError(t, err)
	require.Equal(t, domain.AlarmStatusAlarm, snapshot.AlarmStatus)

	snapshot, err = c.SetArmingStatus(ctx, domain.ArmingStatusDisarmed)
	require.NoError(t, err)
	require.Equal(t, domain.AlarmStatusNoAlarm, snapshot.AlarmStatus)
}

// TestGRPC_CatWhileArmedHome raises the alarm from a camera image.
func TestGRPC_CatWhileArmedHome(t *testing.T) {
	t.Parallel()

	addr := reservePort(t)
	stop := startServer(t, baseSettings(addr, config.Storage{Driver: config.DriverMemory}, config.ClassifierAlways))

	defer stop()

	ctx := context.Background()
	c := dial(t, addr)

	// A cat seen while disarmed alarms once the system is armed at home.
	containsCat, err := c.ProcessImage(ctx, pngImage(t))
	require.NoError(t, err)
	require.True(t, containsCat)

	snapshot, err := c.Status(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.AlarmStatusNoAlarm, snapshot.AlarmStatus)

	snapshot, err = c.SetArmingStatus(ctx, domain.ArmingStatusArmedHome)
	require.NoError(t, err)
	require.Equal(t, domain.AlarmStatusAlarm, snapshot.AlarmStatus)

	_, err = c.ProcessImage(ctx, []byte("not an image"))
	require.Equal(t, codes.InvalidArgument, status.Code(err))
}

// TestGRPC_SensorRegistry adds and removes sensors and maps errors to status codes.
func TestGRPC_SensorRegistry(t *testing.T) {
	t.Parallel()

	addr := reservePort(t)
	stop := startServer(t, baseSettings(addr, config.Storage{Driver: config.DriverMemory}, config.ClassifierNever))

	defer stop()

	ctx := context.Background()
	c := dial(t, addr)

	window := domain.SensorKey{Name: "kitchen", Type: domain.SensorTypeWindow}

	snapshot, err := c.AddSensor(ctx, window)
	require.NoError(t, err)
	require.Len(t, snapshot.Sensors, 3)

	_, err = c.AddSensor(ctx, window)
	require.Equal(t, codes.AlreadyExists, status.Code(err))

	snapshot, err = c.RemoveSensor(ctx, window)
	require.NoError(t, err)
	require.Len(t, snapshot.Sensors, 2)

	_, err = c.RemoveSensor(ctx, window)
	require.Equal(t, codes.NotFound, status.Code(err))
}

// TestGRPC_PersistsAcrossRestarts restarts the server on the same store for every persistent driver.
func TestGRPC_PersistsAcrossRestarts(t *testing.T) {
	t.Parallel()

	drivers := map[string]string{
		config.DriverFile:   "state.json",
		config.DriverSQLite: "state.db",
	}

	for driver, filename := range drivers {
		t.Run(driver, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			storage := config.Storage{Driver: driver, Path: filepath.Join(t.TempDir(), filename)}

			addr := reservePort(t)
			stop := startServer(t, baseSettings(addr, storage, config.ClassifierNever))

			c := dial(t, addr)

			_, err := c.SetArmingStatus(ctx, domain.ArmingStatusArmedAway)
			require.NoError(t, err)

			_, err = c.ChangeSensorActivation(ctx, domain.SensorKey{Name: "front", Type: domain.SensorTypeDoor}, true)
			require.NoError(t, err)

			stop()

			_, err = os.Stat(storage.Path)
			require.NoError(t, err)

			addr = reservePort(t)
			stop = startServer(t, baseSettings(addr, storage, config.ClassifierNever))

			defer stop()

			snapshot, err := dial(t, addr).Status(ctx)
			require.NoError(t, err)
			require.Equal(t, domain.ArmingStatusArmedAway, snapshot.ArmingStatus)
			require.Equal(t, domain.AlarmStatusPending, snapshot.AlarmStatus)
			require.Len(t, snapshot.Sensors, 2)
			require.True(t, domain.AnyActive(snapshot.Sensors))
		})
	}
}
