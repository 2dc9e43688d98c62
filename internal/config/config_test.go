package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domain "github.com/oshokin/catpoint/internal/domain/security"
)

// TestValidate checks required fields and format validations.
func TestValidate(t *testing.T) {
	t.Parallel()

	// Missing socket.
	require.ErrorIs(t, Validate(new(Config)), errServerSocketRequired)

	// Bad socket.
	require.Error(t, Validate(&Config{ServerAddress: "bad:address"}))

	// Unknown driver, classifier and threshold.
	require.ErrorIs(t, Validate(&Config{
		ServerAddress: "127.0.0.1:0",
		Storage:       Storage{Driver: "badger"},
	}), errUnknownDriver)
	require.ErrorIs(t, Validate(&Config{
		ServerAddress: "127.0.0.1:0",
		Classifier:    Classifier{Mode: "neural"},
	}), errUnknownClassifier)
	require.ErrorIs(t, Validate(&Config{
		ServerAddress:       "127.0.0.1:0",
		ConfidenceThreshold: 150,
	}), errThresholdOutOfRange)

	// Bad sensor.
	require.ErrorIs(t, Validate(&Config{
		ServerAddress: "127.0.0.1:0",
		Sensors:       []Sensor{{Name: "garage", Type: "gate"}},
	}), domain.ErrUnknownSensorType)
}

// TestValidate_FillsDefaults verifies defaults are applied in place.
func TestValidate_FillsDefaults(t *testing.T) {
	t.Parallel()

	settings := &Config{
		ServerAddress: "127.0.0.1:50051",
		Storage:       Storage{Driver: " SQLite "},
		Camera:        Camera{Dir: "inbox"},
		Redis:         Redis{Addr: "127.0.0.1:6379"},
	}

	require.NoError(t, Validate(settings))
	require.Equal(t, DefaultTimeout, settings.Timeout)
	require.Equal(t, DefaultConfidenceThreshold, settings.ConfidenceThreshold)
	require.Equal(t, Storage{Driver: DriverSQLite, Path: DefaultDatabaseFilename}, settings.Storage)
	require.Equal(t, ClassifierRandom, settings.Classifier.Mode)
	require.InDelta(t, DefaultCameraRate, settings.Camera.Rate, 0)
	require.Equal(t, 1, settings.Camera.Burst)
	require.Equal(t, DefaultRedisChannel, settings.Redis.Channel)

	settings = &Config{ServerAddress: "127.0.0.1:50051"}
	require.NoError(t, Validate(settings))
	require.Equal(t, Storage{Driver: DriverFile, Path: DefaultStateFilename}, settings.Storage)
}

// TestSaveLoadRoundtrip ensures settings are persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")

	settings := &Config{
		ServerAddress: "127.0.0.1:50051",
		HTTPAddress:   "127.0.0.1:9091",
		Timeout:       3 * time.Second,
		Sensors: []Sensor{
			{Name: "front door", Type: "door"},
			{Name: "hall", Type: "motion"},
		},
		Siren: Siren{Command: []string{"aplay", "siren.wav"}, PIDFile: "/run/catpoint-siren.pid"},
	}

	require.NoError(t, Save(path, settings))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, settings, loaded)

	// File exists with restricted permissions.
	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(DefaultFilePermissions), info.Mode().Perm())
}

// TestLoad_EnvironmentOverrides checks that CATPOINT_* variables win over the file.
func TestLoad_EnvironmentOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, Save(path, &Config{ServerAddress: "127.0.0.1:50051"}))

	t.Setenv("CATPOINT_SERVER_ADDR", "127.0.0.1:6000")
	t.Setenv("CATPOINT_STORAGE_DRIVER", "memory")
	t.Setenv("CATPOINT_TIMEOUT", "2s")
	t.Setenv("CATPOINT_SIREN_COMMAND", "beep,-f,880")
	t.Setenv("CATPOINT_SIREN_PID_FILE", "/tmp/siren.pid")

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:6000", loaded.ServerAddress)
	require.Equal(t, DriverMemory, loaded.Storage.Driver)
	require.Equal(t, 2*time.Second, loaded.Timeout)
	require.Equal(t, []string{"beep", "-f", "880"}, loaded.Siren.Command)
	require.Equal(t, "/tmp/siren.pid", loaded.Siren.PIDFile)
}

// TestSensorToDomain trims names and parses types.
func TestSensorToDomain(t *testing.T) {
	t.Parallel()

	sensor, err := Sensor{Name: " back door ", Type: "Door"}.ToDomain()
	require.NoError(t, err)
	require.Equal(t, domain.Sensor{Name: "back door", Type: domain.SensorTypeDoor}, sensor)

	_, err = Sensor{Name: "", Type: "window"}.ToDomain()
	require.ErrorIs(t, err, domain.ErrSensorNameRequired)
}
