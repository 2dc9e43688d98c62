package security

import (
	"context"
	"errors"
	"fmt"

	"github.com/oshokin/catpoint/internal/config"
	domain "github.com/oshokin/catpoint/internal/domain/security"
)

// Store persists the system state and owns the sensor lifecycle.
type Store interface {
	AlarmStatus(ctx context.Context) (domain.AlarmStatus, error)
	SetAlarmStatus(ctx context.Context, status domain.AlarmStatus) error
	ArmingStatus(ctx context.Context) (domain.ArmingStatus, error)
	SetArmingStatus(ctx context.Context, status domain.ArmingStatus) error
	Sensors(ctx context.Context) ([]domain.Sensor, error)
	// UpdateSensor stores the sensor, adding it when the key is unknown.
	UpdateSensor(ctx context.Context, sensor domain.Sensor) error
	// AddSensor registers a new sensor; it fails with ErrSensorExists for known keys.
	AddSensor(ctx context.Context, sensor domain.Sensor) error
	// RemoveSensor deletes a sensor; it fails with ErrSensorNotFound for unknown keys.
	RemoveSensor(ctx context.Context, key domain.SensorKey) error
	Close() error
}

var (
	// ErrSensorExists is returned by AddSensor for a key that is already stored.
	ErrSensorExists = errors.New("sensor already exists")
	// ErrSensorNotFound is returned by RemoveSensor for an unknown key.
	ErrSensorNotFound = errors.New("sensor not found")
	// errUnknownDriver is returned by Open for unsupported drivers.
	errUnknownDriver = errors.New("unknown storage driver")
)

// Open creates the store selected by the settings.
func Open(ctx context.Context, settings config.Storage) (Store, error) {
	switch settings.Driver {
	case config.DriverMemory:
		return NewMemoryRepository(), nil
	case config.DriverFile, "":
		return NewFileRepository(settings.Path), nil
	case config.DriverSQLite:
		return OpenSQLiteRepository(ctx, settings.Path)
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownDriver, settings.Driver)
	}
}

// initialSnapshot is the state of a system that has never been configured.
func initialSnapshot() *domain.Snapshot {
	return &domain.Snapshot{
		ArmingStatus: domain.ArmingStatusDisarmed,
		AlarmStatus:  domain.AlarmStatusNoAlarm,
	}
}

// upsertSensor replaces the sensor with the same key or appends it.
func upsertSensor(sensors []domain.Sensor, sensor domain.Sensor) []domain.Sensor {
	for i := range sensors {
		if sensors[i].Key() == sensor.Key() {
			sensors[i] = sensor

			return sensors
		}
	}

	return append(sensors, sensor)
}

// indexOfSensor returns the position of the key or -1.
func indexOfSensor(sensors []domain.Sensor, key domain.SensorKey) int {
	for i := range sensors {
		if sensors[i].Key() == key {
			return i
		}
	}

	return -1
}
