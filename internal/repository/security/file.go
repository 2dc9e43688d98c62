package security

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/oshokin/catpoint/internal/codec"
	domain "github.com/oshokin/catpoint/internal/domain/security"
)

// FileRepository persists the whole state as one JSON document on disk.
// The document is produced by protojson through the codec package, the same
// structure served by the gRPC API.
type FileRepository struct {
	// path is the filesystem location of the JSON state file.
	path string
	// mu protects concurrent access to the state file.
	mu sync.Mutex
}

// NewFileRepository creates a repository that reads/writes JSON at the provided path.
// A missing file reads as a disarmed system without sensors.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// AlarmStatus returns the stored alarm status.
func (r *FileRepository) AlarmStatus(context.Context) (domain.AlarmStatus, error) {
	state, err := r.read()
	if err != nil {
		return "", err
	}

	return state.AlarmStatus, nil
}

// SetAlarmStatus stores the alarm status.
func (r *FileRepository) SetAlarmStatus(_ context.Context, status domain.AlarmStatus) error {
	return r.mutate(func(state *domain.Snapshot) error {
		state.AlarmStatus = status

		return nil
	})
}

// ArmingStatus returns the stored arming status.
func (r *FileRepository) ArmingStatus(context.Context) (domain.ArmingStatus, error) {
	state, err := r.read()
	if err != nil {
		return "", err
	}

	return state.ArmingStatus, nil
}

// SetArmingStatus stores the arming status.
func (r *FileRepository) SetArmingStatus(_ context.Context, status domain.ArmingStatus) error {
	return r.mutate(func(state *domain.Snapshot) error {
		state.ArmingStatus = status

		return nil
	})
}

// Sensors returns the stored sensors in insertion order.
func (r *FileRepository) Sensors(context.Context) ([]domain.Sensor, error) {
	state, err := r.read()
	if err != nil {
		return nil, err
	}

	return state.Sensors, nil
}

// UpdateSensor stores the sensor.
func (r *FileRepository) UpdateSensor(_ context.Context, sensor domain.Sensor) error {
	return r.mutate(func(state *domain.Snapshot) error {
		state.Sensors = upsertSensor(state.Sensors, sensor)

		return nil
	})
}

// AddSensor registers a new sensor.
func (r *FileRepository) AddSensor(_ context.Context, sensor domain.Sensor) error {
	return r.mutate(func(state *domain.Snapshot) error {
		if indexOfSensor(state.Sensors, sensor.Key()) >= 0 {
			return fmt.Errorf("%w: %s", ErrSensorExists, sensor.Key())
		}

		state.Sensors = append(state.Sensors, sensor)

		return nil
	})
}

// RemoveSensor deletes a sensor.
func (r *FileRepository) RemoveSensor(_ context.Context, key domain.SensorKey) error {
	return r.mutate(func(state *domain.Snapshot) error {
		idx := indexOfSensor(state.Sensors, key)
		if idx < 0 {
			return fmt.Errorf("%w: %s", ErrSensorNotFound, key)
		}

		state.Sensors = slices.Delete(state.Sensors, idx, idx+1)

		return nil
	})
}

// Close is a no-op; every write is already durable.
func (r *FileRepository) Close() error {
	return nil
}

// read loads the state under the lock.
func (r *FileRepository) read() (*domain.Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.load()
}

// mutate loads the state, applies fn and writes the result back.
func (r *FileRepository) mutate(fn func(state *domain.Snapshot) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, err := r.load()
	if err != nil {
		return err
	}

	if err = fn(state); err != nil {
		return err
	}

	return r.save(state)
}

// load reads the state from disk. The caller must hold mu.
func (r *FileRepository) load() (*domain.Snapshot, error) {
	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return initialSnapshot(), nil
		}

		return nil, fmt.Errorf("read state file: %w", err)
	}

	state, err := codec.UnmarshalSnapshot(contents)
	if err != nil {
		return nil, fmt.Errorf("decode state file: %w", err)
	}

	return state, nil
}

// save writes the state to disk. The caller must hold mu.
func (r *FileRepository) save(state *domain.Snapshot) error {
	data, err := codec.MarshalSnapshot(state)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	if err = writeFileAtomically(r.path, data); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}

	return nil
}
