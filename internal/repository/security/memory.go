package security

import (
	"context"
	"fmt"
	"slices"
	"sync"

	domain "github.com/oshokin/catpoint/internal/domain/security"
)

// MemoryRepository keeps the state in process memory.
type MemoryRepository struct {
	// state is the current snapshot.
	state *domain.Snapshot
	// mu protects state.
	mu sync.RWMutex
}

// NewMemoryRepository creates a disarmed store without sensors.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		state: initialSnapshot(),
	}
}

// AlarmStatus returns the stored alarm status.
func (r *MemoryRepository) AlarmStatus(context.Context) (domain.AlarmStatus, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.state.AlarmStatus, nil
}

// SetAlarmStatus stores the alarm status.
func (r *MemoryRepository) SetAlarmStatus(_ context.Context, status domain.AlarmStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.state.AlarmStatus = status

	return nil
}

// ArmingStatus returns the stored arming status.
func (r *MemoryRepository) ArmingStatus(context.Context) (domain.ArmingStatus, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.state.ArmingStatus, nil
}

// SetArmingStatus stores the arming status.
func (r *MemoryRepository) SetArmingStatus(_ context.Context, status domain.ArmingStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.state.ArmingStatus = status

	return nil
}

// Sensors returns a copy of the stored sensors in insertion order.
func (r *MemoryRepository) Sensors(context.Context) ([]domain.Sensor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Clone(r.state.Sensors), nil
}

// UpdateSensor stores the sensor.
func (r *MemoryRepository) UpdateSensor(_ context.Context, sensor domain.Sensor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.state.Sensors = upsertSensor(r.state.Sensors, sensor)

	return nil
}

// AddSensor registers a new sensor.
func (r *MemoryRepository) AddSensor(_ context.Context, sensor domain.Sensor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if indexOfSensor(r.state.Sensors, sensor.Key()) >= 0 {
		return fmt.Errorf("%w: %s", ErrSensorExists, sensor.Key())
	}

	r.state.Sensors = append(r.state.Sensors, sensor)

	return nil
}

// RemoveSensor deletes a sensor.
func (r *MemoryRepository) RemoveSensor(_ context.Context, key domain.SensorKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := indexOfSensor(r.state.Sensors, key)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrSensorNotFound, key)
	}

	r.state.Sensors = slices.Delete(r.state.Sensors, idx, idx+1)

	return nil
}

// Close is a no-op.
func (r *MemoryRepository) Close() error {
	return nil
}
