package security

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// SensorType is the kind of device reporting activation.
type SensorType string

// SensorType values.
const (
	SensorTypeDoor   SensorType = "DOOR"
	SensorTypeWindow SensorType = "WINDOW"
	SensorTypeMotion SensorType = "MOTION"
)

var (
	// ErrUnknownSensorType is returned when a string is not a valid SensorType.
	ErrUnknownSensorType = errors.New("unknown sensor type")
	// ErrSensorNameRequired is returned when a sensor has an empty name.
	ErrSensorNameRequired = errors.New("sensor name is required")
)

// ParseSensorType converts user input such as "door" into a SensorType.
func ParseSensorType(s string) (SensorType, error) {
	candidate := SensorType(normalize(s))
	if candidate.Valid() {
		return candidate, nil
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownSensorType, s)
}

// Valid reports whether the type is one of the declared values.
func (t SensorType) Valid() bool {
	switch t {
	case SensorTypeDoor, SensorTypeWindow, SensorTypeMotion:
		return true
	default:
		return false
	}
}

// String implements fmt.Stringer.
func (t SensorType) String() string {
	return string(t)
}

// SensorKey identifies a sensor. Two sensors with the same name and type are the same device.
type SensorKey struct {
	// Name is the human readable label of the sensor, e.g. "front door".
	Name string
	// Type is the kind of the sensor.
	Type SensorType
}

// String renders the key as "name (TYPE)".
func (k SensorKey) String() string {
	return fmt.Sprintf("%s (%s)", k.Name, k.Type)
}

// Sensor is a door, window or motion device with a boolean activation state.
type Sensor struct {
	// Name is the human readable label of the sensor.
	Name string
	// Type is the kind of the sensor.
	Type SensorType
	// Active reports whether the sensor is currently triggered.
	Active bool
}

// Key returns the identity of the sensor.
func (s Sensor) Key() SensorKey {
	return SensorKey{Name: s.Name, Type: s.Type}
}

// Validate checks that the sensor has a name and a known type.
func (s Sensor) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return ErrSensorNameRequired
	}

	if !s.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownSensorType, s.Type)
	}

	return nil
}

// SortSensors orders sensors by name and then by type, giving stable listings.
func SortSensors(sensors []Sensor) {
	slices.SortFunc(sensors, func(a, b Sensor) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}

		return strings.Compare(string(a.Type), string(b.Type))
	})
}

// AnyActive reports whether at least one sensor is active.
func AnyActive(sensors []Sensor) bool {
	return slices.ContainsFunc(sensors, func(s Sensor) bool { return s.Active })
}
