package events

import (
	"time"

	domain "github.com/oshokin/catpoint/internal/domain/security"
)

// Kind identifies the notification an event carries.
type Kind string

// Event kinds.
const (
	KindAlarmStatus Kind = "alarm_status"
	KindCatDetected Kind = "cat_detected"
	KindSensor      Kind = "sensor"
)

// Event is the JSON payload published for every notification.
// Exactly one of AlarmStatus, CatDetected or Sensor is set, matching Kind.
type Event struct {
	// ID is a random identifier for deduplication by consumers.
	ID string `json:"id"`
	// Kind tells which payload field is set.
	Kind Kind `json:"kind"`
	// AlarmStatus is the written alarm status.
	AlarmStatus domain.AlarmStatus `json:"alarm_status,omitempty"`
	// CatDetected is the image classification result.
	CatDetected *bool `json:"cat_detected,omitempty"`
	// Sensor is the stored sensor.
	Sensor *Sensor `json:"sensor,omitempty"`
	// Timestamp is when the event was produced.
	Timestamp time.Time `json:"timestamp"`
}

// Sensor is the sensor representation inside an event.
type Sensor struct {
	Name   string            `json:"name"`
	Type   domain.SensorType `json:"type"`
	Active bool              `json:"active"`
}
