package security

import "slices"

// Snapshot is a point-in-time view of everything the system stores.
type Snapshot struct {
	// ArmingStatus is the current protection profile.
	ArmingStatus ArmingStatus
	// AlarmStatus is the current alert level.
	AlarmStatus AlarmStatus
	// Sensors lists every known sensor.
	Sensors []Sensor
}

// Clone returns a copy of the snapshot that does not share the sensor slice.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}

	return &Snapshot{
		ArmingStatus: s.ArmingStatus,
		AlarmStatus:  s.AlarmStatus,
		Sensors:      slices.Clone(s.Sensors),
	}
}
