package security

import (
	"errors"
	"fmt"
	"strings"
)

// ArmingStatus is the protection profile selected by the owner.
type ArmingStatus string

// ArmingStatus values.
const (
	ArmingStatusDisarmed  ArmingStatus = "DISARMED"
	ArmingStatusArmedHome ArmingStatus = "ARMED_HOME"
	ArmingStatusArmedAway ArmingStatus = "ARMED_AWAY"
)

// AlarmStatus is the alert level of the system.
type AlarmStatus string

// AlarmStatus values.
const (
	AlarmStatusNoAlarm AlarmStatus = "NO_ALARM"
	AlarmStatusPending AlarmStatus = "PENDING_ALARM"
	AlarmStatusAlarm   AlarmStatus = "ALARM"
)

var (
	// ErrUnknownArmingStatus is returned when a string is not a valid ArmingStatus.
	ErrUnknownArmingStatus = errors.New("unknown arming status")
	// ErrUnknownAlarmStatus is returned when a string is not a valid AlarmStatus.
	ErrUnknownAlarmStatus = errors.New("unknown alarm status")
)

// ArmingStatuses lists every arming status in declaration order.
func ArmingStatuses() []ArmingStatus {
	return []ArmingStatus{ArmingStatusDisarmed, ArmingStatusArmedHome, ArmingStatusArmedAway}
}

// AlarmStatuses lists every alarm status in escalation order.
func AlarmStatuses() []AlarmStatus {
	return []AlarmStatus{AlarmStatusNoAlarm, AlarmStatusPending, AlarmStatusAlarm}
}

// ParseArmingStatus converts user input such as "armed-home" into an ArmingStatus.
func ParseArmingStatus(s string) (ArmingStatus, error) {
	candidate := ArmingStatus(normalize(s))
	if candidate.Valid() {
		return candidate, nil
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownArmingStatus, s)
}

// ParseAlarmStatus converts user input such as "pending_alarm" into an AlarmStatus.
func ParseAlarmStatus(s string) (AlarmStatus, error) {
	candidate := AlarmStatus(normalize(s))
	if candidate.Valid() {
		return candidate, nil
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownAlarmStatus, s)
}

// Valid reports whether the status is one of the declared values.
func (s ArmingStatus) Valid() bool {
	switch s {
	case ArmingStatusDisarmed, ArmingStatusArmedHome, ArmingStatusArmedAway:
		return true
	default:
		return false
	}
}

// IsArmed reports whether the system is armed in any profile.
func (s ArmingStatus) IsArmed() bool {
	return s == ArmingStatusArmedHome || s == ArmingStatusArmedAway
}

// String implements fmt.Stringer.
func (s ArmingStatus) String() string {
	return string(s)
}

// Valid reports whether the status is one of the declared values.
func (s AlarmStatus) Valid() bool {
	switch s {
	case AlarmStatusNoAlarm, AlarmStatusPending, AlarmStatusAlarm:
		return true
	default:
		return false
	}
}

// String implements fmt.Stringer.
func (s AlarmStatus) String() string {
	return string(s)
}

// normalize upper-cases the input and accepts dashes and spaces as separators.
func normalize(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))

	return strings.NewReplacer("-", "_", " ", "_").Replace(s)
}
