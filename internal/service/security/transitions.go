package security

import (
	domain "github.com/oshokin/catpoint/internal/domain/security"
)

// event is an input that may move the alarm status.
type event int

const (
	eventSensorActivated event = iota + 1
	eventSensorDeactivated
	eventCatDetected
	eventNoCatDetected
	eventDisarmed
	eventArmed
)

// String implements fmt.Stringer for log output.
func (e event) String() string {
	switch e {
	case eventSensorActivated:
		return "sensor_activated"
	case eventSensorDeactivated:
		return "sensor_deactivated"
	case eventCatDetected:
		return "cat_detected"
	case eventNoCatDetected:
		return "no_cat_detected"
	case eventDisarmed:
		return "disarmed"
	case eventArmed:
		return "armed"
	default:
		return "unknown"
	}
}

// facts is what the rules may look at besides the current alarm status.
type facts struct {
	// arming is the arming status at the time of the event.
	arming domain.ArmingStatus
	// sensorWasActive is the state of the changed sensor before the event.
	sensorWasActive bool
	// anySensorActive is true when at least one stored sensor is active after the event.
	anySensorActive bool
	// catDetected is the latest cached classification result.
	catDetected bool
}

// rule maps an event observed in a given alarm status to the next alarm status.
type rule struct {
	// event selects the input the rule reacts to.
	event event
	// from restricts the rule to one alarm status; empty matches any.
	from domain.AlarmStatus
	// when is an optional guard over facts.
	when func(facts) bool
	// to is the alarm status written when the rule matches.
	to domain.AlarmStatus
}

// rules is evaluated top to bottom; the first match wins.
// No sensor rule starts from ALARM, so sensor activity cannot move it.
//
//nolint:gochecknoglobals // Immutable rule table.
var rules = []rule{
	{event: eventSensorActivated, from: domain.AlarmStatusNoAlarm, when: armed, to: domain.AlarmStatusPending},
	{event: eventSensorActivated, from: domain.AlarmStatusPending, when: armed, to: domain.AlarmStatusAlarm},
	{event: eventSensorDeactivated, from: domain.AlarmStatusPending, when: lastActiveSensorCleared, to: domain.AlarmStatusNoAlarm},
	{event: eventCatDetected, when: armedHome, to: domain.AlarmStatusAlarm},
	// Clears a real ALARM too when nothing is active.
	{event: eventNoCatDetected, when: noSensorActive, to: domain.AlarmStatusNoAlarm},
	{event: eventDisarmed, to: domain.AlarmStatusNoAlarm},
	{event: eventArmed, when: armedHomeWithCachedCat, to: domain.AlarmStatusAlarm},
}

// nextAlarmStatus returns the alarm status to write for the event, if any.
// A match is reported even when the target equals the current status.
func nextAlarmStatus(e event, current domain.AlarmStatus, f facts) (domain.AlarmStatus, bool) {
	for _, r := range rules {
		if r.event != e {
			continue
		}

		if r.from != "" && r.from != current {
			continue
		}

		if r.when != nil && !r.when(f) {
			continue
		}

		return r.to, true
	}

	return "", false
}

func armed(f facts) bool {
	return f.arming.IsArmed()
}

func armedHome(f facts) bool {
	return f.arming == domain.ArmingStatusArmedHome
}

func lastActiveSensorCleared(f facts) bool {
	return f.sensorWasActive && !f.anySensorActive
}

func noSensorActive(f facts) bool {
	return !f.anySensorActive
}

func armedHomeWithCachedCat(f facts) bool {
	return armedHome(f) && f.catDetected
}
