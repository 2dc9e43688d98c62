package security

import (
	"testing"

	"github.com/stretchr/testify/require"

	domain "github.com/oshokin/catpoint/internal/domain/security"
)

// TestNextAlarmStatus exercises the rule table directly.
func TestNextAlarmStatus(t *testing.T) {
	t.Parallel()

	armedHome := facts{arming: domain.ArmingStatusArmedHome}

	cases := []struct {
		name    string
		event   event
		current domain.AlarmStatus
		facts   facts
		want    domain.AlarmStatus
		changed bool
	}{
		{"activation from no alarm", eventSensorActivated, domain.AlarmStatusNoAlarm, armedHome, domain.AlarmStatusPending, true},
		{"activation from pending", eventSensorActivated, domain.AlarmStatusPending, armedHome, domain.AlarmStatusAlarm, true},
		{"activation from alarm", eventSensorActivated, domain.AlarmStatusAlarm, armedHome, "", false},
		{"activation while disarmed", eventSensorActivated, domain.AlarmStatusNoAlarm, facts{arming: domain.ArmingStatusDisarmed}, "", false},
		{
			"last active sensor cleared", eventSensorDeactivated, domain.AlarmStatusPending,
			facts{arming: domain.ArmingStatusArmedHome, sensorWasActive: true}, domain.AlarmStatusNoAlarm, true,
		},
		{
			"other sensor still active", eventSensorDeactivated, domain.AlarmStatusPending,
			facts{sensorWasActive: true, anySensorActive: true}, "", false,
		},
		{"already inactive sensor", eventSensorDeactivated, domain.AlarmStatusPending, facts{}, "", false},
		{"deactivation in alarm", eventSensorDeactivated, domain.AlarmStatusAlarm, facts{sensorWasActive: true}, "", false},
		{"cat while armed home", eventCatDetected, domain.AlarmStatusAlarm, armedHome, domain.AlarmStatusAlarm, true},
		{"cat while armed away", eventCatDetected, domain.AlarmStatusNoAlarm, facts{arming: domain.ArmingStatusArmedAway}, "", false},
		{"no cat clears alarm", eventNoCatDetected, domain.AlarmStatusAlarm, armedHome, domain.AlarmStatusNoAlarm, true},
		{"no cat with active sensor", eventNoCatDetected, domain.AlarmStatusPending, facts{anySensorActive: true}, "", false},
		{"disarm", eventDisarmed, domain.AlarmStatusAlarm, facts{}, domain.AlarmStatusNoAlarm, true},
		{"arm home with cached cat", eventArmed, domain.AlarmStatusNoAlarm, facts{arming: domain.ArmingStatusArmedHome, catDetected: true}, domain.AlarmStatusAlarm, true},
		{"arm away with cached cat", eventArmed, domain.AlarmStatusNoAlarm, facts{arming: domain.ArmingStatusArmedAway, catDetected: true}, "", false},
		{"arm home without cat", eventArmed, domain.AlarmStatusPending, armedHome, "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, changed := nextAlarmStatus(tc.event, tc.current, tc.facts)
			require.Equal(t, tc.changed, changed)
			require.Equal(t, tc.want, got)
		})
	}
}

// TestRules_NoSensorRuleLeavesAlarm guards the stickiness of ALARM against sensor events.
func TestRules_NoSensorRuleLeavesAlarm(t *testing.T) {
	t.Parallel()

	for _, r := range rules {
		if r.event != eventSensorActivated && r.event != eventSensorDeactivated {
			continue
		}

		require.NotEmpty(t, r.from, "sensor rules must name their source status")
		require.NotEqual(t, domain.AlarmStatusAlarm, r.from)
	}
}

// TestEventString keeps log labels stable.
func TestEventString(t *testing.T) {
	t.Parallel()

	require.Equal(t, "sensor_activated", eventSensorActivated.String())
	require.Equal(t, "no_cat_detected", eventNoCatDetected.String())
	require.Equal(t, "unknown", event(0).String())
}
