package security

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestParseArmingStatus verifies accepted spellings and rejection of unknown values.
func TestParseArmingStatus(t *testing.T) {
	t.Parallel()

	cases := map[string]ArmingStatus{
		"DISARMED":    ArmingStatusDisarmed,
		"armed-home":  ArmingStatusArmedHome,
		" armed_away": ArmingStatusArmedAway,
		"Armed Home":  ArmingStatusArmedHome,
	}
	for input, want := range cases {
		got, err := ParseArmingStatus(input)
		require.NoError(t, err, input)
		require.Equal(t, want, got)
	}

	_, err := ParseArmingStatus("armed")
	require.ErrorIs(t, err, ErrUnknownArmingStatus)
}

// TestParseAlarmStatus verifies accepted spellings and rejection of unknown values.
func TestParseAlarmStatus(t *testing.T) {
	t.Parallel()

	for _, status := range AlarmStatuses() {
		got, err := ParseAlarmStatus(string(status))
		require.NoError(t, err)
		require.Equal(t, status, got)
	}

	got, err := ParseAlarmStatus("pending-alarm")
	require.NoError(t, err)
	require.Equal(t, AlarmStatusPending, got)

	_, err = ParseAlarmStatus("")
	require.ErrorIs(t, err, ErrUnknownAlarmStatus)
}

// TestArmingStatusIsArmed checks that only the two armed profiles count as armed.
func TestArmingStatusIsArmed(t *testing.T) {
	t.Parallel()

	require.False(t, ArmingStatusDisarmed.IsArmed())
	require.True(t, ArmingStatusArmedHome.IsArmed())
	require.True(t, ArmingStatusArmedAway.IsArmed())
	require.False(t, ArmingStatus("").IsArmed())
}
