// Package checker polls the security server and reacts to the alarm.
//
// Every poll reads the state snapshot; entering ALARM starts the configured
// siren command unless the checker runs in debug mode.
package checker
