// Package security contains the core domain types of the home security system.
//
// It defines sensors, the arming status chosen by the owner and the alarm
// status derived by the security service, together with parsing helpers used
// by configuration, storage and transport layers.
package security
