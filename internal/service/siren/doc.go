// Package siren runs the configured alarm command when the alarm goes off
// and stops it once the alarm clears.
package siren
