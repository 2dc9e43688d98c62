// Package metrics exposes the alarm state machine as Prometheus metrics.
package metrics
