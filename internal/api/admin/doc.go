// Package admin implements the HTTP admin endpoint of the security server:
// health checks, Prometheus metrics, the current state and recent events.
package admin
