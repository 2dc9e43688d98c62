// Package common holds helpers shared by several services.
//
// It provides a gRPC client wrapper with timeouts that speaks domain types,
// and utilities to detect the current system actor (hostname/username) and
// carry it in request metadata for the server audit log.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
