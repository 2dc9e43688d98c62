// Package integration holds end-to-end tests that run the security server,
// the checker and the control client against each other over gRPC.
package integration
