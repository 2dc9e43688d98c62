// Package client implements the catpoint-ctl operations.
//
// Each invocation connects to the security server, performs one action
// (status, arm, disarm, sensor changes, image submission) and prints the
// resulting state. With Wait set it keeps retrying until the server answers.
package client
