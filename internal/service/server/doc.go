// Package server runs the catpoint security server.
//
// It loads the settings, opens the configured store, seeds sensors and serves
// the gRPC API together with the optional admin HTTP endpoint and the camera
// inbox watcher.
package server
