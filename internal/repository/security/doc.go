// Package security implements persistence for the arming status, the alarm
// status and the sensors.
//
// Three backends satisfy the Store interface: an in-memory store, a JSON file
// written atomically, and a SQLite database. Open picks one from settings.
package security
