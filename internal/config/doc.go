// Package config defines the settings shared by the catpoint binaries and
// provides helpers to load, validate and save them in YAML format.
//
// Values from the YAML file can be overridden with CATPOINT_* environment
// variables, e.g. CATPOINT_SERVER_ADDR or CATPOINT_STORAGE_DRIVER.
package config
