// Package config defines the settings of the power sentinel daemon and the
// control client, and provides helpers to load, validate and save them in YAML.
//
// Validate fills defaults for every optional field so callers can rely on a
// complete Config after Load.
package config
