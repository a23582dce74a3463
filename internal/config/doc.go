// Package config loads, normalizes, and validates intake configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// INTAKE_ACCESS_TOKEN. The Config type centralizes every knob the CLI needs,
// from record store credentials and field identifiers to watchdog timing and
// the sibling clustering tool's surface.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
