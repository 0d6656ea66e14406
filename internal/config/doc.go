// Package config loads, normalizes, and validates episodic configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// EPISODIC_USERNAME and EPISODIC_PASSWORD. The Config type centralizes every
// knob the engine and CLI need: the catalog location and credentials, the
// download destination, browser timing, capture limits, and locator overrides.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
