// Package config loads, normalizes, and validates signscribe's TOML
// configuration.
//
// Load resolves the file location (explicit flag, the XDG-style default, or
// ./signscribe.toml), decodes it over Default(), expands paths, applies
// environment fallbacks for credentials, and validates cross-field rules.
// Accessor methods convert the integer second fields into time.Duration
// values so callers never do the arithmetic themselves.
package config
