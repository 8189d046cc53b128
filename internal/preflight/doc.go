// Package preflight provides readiness checks for external services
// and filesystem paths that signscribe depends on.
//
// The server runs RunAll at start-up and reports the results on
// /api/status; the CLI deps command prints them next to the binary checks
// from CheckSystemDeps. Each check is gated by its config toggle, so
// disabled features are skipped.
package preflight
