// Package logging assembles structured slog loggers and formatting helpers used
// across signscribe components.
//
// It owns the console/JSON handlers, centralizes level and output plumbing,
// and exposes context-aware helpers so pipeline code automatically tags log
// lines with request IDs, source names, and stage names. A no-op logger is
// provided for tests and wiring code that cannot fail.
package logging
