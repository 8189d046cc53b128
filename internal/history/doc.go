// Package history records every pipeline run in a SQLite database so the
// CLI and HTTP API can list past transcriptions and inspect their results.
//
// The schema is embedded and versioned; a mismatched database fails Open
// with ErrSchemaMismatch rather than being migrated. Writes retry briefly
// on SQLITE_BUSY.
package history
