// Package services defines shared utilities consumed by the pipeline
// components and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp request IDs, source names, and stage names
//     for logging and tracing.
//   - Structured error markers plus the Wrap helper that translate failures
//     from external tools into a fixed taxonomy (invalid source, media,
//     caption unavailable, transcription).
//   - HTTP status and persistence labels derived from those markers.
//
// Use these helpers at every component boundary so no raw third-party error
// escapes without a marker.
package services
