// Package server exposes the pipeline over HTTP.
//
// Routes:
//   - POST /api/upload (and /upload-video/): multipart upload in the "file" field
//   - POST /api/transcribe: JSON {"url": "..."}
//   - GET /api/runs, GET /api/runs/{id}: run history
//   - GET /api/status: dependency, preflight and staging report
//
// Errors are JSON {"error", "kind", "run_id"} with the status chosen by
// services.HTTPStatus. Run holds a file lock so only one server uses a
// state directory at a time.
package server
