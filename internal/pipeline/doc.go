// Package pipeline is the composition root: it turns an uploaded file or a
// remote URL into a transcript, segments it, builds render URLs, forwards
// uploads to object storage and records every run in the history store.
//
// Build wires the production collaborators from configuration and loads the
// speech model exactly once; tests construct a Pipeline with New and fakes.
package pipeline
