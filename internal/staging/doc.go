// Package staging manages the scratch directories uploads and audio
// artifacts live in while a run is in flight, and sweeps directories left
// behind by crashed runs.
package staging
