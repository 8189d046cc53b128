// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Inspect runs ffprobe and decodes its streams and format sections;
// InspectWith accepts a Runner so callers and tests can substitute the
// process. Helper methods on Result and Stream expose the audio track
// metadata needed before transcoding.
package ffprobe
