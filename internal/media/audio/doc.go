// Package audio chooses which audio stream of an uploaded video is
// transcoded for speech recognition.
//
// Ranking prefers the configured speech language, then the container's
// default stream, and pushes commentary tracks to the back. Ties keep
// container order.
package audio
